// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package service provides the HTTP listener used by relay-server.
//
// HTTPServer binds a TCP listener, serves a caller-provided
// http.Handler, and performs graceful shutdown when its context is
// cancelled: stop accepting new connections, wait for in-flight
// requests to drain (bounded by ShutdownTimeout), then return.
// Callers start Serve in a goroutine and select on Ready()/ctx.Done()
// the way cmd/relay-server does.
package service
