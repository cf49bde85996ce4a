// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import "net/http"

// routes builds the relay's full HTTP handler: a request-ID wrapper
// around a mux whose /api/* routes additionally require the shared
// bearer secret and, for the write routes, run the envelope middleware
// before the handler ever sees a request body.
func (s *server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)

	mux.Handle("POST /api/data/chunk", s.withAuth(s.withEnvelope(http.HandlerFunc(s.handleDataChunk))))
	mux.Handle("POST /api/data/complete", s.withAuth(s.withEnvelope(http.HandlerFunc(s.handleDataComplete))))
	mux.Handle("POST /api/gr/process", s.withAuth(s.withEnvelope(http.HandlerFunc(s.handleGRProcess))))
	mux.Handle("POST /api/file/store", s.withAuth(s.withEnvelope(http.HandlerFunc(s.handleFileStore))))
	mux.Handle("GET /api/gr/remote-info", s.withAuth(http.HandlerFunc(s.handleRemoteInfo)))
	mux.Handle("GET /api/data/status/{sessionId}", s.withAuth(http.HandlerFunc(s.handleStatus)))

	return s.withRequestID(mux)
}
