// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package relayerror provides the relay's single tagged error type.
//
// [Error] carries a machine-readable [Code], the HTTP status it maps
// to, a human-readable message, and an optional map of structured
// detail fields. Route handlers use [errors.As] to recover an *Error
// from a returned error chain and translate it directly into an HTTP
// response; anything that doesn't match becomes [CodeInternalError]
// with status 500.
//
// Package-level constructors (e.g. [SessionNotFound], [InvalidInput])
// build values for each of the twelve machine codes the relay's error taxonomy
// defines.
package relayerror
