// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/packfwd/relay/lib/relayerror"
)

type contextKey int

const (
	contextKeyLogger contextKey = iota
	contextKeyRequestBody
)

// requestBody is what the envelope middleware hands downstream:
// either the decrypted v1/v2 metadata plus its binary attachment, or
// (for legacy, non-encrypted callers) the request's JSON object
// unchanged with no binary attachment.
type requestBody struct {
	Metadata map[string]any
	Binary   []byte
}

// requestLogger returns the logger attached to r by withRequestID,
// already bound to this request's request_id field.
func requestLogger(r *http.Request) *slog.Logger {
	if logger, ok := r.Context().Value(contextKeyLogger).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

func requestBodyFrom(r *http.Request) (requestBody, bool) {
	body, ok := r.Context().Value(contextKeyRequestBody).(requestBody)
	return body, ok
}

// withRequestID assigns every request a google/uuid v4 request_id,
// echoes it on the X-Request-Id response header, and attaches a
// request-scoped logger carrying that ID to the request's context so
// every log line for this request — including ones written later from
// a spawned finalize task — can be correlated back to it.
func (s *server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-Id", requestID)

		logger := s.logger.With("request_id", requestID)
		ctx := context.WithValue(r.Context(), contextKeyLogger, logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withAuth enforces the x-server-key header on every /api/* request
// before any decryption work happens.
func (s *server) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		provided := r.Header.Get("x-server-key")
		expected := s.cfg.APIKey.String()

		if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
			writeError(w, requestLogger(r), relayerror.Unauthorized("invalid or missing x-server-key"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withEnvelope implements the envelope middleware of spec.md §4.6: the
// request body is parsed as JSON; if it carries a string field
// "gameData", that field is base64-decoded and handed to the
// transport decryptor, and the resulting metadata/binary pair replaces
// the request body for downstream handlers. A body with no "gameData"
// field passes through unchanged, for legacy non-encrypted routes.
func (s *server) withEnvelope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, requestLogger(r), relayerror.InvalidInput("reading request body: %v", err))
			return
		}

		var parsed map[string]any
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &parsed); err != nil {
				writeError(w, requestLogger(r), relayerror.InvalidInput("request body is not a JSON object: %v", err))
				return
			}
		}

		gameData, isEncrypted := parsed["gameData"].(string)
		body := requestBody{Metadata: parsed}

		if isEncrypted {
			payload, err := base64.StdEncoding.DecodeString(gameData)
			if err != nil {
				writeError(w, requestLogger(r), relayerror.DecryptionFailed("gameData is not valid base64"))
				return
			}

			metadata, binary, err := s.decryptor.Decrypt(payload)
			if err != nil {
				writeError(w, requestLogger(r), err)
				return
			}
			body = requestBody{Metadata: metadata, Binary: binary}
		}

		ctx := context.WithValue(r.Context(), contextKeyRequestBody, body)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
