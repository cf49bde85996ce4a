// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/packfwd/relay/lib/relayerror"
)

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// writeError maps err to the relay's {error, message} JSON body and
// its bound HTTP status. Anything that isn't a *relayerror.Error
// becomes a 500 INTERNAL_ERROR.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	relayErr, ok := relayerror.As(err)
	if !ok {
		logger.Error("unhandled error", "error", err)
		writeJSON(w, 500, map[string]string{
			"error":   string(relayerror.CodeInternalError),
			"message": err.Error(),
		})
		return
	}

	if relayErr.StatusCode >= 500 {
		logger.Error("request failed", "code", relayErr.Code, "error", relayErr.Message)
	}

	writeJSON(w, relayErr.StatusCode, map[string]string{
		"error":   string(relayErr.Code),
		"message": relayErr.Message,
	})
}

// getString reads a required string field from a decoded JSON object.
func getString(metadata map[string]any, key string) (string, error) {
	raw, ok := metadata[key]
	if !ok {
		return "", relayerror.InvalidInput("missing required field %q", key)
	}
	value, ok := raw.(string)
	if !ok || value == "" {
		return "", relayerror.InvalidInput("field %q must be a non-empty string", key)
	}
	return value, nil
}

// getOptionalString reads an optional string field, returning "" if absent.
func getOptionalString(metadata map[string]any, key string) string {
	raw, ok := metadata[key]
	if !ok {
		return ""
	}
	value, _ := raw.(string)
	return value
}

// getInt reads a required integer field. JSON numbers decode as
// float64 in a map[string]any, so the conversion is checked for a
// fractional part rather than type-asserted directly to int.
func getInt(metadata map[string]any, key string) (int, error) {
	raw, ok := metadata[key]
	if !ok {
		return 0, relayerror.InvalidInput("missing required field %q", key)
	}
	number, ok := raw.(float64)
	if !ok || number != float64(int64(number)) {
		return 0, relayerror.InvalidInput("field %q must be an integer", key)
	}
	return int(number), nil
}

func getInt64(metadata map[string]any, key string) (int64, error) {
	raw, ok := metadata[key]
	if !ok {
		return 0, relayerror.InvalidInput("missing required field %q", key)
	}
	number, ok := raw.(float64)
	if !ok || number != float64(int64(number)) {
		return 0, relayerror.InvalidInput("field %q must be an integer", key)
	}
	return int64(number), nil
}
