// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/packfwd/relay/lib/relayconfig"
	"github.com/packfwd/relay/lib/secret"
)

func testServerWithAPIKey(t *testing.T, key string) *server {
	t.Helper()
	buffer, err := secret.NewFromBytes([]byte(key))
	if err != nil {
		t.Fatalf("secret.NewFromBytes: %v", err)
	}
	return &server{
		cfg:    &relayconfig.Config{APIKey: buffer},
		logger: testLogger(),
	}
}

func TestWithAuth_RejectsMissingHeader(t *testing.T) {
	srv := testServerWithAPIKey(t, "correct-key")
	called := false
	handler := srv.withAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	req := httptest.NewRequest(http.MethodGet, "/api/gr/remote-info", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if called {
		t.Error("downstream handler was called despite missing auth header")
	}
	if recorder.Code != 401 {
		t.Errorf("status = %d, want 401", recorder.Code)
	}
}

func TestWithAuth_RejectsWrongKey(t *testing.T) {
	srv := testServerWithAPIKey(t, "correct-key")
	handler := srv.withAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/api/gr/remote-info", nil)
	req.Header.Set("x-server-key", "wrong-key")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if recorder.Code != 401 {
		t.Errorf("status = %d, want 401", recorder.Code)
	}
}

func TestWithAuth_AcceptsCorrectKey(t *testing.T) {
	srv := testServerWithAPIKey(t, "correct-key")
	called := false
	handler := srv.withAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	req := httptest.NewRequest(http.MethodGet, "/api/gr/remote-info", nil)
	req.Header.Set("x-server-key", "correct-key")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if !called {
		t.Error("downstream handler was not called despite correct auth header")
	}
}

func TestWithEnvelope_PassesThroughNonEncryptedBody(t *testing.T) {
	srv := &server{logger: testLogger()}
	var captured requestBody
	handler := srv.withEnvelope(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = requestBodyFrom(r)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/data/complete", strings.NewReader(`{"sessionId":"s1"}`))
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if captured.Metadata["sessionId"] != "s1" {
		t.Errorf("Metadata[sessionId] = %v, want s1", captured.Metadata["sessionId"])
	}
	if captured.Binary != nil {
		t.Errorf("Binary = %v, want nil for a non-encrypted body", captured.Binary)
	}
}

func TestWithEnvelope_RejectsMalformedJSON(t *testing.T) {
	srv := &server{logger: testLogger()}
	handler := srv.withEnvelope(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodPost, "/api/data/complete", strings.NewReader(`not json`))
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	if recorder.Code != 400 {
		t.Errorf("status = %d, want 400", recorder.Code)
	}
}
