package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"gorm.io/gorm"

	"cookbook/internal/db/mock"
	"cookbook/internal/store"
)

const testToken = "42"

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func withTestStores(t *testing.T) *gorm.DB {
	t.Helper()
	originalStores, originalDB := stores, database

	db, err := mock.New(context.Background(), 1000)
	if err != nil {
		t.Fatalf("failed to create mock database: %v", err)
	}
	Configure(store.New(db, nil), db)

	t.Cleanup(func() {
		Configure(originalStores, originalDB)
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// serve runs a request through the same middleware chain the router uses.
func serve(t *testing.T, handler http.HandlerFunc, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Auth-Token", testToken)

	w := httptest.NewRecorder()
	RequestID(RequireToken(handler)).ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
		}
	}
	return w, env
}

func decodeData(t *testing.T, env envelope, dst any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, dst); err != nil {
		t.Fatalf("failed to decode data %s: %v", env.Data, err)
	}
}
