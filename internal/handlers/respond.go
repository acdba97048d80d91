package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	applog "cookbook/internal/log"
	"cookbook/internal/store"
)

type dataResponse struct {
	Data any `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		applog.Error(context.Background(), "failed to encode json response", "error", err)
	}
}

func writeData(w http.ResponseWriter, payload any) {
	writeJSON(w, http.StatusOK, dataResponse{Data: payload})
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeStoreError maps a store error onto its HTTP status.
func writeStoreError(w http.ResponseWriter, r *http.Request, action string, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, store.ErrNotFound):
		applog.Debug(ctx, action+" target not found", "error", err)
		writeJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrValidation):
		applog.Debug(ctx, action+" rejected", "error", err)
		writeJSONError(w, http.StatusBadRequest, err.Error())
	default:
		applog.Error(ctx, "failed to "+action, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to "+action)
	}
}

// decodePatch reads a JSON patch from the body. An empty body is an empty
// patch.
func decodePatch(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// resourceID returns the id segment that follows prefix in the request path.
// It reports false for the collection path itself.
func resourceID(r *http.Request, prefix string) (int64, bool, error) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")
	if path == "" {
		return 0, false, nil
	}
	id, err := strconv.ParseInt(path, 10, 64)
	if err != nil || id <= 0 {
		return 0, true, errors.New("invalid identifier: " + path)
	}
	return id, true, nil
}
