package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	krishi "github.com/krishihq/krishi/internal"
)

// maxBodyBytes is the maximum allowed request body size (1 MB).
const maxBodyBytes = 1 << 20

type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func errorResponse(msg string) apiError {
	var e apiError
	e.Error.Message = msg
	return e
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, krishi.ErrUnauthorized), errors.Is(err, krishi.ErrSessionExpired):
		return http.StatusUnauthorized
	case errors.Is(err, krishi.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, krishi.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, krishi.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, krishi.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, krishi.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// jsonCT is a pre-allocated header value slice. Direct map assignment
// (w.Header()["Content-Type"] = jsonCT) avoids the []string{v} alloc
// that Header.Set creates on every call.
var jsonCT = []string{"application/json"}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header()["Content-Type"] = jsonCT
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// decodeJSON limits body size, decodes JSON into v, and writes a 400 on error.
// Returns true if decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid request body"))
		return false
	}
	return true
}

// writeStoreError logs the full error server-side and returns a sanitized
// message to the client to avoid leaking internal details.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	switch {
	case errors.Is(err, krishi.ErrNotFound):
		writeJSON(w, status, errorResponse("not found"))
	case errors.Is(err, krishi.ErrConflict):
		writeJSON(w, status, errorResponse("conflict"))
	default:
		slog.LogAttrs(r.Context(), slog.LevelError, "store error",
			slog.String("error", err.Error()),
		)
		writeJSON(w, status, errorResponse("internal error"))
	}
}

// writeUpstreamError maps a data-fetch failure to 502 and logs the cause.
func writeUpstreamError(w http.ResponseWriter, r *http.Request, err error) {
	slog.LogAttrs(r.Context(), slog.LevelWarn, "upstream error",
		slog.String("error", err.Error()),
	)
	writeJSON(w, errorStatus(err), errorResponse("external data source unavailable"))
}
