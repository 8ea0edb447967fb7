// Package httpx contains the HTTP transport layer of the darkroom job API.
package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	apperrors "github.com/glasskite/darkroom/internal/errors"
)

// errorEnvelope is the public error contract. Every error response, from any
// endpoint, renders this shape.
type errorEnvelope struct {
	StatusCode int            `json:"statusCode"`
	Error      string         `json:"error"`
	Message    string         `json:"message"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Timestamp  string         `json:"timestamp"`
}

// DecodeJSON decodes JSON from the request body into the destination and handles errors.
// Returns true if successful, false if there was an error (error response already written).
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		WriteError(w, apperrors.Wrap(err, apperrors.ErrCodeValidation, "request body is not valid JSON"))
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := buf.WriteTo(w); err != nil {
		// Response writer errors (e.g., client disconnect) can't be recovered from here.
		return
	}
}

// WriteRaw writes a pre-encoded JSON body. Used for idempotent replays where
// the stored response bytes are emitted verbatim.
func WriteRaw(w http.ResponseWriter, code int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}

// WriteError renders any error as the public error envelope. AppErrors carry
// their own status, code, and metadata; anything else collapses to a 500
// without leaking internals.
func WriteError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "an internal error occurred"
	var metadata map[string]any

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		status = appErr.HTTPStatus()
		message = appErr.Message
		metadata = appErr.Metadata
	}

	WriteJSON(w, status, errorEnvelope{
		StatusCode: status,
		Error:      http.StatusText(status),
		Message:    message,
		Metadata:   metadata,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	})
}
