// Package http serves the JSON API and the server-rendered ledger page.
//
// This file holds the JSON response builder and the single place where
// service errors are mapped to status codes.

package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"dompet/internal/core"
	"dompet/internal/log"
)

// apiError is the JSON error body. Empty fields are omitted.
type apiError struct {
	Error      string          `json:"error"`
	Message    string          `json:"message,omitempty"`
	Received   any             `json:"received,omitempty"`
	StoreState core.StoreState `json:"storeState,omitempty"`
	Path       string          `json:"path,omitempty"`
	Method     string          `json:"method,omitempty"`
}

// ErrorResponseBuilder builds a JSON error response.
type ErrorResponseBuilder struct {
	status int
	body   apiError
}

// NewErrorResponse starts a 400 response with the given error title.
func NewErrorResponse(title string) *ErrorResponseBuilder {
	return &ErrorResponseBuilder{status: http.StatusBadRequest, body: apiError{Error: title}}
}

func (b *ErrorResponseBuilder) Status(code int) *ErrorResponseBuilder {
	b.status = code
	return b
}

func (b *ErrorResponseBuilder) Message(msg string) *ErrorResponseBuilder {
	b.body.Message = msg
	return b
}

// Received echoes back the offending input.
func (b *ErrorResponseBuilder) Received(v any) *ErrorResponseBuilder {
	b.body.Received = v
	return b
}

func (b *ErrorResponseBuilder) StoreState(s core.StoreState) *ErrorResponseBuilder {
	b.body.StoreState = s
	return b
}

// Route records the unmatched path and method.
func (b *ErrorResponseBuilder) Route(r *http.Request) *ErrorResponseBuilder {
	b.body.Path = r.URL.Path
	b.body.Method = r.Method
	return b
}

func (b *ErrorResponseBuilder) Write(w http.ResponseWriter) {
	writeJSON(w, b.status, b.body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithComponent(log.ComponentHTTP).Error("Failed to encode JSON response", log.FieldError, err.Error())
	}
}

// storeError maps a failure from the entry service. Validation failures are
// the client's fault; everything else is a 500 carrying the store state.
func (s *Server) storeError(ctx context.Context, title string, err error) *ErrorResponseBuilder {
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		return NewErrorResponse("Missing required fields").
			Message(verr.Error()).
			Received(map[string]string{"field": verr.Field})
	}

	state := core.StateDisconnected
	if !errors.Is(err, core.ErrStoreUnavailable) {
		state = s.entries.State(ctx)
	}
	return NewErrorResponse(title).
		Status(http.StatusInternalServerError).
		Message(err.Error()).
		StoreState(state)
}
