package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/platinummonkey/modhost/pkg/contextkeys"
)

// ErrorResponse is the body of every error response
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// StatusError carries the status code an error response should use
type StatusError struct {
	Status int
	Err    error
}

func (e *StatusError) Error() string { return e.Err.Error() }

func (e *StatusError) Unwrap() error { return e.Err }

// BadRequest reports err with 400
func BadRequest(err error) error {
	return &StatusError{Status: http.StatusBadRequest, Err: err}
}

// NotFound reports err with 404
func NotFound(err error) error {
	return &StatusError{Status: http.StatusNotFound, Err: err}
}

// HandlerFunc is a handler that returns its failure instead of writing it
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// ServeHTTP implements http.Handler
func (h HandlerFunc) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h(w, r); err != nil {
		WriteError(w, r, err)
	}
}

// WriteJSON writes data as JSON with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes err as an ErrorResponse. A *StatusError anywhere in the
// chain picks the status; anything else is a 500.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var se *StatusError
	if errors.As(err, &se) {
		status = se.Status
	}

	_ = WriteJSON(w, status, ErrorResponse{
		Error:     err.Error(),
		RequestID: contextkeys.RequestID(r.Context()),
	})
}
