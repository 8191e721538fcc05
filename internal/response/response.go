// Package response provides shared JSON response helpers for HTTP handlers.
package response

import (
	"encoding/json"
	"net/http"
)

// Envelope is the standard API response envelope. Endpoint payloads embed it
// so their fields sit next to message/status/success at the top level.
type Envelope struct {
	Message string `json:"message,omitempty"`
	Status  int    `json:"status,omitempty"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// MessageBody is the bare {message} shape used for upload validation errors.
type MessageBody struct {
	Message string `json:"message"`
}

// Writer writes envelopes. In legacy mode the HTTP status line is always 200
// and the outcome is carried only by the in-body status field.
type Writer struct {
	Legacy bool
}

// JSON writes a JSON-encoded payload with the given HTTP status code.
func JSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// Envelope writes payload using status as the HTTP status code unless the
// writer is in legacy mode.
func (wr Writer) Envelope(w http.ResponseWriter, status int, payload interface{}) {
	if wr.Legacy {
		status = http.StatusOK
	}
	JSON(w, status, payload)
}

// Fail writes a failure envelope carrying status both in the body and, outside
// legacy mode, on the status line.
func (wr Writer) Fail(w http.ResponseWriter, status int, message string, err error) {
	env := Envelope{Message: message, Status: status, Success: false}
	if err != nil {
		env.Error = err.Error()
	}
	wr.Envelope(w, status, env)
}

// BadRequest writes a 400 {message} response. It is not affected by legacy mode.
func BadRequest(w http.ResponseWriter, message string) {
	JSON(w, http.StatusBadRequest, MessageBody{Message: message})
}
