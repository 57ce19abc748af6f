package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

// StatusClientClosedRequest is the nginx code recorded when the caller went away.
const StatusClientClosedRequest = 499

// EmptyData is sent as `data` when there is nothing meaningful to return.
var EmptyData = struct{}{}

// StatusRecorder remembers the first status code written through it.
type StatusRecorder struct {
	http.ResponseWriter
	code  int
	wrote bool
}

func NewStatusRecorder(w http.ResponseWriter) *StatusRecorder {
	return &StatusRecorder{ResponseWriter: w, code: http.StatusOK}
}

func (sr *StatusRecorder) WriteHeader(code int) {
	if sr.wrote {
		return
	}
	sr.code, sr.wrote = code, true
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *StatusRecorder) Write(p []byte) (int, error) {
	sr.WriteHeader(sr.code)
	return sr.ResponseWriter.Write(p)
}

// Status returns the recorded status code, 200 when none was written.
func (sr *StatusRecorder) Status() int {
	return sr.code
}

// Unwrap lets http.ResponseController reach the native writer.
func (sr *StatusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

// APIError is the envelope of a failed gateway or ops call.
type APIError struct {
	RequestID string      `json:"requestid"`
	Status    int         `json:"status"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data"`
}

// APIResponse is the envelope of a successful call. Total is only
// set on collection answers.
type APIResponse struct {
	RequestID string      `json:"requestid"`
	Status    int         `json:"status"`
	Message   string      `json:"message"`
	Total     *int        `json:"total,omitempty"`
	Data      interface{} `json:"data"`
}

func NewAPIError(requestid string, status int, message string, data interface{}) *APIError {
	return &APIError{RequestID: requestid, Status: status, Message: message, Data: data}
}

func NewAPIResponse(requestid string, status int, message string, total *int, data interface{}) *APIResponse {
	return &APIResponse{RequestID: requestid, Status: status, Message: message, Total: total, Data: data}
}

// WriteJSON encodes v with the given status unless the request context is
// already done. In that case nothing is sent, only the status is set for
// the stats: 504 on timeout and 499 when the caller cancelled.
func WriteJSON(ctx context.Context, w http.ResponseWriter, status int, v interface{}) error {
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			w.WriteHeader(http.StatusGatewayTimeout)
		} else {
			w.WriteHeader(StatusClientClosedRequest)
		}
		return err
	}
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}
