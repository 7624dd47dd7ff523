// Phase 11 - File: internal/interfaces/http/handlers/common.go
// Common helper functions for HTTP handlers.

package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/turtacn/KeyIP-LongDoc/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/KeyIP-LongDoc/pkg/errors"
)

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeAppError maps err to a status through its error code.  Server-side
// failures are logged and their message replaced by the code's default.
func writeAppError(w http.ResponseWriter, r *http.Request, log logging.Logger, err error) {
	code := errors.GetCode(err)
	if code == errors.CodeUnknown || code == errors.CodeOK {
		code = errors.ErrCodeInternal
	}
	status := errors.HTTPStatusForCode(code)

	msg := errors.DefaultMessageForCode(code)
	var appErr *errors.AppError
	if errors.As(err, &appErr) && status < 500 {
		msg = appErr.Message
		if appErr.Detail != "" {
			msg += ": " + appErr.Detail
		}
	}
	if status >= 500 {
		log.Error("request failed",
			logging.String("path", r.URL.Path),
			logging.String("code", string(code)),
			logging.Err(err))
	}
	writeJSON(w, status, ErrorResponse{Code: string(code), Message: msg})
}

// decodeJSON reads a JSON request body into v.  Oversized bodies report
// DOC_008, everything else a bad request.
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if tooLarge(err) {
			return errors.New(errors.ErrCodeDocumentTooLarge, "request body too large")
		}
		if errors.Is(err, io.EOF) {
			return errors.InvalidParam("request body is empty")
		}
		return errors.InvalidParam("invalid request body").WithDetail(err.Error())
	}
	return nil
}

func tooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

// parseLimit reads ?limit=, falling back to def for absent or invalid values.
func parseLimit(r *http.Request, def int) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// NotFound answers unmatched routes with the JSON error envelope.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, ErrorResponse{Code: string(errors.ErrCodeNotFound), Message: "route not found"})
}

// MethodNotAllowed answers a known route hit with the wrong method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Code: string(errors.ErrCodeBadRequest), Message: "method not allowed"})
}

//Personal.AI order the ending
