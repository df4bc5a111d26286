// Package httpapi exposes the document-management (C7) and weight-config
// (C11) HTTP endpoints behind a shared JSON envelope and bearer-auth
// middleware.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"
)

// ErrorCode is one of the platform's fixed HTTP error codes.
type ErrorCode string

const (
	ErrInvalidJSON      ErrorCode = "INVALID_JSON"
	ErrMissingField     ErrorCode = "MISSING_FIELD"
	ErrMissingFilename  ErrorCode = "MISSING_FILENAME"
	ErrFileTooLarge     ErrorCode = "FILE_TOO_LARGE"
	ErrInvalidFileType  ErrorCode = "INVALID_FILE_TYPE"
	ErrAccessDenied     ErrorCode = "ACCESS_DENIED"
	ErrDocumentNotFound ErrorCode = "DOCUMENT_NOT_FOUND"
	ErrDocumentNotReady ErrorCode = "DOCUMENT_NOT_READY"
	ErrCompanyNotFound  ErrorCode = "COMPANY_NOT_FOUND"
	ErrProcessingFailed ErrorCode = "PROCESSING_FAILED"
	ErrMethodNotAllowed ErrorCode = "METHOD_NOT_ALLOWED"
	ErrInternal         ErrorCode = "INTERNAL_ERROR"
)

// statusForCode maps each ErrorCode to its HTTP status.
var statusForCode = map[ErrorCode]int{
	ErrInvalidJSON:      http.StatusBadRequest,
	ErrMissingField:     http.StatusBadRequest,
	ErrMissingFilename:  http.StatusBadRequest,
	ErrFileTooLarge:     http.StatusBadRequest,
	ErrInvalidFileType:  http.StatusBadRequest,
	ErrAccessDenied:     http.StatusForbidden,
	ErrDocumentNotFound: http.StatusNotFound,
	ErrDocumentNotReady: http.StatusConflict,
	ErrCompanyNotFound:  http.StatusNotFound,
	ErrProcessingFailed: http.StatusUnprocessableEntity,
	ErrMethodNotAllowed: http.StatusMethodNotAllowed,
	ErrInternal:         http.StatusInternalServerError,
}

// envelope is the response shape every endpoint conforms to.
type envelope struct {
	Success bool           `json:"success"`
	Data    any            `json:"data,omitempty"`
	Error   *envelopeError `json:"error,omitempty"`
}

type envelopeError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func respondData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func respondErr(w http.ResponseWriter, code ErrorCode, message string, now time.Time) {
	status, ok := statusForCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, envelope{Success: false, Error: &envelopeError{Code: code, Message: message, Timestamp: now}})
}

func writeJSON(w http.ResponseWriter, status int, payload envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
