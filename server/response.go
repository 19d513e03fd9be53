package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// Machine-readable error codes.
const (
	codeBadRequest      = "bad_request"
	codeTooLarge        = "request_too_large"
	codeNotFound        = "not_found"
	codeConflict        = "conflict"
	codePaymentRequired = "payment_required"
	codeUnavailable     = "service_unavailable"
	codeContentPolicy   = "content_policy"
	codeUpstream        = "upstream_error"
	codeInternal        = "internal_error"
)

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var errTrailingData = errors.New("unexpected trailing data after JSON value")

// writeJSON encodes v with the given status. Encoding failures become a
// plain 500.
func writeJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(v); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// bindJSON decodes exactly one JSON value from the body into v. Unknown
// fields are ignored.
func bindJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)

	if err := dec.Decode(v); err != nil {
		return err
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errTrailingData
	}

	return nil
}

// writeBindError reports a body that could not be decoded, distinguishing
// an oversized body.
func writeBindError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, codeTooLarge, err.Error())
		return
	}

	writeError(w, http.StatusBadRequest, codeBadRequest, "invalid request body: "+err.Error())
}
