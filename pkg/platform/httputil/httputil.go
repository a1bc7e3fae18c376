// Package httputil holds the JSON request/response helpers shared by every
// handler package.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "github.com/CajesJM/CajesJm-tmc-connect-sub001/pkg/domain-errors"
)

type errorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps a coded error onto the wire. Internal errors omit the
// description so storage details never reach clients.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)

	body := errorBody{Error: string(code)}
	if code != dErrors.CodeInternal {
		var de *dErrors.Error
		if errors.As(err, &de) {
			body.Description = de.Message
		}
	}
	WriteJSON(w, code.HTTPStatus(), body)
}

// DecodeJSON decodes the request body into dst, rejecting unknown fields. A
// false return means the error response has already been written.
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var dst T
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&dst); err != nil {
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed request body"))
		return dst, false
	}
	return dst, true
}
