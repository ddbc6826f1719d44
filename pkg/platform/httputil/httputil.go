// Package httputil writes JSON responses and maps domain errors to HTTP
// statuses. Internal error descriptions are redacted from response bodies.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "reunite/pkg/domain-errors"
)

type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON writes v as a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err's domain-error code to an HTTP status and writes a JSON
// error body. Untyped errors are treated as internal. Internal errors omit the
// description so store and collaborator detail never reaches clients.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := errorBody{Error: string(code)}
	if code != dErrors.CodeInternal {
		var de *dErrors.Error
		if errors.As(err, &de) {
			body.ErrorDescription = de.Message
		} else {
			body.ErrorDescription = err.Error()
		}
	}
	WriteJSON(w, dErrors.HTTPStatus(code), body)
}
