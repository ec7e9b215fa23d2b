// Package httputil translates service results into HTTP responses.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "custodyprofile/pkg/domain-errors"
)

type errorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteError renders a coded error as a JSON envelope. Internal errors omit
// the description so infrastructure detail never leaks to callers.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)

	resp := errorResponse{Error: string(code)}
	if code != dErrors.CodeInternal {
		var de *dErrors.Error
		if errors.As(err, &de) {
			resp.Description = de.Message
		}
	}

	WriteJSON(w, dErrors.ToHTTPStatus(code), resp)
}

// WriteJSON renders v with the given status. Encoding failures are ignored:
// the header is already written and there is nothing useful left to do.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
