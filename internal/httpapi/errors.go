package httpapi

import (
	"errors"
	"net/http"

	"github.com/raragao87/opheliahub/internal/errs"
)

// errorResponse is the standard error payload for the API.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeErr(w http.ResponseWriter, status int, msg, code string) {
	toJSON(w, status, errorResponse{Error: msg, Code: code})
}

func badRequest(w http.ResponseWriter, msg string) { writeErr(w, http.StatusBadRequest, msg, "") }

// writeDomainErr maps service errors onto HTTP statuses. Unknown errors are
// treated as validation failures; the services return wrapped sentinels for
// everything else.
func writeDomainErr(w http.ResponseWriter, err error) {
	msg := err.Error()
	switch {
	case errors.Is(err, errs.ErrNotFound):
		writeErr(w, http.StatusNotFound, "not_found", "not_found")
	case errors.Is(err, errs.ErrForbidden):
		writeErr(w, http.StatusForbidden, msg, "forbidden")
	case errors.Is(err, errs.ErrDefaultTag):
		writeErr(w, http.StatusForbidden, msg, "default_tag")
	case errors.Is(err, errs.ErrImmutable):
		writeErr(w, http.StatusConflict, msg, "immutable")
	case errors.Is(err, errs.ErrInUse):
		writeErr(w, http.StatusConflict, msg, "in_use")
	case errors.Is(err, errs.ErrAlreadySplit):
		writeErr(w, http.StatusConflict, msg, "already_split")
	case errors.Is(err, errs.ErrNotSplit):
		writeErr(w, http.StatusConflict, msg, "not_split")
	case errors.Is(err, errs.ErrConflict):
		writeErr(w, http.StatusConflict, msg, "conflict")
	case errors.Is(err, errs.ErrInvalid):
		writeErr(w, http.StatusUnprocessableEntity, msg, "validation_error")
	default:
		writeErr(w, http.StatusBadRequest, msg, "")
	}
}
