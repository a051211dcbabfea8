package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	apierr "github.com/Brownie44l1/catdog-api/internal/errors"
)

// ResponseError writes err as a JSON error payload. Errors that are not ErrorInfo are
// reported as internal errors.
func ResponseError(w http.ResponseWriter, err error) {
	info := apierr.ErrorInfo{}
	if !errors.As(err, &info) {
		info = apierr.NewInternalError(err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(info.HttpStatus)
	json.NewEncoder(w).Encode(info)
}

func ResponseOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(data)
}
