package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vitwit/avatarnft/types"
)

type errorResponse struct {
	Error *types.Error `json:"error"`
}

func jsonResponse(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, err error) {
	var e *types.Error
	if !errors.As(err, &e) {
		e = &types.Error{Code: types.ErrInternal, Message: err.Error()}
	}
	jsonResponse(w, statusOf(e), errorResponse{Error: e})
}

// statusOf maps an error to its HTTP status. Payment failures use 402.
func statusOf(e *types.Error) int {
	switch e.Code {
	case types.ErrNotFound:
		return http.StatusNotFound
	case types.ErrUnauthorized:
		return http.StatusForbidden
	}
	switch e.Category() {
	case types.CategoryValidation:
		return http.StatusBadRequest
	case types.CategoryPayment:
		return http.StatusPaymentRequired
	case types.CategoryOracle:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
