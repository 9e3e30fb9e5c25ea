package middleware

import (
	"encoding/json"
	"net/http"
)

// Stable error codes returned in the "error" field of every failure body.
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeServiceUnavailable = "ML_SERVICE_UNAVAILABLE"
	CodeInvalidUpstream    = "INVALID_UPSTREAM_RESPONSE"
	CodePersistence        = "PERSISTENCE_ERROR"
	CodeNotFound           = "NOT_FOUND"
	CodeDuplicateIdentity  = "DUPLICATE_IDENTITY"
	CodeAuth               = "AUTH_ERROR"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInternal           = "INTERNAL_SERVER_ERROR"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func WriteError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: code, Message: msg})
}
