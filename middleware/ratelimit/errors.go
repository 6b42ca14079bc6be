package ratelimit

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"ufcstats-gateway/middleware/ratelimit/domain"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Code: code, Message: message})
}

// WriteGuardError traduz o erro do modo guard em resposta HTTP.
// Devolve false se err não é de cota (o caller trata do jeito dele).
func WriteGuardError(w http.ResponseWriter, err error) bool {
	var qe *domain.QuotaExceededError
	if !errors.As(err, &qe) {
		return false
	}
	w.Header().Set("Retry-After", strconv.FormatInt(int64(qe.RetryIn/time.Second), 10))
	writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", qe.Error())
	return true
}
