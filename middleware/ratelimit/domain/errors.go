package domain

import (
	"fmt"
	"time"
)

// ErrQuotaExceeded é o sentinel para errors.Is sobre QuotaExceededError.
var ErrQuotaExceeded = &QuotaExceededError{}

// QuotaExceededError é devolvido pelo modo guard quando a cota acabou.
// A ação protegida não chega a ser executada.
type QuotaExceededError struct {
	Key     Key
	RetryIn time.Duration
	ResetAt time.Time
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("Rate limit exceeded. Please try again in %d seconds.", int64(e.RetryIn/time.Second))
}

// Is faz qualquer QuotaExceededError casar com ErrQuotaExceeded.
func (e *QuotaExceededError) Is(target error) bool {
	_, ok := target.(*QuotaExceededError)
	return ok
}
