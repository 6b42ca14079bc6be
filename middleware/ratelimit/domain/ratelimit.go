package domain

// Camada de domínio do rate limit.
//
// Regras e contratos (interfaces/tipos) sem dependência de net/http.

import (
	"errors"
	"time"
)

// Key identifica o sujeito limitado (ex: "rate-limit:" + IP, id de usuário).
// O controle de admissão não interpreta a estrutura da chave.
type Key string

// Policy é a cota: no máximo Limit admissões por janela de Window.
type Policy struct {
	Limit  int
	Window time.Duration
}

var (
	// SignInPolicy protege o endpoint de login: 5 tentativas a cada 15 minutos.
	SignInPolicy = Policy{Limit: 5, Window: 900 * time.Second}
	// DefaultActionPolicy vale para server actions sem política própria.
	DefaultActionPolicy = Policy{Limit: 10, Window: 60 * time.Second}
)

var (
	ErrInvalidLimit  = errors.New("rate limit: limit must be > 0")
	ErrInvalidWindow = errors.New("rate limit: window must be > 0")
)

// NewPolicy monta uma Policy a partir de uma janela em segundos inteiros.
func NewPolicy(limit, windowSeconds int) Policy {
	return Policy{Limit: limit, Window: time.Duration(windowSeconds) * time.Second}
}

func (p Policy) Validate() error {
	if p.Limit <= 0 {
		return ErrInvalidLimit
	}
	if p.Window <= 0 {
		return ErrInvalidWindow
	}
	return nil
}

// QuotaEntry é o estado de admissão de uma chave na janela corrente.
//
// Count nunca passa de Limit+1; ResetAt é fixado quando a janela abre e
// não é estendido no meio dela.
type QuotaEntry struct {
	Count   int
	ResetAt time.Time
}

// Expired informa se a janela já terminou em `now` (expiração preguiçosa).
func (e QuotaEntry) Expired(now time.Time) bool {
	return !now.Before(e.ResetAt)
}

// QuotaStore é a primitiva check: decide se a chave pode executar mais uma
// ação agora sob a política informada. Nunca falha.
//
// A implementação pode ser janela fixa, token-bucket, etc.
type QuotaStore interface {
	Check(key Key, policy Policy) Decision
}

type Decision struct {
	Admitted bool
	Limit    int
	// Remaining nunca é negativo; em negação é sempre 0.
	Remaining int
	// ResetAt é o fim da janela corrente, reportado em admissão e em negação.
	ResetAt time.Time
}

// RetryIn é o tempo até ResetAt arredondado para cima em segundos inteiros.
func (d Decision) RetryIn(now time.Time) time.Duration {
	return CeilSeconds(d.ResetAt.Sub(now))
}

// CeilSeconds arredonda d para cima até o segundo inteiro. Valores negativos viram 0.
func CeilSeconds(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	secs := d / time.Second
	if d%time.Second != 0 {
		secs++
	}
	return secs * time.Second
}

// UnixCeil converte um instante para segundos Unix arredondados para cima.
func UnixCeil(t time.Time) int64 {
	secs := t.Unix()
	if t.Nanosecond() > 0 {
		secs++
	}
	return secs
}
