package main

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
)

const sessionCookie = "session"

// sessions é a tabela de sessões emitidas pelo login do exemplo.
// Em produção a identidade vem da sessão verificada pelo provedor de auth.
type sessions struct {
	mu    sync.RWMutex
	users map[string]string
}

func newSessions() *sessions {
	return &sessions{users: make(map[string]string)}
}

func (s *sessions) issue(user string) string {
	token := uuid.NewString()
	s.mu.Lock()
	s.users[token] = user
	s.mu.Unlock()
	return token
}

// user devolve o usuário da sessão ou "" quando o cookie não foi emitido aqui.
// Sem sessão válida o guard cai no bucket por IP.
func (s *sessions) user(r *http.Request) string {
	c, err := r.Cookie(sessionCookie)
	if err != nil || c.Value == "" {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users[c.Value]
}
