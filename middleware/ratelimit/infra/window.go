package infra

import (
	"sync"
	"time"

	"ufcstats-gateway/middleware/ratelimit/domain"
)

const DefaultSweepThreshold = 1000

// WindowStore é o controle de admissão por janela fixa, em memória.
//
// Cada chave tem no máximo uma QuotaEntry. A expiração é preguiçosa: uma
// entrada vencida só é substituída no próximo Check da mesma chave, ou
// removida na varredura que roda quando o mapa passa de sweepThreshold.
// Não existe timer.
//
// O estado é local ao processo: com N réplicas a cota efetiva vira
// limit × N. Para correção entre instâncias o contador teria que morar
// num store compartilhado com incremento atômico.
type WindowStore struct {
	mu             sync.Mutex
	entries        map[string]domain.QuotaEntry
	clock          domain.Clock
	sweepThreshold int
}

type WindowOption func(*WindowStore)

func WithClock(c domain.Clock) WindowOption {
	return func(s *WindowStore) { s.clock = c }
}

// WithSweepThreshold define a partir de quantas chaves a varredura roda.
func WithSweepThreshold(n int) WindowOption {
	return func(s *WindowStore) { s.sweepThreshold = n }
}

func NewWindowStore(opts ...WindowOption) *WindowStore {
	s := &WindowStore{
		entries:        make(map[string]domain.QuotaEntry),
		clock:          domain.SystemClock{},
		sweepThreshold: DefaultSweepThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check implementa domain.QuotaStore (contador de janela fixa).
//
// Leitura, incremento e escrita acontecem sob o mesmo lock.
func (s *WindowStore) Check(key domain.Key, p domain.Policy) domain.Decision {
	now := s.clock.Now()
	k := string(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	var dec domain.Decision
	ent, ok := s.entries[k]
	if !ok || ent.Expired(now) {
		ent = domain.QuotaEntry{Count: 1, ResetAt: now.Add(p.Window)}
		dec = domain.Decision{Admitted: true, Limit: p.Limit, Remaining: p.Limit - 1, ResetAt: ent.ResetAt}
	} else {
		// para em limit+1: negações repetidas não fazem o contador crescer
		if ent.Count <= p.Limit {
			ent.Count++
		}
		if ent.Count > p.Limit {
			dec = domain.Decision{Admitted: false, Limit: p.Limit, Remaining: 0, ResetAt: ent.ResetAt}
		} else {
			dec = domain.Decision{Admitted: true, Limit: p.Limit, Remaining: p.Limit - ent.Count, ResetAt: ent.ResetAt}
		}
	}
	s.entries[k] = ent

	if len(s.entries) > s.sweepThreshold {
		s.sweepLocked(now)
	}
	return dec
}

// Sweep remove todas as entradas cuja janela já terminou.
func (s *WindowStore) Sweep() {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(now)
}

func (s *WindowStore) sweepLocked(now time.Time) {
	for k, ent := range s.entries {
		if ent.Expired(now) {
			delete(s.entries, k)
		}
	}
}

// Len é o número de chaves rastreadas, vencidas ou não.
func (s *WindowStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Peek devolve a entrada da chave sem contar uma ação.
func (s *WindowStore) Peek(key domain.Key) (domain.QuotaEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ent, ok := s.entries[string(key)]
	return ent, ok
}

// Clear zera todas as cotas.
func (s *WindowStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.entries)
}
