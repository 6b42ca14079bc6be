package infra

import (
	"context"
	"math"
	"sync"
	"time"

	"ufcstats-gateway/middleware/ratelimit/domain"

	"golang.org/x/time/rate"
)

// BurstStore é um domain.QuotaStore baseado em token-bucket (x/time/rate)
// com cache por chave e limpeza periódica.
//
// É a camada para quem quer suavizar rajadas na fronteira da janela fixa:
// a Policy vira um bucket de Limit fichas que recarrega Limit fichas por Window.
// ResetAt é o instante em que o bucket volta a ficar cheio.
type BurstStore struct {
	mu           sync.Mutex
	entries      map[string]*burstEntry
	clock        domain.Clock
	idleTTL      time.Duration
	cleanupEvery time.Duration
}

type burstEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

type BurstOption func(*BurstStore)

func WithIdleTTL(d time.Duration) BurstOption {
	return func(s *BurstStore) { s.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) BurstOption {
	return func(s *BurstStore) { s.cleanupEvery = d }
}

func WithBurstClock(c domain.Clock) BurstOption {
	return func(s *BurstStore) { s.clock = c }
}

func NewBurstStore(opts ...BurstOption) *BurstStore {
	s := &BurstStore{
		entries:      make(map[string]*burstEntry),
		clock:        domain.SystemClock{},
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *BurstStore) CleanupEvery() time.Duration { return s.cleanupEvery }

func refillRate(p domain.Policy) rate.Limit {
	if p.Limit <= 0 || p.Window <= 0 {
		return rate.Inf
	}
	return rate.Limit(float64(p.Limit) / p.Window.Seconds())
}

// Check implementa domain.QuotaStore.
func (s *BurstStore) Check(key domain.Key, p domain.Policy) domain.Decision {
	now := s.clock.Now()
	every := refillRate(p)

	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.entries[string(key)]
	if !ok {
		ent = &burstEntry{lim: rate.NewLimiter(every, p.Limit)}
		s.entries[string(key)] = ent
	} else if ent.lim.Limit() != every || ent.lim.Burst() != p.Limit {
		ent.lim.SetLimitAt(now, every)
		ent.lim.SetBurstAt(now, p.Limit)
	}
	ent.lastSeen = now

	admitted := ent.lim.AllowN(now, 1)
	tokens := ent.lim.TokensAt(now)

	remaining := int(math.Floor(tokens))
	if remaining < 0 {
		remaining = 0
	}
	resetAt := now
	if missing := float64(p.Limit) - tokens; missing > 0 && every != rate.Inf {
		resetAt = now.Add(time.Duration(missing / float64(every) * float64(time.Second)))
	}
	return domain.Decision{Admitted: admitted, Limit: p.Limit, Remaining: remaining, ResetAt: resetAt}
}

func (s *BurstStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Cleanup descarta buckets sem uso há mais de idleTTL.
func (s *BurstStore) Cleanup() {
	cutoff := s.clock.Now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, ent := range s.entries {
		if ent.lastSeen.Before(cutoff) {
			delete(s.entries, k)
		}
	}
}

// StartJanitor inicia uma goroutine que limpa chaves inativas periodicamente.
// Pare cancelando o contexto.
func (s *BurstStore) StartJanitor(ctx context.Context) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup()
			}
		}
	}()
}
