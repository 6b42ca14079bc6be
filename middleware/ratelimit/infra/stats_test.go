package infra

import (
	"context"
	"errors"
	"testing"
	"time"

	"ufcstats-gateway/middleware/ratelimit/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
)

func signinEvent(admitted bool) domain.StatsEvent {
	return domain.StatsEvent{
		Key:      "rate-limit:1.2.3.4",
		Admitted: admitted,
		Method:   "POST",
		Path:     "/api/auth/signin",
		At:       time.Date(2026, 3, 7, 22, 15, 30, 0, time.UTC),
	}
}

func TestMemoryStatsStore_CountsByRouteAndKey(t *testing.T) {
	s := NewMemoryStatsStore(WithTrackKeys(true))
	ctx := context.Background()

	_ = s.Record(ctx, signinEvent(true))
	_ = s.Record(ctx, signinEvent(true))
	_ = s.Record(ctx, signinEvent(false))

	if got := s.Total(); got != (Counters{Admitted: 2, Denied: 1}) {
		t.Fatalf("unexpected totals %+v", got)
	}
	if got := s.ByRoute()["POST /api/auth/signin"]; got.Denied != 1 {
		t.Fatalf("expected one denial on sign-in route, got %+v", got)
	}
	if got := s.ByKey()["rate-limit:1.2.3.4"]; got.Admitted != 2 {
		t.Fatalf("expected per-key counters, got %+v", got)
	}
}

func TestMemoryStatsStore_SkipsKeysByDefault(t *testing.T) {
	s := NewMemoryStatsStore()
	_ = s.Record(context.Background(), signinEvent(false))
	if len(s.ByKey()) != 0 {
		t.Fatalf("expected keys not tracked")
	}
}

func TestRedisStatsStore_Record(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	s := NewRedisStatsStore(client,
		WithStatsPrefix("test:stats:"),
		WithStatsTTL(time.Hour),
		WithStatsTrackKeys(true),
	)
	ctx := context.Background()

	if err := s.Record(ctx, signinEvent(true)); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := s.Record(ctx, signinEvent(false)); err != nil {
		t.Fatalf("record: %v", err)
	}

	if got := mr.HGet("test:stats:total", "admitted"); got != "1" {
		t.Fatalf("expected admitted=1, got %q", got)
	}
	if got := mr.HGet("test:stats:total", "denied"); got != "1" {
		t.Fatalf("expected denied=1, got %q", got)
	}
	if got := mr.HGet("test:stats:minute:202603072215", "denied"); got != "1" {
		t.Fatalf("expected minute bucket, got %q", got)
	}
	if ttl := mr.TTL("test:stats:minute:202603072215"); ttl != time.Hour {
		t.Fatalf("expected bucket ttl 1h, got %s", ttl)
	}
	if got := mr.HGet("test:stats:route", "POST /api/auth/signin:denied"); got != "1" {
		t.Fatalf("expected route counter, got %q", got)
	}
	if got := mr.HGet("test:stats:key:rate-limit:1.2.3.4", "admitted"); got != "1" {
		t.Fatalf("expected key counter, got %q", got)
	}
	if mr.TTL("test:stats:total") != 0 {
		t.Fatalf("expected total to never expire")
	}
}

func TestRedisStatsStore_ReportsRedisErrors(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	s := NewRedisStatsStore(client, WithStatsBucket("none"))
	if err := s.Record(context.Background(), signinEvent(true)); err == nil {
		t.Fatalf("expected error with redis down")
	}
}

func TestPrometheusStatsStore_CountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewPrometheusStatsStore(reg)
	ctx := context.Background()

	_ = s.Record(ctx, signinEvent(true))
	_ = s.Record(ctx, signinEvent(false))
	_ = s.Record(ctx, signinEvent(false))

	denied := s.decisions.WithLabelValues("POST /api/auth/signin", "denied")
	if got := testutil.ToFloat64(denied); got != 2 {
		t.Fatalf("expected 2 denials, got %v", got)
	}
	if n := testutil.CollectAndCount(s.Collector()); n != 2 {
		t.Fatalf("expected 2 series, got %d", n)
	}
}

type failingStats struct{ err error }

func (f failingStats) Record(context.Context, domain.StatsEvent) error { return f.err }

func TestMultiStatsStore_FansOutAndJoinsErrors(t *testing.T) {
	mem := NewMemoryStatsStore()
	boom := errors.New("boom")
	m := MultiStatsStore{mem, nil, failingStats{err: boom}}

	err := m.Record(context.Background(), signinEvent(true))
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if mem.Total().Admitted != 1 {
		t.Fatalf("expected memory store to still record")
	}
}
