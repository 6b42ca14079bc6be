package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ufcstats-gateway/middleware/ratelimit/domain"
	"ufcstats-gateway/middleware/ratelimit/infra"
)

func actionRequest(user string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "http://example/actions/athletes", nil)
	r.Header.Set("X-Real-IP", "5.5.5.5")
	if user != "" {
		r.Header.Set("X-Session-User", user)
	}
	return r
}

func sessionUser(r *http.Request) string { return r.Header.Get("X-Session-User") }

func TestGuardRequest_RunsUntilQuotaThenFails(t *testing.T) {
	clock := newClock()
	opts := GuardOptions{
		Store:     infra.NewWindowStore(infra.WithClock(clock)),
		Policy:    domain.Policy{Limit: 2, Window: 60 * time.Second},
		Clock:     clock,
		KeyPrefix: "action:",
	}

	runs := 0
	action := func(context.Context) (int, error) {
		runs++
		return runs, nil
	}

	for want := 1; want <= 2; want++ {
		got, err := GuardRequest(actionRequest(""), opts, action)
		if err != nil || got != want {
			t.Fatalf("expected (%d,nil), got (%d,%v)", want, got, err)
		}
	}

	clock.now = clock.now.Add(1500 * time.Millisecond)
	_, err := GuardRequest(actionRequest(""), opts, action)
	if runs != 2 {
		t.Fatalf("expected action to be skipped over quota, ran %d times", runs)
	}
	var qe *domain.QuotaExceededError
	if !errors.As(err, &qe) {
		t.Fatalf("expected QuotaExceededError, got %v", err)
	}
	if qe.Error() != "Rate limit exceeded. Please try again in 59 seconds." {
		t.Fatalf("unexpected message %q", qe.Error())
	}
	if qe.Key != "action:5.5.5.5" {
		t.Fatalf("expected ip-derived key, got %q", qe.Key)
	}
}

func TestGuardRequest_IdentityUpgradeSeparatesUsers(t *testing.T) {
	store := infra.NewWindowStore()
	opts := GuardOptions{
		Store:      store,
		Policy:     domain.Policy{Limit: 1, Window: time.Minute},
		KeyPrefix:  "action:",
		IdentityFn: sessionUser,
	}
	ok := func(context.Context) (string, error) { return "ok", nil }

	if _, err := GuardRequest(actionRequest("alice"), opts, ok); err != nil {
		t.Fatalf("alice: %v", err)
	}
	// mesmo IP, outro usuário: cota própria
	if _, err := GuardRequest(actionRequest("bob"), opts, ok); err != nil {
		t.Fatalf("bob: %v", err)
	}
	if _, err := GuardRequest(actionRequest("alice"), opts, ok); !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected alice to be limited, got %v", err)
	}
	if _, found := store.Peek("action:bob"); !found {
		t.Fatalf("expected user-derived key")
	}
}

func TestGuardRequest_RecordsStats(t *testing.T) {
	mem := infra.NewMemoryStatsStore()
	opts := GuardOptions{
		Store:  infra.NewWindowStore(),
		Policy: domain.Policy{Limit: 1, Window: time.Minute},
		Stats:  mem,
	}
	noop := func(context.Context) (struct{}, error) { return struct{}{}, nil }

	_, _ = GuardRequest(actionRequest(""), opts, noop)
	_, _ = GuardRequest(actionRequest(""), opts, noop)

	if got := mem.Total(); got.Admitted != 1 || got.Denied != 1 {
		t.Fatalf("expected 1/1, got %+v", got)
	}
}

func TestWriteGuardError(t *testing.T) {
	w := httptest.NewRecorder()
	if !WriteGuardError(w, &domain.QuotaExceededError{RetryIn: 42 * time.Second}) {
		t.Fatalf("expected quota error to be written")
	}
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "42" {
		t.Fatalf("expected Retry-After=42, got %q", got)
	}
	var body ErrorResponse
	_ = json.NewDecoder(w.Body).Decode(&body)
	if body.Message != "Rate limit exceeded. Please try again in 42 seconds." {
		t.Fatalf("unexpected body %+v", body)
	}

	if WriteGuardError(httptest.NewRecorder(), errors.New("db down")) {
		t.Fatalf("expected other errors to be left to the caller")
	}
}

func TestGuardRequest_StatsRouteOption(t *testing.T) {
	mem := infra.NewMemoryStatsStore()
	opts := GuardOptions{
		Store:  infra.NewWindowStore(),
		Policy: domain.DefaultActionPolicy,
		Stats:  mem,
		Route:  "/actions/athletes",
	}
	noop := func(context.Context) (struct{}, error) { return struct{}{}, nil }

	for _, path := range []string{"/actions/athletes", "/actions/athletes/x1", "/actions/athletes/x2"} {
		r := actionRequest("")
		r.URL.Path = path
		_, _ = GuardRequest(r, opts, noop)
	}

	routes := mem.ByRoute()
	if len(routes) != 1 || routes["POST /actions/athletes"].Admitted != 3 {
		t.Fatalf("expected one bounded route label, got %v", routes)
	}
}
