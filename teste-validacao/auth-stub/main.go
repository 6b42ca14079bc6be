package main

import (
	"log/slog"
	"net/http"
	"os"

	"ufcstats-gateway/internal/logging"
	"ufcstats-gateway/middleware/httplog"
)

// Upstream falso para validar o gateway na mão:
//
//	GATEWAY_UPSTREAM_URL=http://localhost:3000 go run ./cmd/gateway
//	for i in $(seq 6); do curl -si -XPOST -H 'X-Forwarded-For: 1.2.3.4' localhost:8080/api/auth/signin | head -1; done
func main() {
	logger := logging.NewLogger("info", "auth-stub", "dev")

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"url":"/dashboard"}`))
	})
	mux.HandleFunc("GET /api/auth/session", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	})

	addr := ":3000"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}
	logger.Info("auth stub listening", slog.String("addr", addr))
	h := httplog.RequestID(httplog.AccessLog(logger, func(r *http.Request) string { return r.RemoteAddr })(mux))
	if err := http.ListenAndServe(addr, h); err != nil {
		logger.Error("server error", slog.Any("error", err))
		os.Exit(1)
	}
}
