package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ufcstats-gateway/internal/logging"
	"ufcstats-gateway/middleware/ratelimit"
	"ufcstats-gateway/middleware/ratelimit/domain"
	"ufcstats-gateway/middleware/ratelimit/infra"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Exemplo: usando o controle de admissão direto no webserver (sem proxy).
//   - modo header no login (POST /api/auth/signin)
//   - modo guard nas server actions do painel admin
func main() {
	logger := logging.NewLogger(os.Getenv("LOG_LEVEL"), "example-server", "dev")
	gin.SetMode(gin.ReleaseMode)

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           newRouter(infra.NewWindowStore(), infra.NewMemoryStatsStore(), logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("example server listening", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", slog.Any("error", err))
		os.Exit(1)
	}
}

type athleteInput struct {
	Name     string `json:"name" binding:"required"`
	Division string `json:"division" binding:"required"`
}

type athlete struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Division string `json:"division"`
}

type eventInput struct {
	Name string    `json:"name" binding:"required"`
	Date time.Time `json:"date" binding:"required"`
}

type event struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	Date time.Time `json:"date"`
}

func newRouter(store domain.QuotaStore, stats domain.StatsStore, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	sess := newSessions()

	signin := ratelimit.Middleware(ratelimit.Options{
		Store:     store,
		Policy:    domain.SignInPolicy,
		Stats:     stats,
		Logger:    logger,
		KeyPrefix: ratelimit.DefaultKeyPrefix,
		Route:     "/api/auth/signin",
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// o provedor de auth real fica fora deste exemplo: qualquer usuário entra
		user := r.FormValue("username")
		if user == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"ok":false}`))
			return
		}
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    sess.issue(user),
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	router.POST("/api/auth/signin", gin.WrapH(signin))

	actions := ratelimit.GuardOptions{
		Store:      store,
		Policy:     domain.DefaultActionPolicy,
		Stats:      stats,
		Logger:     logger,
		KeyPrefix:  "action:",
		IdentityFn: sess.user,
	}
	athletes, events := actions, actions
	athletes.Route = "/actions/athletes"
	events.Route = "/actions/events"

	router.POST("/actions/athletes", func(c *gin.Context) {
		var in athleteInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, ratelimit.ErrorResponse{Code: "INVALID_REQUEST", Message: "invalid payload"})
			return
		}
		out, err := ratelimit.GuardRequest(c.Request, athletes, func(context.Context) (athlete, error) {
			return athlete{ID: uuid.NewString(), Name: in.Name, Division: in.Division}, nil
		})
		respond(c, http.StatusCreated, out, err)
	})

	router.POST("/actions/events", func(c *gin.Context) {
		var in eventInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, ratelimit.ErrorResponse{Code: "INVALID_REQUEST", Message: "invalid payload"})
			return
		}
		out, err := ratelimit.GuardRequest(c.Request, events, func(context.Context) (event, error) {
			return event{ID: uuid.NewString(), Name: in.Name, Date: in.Date}, nil
		})
		respond(c, http.StatusCreated, out, err)
	})

	return router
}

func respond(c *gin.Context, status int, body any, err error) {
	if err == nil {
		c.JSON(status, body)
		return
	}
	if ratelimit.WriteGuardError(c.Writer, err) {
		c.Abort()
		return
	}
	c.JSON(http.StatusInternalServerError, ratelimit.ErrorResponse{Code: "INTERNAL_ERROR", Message: "internal error"})
}
