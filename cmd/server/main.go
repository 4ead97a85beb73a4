package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"resource-pool/internal/app"
	"resource-pool/internal/handler"
	"resource-pool/internal/middleware"
	"resource-pool/internal/stats"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

// run builds the worker pool, wires the handlers and middleware, and
// serves. The server timeouts protect against slow clients and give
// callers predictable failure instead of indefinite waiting.
// Setting REDIS_ADDR additionally mirrors pool counters into Redis.
func run() error {
	ctx := context.Background()

	var rec stats.Recorder
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		rec = stats.NewRedis(rdb)
	}

	a, err := app.New(ctx, app.Config{
		PoolSize:       4,
		MaxPoolSize:    8,
		AcquireTimeout: 2 * time.Second,
		RequestTimeout: 10 * time.Second,
		Recorder:       rec,
	})
	if err != nil {
		return err
	}

	h := handler.New(a.Pool, a.Stats, a.RequestTimeout)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/lease", h.HandleLease)
	mux.HandleFunc("/stats", h.HandleStats)
	mux.HandleFunc("/drain", h.HandleDrain)

	var root http.Handler = mux
	root = middleware.RateLimit(rate.Limit(50), 100)(root)
	root = middleware.Logging(a.Pool.Stats)(root)

	srv := &http.Server{
		Addr:              ":8080",
		Handler:           root,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("listening on %s", srv.Addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
