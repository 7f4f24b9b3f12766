// relay 是關聯式後端前方的 CORS 轉發服務
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"nicetalk/config"
	"nicetalk/logger"
	"nicetalk/middleware"
	"nicetalk/relay"
)

func main() {
	cfg := config.LoadRelayConfig()

	logData, err := logger.New().Level(cfg.LogLevel).Make()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logData.Close()
	log := logData.Logger.With().Str("service", "relay").Logger()

	upstream, err := relay.ParseUpstream(cfg.Upstream)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid upstream")
	}

	handler := chimw.RequestID(middleware.RequestLogger(log)(chimw.Recoverer(relay.Handler(upstream, log))))

	serverAddr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:              serverAddr,
		Handler:           handler,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Str("upstream", upstream.String()).Msg("Relay starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Str("addr", serverAddr).Msg("Could not listen")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Shutting down relay...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Relay forced to shutdown")
	}
	log.Info().Msg("Relay exited gracefully.")
}
