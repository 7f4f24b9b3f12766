package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nicetalk/config"
	"nicetalk/logger"
)

func main() {
	cfg := config.LoadConfig()

	logData, err := logger.New().FromPath(cfg.LogPath).Level(cfg.LogLevel).Make()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logData.Close()
	log := logData.Logger

	ctx := context.Background()

	// 只有設定錯誤會讓啟動失敗，後端暫時無法連線不會
	gw, err := newGateway(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not start gateway")
	}

	serverAddr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      gw.handler,
		IdleTimeout:  120 * time.Second,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// 如果錯誤不是因為主動關閉伺服器，就記錄錯誤並結束程式
			log.Fatal().Err(err).Str("addr", serverAddr).Msg("Could not listen")
		}
	}()

	//當按下 Ctrl+C，程式會收到 SIGINT
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Shutting down server...")

	//最多等30秒關閉，避免資料損壞，請求中斷
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// 關閉所有 WebSocket 連線並釋放訂閱
	gw.shutdown(shutdownCtx)

	log.Info().Msg("Server exited gracefully.")
}
