package database

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Schema 負責建立資料表或索引。第一次成功之前每次 Ensure 都會重試，成功後不再執行。
type Schema struct {
	name  string
	setup func(ctx context.Context) error

	sem   chan struct{}
	ready atomic.Bool
}

func NewSchema(name string, setup func(ctx context.Context) error) *Schema {
	return &Schema{name: name, setup: setup, sem: make(chan struct{}, 1)}
}

// Ensure 確保 schema 已建立。nil 的 Schema 視為不需要建立。
func (s *Schema) Ensure(ctx context.Context) error {
	if s == nil || s.ready.Load() {
		return nil
	}

	// 同一時間只有一個建立動作，等待中的呼叫仍受自己的 ctx 限制
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return fmt.Errorf("prepare %s schema: %w", s.name, ctx.Err())
	}
	defer func() { <-s.sem }()
	if s.ready.Load() {
		return nil
	}
	if err := s.setup(ctx); err != nil {
		return fmt.Errorf("prepare %s schema: %w", s.name, err)
	}
	s.ready.Store(true)
	return nil
}

// Ready 回報 schema 是否已建立
func (s *Schema) Ready() bool {
	return s == nil || s.ready.Load()
}

// Prepare 在背景每隔 interval 重試，直到成功或 ctx 結束
func (s *Schema) Prepare(ctx context.Context, interval time.Duration, log zerolog.Logger) {
	log = log.With().Str("schema", s.name).Logger()
	for {
		attemptCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := s.Ensure(attemptCtx)
		cancel()
		if err == nil {
			log.Info().Msg("Schema ready")
			return
		}
		log.Warn().Err(err).Dur("retryIn", interval).Msg("Schema not ready")

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}
