package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// ConnectPostgres 建立 PostgreSQL 連線池。連線池在第一次使用時才連線，
// ping 失敗只記錄警告，資料表由 Schema 在之後補建。
func ConnectPostgres(ctx context.Context, dsn string, log zerolog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	poolCfg.MaxConns = 25
	poolCfg.MaxConnLifetime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		log.Warn().Err(err).Msg("PostgreSQL unreachable, continuing without it")
	} else {
		log.Info().Msg("Connected to PostgreSQL")
	}
	return pool, nil
}

// AutoMigrate 建立關聯式後端所需的資料表。
// messages 以 ON DELETE CASCADE 隨房間一起刪除。
func AutoMigrate(ctx context.Context, pool *pgxpool.Pool) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id TEXT PRIMARY KEY,
            email TEXT UNIQUE,
            password_hash TEXT,
            is_anonymous BOOLEAN NOT NULL DEFAULT false,
            created_at TIMESTAMPTZ NOT NULL DEFAULT now()
        )`,

		`CREATE TABLE IF NOT EXISTS rooms (
            room_id TEXT PRIMARY KEY,
            password TEXT NOT NULL,
            participants TEXT[] NOT NULL DEFAULT '{}',
            status TEXT NOT NULL CHECK (status IN ('waiting', 'active')) DEFAULT 'waiting',
            created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
            expires_at TIMESTAMPTZ NOT NULL,
            CHECK (cardinality(participants) <= 2)
        )`,

		`CREATE TABLE IF NOT EXISTS messages (
            id BIGSERIAL PRIMARY KEY,
            room_id TEXT NOT NULL REFERENCES rooms(room_id) ON DELETE CASCADE,
            text TEXT NOT NULL,
            sender TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp()
        )`,

		`CREATE INDEX IF NOT EXISTS messages_room_created_idx ON messages (room_id, created_at, id)`,
	}

	for _, query := range queries {
		if _, err := pool.Exec(ctx, query); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
