package realtime

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const (
	// maxChannelLen 是 PostgreSQL 識別字的長度上限（NAMEDATALEN - 1）
	maxChannelLen = 63
	// maxNotifyPayload 略小於 NOTIFY 的 8000 位元組上限
	maxNotifyPayload = 7900
)

// PostgresFeed 以 LISTEN/NOTIFY 傳遞列變更。
// 兩端的閘道連到同一個資料庫，變更經由資料庫送達對方。
type PostgresFeed struct {
	pool   *pgxpool.Pool
	prefix string
	log    zerolog.Logger
}

func NewPostgresFeed(pool *pgxpool.Pool, prefix string, log zerolog.Logger) *PostgresFeed {
	return &PostgresFeed{pool: pool, prefix: prefix, log: log}
}

// channel 將主題轉成 NOTIFY 通道名稱，過長時改用雜湊
func (f *PostgresFeed) channel(topic string) string {
	name := topic
	if f.prefix != "" {
		name = f.prefix + ":" + topic
	}
	if len(name) <= maxChannelLen {
		return name
	}
	sum := sha256.Sum256([]byte(name))
	hashed := hex.EncodeToString(sum[:])
	if f.prefix != "" && len(f.prefix)+1+32 <= maxChannelLen {
		return f.prefix + ":" + hashed[:32]
	}
	return hashed[:maxChannelLen]
}

func (f *PostgresFeed) Publish(ctx context.Context, topic string, change Change) error {
	payload, err := encodeNotify(change)
	if err != nil {
		return err
	}
	_, err = f.pool.Exec(ctx, "SELECT pg_notify($1, $2)", f.channel(topic), payload)
	return err
}

// encodeNotify 編碼變更；超過 NOTIFY 上限時只保留事件類型，訂閱端會重新查詢
func encodeNotify(change Change) (string, error) {
	payload, err := json.Marshal(change)
	if err != nil {
		return "", fmt.Errorf("encode change: %w", err)
	}
	if len(payload) <= maxNotifyPayload {
		return string(payload), nil
	}
	payload, err = json.Marshal(Change{EventType: change.EventType})
	if err != nil {
		return "", fmt.Errorf("encode change: %w", err)
	}
	return string(payload), nil
}

func (f *PostgresFeed) Subscribe(ctx context.Context, topic string) (Stream, error) {
	channel := f.channel(topic)

	// LISTEN 綁在連線上，這條連線從連線池取出後專屬於這個訂閱
	pooled, err := f.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}
	conn := pooled.Hijack()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize()); err != nil {
		closeConn(conn)
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	streamCtx, cancel := context.WithCancel(context.Background())
	s := &pgStream{
		conn:   conn,
		out:    make(chan Change, 16),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go s.pump(streamCtx, f.log.With().Str("channel", channel).Logger())
	return s, nil
}

type pgStream struct {
	conn   *pgx.Conn
	out    chan Change
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (s *pgStream) pump(ctx context.Context, log zerolog.Logger) {
	defer close(s.done)
	defer close(s.out)
	for {
		n, err := s.conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Warn().Err(err).Msg("Notification listener stopped")
			}
			return
		}

		var c Change
		if err := json.Unmarshal([]byte(n.Payload), &c); err != nil {
			log.Warn().Err(err).Msg("Dropping undecodable change")
			continue
		}
		select {
		case s.out <- c:
		case <-ctx.Done():
			return
		}
	}
}

func (s *pgStream) C() <-chan Change { return s.out }

// Close 停止監聽並關閉專屬連線
func (s *pgStream) Close() error {
	s.once.Do(func() {
		s.cancel()
		<-s.done
		closeConn(s.conn)
	})
	return nil
}

func closeConn(conn *pgx.Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = conn.Close(ctx)
}
