package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisFeed 以 Redis pub/sub 傳遞列變更
type RedisFeed struct {
	client *redis.Client
	prefix string
	log    zerolog.Logger
}

func NewRedisFeed(client *redis.Client, prefix string, log zerolog.Logger) *RedisFeed {
	return &RedisFeed{client: client, prefix: prefix, log: log}
}

func (f *RedisFeed) channel(topic string) string {
	if f.prefix == "" {
		return topic
	}
	return f.prefix + ":" + topic
}

func (f *RedisFeed) Publish(ctx context.Context, topic string, change Change) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("encode change: %w", err)
	}
	return f.client.Publish(ctx, f.channel(topic), payload).Err()
}

func (f *RedisFeed) Subscribe(ctx context.Context, topic string) (Stream, error) {
	channel := f.channel(topic)
	pubsub := f.client.Subscribe(ctx, channel)

	// 等待訂閱確認，避免漏掉確認前發佈的變更
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	s := &redisStream{
		pubsub:  pubsub,
		out:     make(chan Change, 16),
		closing: make(chan struct{}),
	}
	go s.pump(f.log.With().Str("channel", channel).Logger())
	return s, nil
}

type redisStream struct {
	pubsub  *redis.PubSub
	out     chan Change
	closing chan struct{}
	once    sync.Once
}

func (s *redisStream) pump(log zerolog.Logger) {
	defer close(s.out)
	for msg := range s.pubsub.Channel() {
		var c Change
		if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
			log.Warn().Err(err).Msg("Dropping undecodable change")
			continue
		}
		select {
		case s.out <- c:
		case <-s.closing:
			return
		}
	}
}

func (s *redisStream) C() <-chan Change { return s.out }

func (s *redisStream) Close() error {
	var err error
	s.once.Do(func() {
		close(s.closing)
		err = s.pubsub.Close()
	})
	return err
}
