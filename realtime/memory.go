package realtime

import (
	"context"
	"sync"
)

// MemoryFeed 是單一行程內的即時通道，只有同一行程的訂閱者收得到，供測試使用
type MemoryFeed struct {
	mu   sync.RWMutex
	subs map[string]map[*memoryStream]struct{}
}

func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{subs: make(map[string]map[*memoryStream]struct{})}
}

func (f *MemoryFeed) Publish(ctx context.Context, topic string, change Change) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for s := range f.subs[topic] {
		select {
		case s.out <- change:
		case <-s.closing:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (f *MemoryFeed) Subscribe(ctx context.Context, topic string) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := &memoryStream{
		feed:    f,
		topic:   topic,
		out:     make(chan Change, 64),
		closing: make(chan struct{}),
	}

	f.mu.Lock()
	if f.subs[topic] == nil {
		f.subs[topic] = make(map[*memoryStream]struct{})
	}
	f.subs[topic][s] = struct{}{}
	f.mu.Unlock()
	return s, nil
}

// Subscribers 回報主題目前的訂閱數
func (f *MemoryFeed) Subscribers(topic string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs[topic])
}

type memoryStream struct {
	feed    *MemoryFeed
	topic   string
	out     chan Change
	closing chan struct{}
	once    sync.Once
}

func (s *memoryStream) C() <-chan Change { return s.out }

func (s *memoryStream) Close() error {
	s.once.Do(func() {
		close(s.closing)
		s.feed.mu.Lock()
		delete(s.feed.subs[s.topic], s)
		if len(s.feed.subs[s.topic]) == 0 {
			delete(s.feed.subs, s.topic)
		}
		s.feed.mu.Unlock()
		close(s.out)
	})
	return nil
}
