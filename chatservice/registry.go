package chatservice

import (
	"fmt"
	"sync"

	"nicetalk/models"
)

// Registry 持有本次 session 使用的 adapter。登入後綁定一次，直到下次登入才會改變。
type Registry struct {
	mu       sync.RWMutex
	services map[models.Backend]ChatService
	fallback models.Backend
	current  ChatService
	changed  chan struct{}
}

// NewRegistry 以所有可用的 adapter 建立 Registry；fallback 是尚未綁定時使用的後端
func NewRegistry(fallback models.Backend, services ...ChatService) *Registry {
	r := &Registry{
		services: make(map[models.Backend]ChatService, len(services)),
		fallback: fallback,
		changed:  make(chan struct{}),
	}
	for _, svc := range services {
		r.services[svc.Backend()] = svc
	}
	return r
}

// Bind 綁定登入結果指定的後端
func (r *Registry) Bind(backend models.Backend) (ChatService, error) {
	svc, ok := r.services[backend]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, backend)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	previous := r.service()
	r.current = svc
	if previous == nil || previous.Backend() != svc.Backend() {
		close(r.changed)
		r.changed = make(chan struct{})
	}
	return svc, nil
}

// Changed 回傳的通道在使用中的 adapter 下一次改變時關閉
func (r *Registry) Changed() <-chan struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.changed
}

// Service 回傳已綁定的 adapter；尚未綁定時回傳預設後端
func (r *Registry) Service() ChatService {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.service()
}

func (r *Registry) service() ChatService {
	if r.current != nil {
		return r.current
	}
	return r.services[r.fallback]
}

// Bound 回報是否已經綁定
func (r *Registry) Bound() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current != nil
}
