package chatservice

import (
	"context"
	"sync"
)

// Subscription 擁有一個即時訂閱的取消控制權。
// 呼叫端必須在檢視結束時呼叫 Unsubscribe，不可依賴 GC 釋放底層通道。
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Subscribe 在獨立的 goroutine 中執行 run，直到 run 返回或訂閱被取消。
// run 收到的 ctx 在 Unsubscribe 時取消；所有回呼都應在這個 goroutine 中依序執行。
func Subscribe(parent context.Context, run func(ctx context.Context)) *Subscription {
	ctx, cancel := context.WithCancel(parent)
	s := &Subscription{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(s.done)
		run(ctx)
	}()
	return s
}

// Unsubscribe 取消訂閱並等待遞送 goroutine 結束，之後不會再有回呼。
// 可重複呼叫；不可在回呼內呼叫。
func (s *Subscription) Unsubscribe() {
	s.once.Do(s.cancel)
	<-s.done
}

// Done 在遞送 goroutine 結束後關閉
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Deliver 在訂閱仍有效時呼叫 fn
func Deliver[T any](ctx context.Context, fn func(T), v T) {
	if ctx.Err() != nil {
		return
	}
	fn(v)
}
