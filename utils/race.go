package utils

import (
	"context"
	"time"
)

type outcome[T any] struct {
	value T
	err   error
}

// FirstOf 讓 op 與 timeout 競速，先完成者勝出。
// 逾時時回傳 fallback 與 context 錯誤；op 遲到的結果寫入緩衝通道後直接丟棄。
func FirstOf[T any](ctx context.Context, timeout time.Duration, fallback T, op func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan outcome[T], 1)
	go func() {
		v, err := op(ctx)
		done <- outcome[T]{value: v, err: err}
	}()

	select {
	case o := <-done:
		return o.value, o.err
	case <-ctx.Done():
		return fallback, ctx.Err()
	}
}
