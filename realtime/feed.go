// Package realtime 提供關聯式後端的列變更通道：
// 每次寫入後發佈 {eventType, new, old}，訂閱者只收到變更的那一列。
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
)

// 事件類型
const (
	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
)

// Change 是一列資料的變更
type Change struct {
	EventType string          `json:"eventType"`
	New       json.RawMessage `json:"new,omitempty"`
	Old       json.RawMessage `json:"old,omitempty"`
}

// NewChange 將新舊資料列編碼為 Change，nil 表示該欄位不存在
func NewChange(eventType string, newRow, oldRow any) (Change, error) {
	c := Change{EventType: eventType}
	if newRow != nil {
		raw, err := json.Marshal(newRow)
		if err != nil {
			return Change{}, fmt.Errorf("encode new row: %w", err)
		}
		c.New = raw
	}
	if oldRow != nil {
		raw, err := json.Marshal(oldRow)
		if err != nil {
			return Change{}, fmt.Errorf("encode old row: %w", err)
		}
		c.Old = raw
	}
	return c, nil
}

// Stream 是一個已確認的訂閱。C 在 Close 或連線中斷後關閉。
type Stream interface {
	C() <-chan Change
	Close() error
}

// Feed 是即時通道
type Feed interface {
	Publish(ctx context.Context, topic string, change Change) error
	// Subscribe 在訂閱被確認後才返回，之後發佈的變更都會送達
	Subscribe(ctx context.Context, topic string) (Stream, error)
}

// RoomTopic 房間列變更的主題
func RoomTopic(roomID string) string { return "room:" + roomID }

// MessagesTopic 房間訊息新增的主題
func MessagesTopic(roomID string) string { return "messages:" + roomID }
