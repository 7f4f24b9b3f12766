package models

import (
	"cmp"
	"time"
)

// Message 代表一則聊天訊息，建立後不可變更
type Message struct {
	ID        string    `bson:"_id" json:"id"`
	RoomID    string    `bson:"roomId" json:"roomId"`
	Text      string    `bson:"text" json:"text"`
	Sender    string    `bson:"sender" json:"sender"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"` // 後端指派，唯一的排序依據
}

// CompareMessages 依 createdAt 升序排序，時間相同時以 ID 決定順序
func CompareMessages(a, b Message) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// MessageSnapshot 是訊息訂閱回呼收到的資料：永遠是完整且排序好的清單，不是增量
type MessageSnapshot struct {
	Docs []Message `json:"docs"`
}
