package models

import (
	"slices"
	"time"
)

// RoomStatus 代表房間目前的狀態
type RoomStatus string

const (
	RoomStatusWaiting RoomStatus = "waiting" // 只有一位參與者，等待對方加入
	RoomStatusActive  RoomStatus = "active"  // 兩位參與者皆已加入
)

// MaxParticipants 一個房間最多容納的參與者數量
const MaxParticipants = 2

// Room 代表一個雙人聊天室，RoomID 由呼叫端指定並作為主鍵
type Room struct {
	RoomID       string     `bson:"_id" json:"roomId"`
	Password     string     `bson:"password" json:"-"` // 明文比對，不輸出給前端
	Participants []string   `bson:"participants" json:"participants"`
	Status       RoomStatus `bson:"status" json:"status"`
	CreatedAt    time.Time  `bson:"createdAt" json:"createdAt"` // 後端指派
	ExpiresAt    time.Time  `bson:"expiresAt" json:"expiresAt"` // 建立時由客戶端指派 createdAt + 10 分鐘
}

// Expired 回報房間在 now 時是否已過期
func (r *Room) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && r.ExpiresAt.Before(now)
}

// HasParticipant 檢查使用者是否已在房間內
func (r *Room) HasParticipant(userID string) bool {
	return slices.Contains(r.Participants, userID)
}

// Full 回報房間是否已滿
func (r *Room) Full() bool {
	return len(r.Participants) >= MaxParticipants
}

// StatusFor 依參與者數量計算房間狀態，維持 active 當且僅當人數為 2
func StatusFor(participants []string) RoomStatus {
	if len(participants) >= MaxParticipants {
		return RoomStatusActive
	}
	return RoomStatusWaiting
}

// RoomSnapshot 是房間即時訂閱回呼收到的資料，對應 {exists, data}
type RoomSnapshot struct {
	Exists bool  `json:"exists"`
	Room   *Room `json:"room,omitempty"`
}

// NewRoomSnapshot 將讀到的房間轉為快照；不存在或已過期的房間一律視為不存在
func NewRoomSnapshot(room *Room, now time.Time) RoomSnapshot {
	if room == nil || room.Expired(now) {
		return RoomSnapshot{Exists: false}
	}
	return RoomSnapshot{Exists: true, Room: room}
}
