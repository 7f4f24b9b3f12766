// Package chatservice 定義兩種後端共同遵守的聊天服務介面，
// 以及兩個 adapter 共用的加入房間演算法、訂閱物件與 Registry。
package chatservice

import (
	"context"
	"time"

	"nicetalk/models"
)

// RoomTTL 房間建立後的有效時間
const RoomTTL = 10 * time.Minute

// RoomCallback 接收房間的完整狀態（或不存在）
type RoomCallback func(models.RoomSnapshot)

// MessageCallback 接收房間的完整、依 createdAt 升序排列的訊息清單
type MessageCallback func(models.MessageSnapshot)

// ChatService 是每個後端 adapter 都必須實作的能力。
// 對外語意與後端無關：UI 只依賴這個介面。
type ChatService interface {
	// Backend 回報 adapter 對應的後端
	Backend() models.Backend

	// Init 建立一個身分並回傳 userID。只有在完全無法產生可用身分時才回傳錯誤。
	Init(ctx context.Context) (string, error)

	// SignInWithPassword 以帳號密碼登入此後端
	SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error)

	// Session 回傳目前的身分，尚未登入時為 nil
	Session() *models.Session

	// JoinOrCreateRoom 加入房間，房間不存在或已過期時建立新房間。
	// 密碼錯誤回傳 ErrWrongPassword，房間已滿回傳 ErrRoomFull，其餘後端錯誤原樣回傳。
	JoinOrCreateRoom(ctx context.Context, roomID, password, userID string) error

	// LeaveRoom 盡力而為，失敗只記錄不回傳
	LeaveRoom(ctx context.Context, roomID, userID string)

	// DestroyRoom 刪除房間與其所有訊息；對已刪除的房間再次呼叫不會出錯
	DestroyRoom(ctx context.Context, roomID string) error

	// SendMessage 新增一則訊息，時間戳由後端指派
	SendMessage(ctx context.Context, roomID, text, senderID string) error

	// OnRoomUpdate 立即以目前狀態呼叫 fn 至少一次，之後每次變更（含刪除）再呼叫
	OnRoomUpdate(ctx context.Context, roomID string, fn RoomCallback) *Subscription

	// OnMessageUpdate 在訂閱時與每次新增訊息後，以完整清單呼叫 fn，絕不傳送增量
	OnMessageUpdate(ctx context.Context, roomID string, fn MessageCallback) *Subscription
}
