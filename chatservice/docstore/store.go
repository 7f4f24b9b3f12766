// Package docstore 是文件型後端（MongoDB）的 ChatService 實作。
// 房間一筆文件，訊息以 roomId 關聯；即時更新來自 change stream。
package docstore

import (
	"context"

	"nicetalk/models"
)

//go:generate mockgen -source=store.go -destination=mock_store_test.go -package=docstore

// Store 是房間與訊息的持久層
type Store interface {
	// FindRoom 房間不存在時回傳 nil, nil
	FindRoom(ctx context.Context, roomID string) (*models.Room, error)
	// CreateRoom 只在房間不存在時寫入，createdAt 由伺服器指派；已存在時回傳 chatservice.ErrConflict
	CreateRoom(ctx context.Context, room *models.Room) error
	// AddParticipant 在 room 仍是讀到的那一個（createdAt、密碼相同）且人數未滿時，
	// 原子地加入 userID 並重算狀態；條件不成立時回傳 chatservice.ErrConflict
	AddParticipant(ctx context.Context, room *models.Room, userID string) error
	// DeleteRoomCascade 在同一個交易中刪除房間與其所有訊息
	DeleteRoomCascade(ctx context.Context, roomID string) error
	// InsertMessage 新增訊息，createdAt 由伺服器指派
	InsertMessage(ctx context.Context, roomID, text, sender string) error
	// WatchRoom 先以目前狀態呼叫 fn，之後每次變更再呼叫；房間被刪除時傳入 nil。
	// 阻塞直到 ctx 取消（回傳 nil）或串流失敗。
	WatchRoom(ctx context.Context, roomID string, fn func(*models.Room)) error
	// ListMessages 依 createdAt、_id 升序
	ListMessages(ctx context.Context, roomID string) ([]models.Message, error)
	// WatchMessages 先以排序後的完整清單呼叫 fn，之後每次新增或刪除再傳入完整清單
	WatchMessages(ctx context.Context, roomID string, fn func([]models.Message)) error
}

// Accounts 是使用者帳號的持久層
type Accounts interface {
	// FindUserByEmail 找不到時回傳 mongo.ErrNoDocuments
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateAnonymousUser(ctx context.Context) (*models.User, error)
}
