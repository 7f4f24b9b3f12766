// Package relational 是關聯式後端（PostgreSQL + 即時通道）的 ChatService 實作。
// 每次寫入成功後發佈一筆列變更，訂閱者依變更重新組出完整狀態。
package relational

import (
	"context"

	"nicetalk/models"
)

//go:generate mockgen -source=store.go -destination=mock_store_test.go -package=relational

// Store 是房間與訊息的資料表存取
type Store interface {
	// FindRoom 找不到時原樣回傳 pgx.ErrNoRows
	FindRoom(ctx context.Context, roomID string) (*models.Room, error)
	// InsertRoom 回傳寫入後的資料列；主鍵已存在時回傳 chatservice.ErrConflict
	InsertRoom(ctx context.Context, room *models.Room) (*models.Room, error)
	// UpdateParticipants 只在資料列仍是讀到的 room（created_at、密碼、參與者皆相同）時寫入 next，
	// 否則回傳 chatservice.ErrConflict
	UpdateParticipants(ctx context.Context, room *models.Room, next []string) (*models.Room, error)
	// DeleteRoom 回傳被刪除的資料列，房間不存在時回傳 nil, nil。訊息隨外鍵一起刪除。
	DeleteRoom(ctx context.Context, roomID string) (*models.Room, error)
	InsertMessage(ctx context.Context, roomID, text, sender string) (*models.Message, error)
	// ListMessages 依 created_at、id 升序
	ListMessages(ctx context.Context, roomID string) ([]models.Message, error)
}

// Accounts 是使用者資料表的存取
type Accounts interface {
	// FindUserByEmail 找不到時回傳 pgx.ErrNoRows
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateAnonymousUser(ctx context.Context) (*models.User, error)
}
