package models

import (
	"golang.org/x/oauth2"
)

// Backend 標示目前綁定的後端
type Backend string

const (
	BackendDocStore   Backend = "docstore"   // 文件型後端（主要）
	BackendRelational Backend = "relational" // 關聯式 + 即時通道後端（備援）
)

// User 結構體定義了後端使用者資料的欄位
type User struct {
	ID           string `bson:"_id" json:"id"`
	Email        string `bson:"email,omitempty" json:"email,omitempty"`
	PasswordHash string `bson:"password,omitempty" json:"-"` // bcrypt 雜湊，JSON 輸出時忽略
	Anonymous    bool   `bson:"anonymous" json:"anonymous"`
}

// Session 代表一次登入後的身分
type Session struct {
	UserID    string        `json:"userId"`
	Backend   Backend       `json:"backend"`
	Anonymous bool          `json:"anonymous"`
	Verified  bool          `json:"verified"` // 本地產生的匿名身分沒有後端驗證
	Token     *oauth2.Token `json:"-"`
}

// Valid 回報 session 是否仍可使用
func (s *Session) Valid() bool {
	return s != nil && s.UserID != "" && s.Token.Valid()
}

// Policy 是遠端設定檔的內容
type Policy struct {
	UseProxy bool `json:"useProxy"`
}

// LoginResult 是登入流程的輸出，由呼叫端負責綁定 Registry
type LoginResult struct {
	Backend Backend
	Session *Session
}

// ErrorResponse 結構體用於返回 JSON 格式的錯誤訊息
type ErrorResponse struct {
	Message string `json:"message"`
}
