package chatservice

import "errors"

// 使用者可見的錯誤，訊息固定，不觸發備援或重試
var (
	ErrWrongPassword = errors.New("密码错误")
	ErrRoomFull      = errors.New("房间已满")
)

var (
	// ErrConflict 表示條件式更新輸給了並行的寫入，由 adapter 重新執行加入流程
	ErrConflict = errors.New("room changed concurrently")

	// ErrInvalidCredentials 帳號不存在或密碼不符
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnknownBackend 綁定了 Registry 中沒有的後端
	ErrUnknownBackend = errors.New("unknown backend")
)

// IsDomainError 回報錯誤是否屬於使用者可見的房間錯誤
func IsDomainError(err error) bool {
	return errors.Is(err, ErrWrongPassword) || errors.Is(err, ErrRoomFull)
}
