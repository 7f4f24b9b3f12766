package chatservice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nicetalk/models"
)

// Admission 是加入房間時要執行的動作
type Admission int

const (
	AdmitCreate        Admission = iota // 房間不存在，建立
	AdmitRecreate                       // 房間已過期，銷毀後重建
	AdmitJoin                           // 加入為第二位參與者
	AdmitAlreadyMember                  // 已在房間內，不需寫入
)

func (a Admission) String() string {
	switch a {
	case AdmitCreate:
		return "create"
	case AdmitRecreate:
		return "recreate"
	case AdmitJoin:
		return "join"
	case AdmitAlreadyMember:
		return "already-member"
	}
	return fmt.Sprintf("admission(%d)", int(a))
}

// Admit 決定 userID 以 password 加入 room 的結果。room 為 nil 代表不存在。
func Admit(room *models.Room, password, userID string, now time.Time) (Admission, error) {
	if room == nil {
		return AdmitCreate, nil
	}
	if room.Expired(now) {
		return AdmitRecreate, nil
	}
	if room.Password != password {
		return 0, ErrWrongPassword
	}
	if room.HasParticipant(userID) {
		return AdmitAlreadyMember, nil
	}
	if room.Full() {
		return 0, ErrRoomFull
	}
	return AdmitJoin, nil
}

// NewRoom 建立第一位參與者的新房間，expiresAt 由客戶端時間指派
func NewRoom(roomID, password, userID string, now time.Time) *models.Room {
	participants := []string{userID}
	return &models.Room{
		RoomID:       roomID,
		Password:     password,
		Participants: participants,
		Status:       models.StatusFor(participants),
		ExpiresAt:    now.Add(RoomTTL),
	}
}

// joinAttempts 條件式更新失敗時，整個加入流程最多重跑的次數
const joinAttempts = 3

// RetryOnConflict 執行 attempt，遇到 ErrConflict 時重新讀取並重跑
func RetryOnConflict(ctx context.Context, attempt func(context.Context) error) error {
	var err error
	for i := 0; i < joinAttempts; i++ {
		if err = attempt(ctx); !errors.Is(err, ErrConflict) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}
	return err
}
