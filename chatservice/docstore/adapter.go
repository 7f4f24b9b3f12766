package docstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"nicetalk/chatservice"
	"nicetalk/models"
	"nicetalk/utils"
)

// Service 是文件型後端的 adapter
type Service struct {
	store    Store
	accounts Accounts
	issuer   *utils.TokenIssuer
	log      zerolog.Logger
	now      func() time.Time

	mu      sync.RWMutex
	session *models.Session
}

var _ chatservice.ChatService = (*Service)(nil)

func New(store Store, accounts Accounts, issuer *utils.TokenIssuer, log zerolog.Logger) *Service {
	return &Service{
		store:    store,
		accounts: accounts,
		issuer:   issuer,
		log:      log.With().Str("backend", string(models.BackendDocStore)).Logger(),
		now:      time.Now,
	}
}

func (s *Service) Backend() models.Backend { return models.BackendDocStore }

func (s *Service) Session() *models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// Init 沿用既有的 session，否則以匿名身分登入。這個後端沒有本地身分可退。
func (s *Service) Init(ctx context.Context) (string, error) {
	if sess := s.Session(); sess.Valid() {
		return sess.UserID, nil
	}

	user, err := s.accounts.CreateAnonymousUser(ctx)
	if err != nil {
		return "", fmt.Errorf("anonymous sign-in: %w", err)
	}
	sess, err := s.establish(user.ID, true)
	if err != nil {
		return "", err
	}
	s.log.Info().Str("userId", sess.UserID).Msg("Signed in anonymously")
	return sess.UserID, nil
}

func (s *Service) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	user, err := s.accounts.FindUserByEmail(ctx, email)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, chatservice.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	// 比對密碼
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, chatservice.ErrInvalidCredentials
	}
	return s.establish(user.ID, false)
}

func (s *Service) establish(userID string, anonymous bool) (*models.Session, error) {
	sess := &models.Session{
		UserID:    userID,
		Backend:   models.BackendDocStore,
		Anonymous: anonymous,
		Verified:  true,
	}
	token, err := s.issuer.Issue(sess)
	if err != nil {
		return nil, err
	}
	sess.Token = token

	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()
	return sess, nil
}

func (s *Service) JoinOrCreateRoom(ctx context.Context, roomID, password, userID string) error {
	return chatservice.RetryOnConflict(ctx, func(ctx context.Context) error {
		room, err := s.store.FindRoom(ctx, roomID)
		if err != nil {
			return fmt.Errorf("find room %s: %w", roomID, err)
		}

		now := s.now()
		admission, err := chatservice.Admit(room, password, userID, now)
		if err != nil {
			return err
		}

		s.log.Debug().Str("roomId", roomID).Str("admission", admission.String()).Msg("Joining room")
		switch admission {
		case chatservice.AdmitRecreate:
			if err := s.store.DeleteRoomCascade(ctx, roomID); err != nil {
				return fmt.Errorf("destroy expired room %s: %w", roomID, err)
			}
			return s.store.CreateRoom(ctx, chatservice.NewRoom(roomID, password, userID, now))
		case chatservice.AdmitCreate:
			return s.store.CreateRoom(ctx, chatservice.NewRoom(roomID, password, userID, now))
		case chatservice.AdmitJoin:
			return s.store.AddParticipant(ctx, room, userID)
		}
		return nil
	})
}

// LeaveRoom 離開即銷毀整個房間，與 DestroyRoom 相同
func (s *Service) LeaveRoom(ctx context.Context, roomID, userID string) {
	if err := s.store.DeleteRoomCascade(ctx, roomID); err != nil {
		s.log.Error().Err(err).Str("roomId", roomID).Str("userId", userID).Msg("Failed to leave room")
	}
}

func (s *Service) DestroyRoom(ctx context.Context, roomID string) error {
	if err := s.store.DeleteRoomCascade(ctx, roomID); err != nil {
		return fmt.Errorf("destroy room %s: %w", roomID, err)
	}
	return nil
}

func (s *Service) SendMessage(ctx context.Context, roomID, text, senderID string) error {
	if err := s.store.InsertMessage(ctx, roomID, text, senderID); err != nil {
		return fmt.Errorf("send message to %s: %w", roomID, err)
	}
	return nil
}

func (s *Service) OnRoomUpdate(ctx context.Context, roomID string, fn chatservice.RoomCallback) *chatservice.Subscription {
	return chatservice.Subscribe(ctx, func(ctx context.Context) {
		delivered := false
		err := s.store.WatchRoom(ctx, roomID, func(room *models.Room) {
			delivered = true
			chatservice.Deliver(ctx, fn, models.NewRoomSnapshot(room, s.now()))
		})
		if err == nil || ctx.Err() != nil {
			return
		}
		s.log.Error().Err(err).Str("roomId", roomID).Msg("Room watch stopped")
		if delivered {
			return
		}

		// 串流開不起來時仍回報一次目前狀態，讀不到視為不存在
		room, err := s.store.FindRoom(ctx, roomID)
		if err != nil {
			s.log.Error().Err(err).Str("roomId", roomID).Msg("Failed to read room")
			room = nil
		}
		chatservice.Deliver(ctx, fn, models.NewRoomSnapshot(room, s.now()))
	})
}

func (s *Service) OnMessageUpdate(ctx context.Context, roomID string, fn chatservice.MessageCallback) *chatservice.Subscription {
	return chatservice.Subscribe(ctx, func(ctx context.Context) {
		delivered := false
		err := s.store.WatchMessages(ctx, roomID, func(messages []models.Message) {
			delivered = true
			chatservice.Deliver(ctx, fn, models.MessageSnapshot{Docs: messages})
		})
		if err == nil || ctx.Err() != nil {
			return
		}
		s.log.Error().Err(err).Str("roomId", roomID).Msg("Message watch stopped")
		if delivered {
			return
		}

		messages, err := s.store.ListMessages(ctx, roomID)
		if err != nil {
			s.log.Error().Err(err).Str("roomId", roomID).Msg("Failed to list messages")
			return
		}
		if messages == nil {
			messages = []models.Message{}
		}
		chatservice.Deliver(ctx, fn, models.MessageSnapshot{Docs: messages})
	})
}
