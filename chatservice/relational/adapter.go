package relational

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"nicetalk/chatservice"
	"nicetalk/models"
	"nicetalk/realtime"
	"nicetalk/utils"
)

// Options 是關聯式 adapter 的身分設定
type Options struct {
	// AllowAnonymousSignIn 為 false 時 Init 直接使用本地身分
	AllowAnonymousSignIn bool
	Identity             *LocalIdentity
}

// Service 是關聯式後端的 adapter
type Service struct {
	store    Store
	accounts Accounts
	feed     realtime.Feed
	issuer   *utils.TokenIssuer
	opts     Options
	log      zerolog.Logger
	now      func() time.Time

	mu      sync.RWMutex
	session *models.Session
}

var _ chatservice.ChatService = (*Service)(nil)

func New(store Store, accounts Accounts, feed realtime.Feed, issuer *utils.TokenIssuer, log zerolog.Logger, opts Options) *Service {
	return &Service{
		store:    store,
		accounts: accounts,
		feed:     feed,
		issuer:   issuer,
		opts:     opts,
		log:      log.With().Str("backend", string(models.BackendRelational)).Logger(),
		now:      time.Now,
	}
}

func (s *Service) Backend() models.Backend { return models.BackendRelational }

func (s *Service) Session() *models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// Init 依序嘗試：既有 session、匿名登入、本地保存的身分
func (s *Service) Init(ctx context.Context) (string, error) {
	if sess := s.Session(); sess.Valid() {
		return sess.UserID, nil
	}

	if s.opts.AllowAnonymousSignIn {
		user, err := s.accounts.CreateAnonymousUser(ctx)
		if err == nil {
			sess, err := s.establish(user.ID, true, true)
			if err != nil {
				return "", err
			}
			return sess.UserID, nil
		}
		s.log.Warn().Err(err).Msg("Anonymous sign-in failed, using local identity")
	}

	if s.opts.Identity == nil {
		return "", errors.New("no local identity configured")
	}
	id, err := s.opts.Identity.Load()
	if err != nil {
		return "", fmt.Errorf("local identity: %w", err)
	}
	sess, err := s.establish(id, true, false)
	if err != nil {
		return "", err
	}
	return sess.UserID, nil
}

func (s *Service) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	user, err := s.accounts.FindUserByEmail(ctx, email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, chatservice.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, chatservice.ErrInvalidCredentials
	}
	return s.establish(user.ID, false, true)
}

func (s *Service) establish(userID string, anonymous, verified bool) (*models.Session, error) {
	sess := &models.Session{
		UserID:    userID,
		Backend:   models.BackendRelational,
		Anonymous: anonymous,
		Verified:  verified,
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

// findRoom 將 pgx.ErrNoRows 視為房間不存在
func (s *Service) findRoom(ctx context.Context, roomID string) (*models.Room, error) {
	room, err := s.store.FindRoom(ctx, roomID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return room, err
}

func (s *Service) JoinOrCreateRoom(ctx context.Context, roomID, password, userID string) error {
	return chatservice.RetryOnConflict(ctx, func(ctx context.Context) error {
		room, err := s.findRoom(ctx, roomID)
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
			if err := s.deleteRoom(ctx, roomID); err != nil {
				return fmt.Errorf("destroy expired room %s: %w", roomID, err)
			}
			return s.createRoom(ctx, chatservice.NewRoom(roomID, password, userID, now))
		case chatservice.AdmitCreate:
			return s.createRoom(ctx, chatservice.NewRoom(roomID, password, userID, now))
		case chatservice.AdmitJoin:
			next := append(slices.Clone(room.Participants), userID)
			updated, err := s.store.UpdateParticipants(ctx, room, next)
			if err != nil {
				return err
			}
			s.publish(ctx, realtime.RoomTopic(roomID), realtime.EventUpdate, updated, room)
		}
		return nil
	})
}

func (s *Service) createRoom(ctx context.Context, room *models.Room) error {
	created, err := s.store.InsertRoom(ctx, room)
	if err != nil {
		return err
	}
	s.publish(ctx, realtime.RoomTopic(room.RoomID), realtime.EventInsert, created, nil)
	return nil
}

func (s *Service) deleteRoom(ctx context.Context, roomID string) error {
	deleted, err := s.store.DeleteRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if deleted != nil {
		s.publish(ctx, realtime.RoomTopic(roomID), realtime.EventDelete, nil, deleted)
	}
	return nil
}

// publish 寫入已經成功，通道失敗只記錄
func (s *Service) publish(ctx context.Context, topic, eventType string, newRow, oldRow any) {
	change, err := realtime.NewChange(eventType, nilIfEmpty(newRow), nilIfEmpty(oldRow))
	if err == nil {
		err = s.feed.Publish(ctx, topic, change)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("topic", topic).Str("event", eventType).Msg("Failed to publish change")
	}
}

// nilIfEmpty 避免 typed nil 被編碼成 "null"
func nilIfEmpty(row any) any {
	switch r := row.(type) {
	case *models.Room:
		if r == nil {
			return nil
		}
	case *models.Message:
		if r == nil {
			return nil
		}
	}
	return row
}

// LeaveRoom 離開即銷毀整個房間，與 DestroyRoom 相同
func (s *Service) LeaveRoom(ctx context.Context, roomID, userID string) {
	if err := s.deleteRoom(ctx, roomID); err != nil {
		s.log.Error().Err(err).Str("roomId", roomID).Str("userId", userID).Msg("Failed to leave room")
	}
}

func (s *Service) DestroyRoom(ctx context.Context, roomID string) error {
	if err := s.deleteRoom(ctx, roomID); err != nil {
		return fmt.Errorf("destroy room %s: %w", roomID, err)
	}
	return nil
}

func (s *Service) SendMessage(ctx context.Context, roomID, text, senderID string) error {
	msg, err := s.store.InsertMessage(ctx, roomID, text, senderID)
	if err != nil {
		return fmt.Errorf("send message to %s: %w", roomID, err)
	}
	s.publish(ctx, realtime.MessagesTopic(roomID), realtime.EventInsert, msg, nil)
	return nil
}

func (s *Service) OnRoomUpdate(ctx context.Context, roomID string, fn chatservice.RoomCallback) *chatservice.Subscription {
	return chatservice.Subscribe(ctx, func(ctx context.Context) {
		log := s.log.With().Str("roomId", roomID).Logger()

		// 先訂閱再讀取，讀取之後的變更不會遺失
		stream, err := s.feed.Subscribe(ctx, realtime.RoomTopic(roomID))
		if err != nil {
			log.Error().Err(err).Msg("Room subscription failed")
		} else {
			defer stream.Close()
		}

		room, err := s.findRoom(ctx, roomID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to read room")
			room = nil
		}
		chatservice.Deliver(ctx, fn, models.NewRoomSnapshot(room, s.now()))
		if stream == nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case change, ok := <-stream.C():
				if !ok {
					log.Warn().Msg("Room subscription closed")
					return
				}
				if change.EventType == realtime.EventDelete || len(change.New) == 0 {
					chatservice.Deliver(ctx, fn, models.RoomSnapshot{Exists: false})
					continue
				}
				var updated models.Room
				if err := json.Unmarshal(change.New, &updated); err != nil {
					log.Warn().Err(err).Msg("Dropping undecodable room change")
					continue
				}
				chatservice.Deliver(ctx, fn, models.NewRoomSnapshot(&updated, s.now()))
			}
		}
	})
}

func (s *Service) OnMessageUpdate(ctx context.Context, roomID string, fn chatservice.MessageCallback) *chatservice.Subscription {
	return chatservice.Subscribe(ctx, func(ctx context.Context) {
		log := s.log.With().Str("roomId", roomID).Logger()

		stream, err := s.feed.Subscribe(ctx, realtime.MessagesTopic(roomID))
		if err != nil {
			log.Error().Err(err).Msg("Message subscription failed")
		} else {
			defer stream.Close()
		}

		deliverAll := func() {
			messages, err := s.store.ListMessages(ctx, roomID)
			if err != nil {
				if ctx.Err() == nil {
					log.Error().Err(err).Msg("Failed to list messages")
				}
				return
			}
			if messages == nil {
				messages = []models.Message{}
			}
			chatservice.Deliver(ctx, fn, models.MessageSnapshot{Docs: messages})
		}

		deliverAll()
		if stream == nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case change, ok := <-stream.C():
				if !ok {
					log.Warn().Msg("Message subscription closed")
					return
				}
				// 每次新增都重新查詢完整清單
				if change.EventType == realtime.EventInsert {
					deliverAll()
				}
			}
		}
	})
}
