// Package login 決定本次 session 使用哪個後端，並在該後端完成登入
package login

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"nicetalk/models"
)

//go:generate mockgen -source=login.go -destination=mock_login_test.go -package=login

// PolicySource 提供遠端策略，失敗時自行回傳預設值
type PolicySource interface {
	Fetch(ctx context.Context) models.Policy
}

// Prober 判斷主要後端是否可以連線
type Prober interface {
	Reachable(ctx context.Context) bool
}

// Authenticator 是一個後端的帳密登入
type Authenticator interface {
	Backend() models.Backend
	SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error)
}

// Manager 依遠端策略與連線探測選擇後端。呼叫之間不保留狀態，由呼叫端綁定 Registry。
type Manager struct {
	policy   PolicySource
	probe    Prober
	primary  Authenticator
	fallback Authenticator
	log      zerolog.Logger
}

func NewManager(policy PolicySource, probe Prober, primary, fallback Authenticator, log zerolog.Logger) *Manager {
	return &Manager{
		policy:   policy,
		probe:    probe,
		primary:  primary,
		fallback: fallback,
		log:      log,
	}
}

// HandleLogin 執行登入流程：
//  1. 讀取遠端策略
//  2. 策略強制備援時只登入備援後端，結果原樣回傳
//  3. 探測主要後端
//  4. 可連線時登入主要後端，任何錯誤都改走備援
//  5. 登入備援後端
func (m *Manager) HandleLogin(ctx context.Context, email, password string) (*models.LoginResult, error) {
	m.log.Info().Msg("Starting login")

	if m.policy.Fetch(ctx).UseProxy {
		m.log.Info().Msg("Remote policy forces fallback backend")
		sess, err := m.fallback.SignInWithPassword(ctx, email, password)
		if err != nil {
			return nil, err
		}
		return &models.LoginResult{Backend: m.fallback.Backend(), Session: sess}, nil
	}

	if m.probe.Reachable(ctx) {
		sess, err := m.primary.SignInWithPassword(ctx, email, password)
		if err == nil {
			return &models.LoginResult{Backend: m.primary.Backend(), Session: sess}, nil
		}
		m.log.Warn().Err(err).Msg("Primary sign-in failed, trying fallback")
	} else {
		m.log.Info().Msg("Primary backend unreachable, switching to fallback")
	}

	sess, err := m.fallback.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("代理登录也失败: %w", err)
	}
	return &models.LoginResult{Backend: m.fallback.Backend(), Session: sess}, nil
}
