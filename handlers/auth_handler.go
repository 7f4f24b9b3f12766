package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"nicetalk/chatservice"
	"nicetalk/models"
	"nicetalk/utils"
)

// requestTimeout 單一 API 請求對後端的時間上限
const requestTimeout = 10 * time.Second

// LoginManager 選擇後端並登入
type LoginManager interface {
	HandleLogin(ctx context.Context, email, password string) (*models.LoginResult, error)
}

// Handler 持有 HTTP API 需要的相依物件
type Handler struct {
	registry *chatservice.Registry
	login    LoginManager
	log      zerolog.Logger
}

func New(registry *chatservice.Registry, login LoginManager, log zerolog.Logger) *Handler {
	return &Handler{registry: registry, login: login, log: log}
}

// TokenResponse 是登入成功後回傳給前端的內容
type TokenResponse struct {
	Backend     models.Backend `json:"backend"`
	UserID      string         `json:"userId"`
	Anonymous   bool           `json:"anonymous"`
	AccessToken string         `json:"accessToken"`
	TokenType   string         `json:"tokenType"`
	Expiry      time.Time      `json:"expiry"`
}

func tokenResponse(sess *models.Session) TokenResponse {
	resp := TokenResponse{
		Backend:   sess.Backend,
		UserID:    sess.UserID,
		Anonymous: sess.Anonymous,
	}
	if sess.Token != nil {
		resp.AccessToken = sess.Token.AccessToken
		resp.TokenType = sess.Token.Type()
		resp.Expiry = sess.Token.Expiry
	}
	return resp
}

// sendJSON 統一發送 JSON 響應
func (h *Handler) sendJSON(w http.ResponseWriter, payload any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error().Err(err).Msg("Failed to write response")
	}
}

// sendJSONError 統一發送 JSON 格式錯誤響應
func (h *Handler) sendJSONError(w http.ResponseWriter, message string, statusCode int) {
	h.sendJSON(w, models.ErrorResponse{Message: message}, statusCode)
}

// LoginUser 處理使用者登入請求，成功後綁定本次 session 的後端
func (h *Handler) LoginUser(w http.ResponseWriter, r *http.Request) {
	var credentials struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		h.sendJSONError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	// 基本的輸入驗證
	if credentials.Email == "" || credentials.Password == "" {
		h.sendJSONError(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	result, err := h.login.HandleLogin(r.Context(), credentials.Email, credentials.Password)
	if err != nil {
		h.log.Warn().Err(err).Msg("Login failed")
		h.sendJSONError(w, err.Error(), statusForError(err))
		return
	}

	if _, err := h.registry.Bind(result.Backend); err != nil {
		h.log.Error().Err(err).Msg("Failed to bind backend")
		h.sendJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.log.Info().Str("userId", result.Session.UserID).Str("backend", string(result.Backend)).Msg("User logged in successfully")
	h.sendJSON(w, tokenResponse(result.Session), http.StatusOK)
}

// AnonymousSession 以目前的後端建立匿名身分
func (h *Handler) AnonymousSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	svc := h.registry.Service()
	if _, err := svc.Init(ctx); err != nil {
		h.log.Error().Err(err).Msg("Failed to initialise identity")
		h.sendJSONError(w, err.Error(), statusForError(err))
		return
	}

	// 尚未登入時，匿名身分所屬的預設後端就是本次 session 的後端
	if !h.registry.Bound() {
		if _, err := h.registry.Bind(svc.Backend()); err != nil {
			h.sendJSONError(w, "Internal server error", http.StatusInternalServerError)
			return
		}
	}

	sess := svc.Session()
	if sess == nil {
		h.sendJSONError(w, "Identity unavailable", http.StatusInternalServerError)
		return
	}
	h.sendJSON(w, tokenResponse(sess), http.StatusOK)
}

// GetSession 回傳 token 所代表的身分
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	claims, err := utils.ClaimsFromContext(r.Context())
	if err != nil {
		h.sendJSONError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	h.sendJSON(w, map[string]any{
		"backend":   claims.Backend,
		"userId":    claims.UserID,
		"anonymous": claims.Anonymous,
	}, http.StatusOK)
}

// Health 健康檢查
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, map[string]any{
		"status":  "ok",
		"backend": h.registry.Service().Backend(),
		"bound":   h.registry.Bound(),
	}, http.StatusOK)
}

// statusForError 將錯誤對應到 HTTP 狀態碼
func statusForError(err error) int {
	switch {
	case errors.Is(err, chatservice.ErrWrongPassword):
		return http.StatusForbidden
	case errors.Is(err, chatservice.ErrRoomFull):
		return http.StatusConflict
	case errors.Is(err, chatservice.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
