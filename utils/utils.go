package utils

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"nicetalk/models"
)

// contextKey 避免與其他套件的 context 鍵衝突
type contextKey string

// ClaimsKey 是儲存在 context 中的 token 聲明的鍵
const ClaimsKey contextKey = "claims"

// Claims 是 access token 攜帶的聲明
type Claims struct {
	UserID    string         `json:"userId"`
	Backend   models.Backend `json:"backend"`
	Anonymous bool           `json:"anonymous"`
	Verified  bool           `json:"verified"`
	jwt.RegisteredClaims
}

// WithClaims 將聲明放入 context
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}

// ClaimsFromContext 從 context 中提取聲明
func ClaimsFromContext(ctx context.Context) (*Claims, error) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	if !ok || claims == nil {
		return nil, errors.New("claims not found in context")
	}
	return claims, nil
}

// TokenIssuer 簽發與驗證 HS256 access token
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue 為 session 簽發 token，回傳 oauth2.Token 形式
func (ti *TokenIssuer) Issue(session *models.Session) (*oauth2.Token, error) {
	now := ti.now()
	expiry := now.Add(ti.ttl)
	claims := Claims{
		UserID:    session.UserID,
		Backend:   session.Backend,
		Anonymous: session.Anonymous,
		Verified:  session.Verified,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "nicetalk",
			Subject:   session.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiry),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ti.secret)
	if err != nil {
		return nil, errors.New("failed to sign token")
	}
	return &oauth2.Token{
		AccessToken: signed,
		TokenType:   "Bearer",
		Expiry:      expiry,
	}, nil
}

// Parse 驗證 token 的簽名演算法與期限，並回傳聲明
func (ti *TokenIssuer) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return ti.secret, nil
	}, jwt.WithTimeFunc(ti.now))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.UserID == "" {
		return nil, errors.New("user ID not found in token claims")
	}
	return claims, nil
}
