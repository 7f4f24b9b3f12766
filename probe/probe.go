// Package probe 判斷主要後端的驗證端點是否可以連線
package probe

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"nicetalk/utils"
)

// DefaultTimeout 探測的時間上限
const DefaultTimeout = 2500 * time.Millisecond

// HTTPProbe 以一次 GET 判斷連線狀態，不在乎回應內容
type HTTPProbe struct {
	client  *http.Client
	url     string
	timeout time.Duration
	log     zerolog.Logger
}

func NewHTTPProbe(url string, timeout time.Duration, log zerolog.Logger) *HTTPProbe {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPProbe{
		client: &http.Client{
			// 任何回應都算可連線，不追蹤轉址
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		},
		url:     url,
		timeout: timeout,
		log:     log,
	}
}

// Reachable 在時間內收到任何 HTTP 回應時回傳 true。
// 連線錯誤立即回傳 false，逾時也回傳 false，遲到的結果直接丟棄。
func (p *HTTPProbe) Reachable(ctx context.Context) bool {
	ok, err := utils.FirstOf(ctx, p.timeout, false, p.hit)
	if err != nil {
		p.log.Info().Err(err).Str("url", p.url).Msg("Primary backend unreachable")
		return false
	}
	return ok
}

func (p *HTTPProbe) hit(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return false, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false, err
	}
	resp.Body.Close()
	return true, nil
}
