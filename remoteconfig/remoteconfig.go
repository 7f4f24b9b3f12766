// Package remoteconfig 讀取遠端的登入策略開關
package remoteconfig

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"nicetalk/models"
	"nicetalk/utils"
)

// DefaultTimeout 取得遠端設定的時間上限
const DefaultTimeout = 2 * time.Second

// Fetcher 以 GET 讀取 {useProxy: bool}
type Fetcher struct {
	client  *http.Client
	url     string
	timeout time.Duration
	log     zerolog.Logger
}

func NewFetcher(url string, timeout time.Duration, log zerolog.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{
		client:  &http.Client{},
		url:     url,
		timeout: timeout,
		log:     log,
	}
}

// Fetch 回傳遠端策略；任何錯誤或逾時都回傳預設值 {UseProxy: false}
func (f *Fetcher) Fetch(ctx context.Context) models.Policy {
	if f.url == "" {
		return models.Policy{}
	}

	policy, err := utils.FirstOf(ctx, f.timeout, models.Policy{}, f.fetch)
	if err != nil {
		f.log.Warn().Err(err).Str("url", f.url).Msg("Remote config unavailable, using default policy")
		return models.Policy{}
	}
	f.log.Info().Bool("useProxy", policy.UseProxy).Msg("Remote config loaded")
	return policy
}

func (f *Fetcher) fetch(ctx context.Context) (models.Policy, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return models.Policy{}, err
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := f.client.Do(req)
	if err != nil {
		return models.Policy{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.Policy{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var policy models.Policy
	if err := json.NewDecoder(resp.Body).Decode(&policy); err != nil {
		return models.Policy{}, fmt.Errorf("decode policy: %w", err)
	}
	return policy, nil
}
