// Package weather はOpenWeatherMapからの天気取得と日別予報の組み立てを提供する。
package weather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	// maxResponseSize は上流レスポンスの最大読み取りサイズ（1MB）。
	maxResponseSize = 1 << 20

	endpointForecast = "forecast"
	endpointCurrent  = "weather"
)

var (
	// ErrAPIKeyMissing はAPIキーが未設定であることを示す。
	ErrAPIKeyMissing = errors.New("weather: API key not configured")
	// ErrCircuitOpen はサーキットブレーカーが開いていることを示す。
	ErrCircuitOpen = errors.New("weather: circuit breaker open")
)

// StatusError は上流が2xx以外のステータスを返したことを示す。
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("weather: unexpected upstream status %d", e.StatusCode)
}

// UpstreamRecorder は上流リクエストの結果を記録する。
type UpstreamRecorder interface {
	RecordUpstreamRequest(endpoint, result string)
}

type nopRecorder struct{}

func (nopRecorder) RecordUpstreamRequest(string, string) {}

// ClientConfig はOpenWeatherMapクライアントの設定。
type ClientConfig struct {
	APIKey         string
	BaseURL        string
	Lang           string
	Timeout        time.Duration
	RPS            float64
	Burst          int
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Client はOpenWeatherMap APIのHTTPクライアント。
// レートリミッター、サーキットブレーカー、指数バックオフによる再試行を備える。
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	recorder   UpstreamRecorder
}

// NewClient はClientを生成する。httpClientがnilの場合はcfg.Timeoutのクライアントを使用する。
func NewClient(cfg ClientConfig, httpClient *http.Client, recorder UpstreamRecorder) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "openweathermap",
			MaxRequests: 5,
			Interval:    time.Minute,
			Timeout:     2 * time.Minute,
		}),
		recorder: recorder,
	}
}

// HasAPIKey はAPIキーが設定されているかを返す。
func (c *Client) HasAPIKey() bool {
	return c.cfg.APIKey != ""
}

// fetch は指定エンドポイントを座標付きで呼び出し、レスポンスボディを返す。
func (c *Client) fetch(ctx context.Context, endpoint string, lat, lon float64) ([]byte, error) {
	if !c.HasAPIKey() {
		return nil, ErrAPIKeyMissing
	}

	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	query.Set("appid", c.cfg.APIKey)
	query.Set("units", "metric")
	if c.cfg.Lang != "" {
		query.Set("lang", c.cfg.Lang)
	}
	target := c.cfg.BaseURL + "/" + endpoint + "?" + query.Encode()

	body, err := c.doWithRetry(ctx, target)
	if err != nil {
		c.recorder.RecordUpstreamRequest(endpoint, "error")
		return nil, err
	}
	c.recorder.RecordUpstreamRequest(endpoint, "success")
	return body, nil
}

func (c *Client) doWithRetry(ctx context.Context, target string) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("weather: rate limiter wait: %w", err)
		}

		body, err := c.doOnce(ctx, target)
		if err == nil {
			return body, nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		if !retryable(err) || attempt >= c.cfg.MaxRetries {
			return nil, err
		}

		timer := time.NewTimer(CalculateBackoff(attempt, c.cfg.InitialBackoff, c.cfg.MaxBackoff))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (c *Client) doOnce(ctx context.Context, target string) ([]byte, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if ClassifyHTTPStatus(resp.StatusCode) != ResultOK {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
			return nil, &StatusError{StatusCode: resp.StatusCode}
		}
		return io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

// retryable はエラーが再試行対象かを判定する。
// ステータスエラーは429/5xxのみ、ネットワークエラーは常に再試行する。
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return ClassifyHTTPStatus(statusErr.StatusCode) == ResultRetry
	}
	return true
}
