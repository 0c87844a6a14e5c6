package weather

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hitoshi/tenki/internal/forecast"
	"github.com/hitoshi/tenki/internal/model"
)

// Forecast は日別予報のAPIレスポンス。
type Forecast struct {
	CityName string                  `json:"cityName"`
	Days     []forecast.DailySummary `json:"forecast"`
}

// Current は現在の天気のAPIレスポンス。
// Mainは条件判定用（"Rain", "Snow" など）でレスポンスには含めない。
type Current struct {
	Description string  `json:"description"`
	Temperature float64 `json:"temperature"`
	FeelsLike   float64 `json:"feels_like"`
	Humidity    float64 `json:"humidity"`
	CityName    string  `json:"cityName"`
	Icon        string  `json:"icon"`
	Main        string  `json:"-"`
}

type forecastPayload struct {
	City struct {
		Name string `json:"name"`
	} `json:"city"`
	List []struct {
		DtTxt string `json:"dt_txt"`
		Main  struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
		Weather []weatherEntry `json:"weather"`
	} `json:"list"`
}

type currentPayload struct {
	Name string `json:"name"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  float64 `json:"humidity"`
	} `json:"main"`
	Weather []weatherEntry `json:"weather"`
}

type weatherEntry struct {
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// upstream はServiceが使用する上流クライアント。テストではfakeに差し替える。
type upstream interface {
	HasAPIKey() bool
	fetch(ctx context.Context, endpoint string, lat, lon float64) ([]byte, error)
}

// Service は天気データの取得と日別予報の集約を行う。
type Service struct {
	client  upstream
	maxDays int
	logger  *slog.Logger
	now     func() time.Time
}

// NewService はServiceを生成する。
func NewService(client *Client, maxDays int, logger *slog.Logger) *Service {
	return newService(client, maxDays, logger, time.Now)
}

func newService(client upstream, maxDays int, logger *slog.Logger, now func() time.Time) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{client: client, maxDays: maxDays, logger: logger, now: now}
}

// GetForecast は座標の日別予報を返す。
// 上流の予報時刻はUTCのため、今日の判定もUTCで行う。
// 上流レスポンスが不正な場合は空の予報を返す。
func (s *Service) GetForecast(ctx context.Context, lat, lon float64) (*Forecast, error) {
	body, err := s.fetch(ctx, endpointForecast, lat, lon)
	if err != nil {
		return nil, err
	}

	var payload forecastPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		s.logger.Warn("予報レスポンスの解析に失敗しました",
			slog.String("error", err.Error()),
		)
		return &Forecast{Days: []forecast.DailySummary{}}, nil
	}

	samples := make([]forecast.Sample, 0, len(payload.List))
	for _, entry := range payload.List {
		sample := forecast.Sample{
			TimestampLocal: entry.DtTxt,
			TemperatureC:   entry.Main.Temp,
		}
		if len(entry.Weather) > 0 {
			sample.Description = entry.Weather[0].Description
			sample.IconCode = entry.Weather[0].Icon
		}
		samples = append(samples, sample)
	}

	today := s.now().UTC().Format("2006-01-02")
	return &Forecast{
		CityName: payload.City.Name,
		Days:     forecast.Aggregate(samples, today, s.maxDays),
	}, nil
}

// GetCurrent は座標の現在の天気を返す。
func (s *Service) GetCurrent(ctx context.Context, lat, lon float64) (*Current, error) {
	body, err := s.fetch(ctx, endpointCurrent, lat, lon)
	if err != nil {
		return nil, err
	}

	var payload currentPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		s.logger.Error("現在の天気レスポンスの解析に失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, model.NewUpstreamError()
	}

	current := &Current{
		Temperature: payload.Main.Temp,
		FeelsLike:   payload.Main.FeelsLike,
		Humidity:    payload.Main.Humidity,
		CityName:    payload.Name,
	}
	if len(payload.Weather) > 0 {
		current.Description = payload.Weather[0].Description
		current.Icon = payload.Weather[0].Icon
		current.Main = payload.Weather[0].Main
	}
	return current, nil
}

func (s *Service) fetch(ctx context.Context, endpoint string, lat, lon float64) ([]byte, error) {
	if !s.client.HasAPIKey() {
		return nil, model.NewWeatherAPIKeyMissingError()
	}

	body, err := s.client.fetch(ctx, endpoint, lat, lon)
	if err != nil {
		if errors.Is(err, ErrAPIKeyMissing) {
			return nil, model.NewWeatherAPIKeyMissingError()
		}
		s.logger.Error("天気APIの呼び出しに失敗しました",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
		)
		return nil, model.NewUpstreamError()
	}
	return body, nil
}
