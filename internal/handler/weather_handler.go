package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/tenki/internal/weather"
)

// WeatherServiceInterface は天気ハンドラーが必要とするサービスインターフェース。
type WeatherServiceInterface interface {
	// GetForecast は座標の日別予報を返す。
	GetForecast(ctx context.Context, lat, lon float64) (*weather.Forecast, error)
	// GetCurrent は座標の現在の天気を返す。
	GetCurrent(ctx context.Context, lat, lon float64) (*weather.Current, error)
}

// WeatherHandler は天気情報のHTTPハンドラー。
type WeatherHandler struct {
	service WeatherServiceInterface
}

// NewWeatherHandler はWeatherHandlerを生成する。
func NewWeatherHandler(service WeatherServiceInterface) *WeatherHandler {
	return &WeatherHandler{
		service: service,
	}
}

// GetForecast は日別予報を返す。
// GET /api/weather-forecast?lat=&lon=
func (h *WeatherHandler) GetForecast(w http.ResponseWriter, r *http.Request) {
	lat, lon, apiErr := parseCoordinates(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	forecast, err := h.service.GetForecast(r.Context(), lat, lon)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, forecast)
}

// GetCurrent は現在の天気を返す。
// GET /api/weather-by-coords?lat=&lon=
func (h *WeatherHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	lat, lon, apiErr := parseCoordinates(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	current, err := h.service.GetCurrent(r.Context(), lat, lon)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, current)
}
