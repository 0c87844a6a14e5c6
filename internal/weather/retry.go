package weather

import (
	"net/http"
	"time"
)

// UpstreamResult はHTTPステータスコードに基づく上流応答の分類。
type UpstreamResult int

const (
	// ResultOK は成功（2xx）。
	ResultOK UpstreamResult = iota
	// ResultStop は再試行しても回復しないステータス（401/403/404など）。
	ResultStop
	// ResultRetry はバックオフ後に再試行するステータス（429/5xx）。
	ResultRetry
)

// ClassifyHTTPStatus はHTTPステータスコードを上流応答の分類に変換する。
func ClassifyHTTPStatus(statusCode int) UpstreamResult {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return ResultOK
	case statusCode == http.StatusTooManyRequests:
		return ResultRetry
	case statusCode >= 500:
		return ResultRetry
	default:
		return ResultStop
	}
}

// CalculateBackoff は試行回数に基づいて指数バックオフ遅延を計算する。
// 初回はinitial、2倍ずつ増加し、maxを上限とする。
func CalculateBackoff(attempt int, initial, max time.Duration) time.Duration {
	delay := initial
	for i := 0; i < attempt; i++ {
		delay *= 2
		if max > 0 && delay > max {
			return max
		}
	}
	return delay
}
