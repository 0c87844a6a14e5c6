package middleware

import (
	"net/http"
	"time"
)

// HTTPObserver はHTTPリクエストの処理時間を記録する。
// metrics.Collectorが実装する。
type HTTPObserver interface {
	ObserveHTTPRequest(method, route string, statusCode int, duration time.Duration)
}

// NewMetricsMiddleware はリクエストごとの処理時間をルートパターン単位で記録するミドルウェアを返す。
// ラベルの爆発を防ぐため、URLパスではなくchiのルートパターンを使う。
func NewMetricsMiddleware(observer HTTPObserver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)

			next.ServeHTTP(rec, r)

			observer.ObserveHTTPRequest(r.Method, routePattern(r), rec.statusCode, time.Since(start))
		})
	}
}
