package app

import (
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/tenki/internal/config"
	"github.com/hitoshi/tenki/internal/database"
	"github.com/hitoshi/tenki/internal/model"
)

func loadTestConfig(t *testing.T) *config.Config {
	t.Helper()
	setTestEnv(t)
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	return cfg
}

func TestBuildRouter_WiresPublicAndProtectedRoutes(t *testing.T) {
	cfg := loadTestConfig(t)

	// sql.Openは接続しないため、到達不能なDBでもワイヤリングは完了する
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		t.Fatalf("database.Open: %v", err)
	}
	defer db.Close()

	reg, collector := newRegistry()
	router, stop := buildRouter(cfg, db, reg, collector)
	defer stop()

	tests := []struct {
		path string
		want int
	}{
		{"/health", http.StatusServiceUnavailable},
		{"/metrics", http.StatusOK},
		{"/auth/csrf-token", http.StatusOK},
		{"/api/favorites", http.StatusUnauthorized},
		{"/api/weather-forecast?lat=1&lon=2", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, tt.path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		if w.Code != tt.want {
			t.Errorf("GET %s status = %d, want %d", tt.path, w.Code, tt.want)
		}
		if tt.want == http.StatusUnauthorized && !strings.Contains(w.Body.String(), model.LoginPath) {
			t.Errorf("GET %s body = %s, want redirect_to %s", tt.path, w.Body.String(), model.LoginPath)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	body := w.Body.String()
	for _, want := range []string{"go_goroutines", "http_request_duration_seconds", "users_registered_total"} {
		if !strings.Contains(body, want) {
			t.Errorf("/metrics does not expose %s", want)
		}
	}
}

func TestBuildWorkerScheduler(t *testing.T) {
	cfg := loadTestConfig(t)
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		t.Fatalf("database.Open: %v", err)
	}
	defer db.Close()
	_, collector := newRegistry()

	t.Run("評価無効", func(t *testing.T) {
		c := *cfg
		c.EvaluatorEnabled = false
		if _, err := buildWorkerScheduler(&c, db, collector); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("評価有効", func(t *testing.T) {
		c := *cfg
		c.EvaluatorEnabled = true
		if _, err := buildWorkerScheduler(&c, db, collector); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("不正な評価スケジュール", func(t *testing.T) {
		c := *cfg
		c.EvaluatorEnabled = true
		c.EvaluatorSchedule = "every now and then"
		if _, err := buildWorkerScheduler(&c, db, collector); err == nil {
			t.Error("expected error for invalid evaluator schedule")
		}
	})

	t.Run("不正なクリーンアップスケジュール", func(t *testing.T) {
		c := *cfg
		c.CleanupSchedule = "61 * * * *"
		if _, err := buildWorkerScheduler(&c, db, collector); err == nil {
			t.Error("expected error for invalid cleanup schedule")
		}
	})
}

func TestRunHealthcheck(t *testing.T) {
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(status)
	}))
	defer srv.Close()

	_, port, err := net.SplitHostPort(srv.Listener.Addr().String())
	if err != nil {
		t.Fatalf("SplitHostPort: %v", err)
	}

	if err := runHealthcheck(port); err != nil {
		t.Errorf("healthy server: unexpected error %v", err)
	}

	status = http.StatusServiceUnavailable
	if err := runHealthcheck(port); err == nil {
		t.Error("unhealthy server: expected error")
	}
}

func TestMaskDatabaseURL(t *testing.T) {
	got := maskDatabaseURL("postgres://tenki:supersecret@db:5432/tenki?sslmode=disable")
	if strings.Contains(got, "supersecret") {
		t.Errorf("maskDatabaseURL leaked password: %s", got)
	}
	if !strings.Contains(got, "db:5432") {
		t.Errorf("maskDatabaseURL = %s, want host to be kept", got)
	}
	if maskDatabaseURL("not a url") != "***" {
		t.Error("unparseable URL should be fully masked")
	}
}
