package report

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/shandysiswandi/vidstat/internal/pkg/pkgconfig"
	"github.com/shandysiswandi/vidstat/internal/pkg/pkgrouter"
	"github.com/shandysiswandi/vidstat/internal/pkg/pkgroutine"
	"github.com/shandysiswandi/vidstat/internal/pkg/pkguid"
)

func TestLoadSettingsDefaults(t *testing.T) {
	s := LoadSettings(pkgconfig.NewMemory(nil))

	if !s.Usecase.CountThrottle {
		t.Fatal("expected throttle counting on by default")
	}
	if s.Usecase.OrderDayOffset != -1 {
		t.Fatalf("expected previous-day order lookup, got %d", s.Usecase.OrderDayOffset)
	}
	if s.BusBuffer != defaultBusBuffer || s.HistoryPath != defaultHistoryPath {
		t.Fatalf("unexpected defaults: %+v", s)
	}
}

func TestLoadSettingsFromConfig(t *testing.T) {
	cfg := pkgconfig.NewMemory(map[string]any{
		"modules.report.default_quota":       5,
		"modules.report.count_throttle":      false,
		"modules.report.abort_on_unreadable": true,
		"modules.report.submit.base_backoff": "250ms",
		"feishu.app_id":                      "cli_x",
		"feishu.retry.backoff":               "2s",
		"feishu.summary.app_token":           "app",
		"feishu.lab.day_offset":              0,
		"history.path":                       ":memory:",
	})

	s := LoadSettings(cfg)

	if s.Usecase.DefaultQuota != 5 || s.Usecase.CountThrottle || !s.Usecase.AbortOnUnreadable {
		t.Fatalf("unexpected usecase config: %+v", s.Usecase)
	}
	if s.Usecase.OrderDayOffset != 0 || s.Usecase.SummaryApp != "app" {
		t.Fatalf("unexpected feishu tables: %+v", s.Usecase)
	}
	if s.Feishu.AppID != "cli_x" || s.Feishu.Backoff != 2*time.Second {
		t.Fatalf("unexpected feishu config: %+v", s.Feishu)
	}
	if s.Consumer.BaseBackoff != 250*time.Millisecond {
		t.Fatalf("unexpected consumer backoff: %v", s.Consumer.BaseBackoff)
	}
	if s.HistoryPath != ":memory:" {
		t.Fatalf("unexpected history path: %q", s.HistoryPath)
	}
}

func TestNewRegistersRoutes(t *testing.T) {
	cfg := pkgconfig.NewMemory(map[string]any{
		"modules.report.default_quota": 3,
		"history.path":                 filepath.Join(t.TempDir(), "history.db"),
		"history.node_id":              7,
	})
	router := pkgrouter.NewRouter(pkguid.NewUUID())

	closer, err := New(Dependency{
		Config:    cfg,
		Goroutine: pkgroutine.NewManager(4),
		Router:    router,
		Context:   context.Background(),
	})
	if err != nil {
		t.Fatalf("new module: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/history", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected history status: %d %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/reports/missing", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected report status: %d", rec.Code)
	}

	if err := closer(context.Background()); err != nil {
		t.Fatalf("close module: %v", err)
	}
}
