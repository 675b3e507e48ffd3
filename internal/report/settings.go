package report

import (
	"github.com/shandysiswandi/vidstat/internal/pkg/pkgconfig"
	"github.com/shandysiswandi/vidstat/internal/report/event"
	"github.com/shandysiswandi/vidstat/internal/report/feishu"
	"github.com/shandysiswandi/vidstat/internal/report/inbound"
	"github.com/shandysiswandi/vidstat/internal/report/usecase"
)

const (
	defaultBusBuffer   = 256
	defaultHistoryPath = "data/history.db"
)

// Settings groups everything the report module reads from configuration.
type Settings struct {
	Usecase  usecase.Config
	Feishu   feishu.Config
	Limits   inbound.Limits
	Consumer event.ConsumerConfig

	BusBuffer int

	HistoryPath   string
	HistoryNodeID int64
}

// LoadSettings reads modules.report.*, feishu.* and history.* keys.
func LoadSettings(cfg pkgconfig.Config) Settings {
	s := Settings{
		Usecase: usecase.Config{
			DefaultQuota:      cfg.GetInt("modules.report.default_quota"),
			CountThrottle:     true,
			AbortOnUnreadable: cfg.GetBool("modules.report.abort_on_unreadable"),
			Year:              int(cfg.GetInt("modules.report.default_year")),
			MaxParallel:       int(cfg.GetInt("modules.report.max_parallel")),
			SummaryApp:        cfg.GetString("feishu.summary.app_token"),
			SummaryTable:      cfg.GetString("feishu.summary.table_id"),
			LookupOrder:       cfg.GetBool("feishu.lookup_order"),
			LabApp:            cfg.GetString("feishu.lab.app_token"),
			LabTable:          cfg.GetString("feishu.lab.table_id"),
			OrderDayOffset:    -1,
		},
		Feishu: feishu.Config{
			BaseURL:     cfg.GetString("feishu.base_url"),
			AppID:       cfg.GetString("feishu.app_id"),
			AppSecret:   cfg.GetString("feishu.app_secret"),
			TokenFile:   cfg.GetString("feishu.token_file"),
			MaxAttempts: int(cfg.GetInt("feishu.retry.max_attempts")),
			Backoff:     cfg.GetDuration("feishu.retry.backoff"),
			Timeout:     cfg.GetDuration("feishu.timeout"),
		},
		Limits: inbound.Limits{
			MaxFileBytes: cfg.GetInt("modules.report.max_file_bytes"),
			MaxFiles:     int(cfg.GetInt("modules.report.max_files")),
		},
		Consumer: event.ConsumerConfig{
			Workers:     int(cfg.GetInt("modules.report.submit.workers")),
			MaxRetries:  int(cfg.GetInt("modules.report.submit.max_retries")),
			BaseBackoff: cfg.GetDuration("modules.report.submit.base_backoff"),
		},
		BusBuffer:     int(cfg.GetInt("modules.report.submit.buffer")),
		HistoryPath:   cfg.GetString("history.path"),
		HistoryNodeID: cfg.GetInt("history.node_id"),
	}

	if cfg.IsSet("modules.report.count_throttle") {
		s.Usecase.CountThrottle = cfg.GetBool("modules.report.count_throttle")
	}
	if cfg.IsSet("feishu.lab.day_offset") {
		s.Usecase.OrderDayOffset = int(cfg.GetInt("feishu.lab.day_offset"))
	}
	if s.BusBuffer <= 0 {
		s.BusBuffer = defaultBusBuffer
	}
	if s.HistoryPath == "" {
		s.HistoryPath = defaultHistoryPath
	}

	return s
}
