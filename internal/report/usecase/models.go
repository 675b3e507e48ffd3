package usecase

import (
	"time"

	"github.com/shandysiswandi/vidstat/internal/report/entity"
)

// Config carries the report settings read from configuration.
type Config struct {
	// DefaultQuota is the planned uploads per row when a request has none.
	DefaultQuota int64
	// CountThrottle enables rate-limit counting unless a request overrides it.
	CountThrottle bool
	// AbortOnUnreadable fails the whole report when one file cannot be read.
	AbortOnUnreadable bool
	// Year is used for dates taken from file names; 0 means the current year.
	Year int
	// MaxParallel bounds concurrent file extraction.
	MaxParallel int

	SummaryApp   string
	SummaryTable string

	LookupOrder bool
	LabApp      string
	LabTable    string
	// OrderDayOffset shifts the report date for the order lookup; -1 queries
	// the day before.
	OrderDayOffset int
}

type AnalyzeInput struct {
	Files []entity.SourceFile
	Owner string
	// Date is the report day; zero means "from file names, else today".
	Date  time.Time
	Quota int64
	// Throttle overrides Config.CountThrottle when set.
	Throttle *bool
}

type AnalyzeResult struct {
	ReportID string
}

type SubmitResult struct {
	ReportID string
	EventID  string
	Status   entity.SubmitStatus
}

type HistoryResult struct {
	Owner string
	Items []entity.Submission
}
