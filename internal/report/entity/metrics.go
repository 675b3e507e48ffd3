package entity

// ExtractionConfig holds the knobs of a single extraction run.
type ExtractionConfig struct {
	// DefaultUploadQuota is the number of videos each record was expected to upload.
	DefaultUploadQuota int64
	// CountThrottle enables the rate-limit outcome counters.
	CountThrottle bool
}

type WarningKind string

const (
	WarningColumnMissing   WarningKind = "COLUMN_MISSING"
	WarningColumnAmbiguous WarningKind = "COLUMN_AMBIGUOUS"
	WarningCellUnparseable WarningKind = "CELL_UNPARSEABLE"
	WarningPatternAnomaly  WarningKind = "PATTERN_ANOMALY"
)

// Warning is a non-fatal extraction finding. Row is 1-based over data rows,
// 0 when the warning concerns the whole column.
type Warning struct {
	Kind   WarningKind
	Column string
	Row    int
	Detail string
}

// FileMetrics are the counters derived from one dataset. All counters are
// non-negative. The *Known flags tell a true zero apart from a metric that
// could not be computed because its column was absent.
type FileMetrics struct {
	TotalUploads        int64
	TotalViews          int64
	ThrottledCount      int64
	NotThrottledCount   int64
	JudgmentFailedCount int64

	UploadsKnown  bool
	ViewsKnown    bool
	ThrottleKnown bool

	Warnings []Warning
}

// CampaignTotals is the sum of FileMetrics over a set of files.
//
// SurviveCount is not clamped. A negative value means the upstream counts are
// inconsistent and must reach the report as is.
type CampaignTotals struct {
	Files               int
	TotalUploads        int64
	TotalViews          int64
	ThrottledCount      int64
	NotThrottledCount   int64
	JudgmentFailedCount int64
	SurviveCount        int64
	SurviveRate         float64
}
