package entity

import "time"

type ReportStatus string

const (
	ReportStatusQueued     ReportStatus = "QUEUED"
	ReportStatusProcessing ReportStatus = "PROCESSING"
	ReportStatusDone       ReportStatus = "DONE"
	ReportStatusFailed     ReportStatus = "FAILED"
)

type FileStatus string

const (
	FileStatusOK     FileStatus = "OK"
	FileStatusFailed FileStatus = "FAILED"
)

type SubmitStatus string

const (
	SubmitStatusNone      SubmitStatus = "NONE"
	SubmitStatusQueued    SubmitStatus = "QUEUED"
	SubmitStatusSubmitted SubmitStatus = "SUBMITTED"
	SubmitStatusFailed    SubmitStatus = "FAILED"
)

// SourceFile is an export file handed in by the CLI or the upload endpoint.
type SourceFile struct {
	Name string
	Data []byte
}

type FileResult struct {
	Name    string
	Status  FileStatus
	Err     string
	Metrics FileMetrics
}

type SubmitState struct {
	Status   SubmitStatus
	RecordID string
	Err      string
	EventID  string
}

type ReportMeta struct {
	ID        string
	Status    ReportStatus
	Err       string
	StartedAt int64
	EndedAt   int64
}

// Report is the outcome of analysing a batch of export files.
type Report struct {
	Meta   ReportMeta
	Owner  string
	Date   time.Time
	Quota  int64
	Files  []FileResult
	Totals CampaignTotals

	// Throttle is true when rate-limit outcomes were counted.
	Throttle bool

	OrderAmount      float64
	OrderAmountKnown bool

	Submit SubmitState
}

// SubmitEvent asks the submit consumer to push a finished report to Feishu.
type SubmitEvent struct {
	EventID  string
	ReportID string
}

// Submission is one pushed summary row as kept in the local history.
type Submission struct {
	ID           int64
	ReportID     string
	Owner        string
	DateMillis   int64
	Uploads      int64
	Views        int64
	SurviveCount int64
	SurviveRate  float64
	OrderAmount  float64
	RecordID     string
	CreatedAt    time.Time
}
