package inbound

import (
	"net/http"
	"time"

	"github.com/shandysiswandi/vidstat/internal/report/entity"
	"github.com/shandysiswandi/vidstat/internal/report/metrics"
)

type CreateReportResponse struct {
	ReportID string `json:"report_id"`
}

func (CreateReportResponse) StatusCode() int {
	return http.StatusAccepted
}

func (CreateReportResponse) Message() string {
	return "report accepted"
}

type SubmitReportResponse struct {
	ReportID string              `json:"report_id"`
	EventID  string              `json:"event_id"`
	Status   entity.SubmitStatus `json:"status"`
}

func (SubmitReportResponse) StatusCode() int {
	return http.StatusAccepted
}

func (SubmitReportResponse) Message() string {
	return "submit queued"
}

type Warning struct {
	Kind   entity.WarningKind `json:"kind"`
	Column string             `json:"column,omitempty"`
	Row    int                `json:"row,omitempty"`
	Detail string             `json:"detail,omitempty"`
}

type FileMetrics struct {
	TotalUploads        int64     `json:"total_uploads"`
	TotalViews          int64     `json:"total_views"`
	ThrottledCount      int64     `json:"throttled_count"`
	NotThrottledCount   int64     `json:"not_throttled_count"`
	JudgmentFailedCount int64     `json:"judgment_failed_count"`
	UploadsKnown        bool      `json:"uploads_known"`
	ViewsKnown          bool      `json:"views_known"`
	ThrottleKnown       bool      `json:"throttle_known"`
	Warnings            []Warning `json:"warnings"`
}

type File struct {
	Name    string            `json:"name"`
	Status  entity.FileStatus `json:"status"`
	Error   string            `json:"error,omitempty"`
	Metrics *FileMetrics      `json:"metrics,omitempty"`
}

type Totals struct {
	Files               int     `json:"files"`
	TotalUploads        int64   `json:"total_uploads"`
	TotalViews          int64   `json:"total_views"`
	ThrottledCount      int64   `json:"throttled_count"`
	NotThrottledCount   int64   `json:"not_throttled_count"`
	JudgmentFailedCount int64   `json:"judgment_failed_count"`
	SurviveCount        int64   `json:"survive_count"`
	SurviveRate         float64 `json:"survive_rate"`
	SurviveRateText     string  `json:"survive_rate_text"`
}

type Submit struct {
	Status   entity.SubmitStatus `json:"status"`
	EventID  string              `json:"event_id,omitempty"`
	RecordID string              `json:"record_id,omitempty"`
	Error    string              `json:"error,omitempty"`
}

type ReportResponse struct {
	ReportID      string              `json:"report_id"`
	Status        entity.ReportStatus `json:"status"`
	Error         string              `json:"error,omitempty"`
	StartedAt     int64               `json:"started_at,omitempty"`
	EndedAt       int64               `json:"ended_at,omitempty"`
	Owner         string              `json:"owner"`
	Date          string              `json:"date,omitempty"`
	Quota         int64               `json:"quota,omitempty"`
	CountThrottle bool                `json:"count_throttle"`
	Files         []File              `json:"files"`
	Totals        *Totals             `json:"totals,omitempty"`
	OrderAmount   *float64            `json:"order_amount,omitempty"`
	Submit        Submit              `json:"submit"`
}

type Submission struct {
	ID           int64   `json:"id,string"`
	ReportID     string  `json:"report_id"`
	Owner        string  `json:"owner"`
	Date         string  `json:"date"`
	Uploads      int64   `json:"uploads"`
	Views        int64   `json:"views"`
	SurviveCount int64   `json:"survive_count"`
	SurviveRate  float64 `json:"survive_rate"`
	OrderAmount  float64 `json:"order_amount"`
	RecordID     string  `json:"record_id"`
	CreatedAt    string  `json:"created_at"`
}

type HistoryResponse struct {
	Items []Submission `json:"items"`
	owner string
}

func (r HistoryResponse) Meta() map[string]any {
	return map[string]any{
		"owner": r.owner,
		"count": len(r.Items),
	}
}

func toReportResponse(report entity.Report) ReportResponse {
	resp := ReportResponse{
		ReportID:      report.Meta.ID,
		Status:        report.Meta.Status,
		Error:         report.Meta.Err,
		StartedAt:     report.Meta.StartedAt,
		EndedAt:       report.Meta.EndedAt,
		Owner:         report.Owner,
		Quota:         report.Quota,
		CountThrottle: report.Throttle,
		Files:         make([]File, 0, len(report.Files)),
		Submit: Submit{
			Status:   report.Submit.Status,
			EventID:  report.Submit.EventID,
			RecordID: report.Submit.RecordID,
			Error:    report.Submit.Err,
		},
	}

	if !report.Date.IsZero() {
		resp.Date = report.Date.Format(time.DateOnly)
	}

	for _, f := range report.Files {
		file := File{Name: f.Name, Status: f.Status, Error: f.Err}
		if f.Status == entity.FileStatusOK {
			file.Metrics = toHTTPFileMetrics(f.Metrics)
		}
		resp.Files = append(resp.Files, file)
	}

	if report.Meta.Status == entity.ReportStatusDone {
		t := report.Totals
		resp.Totals = &Totals{
			Files:               t.Files,
			TotalUploads:        t.TotalUploads,
			TotalViews:          t.TotalViews,
			ThrottledCount:      t.ThrottledCount,
			NotThrottledCount:   t.NotThrottledCount,
			JudgmentFailedCount: t.JudgmentFailedCount,
			SurviveCount:        t.SurviveCount,
			SurviveRate:         t.SurviveRate,
			SurviveRateText:     metrics.FormatRate(t.SurviveRate),
		}
	}

	if report.OrderAmountKnown {
		amount := report.OrderAmount
		resp.OrderAmount = &amount
	}

	return resp
}

func toHTTPFileMetrics(fm entity.FileMetrics) *FileMetrics {
	warnings := make([]Warning, 0, len(fm.Warnings))
	for _, w := range fm.Warnings {
		warnings = append(warnings, Warning{Kind: w.Kind, Column: w.Column, Row: w.Row, Detail: w.Detail})
	}

	return &FileMetrics{
		TotalUploads:        fm.TotalUploads,
		TotalViews:          fm.TotalViews,
		ThrottledCount:      fm.ThrottledCount,
		NotThrottledCount:   fm.NotThrottledCount,
		JudgmentFailedCount: fm.JudgmentFailedCount,
		UploadsKnown:        fm.UploadsKnown,
		ViewsKnown:          fm.ViewsKnown,
		ThrottleKnown:       fm.ThrottleKnown,
		Warnings:            warnings,
	}
}

func toHTTPSubmission(sub entity.Submission) Submission {
	return Submission{
		ID:           sub.ID,
		ReportID:     sub.ReportID,
		Owner:        sub.Owner,
		Date:         time.UnixMilli(sub.DateMillis).Format(time.DateOnly),
		Uploads:      sub.Uploads,
		Views:        sub.Views,
		SurviveCount: sub.SurviveCount,
		SurviveRate:  sub.SurviveRate,
		OrderAmount:  sub.OrderAmount,
		RecordID:     sub.RecordID,
		CreatedAt:    sub.CreatedAt.Format(time.RFC3339),
	}
}
