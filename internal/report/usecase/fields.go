package usecase

import (
	"github.com/shandysiswandi/vidstat/internal/report/entity"
	"github.com/shandysiswandi/vidstat/internal/report/metrics"
)

// Summary table columns.
const (
	FieldOwner        = "归属"
	FieldDate         = "日期"
	FieldUploads      = "发布视频数量"
	FieldViews        = "总播放量"
	FieldSurviveCount = "成功存活量"
	FieldSurviveRate  = "存活率"
	FieldOrderAmount  = "出单金额"
)

// SummaryFields builds the row pushed to the summary table.
func SummaryFields(report entity.Report) map[string]any {
	fields := map[string]any{
		FieldOwner:   report.Owner,
		FieldDate:    DateMillis(report.Date),
		FieldUploads: report.Totals.TotalUploads,
		FieldViews:   report.Totals.TotalViews,
	}

	if report.Throttle {
		fields[FieldSurviveCount] = report.Totals.SurviveCount
		fields[FieldSurviveRate] = metrics.FormatRate(report.Totals.SurviveRate)
	}
	if report.OrderAmountKnown {
		fields[FieldOrderAmount] = report.OrderAmount
	}

	return fields
}

func submissionFrom(report entity.Report, recordID string) entity.Submission {
	return entity.Submission{
		ReportID:     report.Meta.ID,
		Owner:        report.Owner,
		DateMillis:   DateMillis(report.Date),
		Uploads:      report.Totals.TotalUploads,
		Views:        report.Totals.TotalViews,
		SurviveCount: report.Totals.SurviveCount,
		SurviveRate:  report.Totals.SurviveRate,
		OrderAmount:  report.OrderAmount,
		RecordID:     recordID,
	}
}
