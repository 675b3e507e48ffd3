package metrics

import (
	"fmt"

	"github.com/shandysiswandi/vidstat/internal/report/entity"
)

// Aggregate sums per-file metrics into campaign totals. Order does not matter.
func Aggregate(list []entity.FileMetrics) entity.CampaignTotals {
	var t entity.CampaignTotals
	for _, fm := range list {
		t.Files++
		t.TotalUploads = satSum(t.TotalUploads, fm.TotalUploads)
		t.TotalViews = satSum(t.TotalViews, fm.TotalViews)
		t.ThrottledCount = satSum(t.ThrottledCount, fm.ThrottledCount)
		t.NotThrottledCount = satSum(t.NotThrottledCount, fm.NotThrottledCount)
		t.JudgmentFailedCount = satSum(t.JudgmentFailedCount, fm.JudgmentFailedCount)
	}

	return finalize(t)
}

// Merge combines two partial totals, so batches of files can be aggregated
// separately and joined afterwards.
func Merge(a, b entity.CampaignTotals) entity.CampaignTotals {
	return finalize(entity.CampaignTotals{
		Files:               a.Files + b.Files,
		TotalUploads:        satSum(a.TotalUploads, b.TotalUploads),
		TotalViews:          satSum(a.TotalViews, b.TotalViews),
		ThrottledCount:      satSum(a.ThrottledCount, b.ThrottledCount),
		NotThrottledCount:   satSum(a.NotThrottledCount, b.NotThrottledCount),
		JudgmentFailedCount: satSum(a.JudgmentFailedCount, b.JudgmentFailedCount),
	})
}

func finalize(t entity.CampaignTotals) entity.CampaignTotals {
	t.SurviveCount, _ = subSat(t.TotalUploads, t.ThrottledCount)
	t.SurviveCount, _ = subSat(t.SurviveCount, t.JudgmentFailedCount)
	t.SurviveRate = 0
	if t.TotalUploads > 0 {
		t.SurviveRate = float64(t.SurviveCount) / float64(t.TotalUploads)
	}
	return t
}

// satSum saturates at math.MaxInt64; counters are never negative.
func satSum(a, b int64) int64 {
	total, _ := addSat(a, b)
	return total
}

// FormatRate renders a survive rate as a percentage with two decimals.
func FormatRate(rate float64) string {
	return fmt.Sprintf("%.2f%%", rate*100)
}
