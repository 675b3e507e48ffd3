package metrics

import (
	"math"
	"testing"

	"github.com/shandysiswandi/vidstat/internal/report/entity"
)

func TestAggregateEndToEnd(t *testing.T) {
	totals := Aggregate([]entity.FileMetrics{
		{TotalUploads: 10, TotalViews: 100, ThrottledCount: 2, JudgmentFailedCount: 1},
		{TotalUploads: 5, TotalViews: 50},
	})

	if totals.TotalUploads != 15 || totals.TotalViews != 150 {
		t.Fatalf("unexpected sums: %+v", totals)
	}
	if totals.ThrottledCount != 2 || totals.JudgmentFailedCount != 1 {
		t.Fatalf("unexpected throttle sums: %+v", totals)
	}
	if totals.SurviveCount != 12 {
		t.Fatalf("SurviveCount = %d, want 12", totals.SurviveCount)
	}
	if math.Abs(totals.SurviveRate-0.80) > 1e-9 {
		t.Fatalf("SurviveRate = %v, want 0.80", totals.SurviveRate)
	}
	if totals.Files != 2 {
		t.Fatalf("Files = %d, want 2", totals.Files)
	}
	if got := FormatRate(totals.SurviveRate); got != "80.00%" {
		t.Fatalf("FormatRate = %q, want 80.00%%", got)
	}
}

func TestAggregateEmpty(t *testing.T) {
	totals := Aggregate(nil)
	if totals != (entity.CampaignTotals{}) {
		t.Fatalf("expected zero totals, got %+v", totals)
	}
}

func TestAggregateSurviveCountNotClamped(t *testing.T) {
	totals := Aggregate([]entity.FileMetrics{
		{TotalUploads: 2, ThrottledCount: 3, JudgmentFailedCount: 1},
	})

	if totals.SurviveCount != -2 {
		t.Fatalf("SurviveCount = %d, want -2", totals.SurviveCount)
	}
	if totals.SurviveRate != -1 {
		t.Fatalf("SurviveRate = %v, want -1", totals.SurviveRate)
	}
}

func TestAggregateOrderAndPartitionIndependent(t *testing.T) {
	files := []entity.FileMetrics{
		{TotalUploads: 10, TotalViews: 100, ThrottledCount: 2, NotThrottledCount: 7, JudgmentFailedCount: 1},
		{TotalUploads: 5, TotalViews: 50},
		{TotalUploads: 7, TotalViews: 3, ThrottledCount: 4, NotThrottledCount: 1},
		{TotalUploads: 0, TotalViews: 9, JudgmentFailedCount: 2},
	}
	want := Aggregate(files)

	permute(files, 0, func(p []entity.FileMetrics) {
		if got := Aggregate(p); got != want {
			t.Fatalf("permutation changed totals: %+v vs %+v", got, want)
		}
		for cut := 0; cut <= len(p); cut++ {
			if got := Merge(Aggregate(p[:cut]), Aggregate(p[cut:])); got != want {
				t.Fatalf("partition at %d changed totals: %+v vs %+v", cut, got, want)
			}
		}
	})

	a, b, c := Aggregate(files[:1]), Aggregate(files[1:3]), Aggregate(files[3:])
	if Merge(Merge(a, b), c) != Merge(a, Merge(b, c)) {
		t.Fatalf("Merge is not associative")
	}
}

func permute(items []entity.FileMetrics, k int, visit func([]entity.FileMetrics)) {
	if k == len(items) {
		cp := make([]entity.FileMetrics, len(items))
		copy(cp, items)
		visit(cp)
		return
	}
	for i := k; i < len(items); i++ {
		items[k], items[i] = items[i], items[k]
		permute(items, k+1, visit)
		items[k], items[i] = items[i], items[k]
	}
}

func TestAggregateSaturates(t *testing.T) {
	half := entity.FileMetrics{
		TotalUploads:        math.MaxInt64 - 1,
		TotalViews:          math.MaxInt64 - 1,
		ThrottledCount:      math.MaxInt64 - 1,
		JudgmentFailedCount: math.MaxInt64 - 1,
	}

	totals := Aggregate([]entity.FileMetrics{half, half})
	if totals.TotalUploads != math.MaxInt64 || totals.TotalViews != math.MaxInt64 {
		t.Fatalf("expected saturated totals, got %+v", totals)
	}
	if totals.SurviveCount != -math.MaxInt64 {
		t.Fatalf("SurviveCount = %d, want %d", totals.SurviveCount, int64(-math.MaxInt64))
	}

	merged := Merge(Aggregate([]entity.FileMetrics{half}), Aggregate([]entity.FileMetrics{half}))
	if merged.TotalViews != math.MaxInt64 || merged.Files != 2 {
		t.Fatalf("Merge did not saturate: %+v", merged)
	}
}
