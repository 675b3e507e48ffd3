package metrics

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shandysiswandi/vidstat/internal/report/entity"
)

const (
	// ColumnUploadQuantity holds the number of failed uploads of a record.
	ColumnUploadQuantity = "上传数量"
	// ColumnStatus holds free-form publishing status text.
	ColumnStatus = "状态"
	// ViewMarker is matched as a substring of the play-count header.
	ViewMarker = "播放"
	// ThrottleMarker prefixes the hourly rate-limit summary in a status cell.
	ThrottleMarker = "最近一小时发布视频"
)

//nolint:gochecknoglobals // compiled once
var (
	reHeaderTotal = regexp.MustCompile(`播放\((\d+)\)`)
	reTotalPlays  = regexp.MustCompile(`总播放[：:]\s*(\d+)(?:\(\+\d+\))?`)
	reDigits      = regexp.MustCompile(`\d+`)
	reThrottle    = regexp.MustCompile(`(\d+)个未限流，(\d+)个限流，(\d+)个判断失败`)
)

// ThrottleOutcome is the hourly rate-limit summary of one status cell.
type ThrottleOutcome struct {
	NotThrottled   int64
	Throttled      int64
	JudgmentFailed int64
}

// Extract computes the counters of one dataset.
func Extract(ds entity.Dataset, cfg entity.ExtractionConfig) entity.FileMetrics {
	var fm entity.FileMetrics

	countUploads(ds, cfg.DefaultUploadQuota, &fm)
	countViews(ds, &fm)
	if cfg.CountThrottle {
		countThrottle(ds, &fm)
	}

	return fm
}

func countUploads(ds entity.Dataset, quota int64, fm *entity.FileMetrics) {
	idx := ds.ColumnIndex(ColumnUploadQuantity)
	if idx < 0 {
		fm.Warnings = append(fm.Warnings, entity.Warning{
			Kind:   entity.WarningColumnMissing,
			Column: ColumnUploadQuantity,
			Detail: "upload success count cannot be computed",
		})
		return
	}

	fm.UploadsKnown = true
	for i, cell := range ds.Column(idx) {
		failed, ok := failedUploads(cell)
		if !ok {
			fm.Warnings = append(fm.Warnings, entity.Warning{
				Kind:   entity.WarningCellUnparseable,
				Column: ColumnUploadQuantity,
				Row:    i + 1,
				Detail: cell.String(),
			})
		}
		success, exact := subSat(quota, failed)
		total, added := addSat(fm.TotalUploads, max(success, 0))
		if ok && !(exact && added) {
			fm.Warnings = append(fm.Warnings, overflowWarning(ColumnUploadQuantity, i+1))
		}
		fm.TotalUploads = total
	}
}

// addSat adds two non-negative counters, saturating at math.MaxInt64.
func addSat(a, b int64) (int64, bool) {
	if b > math.MaxInt64-a {
		return math.MaxInt64, false
	}
	return a + b, true
}

func subSat(a, b int64) (int64, bool) {
	switch {
	case b < 0 && a > math.MaxInt64+b:
		return math.MaxInt64, false
	case b > 0 && a < math.MinInt64+b:
		return math.MinInt64, false
	}
	return a - b, true
}

func overflowWarning(column string, row int) entity.Warning {
	return entity.Warning{
		Kind:   entity.WarningCellUnparseable,
		Column: column,
		Row:    row,
		Detail: "total exceeds int64, saturated",
	}
}

func failedUploads(cell entity.Cell) (int64, bool) {
	switch cell.Kind {
	case entity.CellNumber:
		n := math.Trunc(cell.Number)
		if n >= math.MaxInt64 || n < math.MinInt64 {
			return 0, false
		}
		return int64(n), true
	case entity.CellText:
		n, err := strconv.ParseInt(strings.TrimSpace(cell.Text), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, true
	}
}

func countViews(ds entity.Dataset, fm *entity.FileMetrics) {
	var candidates []int
	for i, col := range ds.Columns {
		if strings.Contains(col, ViewMarker) {
			candidates = append(candidates, i)
		}
	}

	if len(candidates) == 0 {
		fm.Warnings = append(fm.Warnings, entity.Warning{
			Kind:   entity.WarningColumnMissing,
			Column: ViewMarker,
			Detail: "no play-count column",
		})
		return
	}

	fm.ViewsKnown = true
	if len(candidates) > 1 {
		names := make([]string, 0, len(candidates))
		for _, i := range candidates {
			names = append(names, ds.Columns[i])
		}
		fm.Warnings = append(fm.Warnings, entity.Warning{
			Kind:   entity.WarningColumnAmbiguous,
			Column: ds.Columns[candidates[0]],
			Detail: fmt.Sprintf("play-count candidates %q, using the first", names),
		})
	}

	for _, i := range candidates {
		total, found, ok := HeaderViews(ds.Columns[i])
		if !found {
			continue
		}
		if !ok {
			fm.Warnings = append(fm.Warnings, entity.Warning{
				Kind:   entity.WarningCellUnparseable,
				Column: ds.Columns[i],
				Detail: "header total out of range",
			})
			continue
		}
		fm.TotalViews = total
		return
	}

	col := ds.Columns[candidates[0]]
	for i, cell := range ds.Column(candidates[0]) {
		views, ok := CellViews(cell)
		if !ok {
			fm.Warnings = append(fm.Warnings, entity.Warning{
				Kind:   entity.WarningCellUnparseable,
				Column: col,
				Row:    i + 1,
				Detail: cell.String(),
			})
		}
		total, fits := addSat(fm.TotalViews, views)
		if ok && !fits {
			fm.Warnings = append(fm.Warnings, overflowWarning(col, i+1))
		}
		fm.TotalViews = total
	}
}

// HeaderViews reads a literal total such as "播放(653996)" from a column
// header. found reports whether the header carries a total at all, ok whether
// it fits in an int64.
func HeaderViews(header string) (total int64, found, ok bool) {
	m := reHeaderTotal.FindStringSubmatch(header)
	if m == nil {
		return 0, false, false
	}

	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, true, false
	}
	return n, true, true
}

// CellViews returns the play count held by one cell: the "总播放：N" figure
// when present (a trailing "(+d)" delta is ignored), otherwise the sum of all
// integers in the text. ok is false when an integer did not fit in an int64,
// in which case that integer contributes nothing, or when the sum saturated.
func CellViews(cell entity.Cell) (int64, bool) {
	if cell.IsMissing() {
		return 0, true
	}

	text := cell.String()
	if m := reTotalPlays.FindStringSubmatch(text); m != nil {
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}

	var sum int64
	ok := true
	for _, token := range reDigits.FindAllString(text, -1) {
		n, err := strconv.ParseInt(token, 10, 64)
		if err != nil {
			ok = false
			continue
		}
		var fits bool
		if sum, fits = addSat(sum, n); !fits {
			ok = false
		}
	}
	return sum, ok
}

func countThrottle(ds entity.Dataset, fm *entity.FileMetrics) {
	idx := ds.ColumnIndex(ColumnStatus)
	if idx < 0 {
		fm.Warnings = append(fm.Warnings, entity.Warning{
			Kind:   entity.WarningColumnMissing,
			Column: ColumnStatus,
			Detail: "rate-limit outcomes cannot be counted",
		})
		return
	}

	fm.ThrottleKnown = true
	for i, cell := range ds.Column(idx) {
		if cell.IsMissing() {
			continue
		}

		text := cell.String()
		if !strings.Contains(text, ThrottleMarker) {
			continue
		}

		outcome, ok := ParseThrottle(text)
		if !ok {
			fm.Warnings = append(fm.Warnings, entity.Warning{
				Kind:   entity.WarningPatternAnomaly,
				Column: ColumnStatus,
				Row:    i + 1,
				Detail: text,
			})
			continue
		}

		var a, b, c bool
		fm.NotThrottledCount, a = addSat(fm.NotThrottledCount, outcome.NotThrottled)
		fm.ThrottledCount, b = addSat(fm.ThrottledCount, outcome.Throttled)
		fm.JudgmentFailedCount, c = addSat(fm.JudgmentFailedCount, outcome.JudgmentFailed)
		if !(a && b && c) {
			fm.Warnings = append(fm.Warnings, overflowWarning(ColumnStatus, i+1))
		}
	}
}

// ParseThrottle reads "N1个未限流，N2个限流，N3个判断失败" from a status text.
func ParseThrottle(text string) (ThrottleOutcome, bool) {
	m := reThrottle.FindStringSubmatch(text)
	if m == nil {
		return ThrottleOutcome{}, false
	}

	var values [3]int64
	for i := range values {
		n, err := strconv.ParseInt(m[i+1], 10, 64)
		if err != nil {
			return ThrottleOutcome{}, false
		}
		values[i] = n
	}

	return ThrottleOutcome{
		NotThrottled:   values[0],
		Throttled:      values[1],
		JudgmentFailed: values[2],
	}, true
}
