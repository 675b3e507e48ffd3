package feishu

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"
)

// Lab order table columns.
const (
	FieldGroup       = "分组"
	FieldOrderDate   = "订单日期"
	FieldOrderAmount = "订单金额(元)"
)

const dayMillis = int64(24 * time.Hour / time.Millisecond)

// OrderSum is the outcome of filtering the lab order table.
type OrderSum struct {
	Total   float64
	Matched int
	// Skipped holds amount values that could not be parsed.
	Skipped []string
}

// OrderAmount sums the order amounts recorded for owner on day in the given
// lab table.
func (c *Client) OrderAmount(ctx context.Context, app, table, owner string, day time.Time) (float64, error) {
	records, err := c.ListRecords(ctx, app, table)
	if err != nil {
		return 0, err
	}

	sum := SumOrders(records, owner, day)
	for _, raw := range sum.Skipped {
		slog.WarnContext(ctx, "unparseable order amount skipped", "owner", owner, "value", raw)
	}
	slog.InfoContext(ctx, "lab order amount resolved",
		"owner", owner, "day", day.Format(time.DateOnly), "records", len(records), "matched", sum.Matched, "total", sum.Total)

	return sum.Total, nil
}

// SumOrders filters records whose group contains owner and whose order date
// falls on day, and adds up their amounts.
//
// A record without an order date is not filtered by date. Timestamps match
// when they are less than a day away from local midnight of day; any other
// date value matches when it contains day as YYYY-MM-DD or YYYY/MM/DD.
func SumOrders(records []Record, owner string, day time.Time) OrderSum {
	var sum OrderSum
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())

	for _, rec := range records {
		group := fieldText(rec.Fields[FieldGroup])
		if group == "" || !strings.Contains(group, owner) {
			continue
		}
		if !matchDay(rec.Fields[FieldOrderDate], midnight) {
			continue
		}

		raw := rec.Fields[FieldOrderAmount]
		if isEmpty(raw) {
			continue
		}

		amount, ok := parseAmount(raw)
		if !ok {
			sum.Skipped = append(sum.Skipped, fieldText(raw))
			continue
		}
		sum.Total += amount
		sum.Matched++
	}

	return sum
}

func matchDay(v any, midnight time.Time) bool {
	if isEmpty(v) {
		return true
	}

	target := midnight.UnixMilli()
	switch x := v.(type) {
	case float64:
		return absInt64(int64(x)-target) < dayMillis
	case string:
		if ms, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64); err == nil {
			return absInt64(ms-target) < dayMillis
		}
	}

	text := fieldText(v)
	dashed := midnight.Format("2006-01-02")
	slashed := midnight.Format("2006/01/02")

	return strings.Contains(text, dashed) || strings.Contains(text, slashed)
}

func parseAmount(v any) (float64, bool) {
	if n, ok := v.(float64); ok {
		return n, true
	}

	s := strings.NewReplacer("￥", "", "¥", "", ",", "").Replace(fieldText(v))
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}

	return n, true
}

// fieldText flattens a bitable cell value. Rich text arrives as a list of
// segments carrying a "text" key; option lists as plain strings.
func fieldText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case map[string]any:
		if t, ok := x["text"].(string); ok {
			return t
		}
		if t, ok := x["name"].(string); ok {
			return t
		}
		return fmt.Sprint(x)
	case []any:
		var b strings.Builder
		for _, item := range x {
			b.WriteString(fieldText(item))
		}
		return b.String()
	default:
		return fmt.Sprint(x)
	}
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case float64:
		return x == 0
	case []any:
		return len(x) == 0
	default:
		return false
	}
}

func absInt64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
