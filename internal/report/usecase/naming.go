package usecase

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shandysiswandi/vidstat/internal/report/tabular"
)

// FileInfo is what an export's file name says about it.
type FileInfo struct {
	Owner string
	Date  time.Time
}

// ParseFileInfo reads the "<owner>_<MM>.<DD>[.anything].csv|xlsx" naming
// convention. Month and day may have one or two digits; year is supplied by
// the caller because names do not carry one. The date is local midnight in
// loc. ok is false when the name does not follow the convention or the date
// does not exist; Owner may be empty when the name starts with "_".
func ParseFileInfo(name string, year int, loc *time.Location) (FileInfo, bool) {
	base := filepath.Base(name)
	switch ext := filepath.Ext(base); strings.ToLower(ext) {
	case ".csv", ".xlsx":
		base = strings.TrimSuffix(base, ext)
	}

	parts := strings.Split(base, "_")
	if len(parts) < 2 {
		return FileInfo{}, false
	}

	dateParts := strings.Split(parts[1], ".")
	if len(dateParts) < 2 {
		return FileInfo{}, false
	}

	month, ok := smallNumber(dateParts[0])
	if !ok {
		return FileInfo{}, false
	}
	day, ok := smallNumber(dateParts[1])
	if !ok {
		return FileInfo{}, false
	}

	if loc == nil {
		loc = time.Local
	}
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if int(date.Month()) != month || date.Day() != day {
		return FileInfo{}, false
	}

	return FileInfo{Owner: parts[0], Date: date}, true
}

func smallNumber(s string) (int, bool) {
	if len(s) < 1 || len(s) > 2 {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}

	n, err := strconv.Atoi(s)
	return n, err == nil
}

// DateMillis is the Feishu date value for t: milliseconds since the epoch at
// local midnight of t's day.
func DateMillis(t time.Time) int64 {
	return midnight(t).UnixMilli()
}

// IsDataFile reports whether a directory entry looks like an export file.
// Hidden files and Office lock files ("~$...") are skipped.
func IsDataFile(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~") {
		return false
	}

	return tabular.Supported(base)
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
