package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shandysiswandi/vidstat/internal/report/entity"
)

type seqID struct{ n int64 }

func (s *seqID) Generate() int64 {
	s.n++
	return s.n
}

func openTestHistory(t *testing.T) *SQLiteHistory {
	t.Helper()

	path := filepath.Join(t.TempDir(), "nested", "history.db")
	h, err := OpenSQLiteHistory(context.Background(), path, &seqID{})
	if err != nil {
		t.Fatalf("OpenSQLiteHistory() err = %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })

	return h
}

func TestSQLiteHistory_AppendAndList(t *testing.T) {
	ctx := context.Background()
	h := openTestHistory(t)

	base := time.Date(2025, 7, 15, 9, 0, 0, 0, time.UTC)
	tick := 0
	h.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	for _, owner := range []string{"alice", "bob", "alice"} {
		if _, err := h.Append(ctx, entity.Submission{
			ReportID:     "r-" + owner,
			Owner:        owner,
			DateMillis:   1752508800000,
			Uploads:      15,
			Views:        150,
			SurviveCount: 12,
			SurviveRate:  0.8,
			OrderAmount:  99.5,
			RecordID:     "rec",
		}); err != nil {
			t.Fatalf("Append() err = %v", err)
		}
	}

	all, err := h.List(ctx, "", 10)
	if err != nil {
		t.Fatalf("List() err = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List() len = %d, want 3", len(all))
	}
	if all[0].ID != 3 || all[2].ID != 1 {
		t.Fatalf("List() not newest first: %d, %d", all[0].ID, all[2].ID)
	}
	if !all[0].CreatedAt.Equal(base.Add(3 * time.Minute)) {
		t.Fatalf("List() created_at = %v", all[0].CreatedAt)
	}

	got := all[0]
	if got.Owner != "alice" || got.Uploads != 15 || got.Views != 150 || got.SurviveCount != 12 ||
		got.SurviveRate != 0.8 || got.OrderAmount != 99.5 || got.DateMillis != 1752508800000 {
		t.Fatalf("List() row = %+v", got)
	}

	alice, err := h.List(ctx, "alice", 1)
	if err != nil {
		t.Fatalf("List(alice) err = %v", err)
	}
	if len(alice) != 1 || alice[0].ID != 3 {
		t.Fatalf("List(alice) = %+v", alice)
	}
}

func TestSQLiteHistory_Memory(t *testing.T) {
	ctx := context.Background()

	h, err := OpenSQLiteHistory(ctx, ":memory:", &seqID{})
	if err != nil {
		t.Fatalf("OpenSQLiteHistory() err = %v", err)
	}
	defer h.Close()

	if _, err := h.Append(ctx, entity.Submission{Owner: "carol"}); err != nil {
		t.Fatalf("Append() err = %v", err)
	}

	rows, err := h.List(ctx, "carol", 5)
	if err != nil || len(rows) != 1 {
		t.Fatalf("List() = %v, %v", rows, err)
	}
}
