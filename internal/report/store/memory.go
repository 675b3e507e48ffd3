package store

import (
	"context"
	"sync"

	"github.com/shandysiswandi/vidstat/internal/pkg/pkgerror"
	"github.com/shandysiswandi/vidstat/internal/report/entity"
)

// InMemoryStore keeps reports for the lifetime of the process.
type InMemoryStore struct {
	mu      sync.RWMutex
	reports map[string]*reportRecord
}

type reportRecord struct {
	mu     sync.RWMutex
	report entity.Report
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		reports: make(map[string]*reportRecord),
	}
}

func (s *InMemoryStore) CreateReport(ctx context.Context, report entity.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reports[report.Meta.ID]; exists {
		return pkgerror.NewBusiness("report already exists", pkgerror.CodeConflict)
	}

	s.reports[report.Meta.ID] = &reportRecord{
		report: cloneReport(report),
	}

	return nil
}

func (s *InMemoryStore) UpdateMeta(ctx context.Context, id string, fn func(meta *entity.ReportMeta)) error {
	rec, err := s.get(id)
	if err != nil {
		return err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	fn(&rec.report.Meta)

	return nil
}

// SaveResult stores the analysed content of a report. Meta and submit state
// are left untouched.
func (s *InMemoryStore) SaveResult(ctx context.Context, id string, result entity.Report) error {
	rec, err := s.get(id)
	if err != nil {
		return err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	meta, submit := rec.report.Meta, rec.report.Submit
	rec.report = cloneReport(result)
	rec.report.Meta = meta
	rec.report.Submit = submit

	return nil
}

// UpdateSubmit applies fn to the submit state under the record lock. When fn
// returns an error the state is left as it was.
func (s *InMemoryStore) UpdateSubmit(ctx context.Context, id string, fn func(report entity.Report, state *entity.SubmitState) error) error {
	rec, err := s.get(id)
	if err != nil {
		return err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	next := rec.report.Submit
	if err := fn(rec.report, &next); err != nil {
		return err
	}
	rec.report.Submit = next

	return nil
}

func (s *InMemoryStore) GetReport(ctx context.Context, id string) (entity.Report, error) {
	rec, err := s.get(id)
	if err != nil {
		return entity.Report{}, err
	}

	rec.mu.RLock()
	defer rec.mu.RUnlock()

	return cloneReport(rec.report), nil
}

func (s *InMemoryStore) get(id string) (*reportRecord, error) {
	s.mu.RLock()
	rec, ok := s.reports[id]
	s.mu.RUnlock()
	if !ok {
		return nil, pkgerror.ErrNotFound
	}

	return rec, nil
}

func cloneReport(r entity.Report) entity.Report {
	if r.Files == nil {
		return r
	}

	files := make([]entity.FileResult, len(r.Files))
	for i, f := range r.Files {
		f.Metrics.Warnings = append([]entity.Warning(nil), f.Metrics.Warnings...)
		files[i] = f
	}
	r.Files = files

	return r
}
