package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shandysiswandi/vidstat/internal/pkg/pkgerror"
	"github.com/shandysiswandi/vidstat/internal/pkg/pkgroutine"
	"github.com/shandysiswandi/vidstat/internal/pkg/pkguid"
	"github.com/shandysiswandi/vidstat/internal/report/entity"
	"github.com/shandysiswandi/vidstat/internal/report/metrics"
	"github.com/shandysiswandi/vidstat/internal/report/tabular"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

type Store interface {
	CreateReport(ctx context.Context, report entity.Report) error
	UpdateMeta(ctx context.Context, id string, fn func(meta *entity.ReportMeta)) error
	SaveResult(ctx context.Context, id string, result entity.Report) error
	UpdateSubmit(ctx context.Context, id string, fn func(report entity.Report, state *entity.SubmitState) error) error
	GetReport(ctx context.Context, id string) (entity.Report, error)
}

type History interface {
	Append(ctx context.Context, sub entity.Submission) (entity.Submission, error)
	List(ctx context.Context, owner string, limit int) ([]entity.Submission, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event entity.SubmitEvent) error
}

// Bitable is the part of the Feishu client the reports need.
type Bitable interface {
	FirstTableID(ctx context.Context, app string) (string, error)
	AddRecord(ctx context.Context, app, table, clientToken string, fields map[string]any) (string, error)
	OrderAmount(ctx context.Context, app, table, owner string, day time.Time) (float64, error)
}

type Runner interface {
	Go(ctx context.Context, f func(ctx context.Context) error)
}

type Clock interface {
	Now() time.Time
}

type Dependency struct {
	Store   Store
	History History
	Events  EventPublisher
	Bitable Bitable
	Runner  Runner
	Clock   Clock
	ID      pkguid.StringID
	Config  Config
	RootCtx context.Context
}

type Usecase struct {
	store   Store
	history History
	events  EventPublisher
	bitable Bitable
	runner  Runner
	clock   Clock
	id      pkguid.StringID
	cfg     Config
	rootCtx context.Context
}

func New(dep Dependency) *Usecase {
	root := dep.RootCtx
	if root == nil {
		root = context.Background()
	}

	clock := dep.Clock
	if clock == nil {
		clock = realClock{}
	}

	return &Usecase{
		store:   dep.Store,
		history: dep.History,
		events:  dep.Events,
		bitable: dep.Bitable,
		runner:  dep.Runner,
		clock:   clock,
		id:      dep.ID,
		cfg:     dep.Config,
		rootCtx: root,
	}
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

// Analyze queues a report and computes it in the background.
func (u *Usecase) Analyze(ctx context.Context, in AnalyzeInput) (AnalyzeResult, error) {
	if u.store == nil || u.id == nil || u.runner == nil {
		return AnalyzeResult{}, pkgerror.NewServer(errors.New("missing dependency"))
	}

	if _, err := u.resolveQuota(in); err != nil {
		return AnalyzeResult{}, err
	}
	if err := validateFiles(in.Files); err != nil {
		return AnalyzeResult{}, err
	}

	reportID := u.id.Generate()
	if err := u.store.CreateReport(ctx, entity.Report{
		Meta:   entity.ReportMeta{ID: reportID, Status: entity.ReportStatusQueued},
		Owner:  in.Owner,
		Submit: entity.SubmitState{Status: entity.SubmitStatusNone},
	}); err != nil {
		return AnalyzeResult{}, normalizeErr(err)
	}

	u.runner.Go(u.rootCtx, func(ctx context.Context) error {
		if err := u.processReport(ctx, reportID, in); err != nil {
			slog.ErrorContext(ctx, "report processing failed", "report_id", reportID, "error", err)
			return err
		}
		return nil
	})

	return AnalyzeResult{ReportID: reportID}, nil
}

func (u *Usecase) Report(ctx context.Context, reportID string) (entity.Report, error) {
	if reportID == "" {
		return entity.Report{}, pkgerror.NewInvalidInput(errors.New("report_id is required"))
	}

	report, err := u.store.GetReport(ctx, reportID)
	if err != nil {
		return entity.Report{}, mapStoreErr(err)
	}

	return report, nil
}

// Summarize reads and aggregates every file synchronously.
//
// Unreadable files are kept as FAILED results and left out of the totals,
// unless Config.AbortOnUnreadable is set.
func (u *Usecase) Summarize(ctx context.Context, in AnalyzeInput) (entity.Report, error) {
	quota, err := u.resolveQuota(in)
	if err != nil {
		return entity.Report{}, err
	}
	if err := validateFiles(in.Files); err != nil {
		return entity.Report{}, err
	}

	throttle := u.cfg.CountThrottle
	if in.Throttle != nil {
		throttle = *in.Throttle
	}
	extraction := entity.ExtractionConfig{DefaultUploadQuota: quota, CountThrottle: throttle}

	results := make([]entity.FileResult, len(in.Files))
	readErr := pkgroutine.ForEach(ctx, len(in.Files), u.cfg.MaxParallel, func(ctx context.Context, i int) error {
		res, err := u.extractFile(ctx, in.Files[i], extraction)
		results[i] = res
		return err
	})
	if err := ctx.Err(); err != nil {
		return entity.Report{}, err
	}

	list := make([]entity.FileMetrics, 0, len(results))
	for i, res := range results {
		if res.Status == "" {
			results[i] = entity.FileResult{Name: in.Files[i].Name, Status: entity.FileStatusFailed, Err: "extraction aborted"}
			continue
		}
		if res.Status == entity.FileStatusOK {
			list = append(list, res.Metrics)
		}
	}

	if readErr != nil {
		if u.cfg.AbortOnUnreadable {
			return entity.Report{}, pkgerror.NewInvalidInput(readErr)
		}
		slog.WarnContext(ctx, "unreadable files skipped", "error", readErr)
	}

	owner, date := u.resolveOwnerDate(in)
	report := entity.Report{
		Owner:    owner,
		Date:     date,
		Quota:    quota,
		Files:    results,
		Totals:   metrics.Aggregate(list),
		Throttle: throttle,
	}

	u.lookupOrderAmount(ctx, &report)

	return report, nil
}

// Push writes the summary row of report to the Feishu summary table, records
// it in the history and returns the new record id.
func (u *Usecase) Push(ctx context.Context, report entity.Report) (string, error) {
	if u.bitable == nil || u.cfg.SummaryApp == "" {
		return "", pkgerror.NewServer(errors.New("feishu summary table is not configured"))
	}
	if report.Owner == "" {
		return "", pkgerror.NewInvalidInput(errors.New("owner is required to push a summary"))
	}

	table := u.cfg.SummaryTable
	if table == "" {
		id, err := u.bitable.FirstTableID(ctx, u.cfg.SummaryApp)
		if err != nil {
			return "", pkgerror.NewUpstream(err)
		}
		table = id
	}

	recordID, err := u.bitable.AddRecord(ctx, u.cfg.SummaryApp, table, writeToken(report), SummaryFields(report))
	if err != nil {
		return "", pkgerror.NewUpstream(err)
	}
	slog.InfoContext(ctx, "summary pushed", "report_id", report.Meta.ID, "owner", report.Owner, "record_id", recordID)

	if u.history != nil {
		if _, err := u.history.Append(ctx, submissionFrom(report, recordID)); err != nil {
			slog.WarnContext(ctx, "failed to record submission history", "report_id", report.Meta.ID, "error", err)
		}
	}

	return recordID, nil
}

// writeToken keys the summary write: every retry of one submit event reuses
// the event id, a direct push uses the report id.
func writeToken(report entity.Report) string {
	if report.Submit.EventID != "" {
		return report.Submit.EventID
	}
	return report.Meta.ID
}

// Submit queues a finished report for delivery to Feishu.
func (u *Usecase) Submit(ctx context.Context, reportID string) (SubmitResult, error) {
	if reportID == "" {
		return SubmitResult{}, pkgerror.NewInvalidInput(errors.New("report_id is required"))
	}
	if u.events == nil || u.id == nil {
		return SubmitResult{}, pkgerror.NewServer(errors.New("missing dependency"))
	}

	eventID := u.id.Generate()
	err := u.store.UpdateSubmit(ctx, reportID, func(report entity.Report, state *entity.SubmitState) error {
		if report.Meta.Status != entity.ReportStatusDone {
			return pkgerror.NewBusiness("report is not ready to submit", pkgerror.CodeConflict)
		}
		if state.Status == entity.SubmitStatusQueued || state.Status == entity.SubmitStatusSubmitted {
			return pkgerror.NewBusiness("report already submitted", pkgerror.CodeConflict)
		}

		state.Status = entity.SubmitStatusQueued
		state.EventID = eventID
		state.Err = ""
		return nil
	})
	if err != nil {
		return SubmitResult{}, mapStoreErr(err)
	}

	event := entity.SubmitEvent{EventID: eventID, ReportID: reportID}
	if err := u.events.Publish(ctx, event); err != nil {
		slog.WarnContext(ctx, "failed to publish submit event", "report_id", reportID, "event_id", eventID, "error", err)
		u.markSubmitFailed(ctx, event, err)
		return SubmitResult{}, pkgerror.NewServer(err)
	}

	return SubmitResult{ReportID: reportID, EventID: eventID, Status: entity.SubmitStatusQueued}, nil
}

// Deliver handles one submit event. Events that no longer apply are dropped
// without error so they are not retried.
func (u *Usecase) Deliver(ctx context.Context, event entity.SubmitEvent) error {
	report, err := u.store.GetReport(ctx, event.ReportID)
	if errors.Is(err, pkgerror.ErrNotFound) {
		slog.WarnContext(ctx, "submit event for unknown report", "report_id", event.ReportID, "event_id", event.EventID)
		return nil
	}
	if err != nil {
		return err
	}

	if report.Submit.EventID != event.EventID || report.Submit.Status != entity.SubmitStatusQueued {
		slog.InfoContext(ctx, "skip stale submit event", "report_id", event.ReportID, "event_id", event.EventID)
		return nil
	}

	recordID, err := u.Push(ctx, report)
	if err != nil {
		return err
	}

	return u.store.UpdateSubmit(ctx, event.ReportID, func(_ entity.Report, state *entity.SubmitState) error {
		state.Status = entity.SubmitStatusSubmitted
		state.RecordID = recordID
		state.Err = ""
		return nil
	})
}

// SubmitFailed records that event could not be delivered; the report can
// then be submitted again.
func (u *Usecase) SubmitFailed(ctx context.Context, event entity.SubmitEvent, cause error) {
	u.markSubmitFailed(ctx, event, cause)
}

func (u *Usecase) History(ctx context.Context, owner string, limit int) (HistoryResult, error) {
	if u.history == nil {
		return HistoryResult{}, pkgerror.NewServer(errors.New("submission history is disabled"))
	}

	if limit == 0 {
		limit = DefaultHistoryLimit
	}
	if limit < 1 || limit > MaxHistoryLimit {
		return HistoryResult{}, pkgerror.NewInvalidInput(fmt.Errorf("limit must be between 1 and %d", MaxHistoryLimit))
	}

	items, err := u.history.List(ctx, owner, limit)
	if err != nil {
		return HistoryResult{}, normalizeErr(err)
	}

	return HistoryResult{Owner: owner, Items: items}, nil
}

func (u *Usecase) processReport(ctx context.Context, reportID string, in AnalyzeInput) error {
	startedAt := u.clock.Now().Unix()
	if err := u.store.UpdateMeta(ctx, reportID, func(meta *entity.ReportMeta) {
		meta.Status = entity.ReportStatusProcessing
		meta.StartedAt = startedAt
	}); err != nil {
		return err
	}

	report, err := u.Summarize(ctx, in)
	if err == nil {
		if saveErr := u.store.SaveResult(ctx, reportID, report); saveErr != nil {
			return saveErr
		}
	}

	status := entity.ReportStatusDone
	errMsg := ""
	if err != nil {
		status = entity.ReportStatusFailed
		errMsg = err.Error()
	}

	endedAt := u.clock.Now().Unix()
	if metaErr := u.store.UpdateMeta(ctx, reportID, func(meta *entity.ReportMeta) {
		meta.Status = status
		meta.Err = errMsg
		meta.EndedAt = endedAt
	}); metaErr != nil {
		return metaErr
	}

	return err
}

func (u *Usecase) extractFile(ctx context.Context, file entity.SourceFile, cfg entity.ExtractionConfig) (entity.FileResult, error) {
	ds, err := tabular.Read(file.Name, bytes.NewReader(file.Data))
	if err != nil {
		slog.WarnContext(ctx, "failed to read data file", "file", file.Name, "error", err)
		return entity.FileResult{Name: file.Name, Status: entity.FileStatusFailed, Err: err.Error()}, err
	}

	fm := metrics.Extract(ds, cfg)
	for _, w := range fm.Warnings {
		slog.WarnContext(ctx, "data file warning",
			"file", file.Name, "kind", w.Kind, "column", w.Column, "row", w.Row, "detail", w.Detail)
	}

	return entity.FileResult{Name: file.Name, Status: entity.FileStatusOK, Metrics: fm}, nil
}

// resolveOwnerDate fills owner and date from the file names when the input
// leaves them empty. Owners of all files are joined in first-seen order; the
// first parseable date wins; today is the last resort.
func (u *Usecase) resolveOwnerDate(in AnalyzeInput) (string, time.Time) {
	owner, date := in.Owner, in.Date
	now := u.clock.Now()

	if owner == "" || date.IsZero() {
		year := u.cfg.Year
		if year == 0 {
			year = now.Year()
		}

		var owners []string
		seen := make(map[string]struct{})
		var fileDate time.Time

		for _, f := range in.Files {
			info, ok := ParseFileInfo(f.Name, year, now.Location())
			if !ok {
				continue
			}
			if _, dup := seen[info.Owner]; info.Owner != "" && !dup {
				seen[info.Owner] = struct{}{}
				owners = append(owners, info.Owner)
			}
			if fileDate.IsZero() {
				fileDate = info.Date
			}
		}

		if owner == "" {
			owner = strings.Join(owners, ",")
		}
		if date.IsZero() {
			date = fileDate
		}
	}

	if date.IsZero() {
		date = now
	}

	return owner, midnight(date)
}

func (u *Usecase) lookupOrderAmount(ctx context.Context, report *entity.Report) {
	if !u.cfg.LookupOrder || u.bitable == nil || u.cfg.LabApp == "" || u.cfg.LabTable == "" || report.Owner == "" {
		return
	}

	day := report.Date.AddDate(0, 0, u.cfg.OrderDayOffset)
	amount, err := u.bitable.OrderAmount(ctx, u.cfg.LabApp, u.cfg.LabTable, report.Owner, day)
	if err != nil {
		slog.WarnContext(ctx, "lab order amount lookup failed", "owner", report.Owner, "day", day.Format(time.DateOnly), "error", err)
		return
	}

	report.OrderAmount = amount
	report.OrderAmountKnown = true
}

func (u *Usecase) resolveQuota(in AnalyzeInput) (int64, error) {
	quota := in.Quota
	if quota == 0 {
		quota = u.cfg.DefaultQuota
	}
	if quota < 1 {
		return 0, pkgerror.NewInvalidInput(errors.New("quota must be at least 1"))
	}

	return quota, nil
}

func (u *Usecase) markSubmitFailed(ctx context.Context, event entity.SubmitEvent, cause error) {
	err := u.store.UpdateSubmit(ctx, event.ReportID, func(_ entity.Report, state *entity.SubmitState) error {
		if state.EventID != event.EventID {
			return nil
		}
		state.Status = entity.SubmitStatusFailed
		if cause != nil {
			state.Err = cause.Error()
		}
		return nil
	})
	if err != nil {
		slog.WarnContext(ctx, "failed to record submit failure", "report_id", event.ReportID, "error", err)
	}
}

func validateFiles(files []entity.SourceFile) error {
	if len(files) == 0 {
		return pkgerror.NewInvalidInput(errors.New("at least one file is required"))
	}

	for _, f := range files {
		if !tabular.Supported(f.Name) {
			return pkgerror.NewUnsupported(fmt.Errorf("%s: %w", f.Name, tabular.ErrUnsupportedFormat))
		}
	}

	return nil
}

func mapStoreErr(err error) error {
	if errors.Is(err, pkgerror.ErrNotFound) {
		return pkgerror.NewBusiness("report not found", pkgerror.CodeNotFound)
	}
	return normalizeErr(err)
}

func normalizeErr(err error) error {
	var perr *pkgerror.Error
	if errors.As(err, &perr) {
		return perr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return pkgerror.NewTimeout(err)
	}
	return pkgerror.NewServer(err)
}
