package inbound

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/vidstat/internal/pkg/pkgrouter"
	"github.com/shandysiswandi/vidstat/internal/pkg/pkgroutine"
	"github.com/shandysiswandi/vidstat/internal/pkg/pkguid"
	"github.com/shandysiswandi/vidstat/internal/report/entity"
	"github.com/shandysiswandi/vidstat/internal/report/event"
	"github.com/shandysiswandi/vidstat/internal/report/store"
	"github.com/shandysiswandi/vidstat/internal/report/usecase"
)

type envelope[T any] struct {
	Message string         `json:"message"`
	Data    T              `json:"data"`
	Meta    map[string]any `json:"meta,omitempty"`
}

type fakeBitable struct {
	mu      sync.Mutex
	records []map[string]any
}

func (b *fakeBitable) FirstTableID(ctx context.Context, app string) (string, error) {
	return "tbl1", nil
}

func (b *fakeBitable) AddRecord(ctx context.Context, app, table, clientToken string, fields map[string]any) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records = append(b.records, fields)
	return "rec-1", nil
}

func (b *fakeBitable) OrderAmount(ctx context.Context, app, table, owner string, day time.Time) (float64, error) {
	return 42.5, nil
}

type formFile struct {
	name string
	data string
}

func TestReportLifecycle(t *testing.T) {
	runner := pkgroutine.NewManager(10)
	storage := store.NewInMemoryStore()
	bus := event.NewBus(10)
	bitable := &fakeBitable{}

	sf, err := pkguid.NewSnowflakeNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	history, err := store.OpenSQLiteHistory(context.Background(), ":memory:", sf)
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer history.Close()

	uc := usecase.New(usecase.Dependency{
		Store:   storage,
		History: history,
		Events:  bus,
		Bitable: bitable,
		Runner:  runner,
		ID:      pkguid.NewUUID(),
		Config: usecase.Config{
			DefaultQuota:   3,
			SummaryApp:     "app1",
			LookupOrder:    true,
			LabApp:         "lab",
			LabTable:       "orders",
			OrderDayOffset: -1,
		},
		RootCtx: context.Background(),
	})

	consumer := event.NewSubmitConsumer(bus, event.HandlerFunc(uc.Deliver), event.ConsumerConfig{
		Workers:     1,
		BaseBackoff: time.Millisecond,
		OnGiveUp:    uc.SubmitFailed,
	})
	consumer.Start()

	router := pkgrouter.NewRouter(pkguid.NewUUID())
	RegisterHTTPEndpoint(router, uc, Limits{})

	rec := postReport(t, router, map[string]string{"owner": "alice", "date": "2025-07-16", "quota": "4"},
		formFile{name: "alice_07.16.csv", data: "上传数量,播放(120)\n1\n2\n"},
		formFile{name: "alice_07.16.2.csv", data: "上传数量,视频播放\n0,总播放：30\n"},
	)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("unexpected status: %d %s", rec.Code, rec.Body.String())
	}

	var created envelope[CreateReportResponse]
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	reportID := created.Data.ReportID
	if reportID == "" {
		t.Fatal("report id is empty")
	}

	var report ReportResponse
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		report = getReport(t, router, reportID)
		if report.Status == entity.ReportStatusDone || report.Status == entity.ReportStatusFailed {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	if report.Status != entity.ReportStatusDone {
		t.Fatalf("report not done, status=%s err=%s", report.Status, report.Error)
	}
	if report.Owner != "alice" || report.Date != "2025-07-16" || report.Quota != 4 {
		t.Fatalf("unexpected report header: %+v", report)
	}
	if len(report.Files) != 2 || report.Files[0].Metrics == nil {
		t.Fatalf("unexpected files: %+v", report.Files)
	}
	// (4-1)+(4-2)+(4-0) uploads; 120 from the header plus 30 from cells
	if report.Totals == nil || report.Totals.TotalUploads != 9 || report.Totals.TotalViews != 150 {
		t.Fatalf("unexpected totals: %+v", report.Totals)
	}
	if report.OrderAmount == nil || *report.OrderAmount != 42.5 {
		t.Fatalf("unexpected order amount: %v", report.OrderAmount)
	}

	rec = postSubmit(t, router, reportID)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("unexpected submit status: %d %s", rec.Code, rec.Body.String())
	}

	deadline = time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		report = getReport(t, router, reportID)
		if report.Submit.Status == entity.SubmitStatusSubmitted {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if report.Submit.Status != entity.SubmitStatusSubmitted || report.Submit.RecordID != "rec-1" {
		t.Fatalf("unexpected submit state: %+v", report.Submit)
	}

	if rec := postSubmit(t, router, reportID); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on second submit, got %d", rec.Code)
	}

	bitable.mu.Lock()
	fields := bitable.records[0]
	bitable.mu.Unlock()
	if fields[usecase.FieldOrderAmount] != 42.5 || fields[usecase.FieldOwner] != "alice" {
		t.Fatalf("unexpected pushed fields: %v", fields)
	}

	hist := getHistory(t, router, "/history?owner=alice")
	if len(hist.Data.Items) != 1 || hist.Data.Items[0].ReportID != reportID || hist.Data.Items[0].Date != "2025-07-16" {
		t.Fatalf("unexpected history: %+v", hist.Data)
	}
	if hist.Meta["owner"] != "alice" {
		t.Fatalf("unexpected history meta: %v", hist.Meta)
	}

	if err := consumer.Stop(context.Background()); err != nil {
		t.Fatalf("stop consumer: %v", err)
	}
	if err := runner.Wait(); err != nil {
		t.Fatalf("runner wait: %v", err)
	}
}

func TestCreateReportValidation(t *testing.T) {
	router := pkgrouter.NewRouter(pkguid.NewUUID())
	uc := usecase.New(usecase.Dependency{
		Store:  store.NewInMemoryStore(),
		Runner: pkgroutine.NewManager(1),
		ID:     pkguid.NewUUID(),
		Config: usecase.Config{DefaultQuota: 3},
	})
	RegisterHTTPEndpoint(router, uc, Limits{MaxFileBytes: 16})

	cases := []struct {
		name   string
		fields map[string]string
		files  []formFile
		want   int
	}{
		{"missing owner", nil, []formFile{{"a.csv", "x"}}, http.StatusUnprocessableEntity},
		{"missing file", map[string]string{"owner": "a"}, nil, http.StatusUnprocessableEntity},
		{"bad date", map[string]string{"owner": "a", "date": "07/16"}, []formFile{{"a.csv", "x"}}, http.StatusUnprocessableEntity},
		{"bad quota", map[string]string{"owner": "a", "quota": "0"}, []formFile{{"a.csv", "x"}}, http.StatusUnprocessableEntity},
		{"too large", map[string]string{"owner": "a"}, []formFile{{"a.csv", "0123456789abcdefg"}}, http.StatusUnprocessableEntity},
		{"unsupported", map[string]string{"owner": "a"}, []formFile{{"a.txt", "x"}}, http.StatusUnsupportedMediaType},
	}

	for _, tc := range cases {
		rec := postReport(t, router, tc.fields, tc.files...)
		if rec.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d (%s)", tc.name, tc.want, rec.Code, rec.Body.String())
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/reports", bytes.NewBufferString("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-multipart body, got %d", rec.Code)
	}
}

func TestGetReportNotFound(t *testing.T) {
	router := pkgrouter.NewRouter(pkguid.NewUUID())
	RegisterHTTPEndpoint(router, usecase.New(usecase.Dependency{Store: store.NewInMemoryStore()}), Limits{})

	req := httptest.NewRequest(http.MethodGet, "/reports/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func postReport(t *testing.T, router http.Handler, fields map[string]string, files ...formFile) *httptest.ResponseRecorder {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for _, f := range files {
		part, err := writer.CreateFormFile("files", f.name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write([]byte(f.data)); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/reports", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func postSubmit(t *testing.T, router http.Handler, reportID string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/reports/"+reportID+"/submit", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func getReport(t *testing.T, router http.Handler, reportID string) ReportResponse {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/reports/"+reportID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected report status: %d", rec.Code)
	}

	var env envelope[ReportResponse]
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode report: %v", err)
	}

	return env.Data
}

func getHistory(t *testing.T, router http.Handler, path string) envelope[HistoryResponse] {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected history status: %d", rec.Code)
	}

	var env envelope[HistoryResponse]
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode history: %v", err)
	}

	return env
}
