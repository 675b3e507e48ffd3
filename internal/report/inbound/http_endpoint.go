package inbound

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shandysiswandi/vidstat/internal/pkg/pkgerror"
	"github.com/shandysiswandi/vidstat/internal/pkg/pkgrouter"
	"github.com/shandysiswandi/vidstat/internal/report/entity"
	"github.com/shandysiswandi/vidstat/internal/report/usecase"
)

// maxFieldBytes caps plain form values (owner, date, quota).
const maxFieldBytes = 1 << 10

type HTTPEndpoint struct {
	uc     uc
	limits Limits
}

func (h *HTTPEndpoint) CreateReport(ctx context.Context, r *http.Request) (any, error) {
	in, err := h.readUpload(r)
	if err != nil {
		return nil, err
	}

	result, err := h.uc.Analyze(ctx, in)
	if err != nil {
		return nil, err
	}

	return CreateReportResponse{ReportID: result.ReportID}, nil
}

func (h *HTTPEndpoint) GetReport(ctx context.Context, r *http.Request) (any, error) {
	reportID := strings.TrimSpace(pkgrouter.GetParam(ctx, "id"))
	if reportID == "" {
		return nil, pkgerror.NewInvalidInput(errors.New("report id is required"))
	}

	report, err := h.uc.Report(ctx, reportID)
	if err != nil {
		return nil, err
	}

	return toReportResponse(report), nil
}

func (h *HTTPEndpoint) SubmitReport(ctx context.Context, r *http.Request) (any, error) {
	reportID := strings.TrimSpace(pkgrouter.GetParam(ctx, "id"))
	if reportID == "" {
		return nil, pkgerror.NewInvalidInput(errors.New("report id is required"))
	}

	result, err := h.uc.Submit(ctx, reportID)
	if err != nil {
		return nil, err
	}

	return SubmitReportResponse{
		ReportID: result.ReportID,
		EventID:  result.EventID,
		Status:   result.Status,
	}, nil
}

func (h *HTTPEndpoint) History(ctx context.Context, r *http.Request) (any, error) {
	query := r.URL.Query()
	owner := strings.TrimSpace(query.Get("owner"))

	limit := 0
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			return nil, pkgerror.NewInvalidInput(errors.New("invalid limit"))
		}
		limit = value
	}

	result, err := h.uc.History(ctx, owner, limit)
	if err != nil {
		return nil, err
	}

	items := make([]Submission, 0, len(result.Items))
	for _, sub := range result.Items {
		items = append(items, toHTTPSubmission(sub))
	}

	return HistoryResponse{Items: items, owner: result.Owner}, nil
}

// readUpload walks the multipart body once. File parts come from the
// "files" or "file" fields; owner, date and quota are plain fields.
func (h *HTTPEndpoint) readUpload(r *http.Request) (usecase.AnalyzeInput, error) {
	var in usecase.AnalyzeInput

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || !strings.EqualFold(mediaType, "multipart/form-data") {
		return in, pkgerror.NewInvalidFormat()
	}

	reader, err := r.MultipartReader()
	if err != nil {
		return in, pkgerror.NewInvalidFormat()
	}

	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return in, uploadErr(err)
		}

		switch name := part.FormName(); name {
		case "files", "file":
			file, err := h.readFilePart(part)
			_ = part.Close()
			if err != nil {
				return in, err
			}
			if len(in.Files) == h.limits.MaxFiles {
				return in, pkgerror.NewInvalidInput(fmt.Errorf("at most %d files per report", h.limits.MaxFiles))
			}
			in.Files = append(in.Files, file)

		case "owner", "date", "quota":
			value, err := readField(part)
			_ = part.Close()
			if err != nil {
				return in, err
			}
			if err := applyField(&in, name, value); err != nil {
				return in, err
			}

		default:
			_ = part.Close()
		}
	}

	if in.Owner == "" {
		return in, pkgerror.NewInvalidInput(errors.New("owner is required"))
	}
	if len(in.Files) == 0 {
		return in, pkgerror.NewInvalidInput(errors.New("file part is required"))
	}

	return in, nil
}

func (h *HTTPEndpoint) readFilePart(part *multipart.Part) (entity.SourceFile, error) {
	name := strings.TrimSpace(part.FileName())
	if name == "" {
		return entity.SourceFile{}, pkgerror.NewInvalidInput(errors.New("file part needs a file name"))
	}

	data, err := io.ReadAll(io.LimitReader(part, h.limits.MaxFileBytes+1))
	if err != nil {
		return entity.SourceFile{}, uploadErr(err)
	}
	if int64(len(data)) > h.limits.MaxFileBytes {
		return entity.SourceFile{}, pkgerror.NewInvalidInput(fmt.Errorf("%s exceeds %d bytes", name, h.limits.MaxFileBytes))
	}

	return entity.SourceFile{Name: name, Data: data}, nil
}

// uploadErr maps a failed multipart read. Bodies cut off by the route size
// limit are reported as invalid input.
func uploadErr(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return pkgerror.NewInvalidInput(fmt.Errorf("upload exceeds %d bytes", maxErr.Limit))
	}

	return pkgerror.NewInvalidFormat()
}

func readField(part io.Reader) (string, error) {
	raw, err := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
	if err != nil {
		return "", pkgerror.NewInvalidFormat()
	}
	if len(raw) > maxFieldBytes {
		return "", pkgerror.NewInvalidInput(errors.New("form field too long"))
	}

	return strings.TrimSpace(string(raw)), nil
}

func applyField(in *usecase.AnalyzeInput, name, value string) error {
	if value == "" {
		return nil
	}

	switch name {
	case "owner":
		in.Owner = value
	case "date":
		date, err := time.ParseInLocation(time.DateOnly, value, time.Local)
		if err != nil {
			return pkgerror.NewInvalidInput(errors.New("date must be YYYY-MM-DD"))
		}
		in.Date = date
	case "quota":
		quota, err := strconv.ParseInt(value, 10, 64)
		if err != nil || quota < 1 {
			return pkgerror.NewInvalidInput(errors.New("quota must be a positive integer"))
		}
		in.Quota = quota
	}

	return nil
}
