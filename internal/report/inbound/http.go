package inbound

import (
	"context"

	"github.com/shandysiswandi/vidstat/internal/pkg/pkgrouter"
	"github.com/shandysiswandi/vidstat/internal/report/entity"
	"github.com/shandysiswandi/vidstat/internal/report/usecase"
)

type uc interface {
	Analyze(ctx context.Context, in usecase.AnalyzeInput) (usecase.AnalyzeResult, error)
	Report(ctx context.Context, reportID string) (entity.Report, error)
	Submit(ctx context.Context, reportID string) (usecase.SubmitResult, error)
	History(ctx context.Context, owner string, limit int) (usecase.HistoryResult, error)
}

// Limits bounds what a single upload may carry.
type Limits struct {
	MaxFileBytes int64
	MaxFiles     int
}

func RegisterHTTPEndpoint(r *pkgrouter.Router, uc uc, limits Limits) {
	if limits.MaxFileBytes <= 0 {
		limits.MaxFileBytes = 32 << 20
	}
	if limits.MaxFiles <= 0 {
		limits.MaxFiles = 50
	}

	end := &HTTPEndpoint{uc: uc, limits: limits}

	maxBody := limits.MaxFileBytes*int64(limits.MaxFiles) + 1<<20

	r.POST("/reports", end.CreateReport, pkgrouter.MaxBodyBytes(maxBody))
	r.GET("/reports/:id", end.GetReport)
	r.POST("/reports/:id/submit", end.SubmitReport)

	r.GET("/history", end.History) // ?owner=&limit=
}
