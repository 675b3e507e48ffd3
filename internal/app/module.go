package app

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/vidstat/internal/report"
)

func (a *App) initModules() {
	if !a.config.GetBool("modules.report.enabled") {
		slog.Warn("report module disabled")
		return
	}

	closer, err := report.New(report.Dependency{
		Config:    a.config,
		Router:    a.router,
		Goroutine: a.goroutine,
		Context:   a.ctx,
		ID:        a.uuid,
	})
	if err != nil {
		slog.Error("failed to init module report", "error", err)
		os.Exit(1)
	}

	a.addCloser("Report", closer)
}
