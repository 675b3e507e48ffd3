package app

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/rs/cors"

	"github.com/shandysiswandi/vidstat/internal/pkg/pkgconfig"
	"github.com/shandysiswandi/vidstat/internal/pkg/pkgrouter"
	"github.com/shandysiswandi/vidstat/internal/pkg/pkgroutine"
	"github.com/shandysiswandi/vidstat/internal/pkg/pkguid"
)

func (a *App) initConfig() {
	path := "/config/config.yaml"
	if os.Getenv("LOCAL") == "true" {
		path = "./config/config.yaml"
	}

	cfg, err := pkgconfig.NewViper(path)
	if err != nil {
		slog.Error("failed to init config", "path", path, "error", err)
		os.Exit(1)
	}

	// file name dates and Feishu day values are local midnights
	if tz := cfg.GetString("tz"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			slog.Error("invalid tz", "tz", tz, "error", err)
			os.Exit(1)
		}
		time.Local = loc
	}

	a.config = cfg
}

func (a *App) initLibraries() {
	maxGoroutine := int(a.config.GetInt("server.max_goroutine"))
	if maxGoroutine <= 0 {
		maxGoroutine = 100
	}

	a.goroutine = pkgroutine.NewManager(maxGoroutine)
	a.uuid = pkguid.NewUUID()
}

func (a *App) initHTTPServer() {
	a.router = pkgrouter.NewRouter(a.uuid)

	origins := a.config.GetArray("server.cors.allowed_origins")
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{pkgrouter.HeaderCorrelationID},
	})

	// uploads can be large, so only headers get a read deadline
	a.httpServer = &http.Server{
		Addr:              a.config.GetString("server.address.http"),
		Handler:           corsHandler.Handler(a.router),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}

func (a *App) initClosers() {
	a.addCloser("Config", func(context.Context) error {
		return a.config.Close()
	})
}
