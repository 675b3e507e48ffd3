package report

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shandysiswandi/vidstat/internal/pkg/pkgconfig"
	"github.com/shandysiswandi/vidstat/internal/pkg/pkgrouter"
	"github.com/shandysiswandi/vidstat/internal/pkg/pkgroutine"
	"github.com/shandysiswandi/vidstat/internal/pkg/pkguid"
	"github.com/shandysiswandi/vidstat/internal/report/event"
	"github.com/shandysiswandi/vidstat/internal/report/feishu"
	"github.com/shandysiswandi/vidstat/internal/report/inbound"
	"github.com/shandysiswandi/vidstat/internal/report/store"
	"github.com/shandysiswandi/vidstat/internal/report/usecase"
)

type Dependency struct {
	Config    pkgconfig.Config
	Goroutine *pkgroutine.Manager
	Router    *pkgrouter.Router
	Context   context.Context
	ID        pkguid.StringID
}

// New wires the report module into the router and starts the submit
// consumer. The returned closer drains the consumer and closes the history
// database.
func New(dep Dependency) (func(context.Context) error, error) {
	settings := LoadSettings(dep.Config)

	ctx := dep.Context
	if ctx == nil {
		ctx = context.Background()
	}

	if dep.ID == nil {
		dep.ID = pkguid.NewUUID()
	}

	history, err := OpenHistory(ctx, settings)
	if err != nil {
		return nil, err
	}

	var bitable usecase.Bitable
	if client := FeishuClient(settings); client != nil {
		bitable = client
	} else {
		slog.WarnContext(ctx, "feishu credentials are not configured, submit is disabled")
	}

	storage := store.NewInMemoryStore()
	bus := event.NewBus(settings.BusBuffer)

	uc := usecase.New(usecase.Dependency{
		Store:   storage,
		History: history,
		Events:  bus,
		Bitable: bitable,
		Runner:  dep.Goroutine,
		Clock:   nil,
		ID:      dep.ID,
		Config:  settings.Usecase,
		RootCtx: ctx,
	})

	consumerCfg := settings.Consumer
	consumerCfg.OnGiveUp = uc.SubmitFailed
	consumer := event.NewSubmitConsumer(bus, event.HandlerFunc(uc.Deliver), consumerCfg)
	consumer.Start()

	inbound.RegisterHTTPEndpoint(dep.Router, uc, settings.Limits)

	return func(ctx context.Context) error {
		return errors.Join(consumer.Stop(ctx), history.Close())
	}, nil
}

// OpenHistory opens the submission history database. Node 0 picks a random
// snowflake node.
func OpenHistory(ctx context.Context, s Settings) (*store.SQLiteHistory, error) {
	var (
		node *pkguid.Snowflake
		err  error
	)
	if s.HistoryNodeID > 0 {
		node, err = pkguid.NewSnowflakeNode(s.HistoryNodeID)
	} else {
		node, err = pkguid.NewSnowflake()
	}
	if err != nil {
		return nil, err
	}

	return store.OpenSQLiteHistory(ctx, s.HistoryPath, node)
}

// FeishuClient returns nil when no app credentials are configured.
func FeishuClient(s Settings) *feishu.Client {
	if s.Feishu.AppID == "" || s.Feishu.AppSecret == "" {
		return nil
	}

	return feishu.NewClient(s.Feishu)
}
