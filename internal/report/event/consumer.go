package event

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shandysiswandi/vidstat/internal/report/entity"
)

type Handler interface {
	Handle(ctx context.Context, event entity.SubmitEvent) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event entity.SubmitEvent) error

func (f HandlerFunc) Handle(ctx context.Context, event entity.SubmitEvent) error {
	return f(ctx, event)
}

type ConsumerConfig struct {
	Workers     int
	MaxRetries  int
	BaseBackoff time.Duration

	// OnGiveUp is called once an event failed every attempt.
	OnGiveUp func(ctx context.Context, event entity.SubmitEvent, err error)
}

// SubmitConsumer drains the bus with a fixed pool of workers. Each event id
// is handled at most once; failed attempts are retried with exponential
// backoff.
type SubmitConsumer struct {
	bus         *Bus
	handler     Handler
	onGiveUp    func(ctx context.Context, event entity.SubmitEvent, err error)
	workers     int
	maxRetries  int
	baseBackoff time.Duration
	seen        sync.Map
	wg          sync.WaitGroup
}

func NewSubmitConsumer(bus *Bus, handler Handler, cfg ConsumerConfig) *SubmitConsumer {
	workers := cfg.Workers
	if workers < 1 {
		workers = 2
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	baseBackoff := cfg.BaseBackoff
	if baseBackoff <= 0 {
		baseBackoff = 500 * time.Millisecond
	}

	return &SubmitConsumer{
		bus:         bus,
		handler:     handler,
		onGiveUp:    cfg.OnGiveUp,
		workers:     workers,
		maxRetries:  maxRetries,
		baseBackoff: baseBackoff,
	}
}

func (c *SubmitConsumer) Start() {
	for range c.workers {
		c.wg.Add(1)
		go c.worker()
	}
}

// Stop closes the bus and waits for queued events to finish or ctx to end.
func (c *SubmitConsumer) Stop(ctx context.Context) error {
	if c.bus != nil {
		c.bus.Close()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *SubmitConsumer) worker() {
	defer c.wg.Done()

	for event := range c.bus.Subscribe() {
		c.processEvent(event)
	}
}

func (c *SubmitConsumer) processEvent(event entity.SubmitEvent) {
	if c.handler == nil {
		return
	}

	if event.EventID != "" {
		if _, loaded := c.seen.LoadOrStore(event.EventID, struct{}{}); loaded {
			slog.Info("skip duplicate submit event", "event_id", event.EventID, "report_id", event.ReportID)
			return
		}
	}

	ctx := context.Background()
	backoff := c.baseBackoff
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		err := c.handler.Handle(ctx, event)
		if err == nil {
			return
		}

		if attempt == c.maxRetries {
			slog.Error("failed to submit report after retries", "event_id", event.EventID, "report_id", event.ReportID, "error", err)
			if c.onGiveUp != nil {
				c.onGiveUp(ctx, event, err)
			}
			return
		}

		slog.Warn("submit attempt failed", "event_id", event.EventID, "report_id", event.ReportID, "attempt", attempt+1, "error", err)
		sleepBackoff(backoff)
		backoff *= 2
	}
}

func sleepBackoff(d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	<-timer.C
}
