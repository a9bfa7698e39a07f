package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/voxcliente/backend/topics"
)

type Event struct {
	Name       string
	DistinctID string
	Properties map[string]any
	Timestamp  time.Time
}

// Capturer delivers a single event to the analytics backend.
type Capturer interface {
	Capture(ctx context.Context, event Event) error
}

// Tracker sends events in the background. Failures never reach the caller.
type Tracker struct {
	capturer Capturer
	timeout  time.Duration
	log      *slog.Logger
	wg       sync.WaitGroup
}

// New returns a tracker. A nil capturer disables tracking.
func New(capturer Capturer, timeout time.Duration, log *slog.Logger) *Tracker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Tracker{
		capturer: capturer,
		timeout:  timeout,
		log:      log,
	}
}

func (t *Tracker) Track(ctx context.Context, topic topics.Topic, distinctID string, props map[string]any) {
	if t == nil || t.capturer == nil {
		return
	}

	event := Event{
		Name:       topic.Name(),
		DistinctID: distinctID,
		Properties: props,
		Timestamp:  time.Now().UTC(),
	}

	// The request context is about to be cancelled; keep its values only.
	bg := context.WithoutCancel(ctx)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()

		ctx, cancel := context.WithTimeout(bg, t.timeout)
		defer cancel()

		if err := t.capturer.Capture(ctx, event); err != nil {
			t.log.Warn("failed to capture analytics event",
				slog.String("event", event.Name),
				slog.String("error", err.Error()))
			return
		}
		t.log.Debug("analytics event captured", slog.String("event", event.Name))
	}()
}

// Wait blocks until in-flight events finish or ctx is done.
func (t *Tracker) Wait(ctx context.Context) {
	if t == nil {
		return
	}
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		t.log.Warn("analytics flush interrupted", slog.String("error", ctx.Err().Error()))
	}
}
