package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/voxcliente/backend/pkg/logger"
	"github.com/voxcliente/backend/topics"
)

type recordingCapturer struct {
	mu     sync.Mutex
	events []Event
	err    error
	block  chan struct{}
}

func (r *recordingCapturer) Capture(ctx context.Context, event Event) error {
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func TestTrack(t *testing.T) {
	t.Parallel()

	c := &recordingCapturer{}
	tr := New(c, time.Second, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	tr.Track(ctx, topics.ActaGenerated, "ana@example.com", map[string]any{"email_sent": true})
	cancel()
	tr.Wait(context.Background())

	if len(c.events) != 1 {
		t.Fatalf("events = %d, want 1", len(c.events))
	}
	got := c.events[0]
	if got.Name != "acta_generated" || got.DistinctID != "ana@example.com" {
		t.Errorf("event = %+v", got)
	}
	if got.Properties["email_sent"] != true {
		t.Errorf("properties = %v", got.Properties)
	}
}

func TestTrackFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	c := &recordingCapturer{err: errors.New("boom")}
	tr := New(c, time.Second, logger.Discard())
	tr.Track(context.Background(), topics.ActaFailed, "x", nil)
	tr.Wait(context.Background())

	if len(c.events) != 1 {
		t.Errorf("events = %d, want 1", len(c.events))
	}
}

func TestTrackTimeout(t *testing.T) {
	t.Parallel()

	c := &recordingCapturer{block: make(chan struct{})}
	tr := New(c, 20*time.Millisecond, logger.Discard())
	tr.Track(context.Background(), topics.ActaGenerated, "x", nil)

	done := make(chan struct{})
	go func() {
		tr.Wait(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait() did not return after capture timeout")
	}
}

func TestNilCapturer(t *testing.T) {
	t.Parallel()

	tr := New(nil, 0, logger.Discard())
	tr.Track(context.Background(), topics.ActaGenerated, "x", nil)
	tr.Wait(context.Background())

	var nilTracker *Tracker
	nilTracker.Track(context.Background(), topics.ActaGenerated, "x", nil)
	nilTracker.Wait(context.Background())
}
