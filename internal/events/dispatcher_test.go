// internal/events/dispatcher_test.go
package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temmyjay001/agency-service/internal/relay"
)

type recordingRelay struct {
	mu      sync.Mutex
	calls   []string
	payload []map[string]any
	result  relay.Result
	done    chan struct{}
}

func newRecordingRelay(result relay.Result) *recordingRelay {
	return &recordingRelay{result: result, done: make(chan struct{}, 16)}
}

func (r *recordingRelay) Trigger(ctx context.Context, action string, payload map[string]any) relay.Result {
	r.mu.Lock()
	r.calls = append(r.calls, action)
	r.payload = append(r.payload, payload)
	r.mu.Unlock()
	r.done <- struct{}{}
	return r.result
}

func waitForCalls(t *testing.T, r *recordingRelay, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-r.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for relay call %d", i+1)
		}
	}
}

func TestDispatcher_DeliversInOrder(t *testing.T) {
	rec := newRecordingRelay(relay.Result{Success: true})
	d := NewDispatcher(rec, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Start(ctx)

	require.True(t, d.Publish(EventTypeCreditsAdded, map[string]any{"userId": "u1", "amount": 100}))
	require.True(t, d.Publish(EventTypeCreditsLowBalance, map[string]any{"userId": "u1"}))
	waitForCalls(t, rec, 2)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []string{EventTypeCreditsAdded, EventTypeCreditsLowBalance}, rec.calls)
	assert.Equal(t, map[string]any{"userId": "u1", "amount": 100}, rec.payload[0]["data"])
	assert.NotEmpty(t, rec.payload[0]["eventId"])
	assert.NotEmpty(t, rec.payload[0]["occurredAt"])
}

func TestDispatcher_DropsWhenQueueFull(t *testing.T) {
	d := NewDispatcher(newRecordingRelay(relay.Result{Success: true}), 1)

	// no worker running, so the second publish overflows
	assert.True(t, d.Publish(EventTypeCreditsAdded, nil))
	assert.False(t, d.Publish(EventTypeCreditsAdded, nil))
}

func TestDispatcher_RelayFailureDoesNotStopWorker(t *testing.T) {
	rec := newRecordingRelay(relay.Result{Success: false, Error: "credits.added failed: 500 boom"})
	d := NewDispatcher(rec, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Start(ctx)

	d.Publish(EventTypeCreditsAdded, nil)
	d.Publish(EventTypeCreditsAdded, nil)
	waitForCalls(t, rec, 2)
}

func TestDispatcher_StopsOnCancel(t *testing.T) {
	d := NewDispatcher(newRecordingRelay(relay.Result{Success: true}), 4)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		d.Start(ctx)
		close(stopped)
	}()

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop")
	}
}
