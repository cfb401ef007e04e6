package sink

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kadedb/kadedb"
)

// Flusher batches ChangeEvents per sink and drains them on an interval or
// on an explicit Flush call, generalizing the teacher's Postgres->DuckDB
// CDC flush loop (advisory-lock/batch-threshold/export/mark-flushed) to
// any ChangeSink.
type Flusher struct {
	mu       sync.Mutex
	sinks    []kadedb.ChangeSink
	buffered []kadedb.ChangeEvent
	interval time.Duration

	stop chan struct{}
	done chan struct{}
}

// NewFlusher builds a Flusher draining to sinks every interval.
func NewFlusher(interval time.Duration, sinks ...kadedb.ChangeSink) *Flusher {
	return &Flusher{sinks: sinks, interval: interval}
}

// Enqueue buffers event for the next Flush.
func (f *Flusher) Enqueue(event kadedb.ChangeEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buffered = append(f.buffered, event)
}

// Flush drains all buffered events to every configured sink, logging (but
// not failing on) individual sink errors, matching ChangeSink's best-
// effort, out-of-band contract.
func (f *Flusher) Flush(ctx context.Context) {
	f.mu.Lock()
	batch := f.buffered
	f.buffered = nil
	f.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	start := time.Now()
	for _, sink := range f.sinks {
		for _, event := range batch {
			if err := sink.Notify(ctx, event); err != nil {
				kadedb.L().Warn("flusher: sink notify failed", zap.Error(err))
			}
		}
	}
	EmitFlushLatency(ctx, "flusher", time.Since(start).Milliseconds())
}

// Start runs Flush on a ticker until Stop is called. Start must not be
// called more than once without an intervening Stop.
func (f *Flusher) Start(ctx context.Context) {
	f.stop = make(chan struct{})
	f.done = make(chan struct{})
	go func() {
		defer close(f.done)
		ticker := time.NewTicker(f.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				f.Flush(ctx)
			case <-f.stop:
				f.Flush(ctx)
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the ticker loop, flushing any remaining buffered events
// first, and waits for the goroutine to exit.
func (f *Flusher) Stop() {
	if f.stop == nil {
		return
	}
	close(f.stop)
	<-f.done
}
