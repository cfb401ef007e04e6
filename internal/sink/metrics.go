package sink

import (
	"context"
	"fmt"
	"sync"
)

// emitter is the low-level metric hook every Emit* function routes
// through. By default it is a no-op, so sink.* code carries no hard
// dependency on a metrics backend; RegisterEmitter installs a real one
// (e.g. an OpenTelemetry-backed meter or a test stub).
type emitter func(ctx context.Context, name string, labels map[string]string, value any)

var (
	mu   sync.Mutex
	impl emitter = func(context.Context, string, map[string]string, any) {}
)

// RegisterEmitter installs a custom metric emitter. A nil fn restores the
// no-op default.
func RegisterEmitter(fn emitter) {
	mu.Lock()
	defer mu.Unlock()
	if fn == nil {
		impl = func(context.Context, string, map[string]string, any) {}
		return
	}
	impl = fn
}

func current() emitter {
	mu.Lock()
	defer mu.Unlock()
	return impl
}

// EmitFlushLatency records a flush's duration in milliseconds, labeled by
// the sink's name.
func EmitFlushLatency(ctx context.Context, sinkName string, ms int64) {
	current()(ctx, "sink_flush_latency_ms", map[string]string{"sink": sinkName}, ms)
}

// EmitEventCount records how many rows/documents a sink wrote for one
// ChangeEvent, labeled by sink name and target (table/collection).
func EmitEventCount(ctx context.Context, sinkName, target string, count int64) {
	current()(ctx, "sink_flush_event_count", map[string]string{"sink": sinkName, "target": target}, count)
}

// EmitFailure records a sink failure, labeled by sink name and the error's
// full message text.
func EmitFailure(ctx context.Context, sinkName string, err error) {
	current()(ctx, "sink_notify_failure_total", map[string]string{"sink": sinkName, "error": fmt.Sprintf("%v", err)}, int64(1))
}
