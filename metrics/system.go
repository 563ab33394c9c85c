package metrics

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/strada-framework/strada/types"
)

// SystemCollector samples Go runtime stats into the metrics manager on a
// fixed interval.
type SystemCollector struct {
	ctx         context.Context
	logger      types.Logger
	metrics     types.MetricsManager
	startTime   time.Time
	lastGCCount uint32
	running     int32
	stopChan    chan struct{}
	doneChan    chan struct{}
}

func NewSystemCollector(ctx context.Context, logger types.Logger, metrics types.MetricsManager) *SystemCollector {
	return &SystemCollector{
		ctx:      ctx,
		logger:   logger,
		metrics:  metrics,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

func (sc *SystemCollector) Start() error {
	if !atomic.CompareAndSwapInt32(&sc.running, 0, 1) {
		return types.ErrServerAlreadyRunning
	}

	sc.startTime = time.Now()
	go sc.collectLoop()

	return nil
}

func (sc *SystemCollector) Stop() error {
	if !atomic.CompareAndSwapInt32(&sc.running, 1, 0) {
		return types.ErrServerNotRunning
	}

	close(sc.stopChan)
	<-sc.doneChan

	return nil
}

func (sc *SystemCollector) IsRunning() bool {
	return atomic.LoadInt32(&sc.running) == 1
}

func (sc *SystemCollector) collectLoop() {
	defer close(sc.doneChan)

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	sc.collect()

	for {
		select {
		case <-ticker.C:
			sc.collect()
		case <-sc.stopChan:
			return
		case <-sc.ctx.Done():
			return
		}
	}
}

func (sc *SystemCollector) collect() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	sc.metrics.Gauge("system_memory_usage_bytes", map[string]string{"type": "heap_inuse"}).Set(float64(m.HeapInuse))
	sc.metrics.Gauge("system_memory_usage_bytes", map[string]string{"type": "heap_alloc"}).Set(float64(m.HeapAlloc))
	sc.metrics.Gauge("system_memory_usage_bytes", map[string]string{"type": "sys"}).Set(float64(m.Sys))
	sc.metrics.Gauge("system_memory_usage_bytes", map[string]string{"type": "stack_inuse"}).Set(float64(m.StackInuse))
	sc.metrics.Gauge("system_heap_objects_count", nil).Set(float64(m.HeapObjects))
	sc.metrics.Gauge("system_goroutines_count", nil).Set(float64(runtime.NumGoroutine()))
	sc.metrics.Gauge("system_uptime_seconds", nil).Set(time.Since(sc.startTime).Seconds())

	if m.NumGC != sc.lastGCCount {
		sc.metrics.Gauge("system_gc_cycles_total", nil).Set(float64(m.NumGC))
		if m.NumGC > 0 {
			lastPause := m.PauseNs[(m.NumGC+255)%256]
			sc.metrics.Histogram("system_gc_duration_seconds",
				[]float64{0.001, 0.01, 0.1, 1.0}, nil).Observe(float64(lastPause) / 1e9)
		}
		sc.lastGCCount = m.NumGC
	}
}
