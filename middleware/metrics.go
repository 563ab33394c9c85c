package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/strada-framework/strada/types"
)

var durationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

// MetricsMiddleware records request counts and latency per method, path and
// final status.
type MetricsMiddleware struct {
	metrics types.MetricsManager
	name    string
	weight  int
}

func NewMetricsMiddleware(config types.ConfigManager, logger types.Logger, metrics types.MetricsManager) *MetricsMiddleware {
	return &MetricsMiddleware{
		name:    "metrics",
		weight:  config.GetConfig().Middlewares.Metrics.Weight,
		metrics: metrics,
	}
}

func (m *MetricsMiddleware) Name() string { return m.name }
func (m *MetricsMiddleware) Weight() int  { return m.weight }

func (m *MetricsMiddleware) Handle(ctx context.Context, rc *types.RequestContext) types.Outcome {
	start := time.Now()
	method := rc.Method
	path := rc.Path

	return types.Transform(func(resp *types.Response) *types.Response {
		labels := map[string]string{
			"method": method,
			"path":   path,
			"status": strconv.Itoa(resp.Status),
		}

		m.metrics.Counter("http_requests_total", labels).Inc()
		m.metrics.Histogram("http_request_duration_seconds", durationBuckets, labels).ObserveDuration(start)

		return resp
	})
}
