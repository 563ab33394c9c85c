package metrics

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"

	"github.com/strada-framework/strada/types"
	"github.com/strada-framework/strada/utils"
)

type PrometheusConfig struct {
	Namespace       string            `yaml:"namespace" json:"namespace"`
	Subsystem       string            `yaml:"subsystem" json:"subsystem"`
	Labels          map[string]string `yaml:"labels" json:"labels"`
	EnableGoMetrics bool              `yaml:"enable_go_metrics" json:"enable_go_metrics"`
}

// MetricValue is the gathered snapshot shape returned by GetMetrics.
type MetricValue struct {
	Name      string            `json:"name"`
	Type      string            `json:"type"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels"`
	Timestamp time.Time         `json:"timestamp"`
	Help      string            `json:"help"`
}

// PrometheusMetrics owns its own registry and serves the exposition
// endpoint on a dedicated port, separate from the application server.
type PrometheusMetrics struct {
	ctx        context.Context
	cancel     context.CancelFunc
	logger     types.Logger
	config     *PrometheusConfig
	path       string
	addr       string
	registry   *prometheus.Registry
	server     *fasthttp.Server
	system     *SystemCollector
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
	mu         sync.RWMutex
	running    int32
}

func NewMetricsManager(ctx context.Context, config types.ConfigManager, logger types.Logger) (types.MetricsManager, error) {
	metricsConfig := config.GetConfig().Metrics
	if metricsConfig == nil || !metricsConfig.Enabled {
		return nil, types.ErrMetricsIsDisabled
	}

	promConfig := &PrometheusConfig{
		Namespace:       "strada",
		Labels:          metricsConfig.Labels,
		EnableGoMetrics: true,
	}
	if metricsConfig.Config != nil {
		if err := utils.UnmarshalConfig(metricsConfig.Config, promConfig); err != nil {
			return nil, types.WrapError(err, "failed to unmarshal prometheus config")
		}
	}

	path := metricsConfig.Path
	if path == "" {
		path = "/metrics"
	}
	port := metricsConfig.Port
	if port == 0 {
		return nil, types.Errorf(types.ErrMetricsConfigInvalid, "metrics port is required")
	}

	registry := prometheus.NewRegistry()
	if promConfig.EnableGoMetrics {
		registry.MustRegister(collectors.NewGoCollector())
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	metricsCtx, cancel := context.WithCancel(ctx)

	pm := &PrometheusMetrics{
		ctx:        metricsCtx,
		cancel:     cancel,
		logger:     logger,
		config:     promConfig,
		path:       path,
		addr:       fmt.Sprintf(":%d", port),
		registry:   registry,
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
	pm.system = NewSystemCollector(metricsCtx, logger, pm)

	logger.Info("Prometheus metrics initialized",
		zap.String("namespace", promConfig.Namespace),
		zap.String("path", path),
		zap.String("addr", pm.addr))

	return pm, nil
}

func (p *PrometheusMetrics) Start() error {
	if !atomic.CompareAndSwapInt32(&p.running, 0, 1) {
		return types.ErrServerAlreadyRunning
	}

	exposition := fasthttpadaptor.NewFastHTTPHandler(
		promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{}))

	p.server = &fasthttp.Server{
		Handler: func(ctx *fasthttp.RequestCtx) {
			if string(ctx.Path()) != p.path {
				ctx.SetStatusCode(fasthttp.StatusNotFound)
				return
			}
			exposition(ctx)
		},
		Name:        "strada-metrics",
		ReadTimeout: 5 * time.Second,
	}

	go func() {
		if err := p.server.ListenAndServe(p.addr); err != nil {
			p.logger.Error("Metrics server stopped", zap.Error(err))
		}
	}()

	if err := p.system.Start(); err != nil {
		return err
	}

	p.logger.Info("Prometheus metrics started", zap.String("addr", p.addr))
	return nil
}

func (p *PrometheusMetrics) Stop() error {
	if !atomic.CompareAndSwapInt32(&p.running, 1, 0) {
		return types.ErrServerNotRunning
	}

	if err := p.system.Stop(); err != nil {
		p.logger.Warn("System collector stop failed", zap.Error(err))
	}

	defer p.cancel()

	if p.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := p.server.ShutdownWithContext(shutdownCtx); err != nil {
			return types.WrapError(err, "failed to stop metrics server")
		}
	}

	p.logger.Info("Prometheus metrics stopped")
	return nil
}

func (p *PrometheusMetrics) IsRunning() bool {
	return atomic.LoadInt32(&p.running) == 1
}

func (p *PrometheusMetrics) Counter(name string, labels map[string]string) types.Counter {
	p.mu.Lock()
	defer p.mu.Unlock()

	if counter, exists := p.counters[name]; exists {
		return &prometheusCounter{counter: counter, labels: labels}
	}

	counter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        name,
			Help:        fmt.Sprintf("Counter metric %s", name),
			ConstLabels: p.config.Labels,
		},
		labelNames(labels),
	)

	p.registry.MustRegister(counter)
	p.counters[name] = counter

	return &prometheusCounter{counter: counter, labels: labels}
}

func (p *PrometheusMetrics) Gauge(name string, labels map[string]string) types.Gauge {
	p.mu.Lock()
	defer p.mu.Unlock()

	if gauge, exists := p.gauges[name]; exists {
		return &prometheusGauge{gauge: gauge, labels: labels}
	}

	gauge := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        name,
			Help:        fmt.Sprintf("Gauge metric %s", name),
			ConstLabels: p.config.Labels,
		},
		labelNames(labels),
	)

	p.registry.MustRegister(gauge)
	p.gauges[name] = gauge

	return &prometheusGauge{gauge: gauge, labels: labels}
}

func (p *PrometheusMetrics) Histogram(name string, buckets []float64, labels map[string]string) types.Histogram {
	p.mu.Lock()
	defer p.mu.Unlock()

	if histogram, exists := p.histograms[name]; exists {
		return &prometheusHistogram{histogram: histogram, labels: labels}
	}

	histogram := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        name,
			Help:        fmt.Sprintf("Histogram metric %s", name),
			Buckets:     buckets,
			ConstLabels: p.config.Labels,
		},
		labelNames(labels),
	)

	p.registry.MustRegister(histogram)
	p.histograms[name] = histogram

	return &prometheusHistogram{histogram: histogram, labels: labels}
}

// GetMetrics gathers the registry and returns a JSON snapshot of every
// sample, one MetricValue per label set.
func (p *PrometheusMetrics) GetMetrics() ([]byte, error) {
	gathering, err := p.registry.Gather()
	if err != nil {
		p.logger.Error("Failed to gather prometheus metrics", zap.Error(err))
		return nil, err
	}

	var values []MetricValue
	for _, mf := range gathering {
		for _, m := range mf.GetMetric() {
			labels := make(map[string]string)
			for _, label := range m.GetLabel() {
				labels[label.GetName()] = label.GetValue()
			}

			values = append(values, MetricValue{
				Name:      mf.GetName(),
				Type:      mf.GetType().String(),
				Value:     sampleValue(m),
				Labels:    labels,
				Timestamp: time.Now(),
				Help:      mf.GetHelp(),
			})
		}
	}

	return utils.Marshal(values)
}

func sampleValue(m *dto.Metric) float64 {
	switch {
	case m.Counter != nil:
		return m.Counter.GetValue()
	case m.Gauge != nil:
		return m.Gauge.GetValue()
	case m.Histogram != nil:
		return m.Histogram.GetSampleSum()
	case m.Summary != nil:
		return m.Summary.GetSampleSum()
	}
	return 0
}

func labelNames(labels map[string]string) []string {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	return names
}

type prometheusCounter struct {
	counter *prometheus.CounterVec
	labels  map[string]string
}

func (c *prometheusCounter) Inc() {
	c.counter.With(c.labels).Inc()
}

func (c *prometheusCounter) Add(value float64) {
	c.counter.With(c.labels).Add(value)
}

type prometheusGauge struct {
	gauge  *prometheus.GaugeVec
	labels map[string]string
}

func (g *prometheusGauge) Set(value float64) {
	g.gauge.With(g.labels).Set(value)
}

func (g *prometheusGauge) Inc() {
	g.gauge.With(g.labels).Inc()
}

func (g *prometheusGauge) Dec() {
	g.gauge.With(g.labels).Dec()
}

type prometheusHistogram struct {
	histogram *prometheus.HistogramVec
	labels    map[string]string
}

func (h *prometheusHistogram) Observe(value float64) {
	h.histogram.With(h.labels).Observe(value)
}

func (h *prometheusHistogram) ObserveDuration(start time.Time) {
	h.histogram.With(h.labels).Observe(time.Since(start).Seconds())
}
