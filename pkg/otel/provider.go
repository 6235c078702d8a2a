package otel

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

// Provider 可观测性提供者
//
// 管理追踪、指标和日志的生命周期。禁用时全部为空实现。
type Provider struct {
	config   Config
	tracer   Tracer
	metrics  Metrics
	logger   Logger
	shutdown []func(context.Context) error
	mu       sync.RWMutex
}

var (
	globalProvider *Provider
	globalTracer   Tracer
	globalMu       sync.RWMutex
)

// NewProvider 创建可观测性提供者
func NewProvider(cfg Config) (*Provider, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Provider{
		config:   cfg,
		shutdown: make([]func(context.Context) error, 0),
	}

	if !cfg.Enabled {
		p.tracer = NewNoopTracer()
		p.metrics = NewNoopMetrics()
		p.logger = NewNoopLogger()
		return p, nil
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(cfg.Environment),
		),
	)
	if err != nil {
		return nil, err
	}

	if cfg.Tracing.Enabled {
		if err := p.initTracing(res); err != nil {
			return nil, err
		}
	} else {
		p.tracer = NewNoopTracer()
	}

	if cfg.Metrics.Enabled {
		if err := p.initMetrics(res); err != nil {
			return nil, err
		}
	} else {
		p.metrics = NewNoopMetrics()
	}

	p.logger = NewSlogLogger(newSlog(cfg.Logging))

	return p, nil
}

// newSlog 根据日志配置创建 slog.Logger
func newSlog(cfg LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// initTracing 初始化追踪
func (p *Provider) initTracing(res *resource.Resource) error {
	exporter, err := CreateTraceExporter(context.Background(), ExporterConfig{
		Type:     p.config.Tracing.Exporter,
		Endpoint: p.config.Tracing.Endpoint,
		Insecure: p.config.Tracing.Insecure,
		Timeout:  p.config.Tracing.Timeout,
	})
	if err != nil {
		return err
	}

	var sampler sdktrace.Sampler
	switch {
	case p.config.Tracing.SampleRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case p.config.Tracing.SampleRate <= 0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(p.config.Tracing.SampleRate)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
		sdktrace.WithBatcher(exporter),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	p.shutdown = append(p.shutdown, tp.Shutdown)
	p.tracer = NewTracer(tp.Tracer(p.config.ServiceName))

	return nil
}

// initMetrics 初始化指标
func (p *Provider) initMetrics(res *resource.Resource) error {
	exporter, err := CreateMetricExporter(context.Background(), ExporterConfig{
		Type:     p.config.Metrics.Exporter,
		Endpoint: p.config.Metrics.Endpoint,
		Insecure: p.config.Metrics.Insecure,
	})
	if err != nil {
		return err
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(p.config.Metrics.Interval))),
	)

	otel.SetMeterProvider(mp)

	p.shutdown = append(p.shutdown, mp.Shutdown)
	p.metrics = NewOTelMetrics(mp.Meter(p.config.ServiceName))

	return nil
}

// Tracer 返回追踪器
func (p *Provider) Tracer() Tracer {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tracer
}

// Metrics 返回指标收集器
func (p *Provider) Metrics() Metrics {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.metrics
}

// Logger 返回日志器
func (p *Provider) Logger() Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.logger
}

// Shutdown 优雅关闭
func (p *Provider) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var lastErr error
	for _, fn := range p.shutdown {
		if err := fn(ctx); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// SetGlobal 设置全局提供者
func SetGlobal(p *Provider) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalProvider = p
	globalTracer = p.Tracer()
}

// Global 获取全局提供者
func Global() *Provider {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalProvider
}

// GetTracer 获取全局追踪器
func GetTracer() Tracer {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalTracer != nil {
		return globalTracer
	}
	return NewNoopTracer()
}

// GetMetrics 获取全局指标收集器
func GetMetrics() Metrics {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalProvider != nil {
		return globalProvider.Metrics()
	}
	return NewNoopMetrics()
}

// GetLogger 获取全局日志器
func GetLogger() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalProvider != nil {
		return globalProvider.Logger()
	}
	return NewNoopLogger()
}

// MustInit 初始化全局可观测性（失败则 panic）
func MustInit(cfg Config) *Provider {
	p, err := NewProvider(cfg)
	if err != nil {
		panic(err)
	}
	SetGlobal(p)
	return p
}

// OTelMetrics OpenTelemetry 指标实现
//
// 把简化的 Metrics 接口桥接到 OTel Meter 上，仪器按名称懒创建。
type OTelMetrics struct {
	meter      metric.Meter
	mu         sync.Mutex
	counters   map[string]metric.Int64Counter
	histograms map[string]metric.Float64Histogram
	gauges     map[string]metric.Float64Gauge
}

// NewOTelMetrics 创建 OpenTelemetry 指标实现
func NewOTelMetrics(meter metric.Meter) *OTelMetrics {
	return &OTelMetrics{
		meter:      meter,
		counters:   make(map[string]metric.Int64Counter),
		histograms: make(map[string]metric.Float64Histogram),
		gauges:     make(map[string]metric.Float64Gauge),
	}
}

// Counter 返回或创建计数器
func (m *OTelMetrics) Counter(name string) Counter {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.counters[name]
	if !ok {
		var err error
		c, err = m.meter.Int64Counter(name)
		if err != nil {
			return &noopCounter{}
		}
		m.counters[name] = c
	}

	return &otelCounter{counter: c}
}

// Histogram 返回或创建直方图
func (m *OTelMetrics) Histogram(name string) Histogram {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.histograms[name]
	if !ok {
		var err error
		h, err = m.meter.Float64Histogram(name)
		if err != nil {
			return &noopHistogram{}
		}
		m.histograms[name] = h
	}

	return &otelHistogram{histogram: h}
}

// Gauge 返回或创建仪表
func (m *OTelMetrics) Gauge(name string) Gauge {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.gauges[name]
	if !ok {
		var err error
		g, err = m.meter.Float64Gauge(name)
		if err != nil {
			return &noopGauge{}
		}
		m.gauges[name] = g
	}

	return &otelGauge{gauge: g}
}

type otelCounter struct {
	counter metric.Int64Counter
}

func (c *otelCounter) Add(ctx context.Context, value int64, attrs ...Attr) {
	c.counter.Add(ctx, value, metric.WithAttributes(convertAttrs(attrs)...))
}

type otelHistogram struct {
	histogram metric.Float64Histogram
}

func (h *otelHistogram) Record(ctx context.Context, value float64, attrs ...Attr) {
	h.histogram.Record(ctx, value, metric.WithAttributes(convertAttrs(attrs)...))
}

type otelGauge struct {
	gauge metric.Float64Gauge
}

func (g *otelGauge) Set(ctx context.Context, value float64, attrs ...Attr) {
	g.gauge.Record(ctx, value, metric.WithAttributes(convertAttrs(attrs)...))
}

// convertAttrs 转换指标属性
func convertAttrs(attrs []Attr) []attribute.KeyValue {
	result := make([]attribute.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		switch v := a.Value.(type) {
		case string:
			result = append(result, attribute.String(a.Key, v))
		case int:
			result = append(result, attribute.Int(a.Key, v))
		case int64:
			result = append(result, attribute.Int64(a.Key, v))
		case float64:
			result = append(result, attribute.Float64(a.Key, v))
		case bool:
			result = append(result, attribute.Bool(a.Key, v))
		default:
			result = append(result, attribute.String(a.Key, fmt.Sprint(v)))
		}
	}
	return result
}

// compile-time interface check
var _ Metrics = (*OTelMetrics)(nil)
