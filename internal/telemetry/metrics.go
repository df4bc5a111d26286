// Package telemetry wires OpenTelemetry metrics for the batch orchestrator,
// match orchestrator, and weight-config store.
package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics is the interface components depend on; satisfied by OtelMetrics
// for production and NoopMetrics for tests.
type Metrics interface {
	IncCounter(name string, labels map[string]string)
	ObserveHistogram(name string, value float64, labels map[string]string)
	SetGauge(name string, value float64, labels map[string]string)
}

// Gauge names emitted by the batch orchestrator (C12) and weight/config
// store (C11).
const (
	GaugeBatchCompletionPercentage = "BatchCompletionPercentage"
	GaugeOverallProgressPercentage = "OverallProgressPercentage"
	GaugeProcessingErrors          = "ProcessingErrors"
	GaugeScoringWeight             = "ScoringWeight"
	GaugeConfidenceThreshold       = "ConfidenceThreshold"
)

// OtelMetrics is a thin adapter over OpenTelemetry metrics, caching
// instruments by name.
type OtelMetrics struct {
	meter metric.Meter

	mu         sync.RWMutex
	counters   map[string]metric.Int64Counter
	histograms map[string]metric.Float64Histogram
	gauges     map[string]*gaugeValue
}

type gaugeValue struct {
	mu    sync.Mutex
	value float64
}

// NewOtelMetrics constructs an OtelMetrics using the global Meter provider
// under the given instrumentation name.
func NewOtelMetrics(meterName string) *OtelMetrics {
	m := &OtelMetrics{
		meter:      otel.Meter(meterName),
		counters:   make(map[string]metric.Int64Counter),
		histograms: make(map[string]metric.Float64Histogram),
		gauges:     make(map[string]*gaugeValue),
	}
	return m
}

func (o *OtelMetrics) IncCounter(name string, labels map[string]string) {
	if o == nil {
		return
	}
	c, ok := o.getCounter(name)
	if !ok {
		return
	}
	c.Add(context.Background(), 1, metric.WithAttributes(toAttrs(labels)...))
}

func (o *OtelMetrics) ObserveHistogram(name string, value float64, labels map[string]string) {
	if o == nil {
		return
	}
	h, ok := o.getHistogram(name)
	if !ok {
		return
	}
	h.Record(context.Background(), value, metric.WithAttributes(toAttrs(labels)...))
}

func (o *OtelMetrics) SetGauge(name string, value float64, labels map[string]string) {
	if o == nil {
		return
	}
	g := o.getGauge(name)
	g.mu.Lock()
	g.value = value
	g.mu.Unlock()
}

func (o *OtelMetrics) getCounter(name string) (metric.Int64Counter, bool) {
	o.mu.RLock()
	c, ok := o.counters[name]
	o.mu.RUnlock()
	if ok {
		return c, true
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if c, ok = o.counters[name]; ok {
		return c, true
	}
	ctr, err := o.meter.Int64Counter(name)
	if err != nil {
		return ctr, false
	}
	o.counters[name] = ctr
	return ctr, true
}

func (o *OtelMetrics) getHistogram(name string) (metric.Float64Histogram, bool) {
	o.mu.RLock()
	h, ok := o.histograms[name]
	o.mu.RUnlock()
	if ok {
		return h, true
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if h, ok = o.histograms[name]; ok {
		return h, true
	}
	hist, err := o.meter.Float64Histogram(name)
	if err != nil {
		return hist, false
	}
	o.histograms[name] = hist
	return hist, true
}

func (o *OtelMetrics) getGauge(name string) *gaugeValue {
	o.mu.RLock()
	g, ok := o.gauges[name]
	o.mu.RUnlock()
	if ok {
		return g
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if g, ok = o.gauges[name]; ok {
		return g
	}
	g = &gaugeValue{}
	_, _ = o.meter.Float64ObservableGauge(name, metric.WithFloat64Callback(
		func(_ context.Context, obs metric.Float64Observer) error {
			g.mu.Lock()
			defer g.mu.Unlock()
			obs.Observe(g.value)
			return nil
		}))
	o.gauges[name] = g
	return g
}

func toAttrs(labels map[string]string) []attribute.KeyValue {
	if len(labels) == 0 {
		return nil
	}
	out := make([]attribute.KeyValue, 0, len(labels))
	for k, v := range labels {
		out = append(out, attribute.String(k, v))
	}
	return out
}

// NoopMetrics discards all observations; used in tests.
type NoopMetrics struct{}

func (NoopMetrics) IncCounter(string, map[string]string)            {}
func (NoopMetrics) ObserveHistogram(string, float64, map[string]string) {}
func (NoopMetrics) SetGauge(string, float64, map[string]string)     {}
