// Package metric measures how much signal flows through engine components.
// Every component type gets its own set of prometheus series, labeled by the
// type name, so all devices of one kind or all nodes of one kind add up.
package metric

import (
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/neuromore/engine/signal"
)

const (
	namespace      = "neuromore"
	subsystem      = "component"
	componentLabel = "component"
)

const (
	// MessageCounter measures number of updates that carried samples.
	MessageCounter = "Messages"
	// SampleCounter measures number of samples.
	SampleCounter = "Samples"
	// LatencyCounter measures latency between update calls.
	LatencyCounter = "Latency"
	// DurationCounter counts what's the duration of signal.
	DurationCounter = "Duration"
	// ComponentCounter counts number of metered components.
	ComponentCounter = "Components"
)

var (
	registry   = prometheus.NewRegistry()
	components = newCollectors(registry)

	counters = []string{
		MessageCounter,
		SampleCounter,
		LatencyCounter,
		DurationCounter,
		ComponentCounter,
	}
)

// Registry returns the registry all engine metrics are published to.
func Registry() *prometheus.Registry {
	return registry
}

// Get metrics values for provided component type.
func Get(component interface{}) map[string]string {
	return getCounters(getType(component))
}

// GetAll returns counters for all measured components.
func GetAll() map[string]map[string]string {
	m := make(map[string]map[string]string)
	for _, component := range components.types() {
		m[component] = getCounters(component)
	}
	return m
}

// Collector returns the series of a single counter of the component type.
// Unknown counter names return nil.
func Collector(component interface{}, counter string) prometheus.Collector {
	return components.collector(getType(component), counter)
}

func getCounters(componentType string) map[string]string {
	m := make(map[string]string)
	if !components.has(componentType) {
		return m
	}
	for _, counter := range counters {
		v, ok := value(components.collector(componentType, counter))
		if !ok {
			continue
		}
		switch counter {
		case LatencyCounter, DurationCounter:
			m[counter] = time.Duration(v * float64(time.Second)).String()
		default:
			m[counter] = fmt.Sprintf("%d", int64(v))
		}
	}
	return m
}

// ResetFunc returns new Measure closure. This closure is needed to postpone metrics
// capture until component is actually running.
type ResetFunc func() MeasureFunc

// MeasureFunc captures metrics when samples are processed.
type MeasureFunc func(numSamples int64)

// Meter creates new meter closure to capture component counters. Sample
// rate 0 marks irregular components, their signal duration is not counted.
func Meter(component interface{}, sampleRate float64) ResetFunc {
	t := getType(component)
	components.add(t)
	return func() MeasureFunc {
		calledAt := time.Now()
		var (
			numSamples     int64
			signalDuration time.Duration
		)
		return func(s int64) {
			components.latency.WithLabelValues(t).Set(time.Since(calledAt).Seconds())
			calledAt = time.Now()
			if s <= 0 {
				return
			}
			components.messages.WithLabelValues(t).Inc()
			components.samples.WithLabelValues(t).Add(float64(s))
			// recalculate duration only when the number of samples has changed
			if numSamples != s {
				numSamples = s
				signalDuration = signal.DurationOf(sampleRate, s)
			}
			components.duration.WithLabelValues(t).Add(signalDuration.Seconds())
		}
	}
}

type collectors struct {
	sync.Mutex
	known      map[string]struct{}
	components *prometheus.GaugeVec
	messages   *prometheus.CounterVec
	samples    *prometheus.CounterVec
	latency    *prometheus.GaugeVec
	duration   *prometheus.CounterVec
}

func newCollectors(r prometheus.Registerer) *collectors {
	labels := []string{componentLabel}
	c := &collectors{
		known: make(map[string]struct{}),
		components: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "instances",
			Help:      "Number of metered components per type.",
		}, labels),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "updates_total",
			Help:      "Number of updates that produced samples.",
		}, labels),
		samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "samples_total",
			Help:      "Number of processed samples.",
		}, labels),
		latency: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "update_interval_seconds",
			Help:      "Time between the last two updates.",
		}, labels),
		duration: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "signal_seconds_total",
			Help:      "Duration of processed signal.",
		}, labels),
	}
	r.MustRegister(c.components, c.messages, c.samples, c.latency, c.duration)
	return c
}

func (c *collectors) add(componentType string) {
	c.Lock()
	defer c.Unlock()
	c.known[componentType] = struct{}{}
	c.components.WithLabelValues(componentType).Inc()
}

func (c *collectors) has(componentType string) bool {
	c.Lock()
	defer c.Unlock()
	_, ok := c.known[componentType]
	return ok
}

func (c *collectors) types() []string {
	c.Lock()
	defer c.Unlock()
	types := make([]string, 0, len(c.known))
	for t := range c.known {
		types = append(types, t)
	}
	return types
}

func (c *collectors) collector(componentType, counter string) prometheus.Collector {
	switch counter {
	case MessageCounter:
		return c.messages.WithLabelValues(componentType)
	case SampleCounter:
		return c.samples.WithLabelValues(componentType)
	case LatencyCounter:
		return c.latency.WithLabelValues(componentType)
	case DurationCounter:
		return c.duration.WithLabelValues(componentType)
	case ComponentCounter:
		return c.components.WithLabelValues(componentType)
	}
	return nil
}

// value reads the current value of a single counter or gauge series.
func value(c prometheus.Collector) (float64, bool) {
	m, ok := c.(prometheus.Metric)
	if !ok {
		return 0, false
	}
	var pb dto.Metric
	if err := m.Write(&pb); err != nil {
		return 0, false
	}
	switch {
	case pb.Counter != nil:
		return pb.Counter.GetValue(), true
	case pb.Gauge != nil:
		return pb.Gauge.GetValue(), true
	}
	return 0, false
}

// getType returns the label of the component: strings are used as is,
// anything else is labeled with its type name.
func getType(component interface{}) string {
	if s, ok := component.(string); ok {
		return s
	}
	rv := reflect.ValueOf(component)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		rv = rv.Elem()
	}
	return rv.Type().String()
}
