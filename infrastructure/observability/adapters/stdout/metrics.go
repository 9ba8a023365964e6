package stdout

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/vesla0x1/multiruntime/application/ports"
)

// store is shared by a Metrics instance and every copy made with WithTags.
type store struct {
	mu         sync.RWMutex
	counters   map[string]int64
	histograms map[string][]float64
	gauges     map[string]float64
}

// Metrics keeps metrics in memory and echoes them to a logger at debug level
type Metrics struct {
	tags   map[string]string
	logger ports.Logger
	store  *store
}

// NewMetrics creates a new in-memory metrics instance. logger may be nil.
func NewMetrics(logger ports.Logger) *Metrics {
	return &Metrics{
		tags:   make(map[string]string),
		logger: logger,
		store: &store{
			counters:   make(map[string]int64),
			histograms: make(map[string][]float64),
			gauges:     make(map[string]float64),
		},
	}
}

// IncrementCounter increments a counter metric
func (m *Metrics) IncrementCounter(name string, tags map[string]string) {
	key := m.buildKey(name, tags)

	m.store.mu.Lock()
	m.store.counters[key]++
	value := m.store.counters[key]
	m.store.mu.Unlock()

	m.log("counter", name, float64(value), tags)
}

// RecordHistogram records a histogram value
func (m *Metrics) RecordHistogram(name string, value float64, tags map[string]string) {
	key := m.buildKey(name, tags)

	m.store.mu.Lock()
	m.store.histograms[key] = append(m.store.histograms[key], value)
	m.store.mu.Unlock()

	m.log("histogram", name, value, tags)
}

// RecordGauge records a gauge value
func (m *Metrics) RecordGauge(name string, value float64, tags map[string]string) {
	key := m.buildKey(name, tags)

	m.store.mu.Lock()
	m.store.gauges[key] = value
	m.store.mu.Unlock()

	m.log("gauge", name, value, tags)
}

// WithTags returns a new Metrics instance with additional tags
func (m *Metrics) WithTags(tags map[string]string) ports.Metrics {
	return &Metrics{
		tags:   m.combineTags(tags),
		logger: m.logger,
		store:  m.store,
	}
}

// GetCounter returns the current value of a counter (useful for testing)
func (m *Metrics) GetCounter(name string, tags map[string]string) int64 {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	return m.store.counters[m.buildKey(name, tags)]
}

// GetHistogram returns all values recorded for a histogram (useful for testing)
func (m *Metrics) GetHistogram(name string, tags map[string]string) []float64 {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()

	values := m.store.histograms[m.buildKey(name, tags)]
	result := make([]float64, len(values))
	copy(result, values)
	return result
}

// GetGauge returns the current value of a gauge (useful for testing)
func (m *Metrics) GetGauge(name string, tags map[string]string) float64 {
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	return m.store.gauges[m.buildKey(name, tags)]
}

// buildKey creates a unique key for a metric with tags
func (m *Metrics) buildKey(name string, tags map[string]string) string {
	allTags := m.combineTags(tags)

	tagPairs := make([]string, 0, len(allTags))
	for k, v := range allTags {
		tagPairs = append(tagPairs, fmt.Sprintf("%s:%s", k, v))
	}
	sort.Strings(tagPairs)

	if len(tagPairs) > 0 {
		return fmt.Sprintf("%s{%s}", name, strings.Join(tagPairs, ","))
	}
	return name
}

func (m *Metrics) log(kind, name string, value float64, tags map[string]string) {
	if m.logger == nil {
		return
	}
	m.logger.Debug("metric", "type", kind, "name", name, "value", value, "tags", m.combineTags(tags))
}

// combineTags merges default tags with provided tags
func (m *Metrics) combineTags(tags map[string]string) map[string]string {
	allTags := make(map[string]string, len(m.tags)+len(tags))
	for k, v := range m.tags {
		allTags[k] = v
	}
	for k, v := range tags {
		allTags[k] = v
	}
	return allTags
}

// Noop discards every measurement.
type Noop struct{}

func (Noop) IncrementCounter(string, map[string]string)         {}
func (Noop) RecordHistogram(string, float64, map[string]string) {}
func (Noop) RecordGauge(string, float64, map[string]string)     {}
func (n Noop) WithTags(map[string]string) ports.Metrics         { return n }
