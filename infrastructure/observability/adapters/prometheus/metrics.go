// Package prometheus adapts ports.Metrics to the Prometheus client library.
// Metric names such as "http.requests" become "<namespace>_http_requests";
// the label set of a metric is fixed by the tags of its first observation.
package prometheus

import (
	"net/http"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vesla0x1/multiruntime/application/ports"
)

var invalidNameChars = regexp.MustCompile(`[^a-zA-Z0-9_]`)

type collector struct {
	labels []string
	vec    interface{}
}

type registry struct {
	mu         sync.Mutex
	namespace  string
	reg        *prometheus.Registry
	collectors map[string]*collector
}

// Metrics implements ports.Metrics backed by a private Prometheus registry
type Metrics struct {
	tags map[string]string
	reg  *registry
}

// New creates metrics registered on a fresh registry that also carries the
// Go runtime and process collectors.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Metrics{
		tags: map[string]string{},
		reg: &registry{
			namespace:  sanitize(namespace),
			reg:        reg,
			collectors: make(map[string]*collector),
		},
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg.reg, promhttp.HandlerOpts{})
}

// Gatherer returns the underlying registry.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.reg.reg
}

// IncrementCounter increments a counter metric by 1
func (m *Metrics) IncrementCounter(name string, tags map[string]string) {
	c, values := m.lookup(name, tags, func(opts prometheus.Opts, labels []string) interface{} {
		return prometheus.NewCounterVec(prometheus.CounterOpts(opts), labels)
	})
	if vec, ok := c.vec.(*prometheus.CounterVec); ok {
		vec.WithLabelValues(values...).Inc()
	}
}

// RecordHistogram observes a value using the default buckets
func (m *Metrics) RecordHistogram(name string, value float64, tags map[string]string) {
	c, values := m.lookup(name, tags, func(opts prometheus.Opts, labels []string) interface{} {
		return prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: opts.Namespace,
			Name:      opts.Name,
			Help:      opts.Help,
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		}, labels)
	})
	if vec, ok := c.vec.(*prometheus.HistogramVec); ok {
		vec.WithLabelValues(values...).Observe(value)
	}
}

// RecordGauge sets a gauge to value
func (m *Metrics) RecordGauge(name string, value float64, tags map[string]string) {
	c, values := m.lookup(name, tags, func(opts prometheus.Opts, labels []string) interface{} {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts(opts), labels)
	})
	if vec, ok := c.vec.(*prometheus.GaugeVec); ok {
		vec.WithLabelValues(values...).Set(value)
	}
}

// WithTags returns a new Metrics instance with additional default tags
func (m *Metrics) WithTags(tags map[string]string) ports.Metrics {
	merged := make(map[string]string, len(m.tags)+len(tags))
	for k, v := range m.tags {
		merged[k] = v
	}
	for k, v := range tags {
		merged[k] = v
	}
	return &Metrics{tags: merged, reg: m.reg}
}

// lookup returns the collector for name, creating and registering it on
// first use, plus the label values ordered to match its label set. Tags not
// in the label set are dropped; missing ones are left empty.
func (m *Metrics) lookup(name string, tags map[string]string, build func(prometheus.Opts, []string) interface{}) (*collector, []string) {
	all := make(map[string]string, len(m.tags)+len(tags))
	for k, v := range m.tags {
		all[sanitize(k)] = v
	}
	for k, v := range tags {
		all[sanitize(k)] = v
	}

	metricName := sanitize(name)

	m.reg.mu.Lock()
	c, ok := m.reg.collectors[metricName]
	if !ok {
		labels := make([]string, 0, len(all))
		for k := range all {
			labels = append(labels, k)
		}
		sort.Strings(labels)

		vec := build(prometheus.Opts{
			Namespace: m.reg.namespace,
			Name:      metricName,
			Help:      strings.ReplaceAll(name, ".", " "),
		}, labels)
		m.reg.reg.MustRegister(vec.(prometheus.Collector))

		c = &collector{labels: labels, vec: vec}
		m.reg.collectors[metricName] = c
	}
	m.reg.mu.Unlock()

	values := make([]string, len(c.labels))
	for i, label := range c.labels {
		values[i] = all[label]
	}
	return c, values
}

func sanitize(name string) string {
	return invalidNameChars.ReplaceAllString(name, "_")
}
