package observability

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/aretw0/lattice/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "lattice"

// Metrics records run, node and tool activity as Prometheus metrics.
type Metrics struct {
	runs         *prometheus.CounterVec
	runDuration  prometheus.Histogram
	nodeVisits   *prometheus.CounterVec
	nodeDuration *prometheus.HistogramVec
	toolCalls    *prometheus.CounterVec
	toolDuration *prometheus.HistogramVec

	// pending tool calls, keyed by run and call id
	mu    sync.Mutex
	calls map[string]time.Time
	now   func() time.Time
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Total number of finished runs by status",
			},
			[]string{"status"},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of runs",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
		),
		nodeVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "node_visits_total",
				Help:      "Total number of node visits",
			},
			[]string{"node_id"},
		),
		nodeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "node_duration_seconds",
				Help:      "Duration of node executions",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"node_id", "error"},
		),
		toolCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_calls_total",
				Help:      "Total number of tool calls",
			},
			[]string{"tool_name", "is_error"},
		),
		toolDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tool_duration_seconds",
				Help:      "Duration of tool executions",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"tool_name"},
		),
		calls: make(map[string]time.Time),
		now:   time.Now,
	}

	if reg != nil {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.runs, m.runDuration, m.nodeVisits, m.nodeDuration, m.toolCalls, m.toolDuration}
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors() {
		c.Describe(ch)
	}
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors() {
		c.Collect(ch)
	}
}

// Hooks returns lifecycle hooks that feed the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunEnd: func(_ context.Context, e *domain.RunEvent) {
			m.runs.WithLabelValues(string(e.Status)).Inc()
			m.runDuration.Observe(e.Duration.Seconds())
		},
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			m.nodeVisits.WithLabelValues(e.NodeID).Inc()
		},
		OnNodeLeave: func(_ context.Context, e *domain.NodeEvent) {
			m.nodeDuration.WithLabelValues(e.NodeID, strconv.FormatBool(e.Err != nil)).Observe(e.Duration.Seconds())
		},
		OnToolCall: func(_ context.Context, e *domain.ToolEvent) {
			m.mu.Lock()
			m.calls[e.RunID+"/"+e.CallID] = m.now()
			m.mu.Unlock()
		},
		OnToolReturn: func(_ context.Context, e *domain.ToolEvent) {
			m.toolCalls.WithLabelValues(e.ToolName, strconv.FormatBool(e.IsError)).Inc()

			key := e.RunID + "/" + e.CallID
			m.mu.Lock()
			started, ok := m.calls[key]
			delete(m.calls, key)
			m.mu.Unlock()
			if ok {
				m.toolDuration.WithLabelValues(e.ToolName).Observe(m.now().Sub(started).Seconds())
			}
		},
	}
}
