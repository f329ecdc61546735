package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/OldStager01/cloud-optimizer/internal/logger"
)

// Metrics accumulates operational counters and exposes them in the
// Prometheus text format. Keys are small (kinds, outcomes, group IDs),
// so plain maps under one lock are enough.
type Metrics struct {
	mu sync.RWMutex

	runsTotal          map[string]map[string]int64 // kind -> status
	actionsTotal       map[string]map[string]int64 // kind -> outcome
	suppressionsTotal  map[string]int64            // group
	metricsMissing     map[string]int64            // group
	budgetAlertsTotal  map[string]int64            // severity
	runDurationMs      map[string]int64            // kind, last observed
	lastRunUnix        map[string]int64            // kind
	circuitBreakerOpen map[string]int              // breaker name, 0=closed 1=open 2=half-open
}

func New() *Metrics {
	return &Metrics{
		runsTotal:          make(map[string]map[string]int64),
		actionsTotal:       make(map[string]map[string]int64),
		suppressionsTotal:  make(map[string]int64),
		metricsMissing:     make(map[string]int64),
		budgetAlertsTotal:  make(map[string]int64),
		runDurationMs:      make(map[string]int64),
		lastRunUnix:        make(map[string]int64),
		circuitBreakerOpen: make(map[string]int),
	}
}

var (
	instance *Metrics
	once     sync.Once
)

// Get returns the process-wide registry.
func Get() *Metrics {
	once.Do(func() {
		instance = New()
	})
	return instance
}

func (m *Metrics) IncRun(kind, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runsTotal[kind] == nil {
		m.runsTotal[kind] = make(map[string]int64)
	}
	m.runsTotal[kind][status]++
}

func (m *Metrics) IncAction(kind, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.actionsTotal[kind] == nil {
		m.actionsTotal[kind] = make(map[string]int64)
	}
	m.actionsTotal[kind][outcome]++
}

func (m *Metrics) IncSuppression(groupID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suppressionsTotal[groupID]++
}

func (m *Metrics) IncMetricsMissing(groupID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metricsMissing[groupID]++
}

func (m *Metrics) IncBudgetAlert(severity string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.budgetAlertsTotal[severity]++
}

func (m *Metrics) ObserveRun(kind string, duration time.Duration, finishedAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runDurationMs[kind] = duration.Milliseconds()
	m.lastRunUnix[kind] = finishedAt.Unix()
}

func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.circuitBreakerOpen[name] = state
}

// Handler serves the current values as Prometheus text exposition.
// Output is sorted so scrapes are stable.
func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.RLock()
		defer m.mu.RUnlock()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		for _, kind := range sortedKeys(m.runsTotal) {
			for _, status := range sortedKeys(m.runsTotal[kind]) {
				writeMetric(w, "optimizer_runs_total",
					[]label{{"kind", kind}, {"status", status}},
					float64(m.runsTotal[kind][status]))
			}
		}

		for _, kind := range sortedKeys(m.actionsTotal) {
			for _, outcome := range sortedKeys(m.actionsTotal[kind]) {
				writeMetric(w, "optimizer_actions_total",
					[]label{{"kind", kind}, {"outcome", outcome}},
					float64(m.actionsTotal[kind][outcome]))
			}
		}

		for _, group := range sortedKeys(m.suppressionsTotal) {
			writeMetric(w, "optimizer_suppressions_total",
				[]label{{"group", group}}, float64(m.suppressionsTotal[group]))
		}

		for _, group := range sortedKeys(m.metricsMissing) {
			writeMetric(w, "optimizer_metrics_missing_total",
				[]label{{"group", group}}, float64(m.metricsMissing[group]))
		}

		for _, severity := range sortedKeys(m.budgetAlertsTotal) {
			writeMetric(w, "optimizer_budget_alerts_total",
				[]label{{"severity", severity}}, float64(m.budgetAlertsTotal[severity]))
		}

		for _, kind := range sortedKeys(m.runDurationMs) {
			writeMetric(w, "optimizer_run_duration_ms",
				[]label{{"kind", kind}}, float64(m.runDurationMs[kind]))
		}

		for _, kind := range sortedKeys(m.lastRunUnix) {
			writeMetric(w, "optimizer_last_run_timestamp_seconds",
				[]label{{"kind", kind}}, float64(m.lastRunUnix[kind]))
		}

		for _, name := range sortedKeys(m.circuitBreakerOpen) {
			writeMetric(w, "optimizer_circuit_breaker_state",
				[]label{{"name", name}}, float64(m.circuitBreakerOpen[name]))
		}
	})
}

type label struct {
	key   string
	value string
}

func writeMetric(w http.ResponseWriter, name string, labels []label, value float64) {
	labelStr := ""
	if len(labels) > 0 {
		labelStr = "{"
		for i, l := range labels {
			if i > 0 {
				labelStr += ","
			}
			labelStr += l.key + `="` + l.value + `"`
		}
		labelStr += "}"
	}
	fmt.Fprintf(w, "%s%s %s\n", name, labelStr, strconv.FormatFloat(value, 'f', -1, 64))
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// StartServer exposes /metrics on its own port in the background.
func StartServer(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Get().Handler())

	addr := ":" + strconv.Itoa(port)
	logger.Infof("Metrics server listening on %s", addr)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Errorf("Metrics server error: %v", err)
		}
	}()
}
