// Package metrics provides Prometheus metrics for campaign runs and the task endpoints.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CampaignMetrics contains Prometheus metrics for the campaign pipeline.
// A nil *CampaignMetrics is valid and records nothing.
type CampaignMetrics struct {
	batchesTotal     *prometheus.CounterVec
	itemsTotal       *prometheus.CounterVec
	assignmentsTotal *prometheus.CounterVec
	shortfallSlots   *prometheus.GaugeVec
	submissionsTotal *prometheus.CounterVec
	credentialsTotal *prometheus.CounterVec

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	collectors []prometheus.Collector
}

// NewCampaignMetrics creates and registers new campaign metrics.
func NewCampaignMetrics(registry prometheus.Registerer) (*CampaignMetrics, error) {
	m := &CampaignMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *CampaignMetrics) initMetrics() {
	m.batchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appraise_batches_total",
			Help: "Batches processed, by resulting status",
		},
		[]string{"status"}, // status: validated, invalid, reused
	)
	m.itemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appraise_items_total",
			Help: "Normalized items, by outcome",
		},
		[]string{"outcome"}, // outcome: stored, dropped
	)
	m.assignmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appraise_agenda_assignments_total",
			Help: "Agenda entries attempted, by outcome",
		},
		[]string{"task_type", "outcome"}, // outcome: assigned, rejected
	)
	m.shortfallSlots = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "appraise_agenda_missing_slots",
			Help: "Unfilled quota slots after the last agenda pass of a batch",
		},
		[]string{"batch"},
	)
	m.submissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appraise_submissions_total",
			Help: "Annotation submissions, by outcome",
		},
		[]string{"task_type", "outcome"}, // outcome: recorded, invalid, no_task, error
	)
	m.credentialsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appraise_credentials_total",
			Help: "Credentials handed out, by kind",
		},
		[]string{"kind"}, // kind: created, reused, reset
	)
	m.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appraise_http_requests_total",
			Help: "HTTP requests to the task endpoints",
		},
		[]string{"method", "route", "code"},
	)
	m.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "appraise_http_request_duration_seconds",
			Help:    "Time taken to serve task endpoint requests",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~2s
		},
		[]string{"method", "route"},
	)

	m.collectors = []prometheus.Collector{
		m.batchesTotal,
		m.itemsTotal,
		m.assignmentsTotal,
		m.shortfallSlots,
		m.submissionsTotal,
		m.credentialsTotal,
		m.httpRequestsTotal,
		m.httpRequestDuration,
	}
}

// Describe implements prometheus.Collector.
func (m *CampaignMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors {
		c.Describe(ch)
	}
}

// Collect implements prometheus.Collector.
func (m *CampaignMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors {
		c.Collect(ch)
	}
}

// RecordBatch counts a processed batch.
func (m *CampaignMetrics) RecordBatch(status string) {
	if m == nil {
		return
	}
	m.batchesTotal.WithLabelValues(status).Inc()
}

// RecordItems counts stored and dropped items of a batch.
func (m *CampaignMetrics) RecordItems(stored, dropped int) {
	if m == nil {
		return
	}
	m.itemsTotal.WithLabelValues("stored").Add(float64(stored))
	m.itemsTotal.WithLabelValues("dropped").Add(float64(dropped))
}

// RecordAgenda records the outcome of staffing one batch.
func (m *CampaignMetrics) RecordAgenda(batchID, taskType string, assigned, rejected, missing int) {
	if m == nil {
		return
	}
	m.assignmentsTotal.WithLabelValues(taskType, "assigned").Add(float64(assigned))
	m.assignmentsTotal.WithLabelValues(taskType, "rejected").Add(float64(rejected))
	m.shortfallSlots.WithLabelValues(batchID).Set(float64(missing))
}

// RecordSubmission counts a submission attempt.
func (m *CampaignMetrics) RecordSubmission(taskType, outcome string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(taskType, outcome).Inc()
}

// RecordCredential counts a credential handed out.
func (m *CampaignMetrics) RecordCredential(kind string) {
	if m == nil {
		return
	}
	m.credentialsTotal.WithLabelValues(kind).Inc()
}

// RecordHTTPRequest records one served request.
func (m *CampaignMetrics) RecordHTTPRequest(method, route string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
