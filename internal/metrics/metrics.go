package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "healthplan"

type Metrics struct {
	startTime time.Time
	registry  *prometheus.Registry

	schedulesGenerated   *prometheus.CounterVec
	aiRequests           *prometheus.CounterVec
	aiLatency            *prometheus.HistogramVec
	difficultyAdjusted   *prometheus.CounterVec
	jobRuns              *prometheus.CounterVec
	activityCompletions  *prometheus.CounterVec
	healthMetricsRecords prometheus.Counter

	schedulesAI       atomic.Int64
	schedulesFallback atomic.Int64
	aiSuccess         atomic.Int64
	aiFailed          atomic.Int64
	jobsSucceeded     atomic.Int64
	jobsFailed        atomic.Int64
	jobsSkipped       atomic.Int64
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

func Default() *Metrics {
	once.Do(func() {
		defaultMetrics = New()
	})
	return defaultMetrics
}

// New builds a Metrics with its own registry so tests do not share state.
func New() *Metrics {
	m := &Metrics{
		startTime: time.Now(),
		registry:  prometheus.NewRegistry(),
		schedulesGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schedules_generated_total",
			Help:      "Daily schedules generated, by source.",
		}, []string{"source"}),
		aiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_requests_total",
			Help:      "Chat completion requests, by provider and outcome.",
		}, []string{"provider", "outcome"}),
		aiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ai_request_duration_seconds",
			Help:      "Chat completion latency.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40},
		}, []string{"provider"}),
		difficultyAdjusted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "difficulty_adjustments_total",
			Help:      "Difficulty changes applied to generated days.",
		}, []string{"from", "to"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Scheduled next-day generation runs, by outcome.",
		}, []string{"outcome"}),
		activityCompletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activity_completions_total",
			Help:      "Activity completion updates.",
		}, []string{"completed"}),
		healthMetricsRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "health_metrics_recorded_total",
			Help:      "Daily health metric submissions.",
		}),
	}

	uptime := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "uptime_seconds",
		Help:      "Time since process start.",
	}, func() float64 { return time.Since(m.startTime).Seconds() })

	m.registry.MustRegister(
		m.schedulesGenerated,
		m.aiRequests,
		m.aiLatency,
		m.difficultyAdjusted,
		m.jobRuns,
		m.activityCompletions,
		m.healthMetricsRecords,
		uptime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordScheduleGenerated(source string) {
	m.schedulesGenerated.WithLabelValues(source).Inc()
	if source == "ai" {
		m.schedulesAI.Add(1)
	} else {
		m.schedulesFallback.Add(1)
	}
}

func (m *Metrics) RecordAIRequest(provider string, success bool, d time.Duration) {
	outcome := "success"
	if success {
		m.aiSuccess.Add(1)
	} else {
		outcome = "failure"
		m.aiFailed.Add(1)
	}
	m.aiRequests.WithLabelValues(provider, outcome).Inc()
	m.aiLatency.WithLabelValues(provider).Observe(d.Seconds())
}

func (m *Metrics) RecordDifficultyAdjustment(from, to string) {
	if from == to {
		return
	}
	m.difficultyAdjusted.WithLabelValues(from, to).Inc()
}

// Job outcomes
const (
	JobSucceeded = "success"
	JobFailed    = "failure"
	JobSkipped   = "skipped"
)

func (m *Metrics) RecordJobRun(outcome string) {
	m.jobRuns.WithLabelValues(outcome).Inc()
	switch outcome {
	case JobSucceeded:
		m.jobsSucceeded.Add(1)
	case JobFailed:
		m.jobsFailed.Add(1)
	default:
		m.jobsSkipped.Add(1)
	}
}

func (m *Metrics) RecordActivityCompletion(completed bool) {
	if completed {
		m.activityCompletions.WithLabelValues("true").Inc()
		return
	}
	m.activityCompletions.WithLabelValues("false").Inc()
}

func (m *Metrics) RecordHealthMetrics() {
	m.healthMetricsRecords.Inc()
}

type Snapshot struct {
	Uptime             time.Duration `json:"uptime"`
	SchedulesAI        int64         `json:"schedules_ai"`
	SchedulesFallback  int64         `json:"schedules_fallback"`
	AIRequestsSuccess  int64         `json:"ai_requests_success"`
	AIRequestsFailed   int64         `json:"ai_requests_failed"`
	JobRunsSucceeded   int64         `json:"job_runs_succeeded"`
	JobRunsFailed      int64         `json:"job_runs_failed"`
	JobRunsSkipped     int64         `json:"job_runs_skipped"`
	AISuccessRate      float64       `json:"ai_success_rate"`
	FallbackPercentage float64       `json:"fallback_percentage"`
}

func (m *Metrics) Snapshot() *Snapshot {
	s := &Snapshot{
		Uptime:            time.Since(m.startTime),
		SchedulesAI:       m.schedulesAI.Load(),
		SchedulesFallback: m.schedulesFallback.Load(),
		AIRequestsSuccess: m.aiSuccess.Load(),
		AIRequestsFailed:  m.aiFailed.Load(),
		JobRunsSucceeded:  m.jobsSucceeded.Load(),
		JobRunsFailed:     m.jobsFailed.Load(),
		JobRunsSkipped:    m.jobsSkipped.Load(),
	}

	if total := s.AIRequestsSuccess + s.AIRequestsFailed; total > 0 {
		s.AISuccessRate = float64(s.AIRequestsSuccess) / float64(total) * 100
	}
	if total := s.SchedulesAI + s.SchedulesFallback; total > 0 {
		s.FallbackPercentage = float64(s.SchedulesFallback) / float64(total) * 100
	}
	return s
}

func RecordScheduleGenerated(source string) {
	Default().RecordScheduleGenerated(source)
}

func RecordAIRequest(provider string, success bool, d time.Duration) {
	Default().RecordAIRequest(provider, success, d)
}

func RecordDifficultyAdjustment(from, to string) {
	Default().RecordDifficultyAdjustment(from, to)
}

func RecordJobRun(outcome string) {
	Default().RecordJobRun(outcome)
}

func RecordActivityCompletion(completed bool) {
	Default().RecordActivityCompletion(completed)
}

func RecordHealthMetrics() {
	Default().RecordHealthMetrics()
}

func Handler() http.Handler {
	return Default().Handler()
}
