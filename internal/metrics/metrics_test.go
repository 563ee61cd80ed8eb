package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew(t *testing.T) {
	m := New()
	if m == nil {
		t.Error("New() returned nil")
	}
}

func TestDefault(t *testing.T) {
	m1 := Default()
	m2 := Default()

	if m1 != m2 {
		t.Error("Default() should return same instance")
	}
}

func TestRecordScheduleGenerated(t *testing.T) {
	m := New()
	m.RecordScheduleGenerated("ai")
	m.RecordScheduleGenerated("fallback")
	m.RecordScheduleGenerated("fallback")

	if got := testutil.ToFloat64(m.schedulesGenerated.WithLabelValues("fallback")); got != 2 {
		t.Errorf("Expected 2 fallback schedules, got %v", got)
	}

	s := m.Snapshot()
	if s.SchedulesAI != 1 || s.SchedulesFallback != 2 {
		t.Errorf("Unexpected snapshot counts: %+v", s)
	}
	if s.FallbackPercentage < 66 || s.FallbackPercentage > 67 {
		t.Errorf("Expected ~66.7%% fallback, got %v", s.FallbackPercentage)
	}
}

func TestRecordAIRequest(t *testing.T) {
	m := New()
	m.RecordAIRequest("openai", true, 200*time.Millisecond)
	m.RecordAIRequest("openai", false, time.Second)
	m.RecordAIRequest("groq", true, 100*time.Millisecond)

	if got := testutil.ToFloat64(m.aiRequests.WithLabelValues("openai", "failure")); got != 1 {
		t.Errorf("Expected 1 failure, got %v", got)
	}
	if got := testutil.CollectAndCount(m.aiLatency); got != 2 {
		t.Errorf("Expected 2 latency series, got %d", got)
	}

	s := m.Snapshot()
	if s.AISuccessRate < 66 || s.AISuccessRate > 67 {
		t.Errorf("Expected ~66.7%% success rate, got %v", s.AISuccessRate)
	}
}

func TestRecordDifficultyAdjustment_IgnoresNoChange(t *testing.T) {
	m := New()
	m.RecordDifficultyAdjustment("easy", "easy")
	m.RecordDifficultyAdjustment("easy", "moderate")

	if got := testutil.CollectAndCount(m.difficultyAdjusted); got != 1 {
		t.Errorf("Expected 1 series, got %d", got)
	}
}

func TestRecordJobRun(t *testing.T) {
	m := New()
	m.RecordJobRun(JobSucceeded)
	m.RecordJobRun(JobFailed)
	m.RecordJobRun(JobSkipped)
	m.RecordJobRun(JobSkipped)

	s := m.Snapshot()
	if s.JobRunsSucceeded != 1 || s.JobRunsFailed != 1 || s.JobRunsSkipped != 2 {
		t.Errorf("Unexpected job counts: %+v", s)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.RecordActivityCompletion(true)
	m.RecordHealthMetrics()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	output := string(body)

	for _, name := range []string{
		"healthplan_uptime_seconds",
		`healthplan_activity_completions_total{completed="true"} 1`,
		"healthplan_health_metrics_recorded_total 1",
	} {
		if !strings.Contains(output, name) {
			t.Errorf("Expected %q in output", name)
		}
	}
}

func TestSnapshot_Empty(t *testing.T) {
	m := New()
	s := m.Snapshot()

	if s.AISuccessRate != 0 || s.FallbackPercentage != 0 {
		t.Errorf("Expected zero rates, got %+v", s)
	}
}
