package metrics

import (
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCronJobMetricsExportsCountersAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCronJobMetrics(reg)
	job := "tracking-refresh"
	metrics.ObserveDuration(job, 250*time.Millisecond)
	metrics.IncSuccess(job)
	metrics.IncFailure(job)
	metrics.AddItems(job, "applied", 3)
	metrics.AddItems(job, "failed", 0)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "tradein_cron_job_runs_total", map[string]string{"job": job, "outcome": "success"}); err != nil {
		t.Fatalf("fetch success: %v", err)
	} else if got != 1 {
		t.Fatalf("expected success=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "tradein_cron_job_runs_total", map[string]string{"job": job, "outcome": "failure"}); err != nil {
		t.Fatalf("fetch failure: %v", err)
	} else if got != 1 {
		t.Fatalf("expected failure=1, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "tradein_cron_job_items_total", map[string]string{"job": job, "result": "applied"}); err != nil {
		t.Fatalf("fetch items: %v", err)
	} else if got != 3 {
		t.Fatalf("expected applied=3, got %f", got)
	}
	if _, err := fetchCounterValue(mfs, "tradein_cron_job_items_total", map[string]string{"job": job, "result": "failed"}); err == nil {
		t.Fatalf("expected zero adds to leave no series")
	}

	if got, err := fetchHistogramSum(mfs, "tradein_cron_job_duration_seconds", "job", job); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got <= 0 {
		t.Fatalf("expected duration sum > 0, got %f", got)
	}
}

func TestCronJobMetricsNilRegistererIsNoop(t *testing.T) {
	metrics := NewCronJobMetrics(nil)
	metrics.IncSuccess("job")
	metrics.AddItems("job", "applied", 1)
	metrics.ObserveDuration("job", time.Second)
}

func TestWebhookMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewWebhookMetrics(reg)
	metrics.Observe("stripe", WebhookProcessed)
	metrics.Observe("stripe", WebhookDuplicate)
	metrics.Observe("stripe", WebhookDuplicate)
	metrics.IncSynthetic("carrier")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "tradein_webhook_events_total", map[string]string{"provider": "stripe", "outcome": WebhookDuplicate}); err != nil || got != 2 {
		t.Fatalf("expected duplicate=2, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "tradein_webhook_synthetic_ids_total", map[string]string{"provider": "carrier"}); err != nil || got != 1 {
		t.Fatalf("expected synthetic=1, got %f (%v)", got, err)
	}
}

func fetchCounterValue(mfs []*dto.MetricFamily, name string, labels map[string]string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), labels) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing labels %v", name, labels)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabels(metric.GetLabel(), map[string]string{label: value}) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabels(pairs []*dto.LabelPair, want map[string]string) bool {
	matched := 0
	for _, pair := range pairs {
		if value, ok := want[pair.GetName()]; ok {
			if pair.GetValue() != value {
				return false
			}
			matched++
		}
	}
	return matched == len(want)
}
