package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestNewLifecycleMetrics(t *testing.T) {
	metrics := NewLifecycleMetricsWithRegisterer(prometheus.NewRegistry())

	if metrics == nil {
		t.Fatal("NewLifecycleMetricsWithRegisterer should not return nil")
	}
	if metrics.transitions == nil {
		t.Error("transitions counter vec should not be nil")
	}
	if metrics.transitionDuration == nil {
		t.Error("transitionDuration histogram vec should not be nil")
	}
	if metrics.listenerFailures == nil {
		t.Error("listenerFailures counter vec should not be nil")
	}
	if metrics.ordersInStatus == nil {
		t.Error("ordersInStatus gauge vec should not be nil")
	}
	if metrics.timelineEvents == nil {
		t.Error("timelineEvents counter should not be nil")
	}
	if metrics.outboxEvents == nil {
		t.Error("outboxEvents counter should not be nil")
	}
}

func TestNewLifecycleMetrics_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()

	first := NewLifecycleMetricsWithRegisterer(reg)
	second := NewLifecycleMetricsWithRegisterer(reg)

	first.RecordTransition("PAID", ResultOK, time.Millisecond)
	second.RecordTransition("PAID", ResultOK, time.Millisecond)

	metric := &dto.Metric{}
	if err := first.transitions.WithLabelValues("PAID", ResultOK).Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 2.0 {
		t.Errorf("expected shared counter value 2.0, got %f", metric.Counter.GetValue())
	}
}

func TestRecordTransition(t *testing.T) {
	metrics := NewLifecycleMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordTransition("PREPARED", ResultInvalid, 5*time.Millisecond)
	metrics.RecordTransition("PREPARED", ResultOK, 5*time.Millisecond)
	metrics.RecordTransition("PREPARED", ResultOK, 5*time.Millisecond)

	metric := &dto.Metric{}
	if err := metrics.transitions.WithLabelValues("PREPARED", ResultOK).Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 2.0 {
		t.Errorf("expected ok counter 2.0, got %f", metric.Counter.GetValue())
	}

	histMetric := &dto.Metric{}
	observer := metrics.transitionDuration.WithLabelValues("PREPARED")
	if err := observer.(prometheus.Histogram).Write(histMetric); err != nil {
		t.Fatalf("failed to write histogram: %v", err)
	}
	if histMetric.Histogram.GetSampleCount() != 3 {
		t.Errorf("expected 3 duration samples, got %d", histMetric.Histogram.GetSampleCount())
	}
}

func TestRecordStatusQuery(t *testing.T) {
	metrics := NewLifecycleMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordStatusQuery("PAID", 7)
	metrics.RecordStatusQuery("PAID", 3)

	metric := &dto.Metric{}
	if err := metrics.ordersInStatus.WithLabelValues("PAID").Write(metric); err != nil {
		t.Fatalf("failed to write gauge: %v", err)
	}
	if metric.Gauge.GetValue() != 3.0 {
		t.Errorf("expected gauge 3.0, got %f", metric.Gauge.GetValue())
	}
}

func TestSideEffectCounters(t *testing.T) {
	metrics := NewLifecycleMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordTimelineEvent()
	metrics.RecordOutboxEvent()
	metrics.RecordOutboxEvent()
	metrics.RecordListenerFailure("TAKEN")

	metric := &dto.Metric{}
	if err := metrics.outboxEvents.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 2.0 {
		t.Errorf("expected outbox counter 2.0, got %f", metric.Counter.GetValue())
	}

	failures := &dto.Metric{}
	if err := metrics.listenerFailures.WithLabelValues("TAKEN").Write(failures); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	if failures.Counter.GetValue() != 1.0 {
		t.Errorf("expected listener failures 1.0, got %f", failures.Counter.GetValue())
	}
}

func TestNilMetricsAreNoop(t *testing.T) {
	var metrics *LifecycleMetrics

	metrics.RecordTransition("PAID", ResultOK, time.Millisecond)
	metrics.RecordListenerFailure("PAID")
	metrics.RecordStatusQuery("PAID", 1)
	metrics.RecordTimelineEvent()
	metrics.RecordOutboxEvent()
}
