package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Значения label result для счётчика переходов.
const (
	ResultOK         = "ok"
	ResultInvalid    = "invalid_transition"
	ResultNotFound   = "not_found"
	ResultConflict   = "version_conflict"
	ResultStoreError = "error"
)

// LifecycleMetrics содержит метрики переходов статусов заказа.
type LifecycleMetrics struct {
	transitions        *prometheus.CounterVec
	transitionDuration *prometheus.HistogramVec
	listenerFailures   *prometheus.CounterVec
	ordersInStatus     *prometheus.GaugeVec

	// Счётчики побочных записей
	timelineEvents prometheus.Counter
	outboxEvents   prometheus.Counter
}

// NewLifecycleMetrics создаёт метрики в prometheus.DefaultRegisterer.
func NewLifecycleMetrics() *LifecycleMetrics {
	return NewLifecycleMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewLifecycleMetricsWithRegisterer создаёт метрики в переданном registerer.
// Повторная регистрация возвращает уже существующие коллекторы.
func NewLifecycleMetricsWithRegisterer(registerer prometheus.Registerer) *LifecycleMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &LifecycleMetrics{
		transitions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "restbucks_order_transitions_total",
			Help: "Total number of order status transitions grouped by target status and result",
		}, []string{"target", "result"}),
		transitionDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "restbucks_order_transition_duration_seconds",
			Help:    "Duration of load-check-save order transitions in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"target"}),
		listenerFailures: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "restbucks_transition_listener_failures_total",
			Help: "Total number of failed transition listener notifications",
		}, []string{"target"}),
		ordersInStatus: registerGaugeVec(registerer, prometheus.GaugeOpts{
			Name: "restbucks_orders_in_status",
			Help: "Number of orders returned by the last status query",
		}, []string{"status"}),
		timelineEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "restbucks_timeline_events_total",
			Help: "Total number of timeline events recorded",
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "restbucks_outbox_events_total",
			Help: "Total number of outbox events enqueued",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGaugeVec(registerer prometheus.Registerer, opts prometheus.GaugeOpts, labels []string) *prometheus.GaugeVec {
	collector := prometheus.NewGaugeVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.GaugeVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordTransition учитывает попытку перехода в статус target.
func (m *LifecycleMetrics) RecordTransition(target, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(target, result).Inc()
	m.transitionDuration.WithLabelValues(target).Observe(duration.Seconds())
}

// RecordListenerFailure увеличивает счётчик неудачных уведомлений слушателей.
func (m *LifecycleMetrics) RecordListenerFailure(target string) {
	if m == nil {
		return
	}
	m.listenerFailures.WithLabelValues(target).Inc()
}

// RecordStatusQuery фиксирует размер выборки по статусу.
func (m *LifecycleMetrics) RecordStatusQuery(status string, count int) {
	if m == nil {
		return
	}
	m.ordersInStatus.WithLabelValues(status).Set(float64(count))
}

// RecordTimelineEvent увеличивает счётчик событий timeline.
func (m *LifecycleMetrics) RecordTimelineEvent() {
	if m == nil {
		return
	}
	m.timelineEvents.Inc()
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *LifecycleMetrics) RecordOutboxEvent() {
	if m == nil {
		return
	}
	m.outboxEvents.Inc()
}
