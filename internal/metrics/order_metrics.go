package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Результаты операций для label `result`.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// OrderMetrics содержит метрики операций над заказами.
// Методы безопасно вызывать на nil.
type OrderMetrics struct {
	// Счётчики операций
	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec

	ordersCreated   prometheus.Counter
	ordersDeleted   prometheus.Counter
	stockRejections prometheus.Counter
	orderGrandTotal prometheus.Histogram

	// Переходы статусов
	statusTransitions     *prometheus.CounterVec
	itemStatusTransitions *prometheus.CounterVec

	outboxEvents *prometheus.CounterVec
}

// NewOrderMetrics создаёт метрики в prometheus.DefaultRegisterer.
func NewOrderMetrics() *OrderMetrics {
	return NewOrderMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewOrderMetricsWithRegisterer создаёт метрики в указанном registerer.
func NewOrderMetricsWithRegisterer(registerer prometheus.Registerer) *OrderMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &OrderMetrics{
		operations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "marketplace_order_operations_total",
			Help: "Total number of order operations grouped by operation and result",
		}, []string{"operation", "result"}),
		operationDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "marketplace_order_operation_duration_seconds",
			Help:    "Duration of order operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"operation"}),
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "marketplace_orders_created_total",
			Help: "Total number of orders created",
		}),
		ordersDeleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "marketplace_orders_deleted_total",
			Help: "Total number of orders deleted",
		}),
		stockRejections: registerCounter(registerer, prometheus.CounterOpts{
			Name: "marketplace_order_stock_rejections_total",
			Help: "Total number of order writes rejected because of insufficient stock",
		}),
		orderGrandTotal: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "marketplace_order_grand_total",
			Help:    "Grand total of created orders",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		}),
		statusTransitions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "marketplace_order_status_transitions_total",
			Help: "Total number of order status transitions",
		}, []string{"from", "to"}),
		itemStatusTransitions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "marketplace_order_item_status_transitions_total",
			Help: "Total number of order item status transitions",
		}, []string{"to"}),
		outboxEvents: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "marketplace_outbox_events_total",
			Help: "Total number of outbox events enqueued",
		}, []string{"event_type"}),
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

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
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

// RecordOperation фиксирует результат и длительность операции.
func (m *OrderMetrics) RecordOperation(operation string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.operations.WithLabelValues(operation, result).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordOrderCreated увеличивает счётчик созданных заказов и фиксирует сумму.
func (m *OrderMetrics) RecordOrderCreated(grandTotal float64) {
	if m == nil {
		return
	}
	m.ordersCreated.Inc()
	m.orderGrandTotal.Observe(grandTotal)
}

// RecordOrderDeleted увеличивает счётчик удалённых заказов.
func (m *OrderMetrics) RecordOrderDeleted() {
	if m == nil {
		return
	}
	m.ordersDeleted.Inc()
}

// RecordStockRejection увеличивает счётчик отказов из-за остатков.
func (m *OrderMetrics) RecordStockRejection() {
	if m == nil {
		return
	}
	m.stockRejections.Inc()
}

// RecordStatusTransition фиксирует переход статуса заказа.
func (m *OrderMetrics) RecordStatusTransition(from, to string) {
	if m == nil {
		return
	}
	m.statusTransitions.WithLabelValues(from, to).Inc()
}

// RecordItemStatusTransition фиксирует переход статуса позиции.
func (m *OrderMetrics) RecordItemStatusTransition(to string) {
	if m == nil {
		return
	}
	m.itemStatusTransitions.WithLabelValues(to).Inc()
}

// RecordOutboxEvent увеличивает счётчик событий outbox.
func (m *OrderMetrics) RecordOutboxEvent(eventType string) {
	if m == nil {
		return
	}
	m.outboxEvents.WithLabelValues(eventType).Inc()
}
