package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ordersCreated    prometheus.Counter
	paymentsSettled  *prometheus.CounterVec
	ordersDeleted    prometheus.Counter
	gatewaySessions  *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ordersCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Orders successfully placed.",
		}),
		paymentsSettled: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "payments_settled_total",
			Help: "Gateway callbacks processed, by outcome.",
		}, []string{"result"}),
		ordersDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "orders_deleted_total",
			Help: "Orders removed, explicitly or by compensation.",
		}),
		gatewaySessions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_sessions_total",
			Help: "Hosted payment sessions initiated, by outcome.",
		}, []string{"result"}),
	}
}

func (m *Metrics) OrderCreated() {
	if m != nil {
		m.ordersCreated.Inc()
	}
}

func (m *Metrics) PaymentSettled(result string) {
	if m != nil {
		m.paymentsSettled.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) OrderDeleted() {
	if m != nil {
		m.ordersDeleted.Inc()
	}
}

func (m *Metrics) GatewaySession(result string) {
	if m != nil {
		m.gatewaySessions.WithLabelValues(result).Inc()
	}
}
