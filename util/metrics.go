package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	intentAcceptedCounter *prometheus.CounterVec
	intentRejectedCounter *prometheus.CounterVec
	trickResolvedCounter  prometheus.Counter
	roundSettledCounter   *prometheus.CounterVec
	tableResetCounter     *prometheus.CounterVec
	connectedSeatsGauge   prometheus.Gauge
}

func (m *metrics) IntentAccepted(kind string) {
	m.intentAcceptedCounter.WithLabelValues(kind).Inc()
}

func (m *metrics) IntentRejected(kind string, reason string) {
	m.intentRejectedCounter.WithLabelValues(kind, reason).Inc()
}

func (m *metrics) TrickResolved() {
	m.trickResolvedCounter.Inc()
}

func (m *metrics) RoundSettled(result string) {
	m.roundSettledCounter.WithLabelValues(result).Inc()
}

func (m *metrics) TableReset(reason string) {
	m.tableResetCounter.WithLabelValues(reason).Inc()
}

func (m *metrics) SetConnectedSeats(count int) {
	m.connectedSeatsGauge.Set(float64(count))
}

var Metrics = &metrics{
	intentAcceptedCounter: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "belote_intents_accepted_total",
		Help: "Total number of accepted intents",
	}, []string{"intent"}),
	intentRejectedCounter: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "belote_intents_rejected_total",
		Help: "Total number of rejected intents",
	}, []string{"intent", "reason"}),
	trickResolvedCounter: promauto.NewCounter(prometheus.CounterOpts{
		Name: "belote_tricks_resolved_total",
		Help: "Total number of completed tricks",
	}),
	roundSettledCounter: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "belote_rounds_settled_total",
		Help: "Total number of settled rounds by contract result",
	}, []string{"result"}),
	tableResetCounter: promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "belote_table_resets_total",
		Help: "Total number of table resets by reason",
	}, []string{"reason"}),
	connectedSeatsGauge: promauto.NewGauge(prometheus.GaugeOpts{
		Name: "belote_connected_seats",
		Help: "Number of seats with a live session",
	}),
}
