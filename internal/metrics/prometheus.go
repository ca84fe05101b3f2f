package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type prometheusObserver struct {
	onlineGauge prometheus.Gauge
	pushCounter prometheus.Counter
	dropCounter prometheus.Counter
	opsCounter  *prometheus.CounterVec
}

var (
	onlineGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "feedback_stream_clients",
		Help: "Number of clients connected to the feedback change stream",
	})
	pushCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedback_stream_push_total",
		Help: "Total number of change events pushed to stream clients",
	})
	dropCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feedback_stream_dropped_total",
		Help: "Change events dropped because the hub or a client buffer was full",
	})
	opsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedback_operations_total",
		Help: "Feedback store operations by outcome",
	}, []string{"op", "outcome"})
)

func NewPrometheusObserver() Observer {
	return &prometheusObserver{
		onlineGauge: onlineGauge,
		pushCounter: pushCounter,
		dropCounter: dropCounter,
		opsCounter:  opsCounter,
	}
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func (p *prometheusObserver) IncOnline() {
	p.onlineGauge.Inc()
}
func (p *prometheusObserver) DecOnline() {
	p.onlineGauge.Dec()
}
func (p *prometheusObserver) RecordPush() {
	p.pushCounter.Inc()
}
func (p *prometheusObserver) RecordDrop() {
	p.dropCounter.Inc()
}
func (p *prometheusObserver) RecordOperation(op, outcome string) {
	p.opsCounter.WithLabelValues(op, outcome).Inc()
}
