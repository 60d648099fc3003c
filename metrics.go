// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package PowerSNMPWalk

import (
	"errors"
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for requests and walks.
//
// All metrics are prefixed with "snmpwalk_":
//   - snmpwalk_requests_total{strategy,op,result}
//   - snmpwalk_request_duration_seconds{strategy,op}
//   - snmpwalk_toobig_total{walk}
//   - snmpwalk_walks_total{result}
//   - snmpwalk_walk_rounds
//   - snmpwalk_walk_rows_total
//   - snmpwalk_walks_in_progress
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	TooBigTotal     *prometheus.CounterVec
	WalksTotal      *prometheus.CounterVec
	WalkRounds      prometheus.Histogram
	WalkRowsTotal   prometheus.Counter
	WalksInProgress prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snmpwalk_requests_total",
				Help: "SNMP requests sent, by outcome",
			},
			[]string{"strategy", "op", "result"}, // ok, error_status, timeout, error
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "snmpwalk_request_duration_seconds",
				Help:    "Round trip time of SNMP requests including retries",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
			},
			[]string{"strategy", "op"},
		),
		TooBigTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snmpwalk_toobig_total",
				Help: "tooBig responses received by walkers",
			},
			[]string{"walk"},
		),
		WalksTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snmpwalk_walks_total",
				Help: "Completed walk sessions, by final state",
			},
			[]string{"result"}, // ok, failed, cancelled
		),
		WalkRounds: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "snmpwalk_walk_rounds",
				Help:    "Request rounds needed per walk",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
		),
		WalkRowsTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "snmpwalk_walk_rows_total",
				Help: "Column entries collected by walkers",
			},
		),
		WalksInProgress: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "snmpwalk_walks_in_progress",
				Help: "Walk sessions currently running",
			},
		),
	}
}

func (m *Metrics) observeRequest(strategy string, op OperationKind, resp *Response, err error, d time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	var ne net.Error
	switch {
	case errors.As(err, &ne) && ne.Timeout():
		result = "timeout"
	case err != nil:
		result = "error"
	case resp != nil && resp.ErrorStatus != SNMP_ErrNoError:
		result = "error_status"
	}
	m.RequestsTotal.WithLabelValues(strategy, op.String(), result).Inc()
	m.RequestDuration.WithLabelValues(strategy, op.String()).Observe(d.Seconds())
}

func (m *Metrics) observeTooBig(walk string) {
	if m == nil {
		return
	}
	m.TooBigTotal.WithLabelValues(walk).Inc()
}

func (m *Metrics) walkStarted() {
	if m == nil {
		return
	}
	m.WalksInProgress.Inc()
}

func (m *Metrics) walkDone(result string, rounds, rows int) {
	if m == nil {
		return
	}
	m.WalksInProgress.Dec()
	m.WalksTotal.WithLabelValues(result).Inc()
	m.WalkRounds.Observe(float64(rounds))
	m.WalkRowsTotal.Add(float64(rows))
}
