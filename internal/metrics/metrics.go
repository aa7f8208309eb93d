package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	gameSessionsSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "casino_game_sessions_settled_total",
		Help: "Settled game sessions by game and result",
	}, []string{"game", "result"})

	gameSettlementDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "casino_game_settlement_duration_seconds",
		Help:    "Time spent settling a game session",
		Buckets: prometheus.DefBuckets,
	}, []string{"game"})

	depositsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "casino_deposits_processed_total",
		Help: "Deposit scanner address outcomes",
	}, []string{"outcome"})

	depositVolume = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "casino_deposit_volume_total",
		Help: "Fiat-equivalent amount credited from deposits",
	}, []string{"fiat"})

	scanCycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "casino_scan_cycle_duration_seconds",
		Help:    "Duration of a full deposit scanner cycle",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	})

	scanCyclesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "casino_scan_cycles_skipped_total",
		Help: "Scanner cycles skipped because another cycle was running",
	})

	scanInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "casino_scan_addresses_in_flight",
		Help: "Deposit addresses currently being checked",
	})

	withdrawalsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "casino_withdrawals_total",
		Help: "Withdrawal outcomes",
	}, []string{"status"})

	externalCalls = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "casino_external_call_duration_seconds",
		Help:    "Latency of chain and price oracle calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"service", "operation", "success"})

	httpRequests = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "casino_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

func RecordSettlement(game, result string, duration time.Duration) {
	gameSessionsSettled.WithLabelValues(game, result).Inc()
	gameSettlementDuration.WithLabelValues(game).Observe(duration.Seconds())
}

// RecordDeposit counts one scanner outcome: swept, skipped, duplicate, pending or failed.
func RecordDeposit(outcome string) {
	depositsProcessed.WithLabelValues(outcome).Inc()
}

func RecordDepositVolume(fiat string, amount float64) {
	depositVolume.WithLabelValues(fiat).Add(amount)
}

func RecordScanCycle(duration time.Duration) {
	scanCycleDuration.Observe(duration.Seconds())
}

func IncScanSkipped() {
	scanCyclesSkipped.Inc()
}

func AddScanInFlight(delta float64) {
	scanInFlight.Add(delta)
}

func RecordWithdrawal(status string) {
	withdrawalsProcessed.WithLabelValues(status).Inc()
}

func RecordExternalCall(service, operation string, success bool, duration time.Duration) {
	s := "false"
	if success {
		s = "true"
	}
	externalCalls.WithLabelValues(service, operation, s).Observe(duration.Seconds())
}

func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}
