package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Signal pipeline metrics
	signalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pm_bot_signals_total",
			Help: "Total number of signals by gate outcome",
		},
		[]string{"strategy", "outcome"},
	)

	tradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pm_bot_trades_total",
			Help: "Total number of orders executed",
		},
		[]string{"strategy", "action"},
	)

	tradeSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pm_bot_trade_size_usdc",
			Help:    "Distribution of executed trade sizes in USDC",
			Buckets: []float64{5, 10, 25, 50, 100, 200, 500},
		},
		[]string{"strategy"},
	)

	// Risk metrics
	openPositions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pm_bot_open_positions",
			Help: "Number of currently open positions",
		},
		[]string{"strategy"},
	)

	dailyLoss = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pm_bot_daily_loss_usdc",
			Help: "Accumulated loss in the current daily window",
		},
		[]string{"strategy"},
	)

	weeklyLoss = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pm_bot_weekly_loss_usdc",
			Help: "Accumulated loss in the current weekly window",
		},
		[]string{"strategy"},
	)

	realizedPnL = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pm_bot_realized_pnl_usdc",
			Help: "Realized PnL since start",
		},
		[]string{"strategy"},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pm_bot_errors_total",
			Help: "Total number of errors by category",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(signalsTotal)
	prometheus.MustRegister(tradesTotal)
	prometheus.MustRegister(tradeSize)
	prometheus.MustRegister(openPositions)
	prometheus.MustRegister(dailyLoss)
	prometheus.MustRegister(weeklyLoss)
	prometheus.MustRegister(realizedPnL)
	prometheus.MustRegister(errorsTotal)
}

// MetricsHandler serves the Prometheus metrics endpoint
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RecordSignal records a gate outcome for a signal
func RecordSignal(strategy, outcome string) {
	signalsTotal.WithLabelValues(strategy, outcome).Inc()
}

// RecordTrade records an executed order
func RecordTrade(strategy, action string, size float64) {
	tradesTotal.WithLabelValues(strategy, action).Inc()
	tradeSize.WithLabelValues(strategy).Observe(size)
}

// UpdateOpenPositions updates the open position gauge
func UpdateOpenPositions(strategy string, count int) {
	openPositions.WithLabelValues(strategy).Set(float64(count))
}

// UpdateRisk updates the rolling loss and PnL gauges
func UpdateRisk(strategy string, daily, weekly, pnl float64) {
	dailyLoss.WithLabelValues(strategy).Set(daily)
	weeklyLoss.WithLabelValues(strategy).Set(weekly)
	realizedPnL.WithLabelValues(strategy).Set(pnl)
}

// RecordError records an error metric
func RecordError(errorType string) {
	errorsTotal.WithLabelValues(errorType).Inc()
}
