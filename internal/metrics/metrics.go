package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PassesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "trade_passes_total", Help: "Trade passes run inside the trading window"},
	)
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_total", Help: "Gap signals emitted"},
		[]string{"direction"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_total", Help: "Orders submitted"},
		[]string{"symbol", "side"},
	)
	OrderFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "order_failures_total", Help: "Orders that could not be placed"},
		[]string{"symbol"},
	)
	EngineErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "engine_errors_total", Help: "Errors accumulated by the engine"},
		[]string{"kind"},
	)
	LiquidationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "liquidations_total", Help: "Positions closed outside the trading window"},
	)
	InsideWindow = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "inside_trading_window", Help: "1 while the scheduler is inside the trading window"},
	)
)

func init() {
	prometheus.MustRegister(PassesTotal, SignalsTotal, OrdersTotal, OrderFailuresTotal, EngineErrorsTotal, LiquidationsTotal, InsideWindow)
}

// Serve exposes /metrics on addr in the background. An empty addr disables it.
func Serve(addr string) *http.Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
