package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PairsScanned = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "pairs_scanned_total", Help: "Symbol pairs evaluated for cointegration"},
	)
	PairsFound = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "pairs_found_total", Help: "Pairs that passed cointegration and half-life filters"},
	)
	BacktestsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "backtests_total", Help: "Backtest engine runs"},
	)
	QuotesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "quotes_total", Help: "Count of live quotes ingested"},
		[]string{"symbol"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_total", Help: "Orders submitted"},
		[]string{"symbol", "side"},
	)
)

func init() {
	prometheus.MustRegister(PairsScanned, PairsFound, BacktestsTotal, QuotesTotal, OrdersTotal)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
