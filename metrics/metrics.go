package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics holds the bot's collectors on a private registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	Ticks         prometheus.Counter
	Signals       *prometheus.CounterVec
	Orders        *prometheus.CounterVec
	OrderErrors   *prometheus.CounterVec
	CumulativePnL prometheus.Gauge
	FetchFailures prometheus.Counter

	reg *prometheus.Registry
}

func New() *Metrics {
	m := &Metrics{
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "futuresbot_ticks_total",
			Help: "Control loop iterations.",
		}),
		Signals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "futuresbot_signals_total",
				Help: "Signals produced by the evaluator (by signal).",
			},
			[]string{"signal"},
		),
		Orders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "futuresbot_orders_total",
				Help: "Trades recorded in the ledger (by status).",
			},
			[]string{"status"},
		),
		OrderErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "futuresbot_order_errors_total",
				Help: "Failed order placements (by kind).",
			},
			[]string{"kind"},
		),
		CumulativePnL: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "futuresbot_cumulative_pnl",
			Help: "Realized PnL of the current run in quote currency.",
		}),
		FetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "futuresbot_fetch_failures_total",
			Help: "Candle fetches that failed or returned no data.",
		}),
		reg: prometheus.NewRegistry(),
	}
	m.reg.MustRegister(m.Ticks, m.Signals, m.Orders, m.OrderErrors, m.CumulativePnL, m.FetchFailures)
	return m
}

func (m *Metrics) Tick() {
	if m != nil {
		m.Ticks.Inc()
	}
}

func (m *Metrics) Signal(signal string) {
	if m != nil {
		m.Signals.WithLabelValues(signal).Inc()
	}
}

func (m *Metrics) Order(status string) {
	if m != nil {
		m.Orders.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) OrderError(kind string) {
	if m != nil {
		m.OrderErrors.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) SetPnL(v float64) {
	if m != nil {
		m.CumulativePnL.Set(v)
	}
}

func (m *Metrics) FetchFailure() {
	if m != nil {
		m.FetchFailures.Inc()
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, log *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("metrics listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
