package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zono819/ratio-arb/internal/domain/entity"
	"github.com/zono819/ratio-arb/internal/infrastructure/logger"
)

// Recorder holds the ratio trade collectors on its own registry
type Recorder struct {
	registry *prometheus.Registry

	Profit          *prometheus.GaugeVec
	ProfitLast      *prometheus.GaugeVec
	MaxTradableSize *prometheus.GaugeVec
	NotReady        *prometheus.CounterVec
	CycleSeconds    prometheus.Histogram
	MDMessages      prometheus.Counter
}

// NewRecorder creates and registers all collectors
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		Profit: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ratio_profit",
			Help: "Best-quote round trip return per ratio trade",
		}, []string{"ratio"}),
		ProfitLast: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ratio_profit_last",
			Help: "Last-trade round trip return per ratio trade",
		}, []string{"ratio"}),
		MaxTradableSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ratio_max_tradable_size",
			Help: "Nominal the current top of book lets the full cycle execute",
		}, []string{"ratio"}),
		NotReady: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ratio_not_ready_total",
			Help: "Ratio trade evaluations without the book data sizing needs",
		}, []string{"status", "role"}),
		CycleSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "monitor_cycle_seconds",
			Help:    "Time to refresh and evaluate every ratio trade",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		MDMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "md_messages_total",
			Help: "Market data messages applied to the book store",
		}),
	}

	r.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.Profit,
		r.ProfitLast,
		r.MaxTradableSize,
		r.NotReady,
		r.CycleSeconds,
		r.MDMessages,
	)
	return r
}

// Registry returns the registry the collectors live on
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Publish records one monitor cycle
func (r *Recorder) Publish(_ context.Context, snaps []entity.RatioSnapshot) error {
	for _, s := range snaps {
		r.Profit.WithLabelValues(s.Name).Set(s.Profit.InexactFloat64())
		r.ProfitLast.WithLabelValues(s.Name).Set(s.ProfitLast.InexactFloat64())
		r.MaxTradableSize.WithLabelValues(s.Name).Set(s.MaxTradableSize.InexactFloat64())
		if !s.Ready() {
			r.NotReady.WithLabelValues(string(s.Status), string(s.Role)).Inc()
		}
	}
	return nil
}

// ObserveCycle records how long a cycle took
func (r *Recorder) ObserveCycle(d time.Duration) {
	r.CycleSeconds.Observe(d.Seconds())
}

// Handler returns the /metrics and /healthz mux
func (r *Recorder) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	}))
	return mux
}

// Serve runs the metrics server until ctx is done
func (r *Recorder) Serve(ctx context.Context, addr string, log *logger.Logger) error {
	if log == nil {
		log = logger.Default()
	}
	if addr == "" {
		log.Info("metrics disabled: empty addr")
		return nil
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("metrics server shutdown error: %v", err)
		}
	}()

	log.Info("metrics server starting on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
