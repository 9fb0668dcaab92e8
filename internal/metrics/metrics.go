// Package metrics exposes Prometheus instrumentation for the polling loops.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Loop names used as label values.
const (
	LoopFeed     = "feed"
	LoopCommands = "commands"
)

// Recorder receives events from the bot's components.
type Recorder interface {
	IncPolls(loop string)
	IncPollErrors(loop string)
	AddNewImages(n int)
	IncDeliveries(ok bool)
	IncCommands(kind string)
	SetSubscriptions(n int)
	SetSeenImages(n int)
}

// Metrics is a Recorder backed by its own Prometheus registry.
type Metrics struct {
	registry      *prometheus.Registry
	polls         *prometheus.CounterVec
	pollErrors    *prometheus.CounterVec
	newImages     prometheus.Counter
	deliveries    *prometheus.CounterVec
	commands      *prometheus.CounterVec
	subscriptions prometheus.Gauge
	seenImages    prometheus.Gauge
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		polls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fave_relay_polls_total",
			Help: "Number of poll cycles per loop",
		}, []string{"loop"}),
		pollErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fave_relay_poll_errors_total",
			Help: "Number of failed remote fetches per loop",
		}, []string{"loop"}),
		newImages: f.NewCounter(prometheus.CounterOpts{
			Name: "fave_relay_new_images_total",
			Help: "Number of newly discovered favourite images",
		}),
		deliveries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fave_relay_deliveries_total",
			Help: "Number of photo deliveries by outcome",
		}, []string{"status"}),
		commands: f.NewCounterVec(prometheus.CounterOpts{
			Name: "fave_relay_commands_total",
			Help: "Number of chat commands handled by kind",
		}, []string{"kind"}),
		subscriptions: f.NewGauge(prometheus.GaugeOpts{
			Name: "fave_relay_subscriptions",
			Help: "Current number of subscriptions",
		}),
		seenImages: f.NewGauge(prometheus.GaugeOpts{
			Name: "fave_relay_seen_images",
			Help: "Current size of the seen image set",
		}),
	}
}

func (m *Metrics) IncPolls(loop string)      { m.polls.WithLabelValues(loop).Inc() }
func (m *Metrics) IncPollErrors(loop string) { m.pollErrors.WithLabelValues(loop).Inc() }
func (m *Metrics) AddNewImages(n int)        { m.newImages.Add(float64(n)) }
func (m *Metrics) IncCommands(kind string)   { m.commands.WithLabelValues(kind).Inc() }
func (m *Metrics) SetSubscriptions(n int)    { m.subscriptions.Set(float64(n)) }
func (m *Metrics) SetSeenImages(n int)       { m.seenImages.Set(float64(n)) }

func (m *Metrics) IncDeliveries(ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	m.deliveries.WithLabelValues(status).Inc()
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves /metrics for the registry and a /healthz probe.
func (m *Metrics) Handler(log *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		if _, err := w.Write([]byte("ok")); err != nil {
			log.Error("write health response", "error", err)
		}
	})
	return mux
}

// Serve runs the metrics listener on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string, log *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           m.Handler(log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Noop is a Recorder that discards everything.
type Noop struct{}

func (Noop) IncPolls(string)      {}
func (Noop) IncPollErrors(string) {}
func (Noop) AddNewImages(int)     {}
func (Noop) IncDeliveries(bool)   {}
func (Noop) IncCommands(string)   {}
func (Noop) SetSubscriptions(int) {}
func (Noop) SetSeenImages(int)    {}
