// Command evhttpd-example runs a minimal evhttpd server with a couple
// of demo routes and a Prometheus metrics endpoint bridging the
// server's atomic traffic counters onto a separate listener.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/evhttpd/evhttpd"
)

var (
	addr             string
	metricsAddr      string
	totalRecvTimeout time.Duration
	keepAliveTimeout time.Duration
	totalSendTimeout time.Duration
	needKeepAlive    bool
)

var rootCmd = &cobra.Command{
	Use:   "evhttpd-example",
	Short: "Run an evhttpd server with demo routes and /metrics",
	RunE:  run,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&addr, "addr", envOr("EVHTTPD_ADDR", ":8080"), "address to bind the HTTP server on")
	flags.StringVar(&metricsAddr, "metrics-addr", envOr("EVHTTPD_METRICS_ADDR", ":9090"), "address to serve /metrics on")
	flags.DurationVar(&totalRecvTimeout, "total-recv-timeout", envDurationOr("EVHTTPD_TOTAL_RECV_TIMEOUT", 600*time.Second), "total time budget to receive one request")
	flags.DurationVar(&keepAliveTimeout, "keep-alive-timeout", envDurationOr("EVHTTPD_KEEP_ALIVE_TIMEOUT", 120*time.Second), "idle time allowed between keep-alive requests")
	flags.DurationVar(&totalSendTimeout, "total-send-timeout", envDurationOr("EVHTTPD_TOTAL_SEND_TIMEOUT", 600*time.Second), "total time budget to send one response")
	flags.BoolVar(&needKeepAlive, "keep-alive", true, "offer HTTP keep-alive to clients that request it")
}

// envOr reads a string override from the environment, falling back to
// def when unset. Plain os.Getenv is enough here since the value is
// used as-is; envDurationOr below is where loose coercion earns its
// keep.
func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

// envDurationOr coerces an environment variable into a time.Duration
// with cast's loose string parsing (accepting "30s" as well as a bare
// integer such as "30000000000", read as nanoseconds), rather than
// hand-rolling a parser that only accepts one of those forms.
func envDurationOr(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	d, err := cast.ToDurationE(v)
	if err != nil {
		return def
	}
	return d
}

func run(cmd *cobra.Command, args []string) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	opts := evhttpd.Options{
		TotalRecvTimeout: totalRecvTimeout,
		KeepAliveTimeout: keepAliveTimeout,
		TotalSendTimeout: totalSendTimeout,
		NeedKeepAlive:    needKeepAlive,
	}

	srv, err := evhttpd.NewServer(addr, opts, logger)
	if err != nil {
		return fmt.Errorf("new server: %w", err)
	}

	registerDemoRoutes(srv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricsSrv := startMetricsServer(metricsAddr, srv, logger)
	defer metricsSrv.Shutdown(context.Background())

	logger.Info("evhttpd listening", zap.String("addr", srv.Addr().String()), zap.String("metrics_addr", metricsAddr))
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	logger.Info("evhttpd shut down")
	return nil
}

func registerDemoRoutes(srv *evhttpd.Server) {
	srv.Register(evhttpd.MethodGet, "/", func(req *evhttpd.Request, resp *evhttpd.Response) {
		resp.StatusCode = 200
		resp.Headers.Add("Content-Type", "text/plain")
		resp.Body = []byte("evhttpd\n")
	})
	srv.Register(evhttpd.MethodGet, "/health", func(req *evhttpd.Request, resp *evhttpd.Response) {
		resp.StatusCode = 200
		resp.Headers.Add("Content-Type", "text/plain")
		resp.Body = []byte("ok\n")
	})
	srv.Register(evhttpd.MethodPost, "/echo", func(req *evhttpd.Request, resp *evhttpd.Response) {
		resp.StatusCode = 200
		resp.Headers.Add("Content-Type", "application/octet-stream")
		resp.Body = req.Body
	})
}

// metricsBridge mirrors a Server's atomic counters into Prometheus
// gauges on every scrape, keeping Prometheus entirely out of the core
// pipeline packages.
type metricsBridge struct {
	srv                 *evhttpd.Server
	totalRecvSize       prometheus.Gauge
	totalSendSize       prometheus.Gauge
	acceptedConnections prometheus.Gauge
	activeConnections   prometheus.Gauge
}

func newMetricsBridge(srv *evhttpd.Server) *metricsBridge {
	return &metricsBridge{
		srv: srv,
		totalRecvSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "evhttpd", Name: "total_recv_size_bytes", Help: "Total bytes received across all connections.",
		}),
		totalSendSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "evhttpd", Name: "total_send_size_bytes", Help: "Total bytes sent across all connections.",
		}),
		acceptedConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "evhttpd", Name: "accepted_connections_total", Help: "Connections accepted since start.",
		}),
		activeConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "evhttpd", Name: "active_connections", Help: "Connections currently being served.",
		}),
	}
}

func (b *metricsBridge) refresh() {
	stats := b.srv.Stats()
	b.totalRecvSize.Set(float64(stats.TotalRecvSize))
	b.totalSendSize.Set(float64(stats.TotalSendSize))
	b.acceptedConnections.Set(float64(stats.AcceptedConnections))
	b.activeConnections.Set(float64(stats.ActiveConnections))
}

func startMetricsServer(addr string, srv *evhttpd.Server, logger *zap.Logger) *http.Server {
	bridge := newMetricsBridge(srv)

	mux := http.NewServeMux()
	mux.Handle("/metrics", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bridge.refresh()
		promhttp.Handler().ServeHTTP(w, r)
	}))

	httpSrv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	return httpSrv
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
