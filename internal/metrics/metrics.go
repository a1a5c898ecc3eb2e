package metrics

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CommandRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "influencekit_command_runs_total",
		Help: "Total CLI command runs",
	}, []string{"command"})
	CommandErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "influencekit_command_errors_total",
		Help: "Total CLI command failures",
	}, []string{"command"})
	CommandDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "influencekit_command_duration_seconds",
		Help:    "CLI command duration seconds",
		Buckets: prometheus.ExponentialBuckets(0.1, 4, 10),
	}, []string{"command"})

	CrawlPages = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "influencekit_crawl_pages_total",
		Help: "Follower id pages processed",
	})
	FollowersWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "influencekit_followers_written_total",
		Help: "New follow edges stored by the crawler",
	})
	FetchRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "influencekit_fetch_retries_total",
		Help: "Crawler fetch retries after a pause",
	}, []string{"reason"})

	MessagesSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "influencekit_messages_sent_total",
		Help: "Direct messages sent or simulated",
	}, []string{"mode"})
	SendFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "influencekit_send_failures_total",
		Help: "Direct message send failures by kind",
	}, []string{"kind"})
	SendWait = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "influencekit_send_wait_seconds",
		Help:    "Scheduling wait before a send",
		Buckets: []float64{1, 10, 60, 90, 300, 900, 3600, 4 * 3600, 12 * 3600, 24 * 3600},
	}, []string{"reason"})

	APIRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "influencekit_api_retries_total",
		Help: "Total API retry attempts",
	}, []string{"endpoint"})
)

func init() {
	prometheus.MustRegister(
		CommandRuns, CommandErrors, CommandDuration,
		CrawlPages, FollowersWritten, FetchRetries,
		MessagesSent, SendFailures, SendWait,
		APIRetries,
	)
}

// Handler serves /metrics and /health.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	return mux
}

// StartServer starts a metrics HTTP server on addr (e.g., ":9090").
func StartServer(addr string) {
	if addr == "" {
		addr = os.Getenv("METRICS_ADDR")
	}
	if addr == "" {
		return
	}
	go func() { _ = http.ListenAndServe(addr, Handler()) }()
}

func IncCommandRun(cmd string)   { CommandRuns.WithLabelValues(cmd).Inc() }
func IncCommandError(cmd string) { CommandErrors.WithLabelValues(cmd).Inc() }

// ObserveCommandDuration records how long a command ran.
func ObserveCommandDuration(cmd string, start time.Time) {
	CommandDuration.WithLabelValues(cmd).Observe(time.Since(start).Seconds())
}

// IncAPIRetry increments the retry counter for an endpoint.
func IncAPIRetry(endpoint string) { APIRetries.WithLabelValues(endpoint).Inc() }

func IncFetchRetry(reason string) { FetchRetries.WithLabelValues(reason).Inc() }

func IncMessageSent(dryRun bool) {
	mode := "live"
	if dryRun {
		mode = "dry_run"
	}
	MessagesSent.WithLabelValues(mode).Inc()
}

func IncSendFailure(kind string) { SendFailures.WithLabelValues(kind).Inc() }

// ObserveSendWait records a scheduling delay.
func ObserveSendWait(reason string, d time.Duration) {
	SendWait.WithLabelValues(reason).Observe(d.Seconds())
}
