package promclient

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var OpenFeedsGauge = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "marketfeed_open_feeds",
		Help: "number of active market feed subscriptions",
	},
)

var LiveCandlesApplied = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "marketfeed_live_candles_applied_total",
		Help: "live candles merged into a window (appended or replaced)",
	},
)

var StaleCandlesDiscarded = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "marketfeed_stale_candles_discarded_total",
		Help: "live candles dropped for being older than the window tail",
	},
)

var DepthSnapshotsReplaced = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "marketfeed_depth_snapshots_replaced_total",
		Help: "depth snapshots replaced wholesale",
	},
)

var SnapshotFetchFailures = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "marketfeed_snapshot_fetch_failures_total",
		Help: "history snapshot fetches that failed and were skipped",
	},
)

var MalformedStreamMessages = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "marketfeed_malformed_stream_messages_total",
		Help: "stream messages dropped at decode time",
	},
)

func StartPromClientServer(addr string) {
	reg := prometheus.NewRegistry()
	promHandler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})

	reg.MustRegister(OpenFeedsGauge)
	reg.MustRegister(LiveCandlesApplied)
	reg.MustRegister(StaleCandlesDiscarded)
	reg.MustRegister(DepthSnapshotsReplaced)
	reg.MustRegister(SnapshotFetchFailures)
	reg.MustRegister(MalformedStreamMessages)
	reg.MustRegister(collectors.NewGoCollector())

	http.Handle("/metrics", promHandler)
	log.Printf("prometheus server listening at %s", addr)

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
