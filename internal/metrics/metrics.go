// Package metrics exposes the node's Prometheus gauges and counters and the
// /metrics HTTP handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	LedgerHeight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "diplomat",
		Name:      "ledger_height",
		Help:      "Number of blocks committed to the ledger.",
	})

	MempoolDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "diplomat",
		Name:      "mempool_depth",
		Help:      "Number of transactions pending in the mempool.",
	})

	KnownPeers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "diplomat",
		Name:      "known_peers",
		Help:      "Number of peers in the peer store.",
	})

	ConfirmationsProduced = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "diplomat",
		Name:      "confirmations_produced_total",
		Help:      "Total PoD confirmations this node has solved.",
	})

	BlocksSealed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "diplomat",
		Name:      "blocks_sealed_total",
		Help:      "Total blocks this node has sealed and appended locally.",
	})

	BlocksReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "diplomat",
		Name:      "blocks_received_total",
		Help:      "Inbound receive_block calls by outcome.",
	}, []string{"outcome"})

	RoamProbes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "diplomat",
		Name:      "roam_probes_total",
		Help:      "Roaming discovery probes by outcome.",
	}, []string{"outcome"})

	RPCRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "diplomat",
		Name:      "rpc_requests_total",
		Help:      "Inbound RPC calls by method and outcome.",
	}, []string{"method", "outcome"})
)

func init() {
	prometheus.MustRegister(
		LedgerHeight,
		MempoolDepth,
		KnownPeers,
		ConfirmationsProduced,
		BlocksSealed,
		BlocksReceived,
		RoamProbes,
		RPCRequests,
	)
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
