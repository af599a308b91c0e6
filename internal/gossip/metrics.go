package gossip

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const (
	// MetricsSubsystem is a subsystem shared by all metrics exposed by this
	// package.
	MetricsSubsystem = "gossip"
)

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Index of the latest block.
	Height metrics.Gauge
	// Number of messages received, by kind.
	MessagesReceived metrics.Counter
	// Number of inbound payloads that failed to decode.
	DecodeErrors metrics.Counter
	// Number of blocks appended to the chain, mined or received.
	BlocksAppended metrics.Counter
	// Number of received blocks rejected, by reason.
	BlocksRejected metrics.Counter
	// Number of times the local chain was replaced by a longer one.
	ChainReplacements metrics.Counter
	// Number of received chains that were invalid or not longer.
	ChainsRejected metrics.Counter
}

// PrometheusMetrics returns Metrics build using Prometheus client library.
// Optionally, labels can be provided along with their values ("foo",
// "fooValue").
func PrometheusMetrics(namespace string, labelsAndValues ...string) *Metrics {
	labels := []string{}
	for i := 0; i < len(labelsAndValues); i += 2 {
		labels = append(labels, labelsAndValues[i])
	}
	return &Metrics{
		Height: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "height",
			Help:      "Index of the latest block.",
		}, labels).With(labelsAndValues...),
		MessagesReceived: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "messages_received",
			Help:      "Number of messages received from peers.",
		}, append(labels, "kind")).With(labelsAndValues...),
		DecodeErrors: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "decode_errors",
			Help:      "Number of malformed messages received.",
		}, labels).With(labelsAndValues...),
		BlocksAppended: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "blocks_appended",
			Help:      "Number of blocks appended to the chain.",
		}, labels).With(labelsAndValues...),
		BlocksRejected: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "blocks_rejected",
			Help:      "Number of received blocks that did not extend the chain.",
		}, append(labels, "reason")).With(labelsAndValues...),
		ChainReplacements: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "chain_replacements",
			Help:      "Number of times the chain was replaced by a longer one.",
		}, labels).With(labelsAndValues...),
		ChainsRejected: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "chains_rejected",
			Help:      "Number of received chains that were not adopted.",
		}, labels).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		Height:            discard.NewGauge(),
		MessagesReceived:  discard.NewCounter(),
		DecodeErrors:      discard.NewCounter(),
		BlocksAppended:    discard.NewCounter(),
		BlocksRejected:    discard.NewCounter(),
		ChainReplacements: discard.NewCounter(),
		ChainsRejected:    discard.NewCounter(),
	}
}
