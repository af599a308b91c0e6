package p2p

import (
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
)

const (
	// MetricsSubsystem is a subsystem shared by all metrics exposed by this
	// package.
	MetricsSubsystem = "p2p"
)

// Metrics contains metrics exposed by this package.
type Metrics struct {
	// Number of registered peers.
	Peers metrics.Gauge
	// Number of bytes queued for sending.
	BytesSent metrics.Counter
	// Number of bytes received.
	BytesReceived metrics.Counter
	// Number of sends that failed and evicted the peer.
	SendFailures metrics.Counter
	// Number of connections established, by direction.
	Connections metrics.Counter
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
		Peers: prometheus.NewGaugeFrom(stdprometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "peers",
			Help:      "Number of peers.",
		}, labels).With(labelsAndValues...),
		BytesSent: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "bytes_sent",
			Help:      "Number of bytes queued for sending to peers.",
		}, labels).With(labelsAndValues...),
		BytesReceived: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "bytes_received",
			Help:      "Number of bytes received from peers.",
		}, labels).With(labelsAndValues...),
		SendFailures: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "send_failures",
			Help:      "Number of failed sends; the peer is dropped on failure.",
		}, labels).With(labelsAndValues...),
		Connections: prometheus.NewCounterFrom(stdprometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: MetricsSubsystem,
			Name:      "connections",
			Help:      "Number of connections established.",
		}, append(labels, "direction")).With(labelsAndValues...),
	}
}

// NopMetrics returns no-op Metrics.
func NopMetrics() *Metrics {
	return &Metrics{
		Peers:         discard.NewGauge(),
		BytesSent:     discard.NewCounter(),
		BytesReceived: discard.NewCounter(),
		SendFailures:  discard.NewCounter(),
		Connections:   discard.NewCounter(),
	}
}
