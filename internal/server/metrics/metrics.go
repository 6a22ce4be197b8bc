// Package metrics exposes Prometheus collectors for the file store.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	FallbackDecryptions *prometheus.CounterVec
	DecryptionFailures  prometheus.Counter
	IntegrityFailures   prometheus.Counter
	StorageOperations   *prometheus.CounterVec
	Reencryptions       *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg. A nil reg uses a
// fresh private registry.
func New(reg *prometheus.Registry) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		FallbackDecryptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "securefiles",
			Name:      "fallback_decryptions_total",
			Help:      "Files opened with a fallback key; non-zero means rotation is incomplete.",
		}, []string{"position"}),
		DecryptionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "securefiles",
			Name:      "decryption_failures_total",
			Help:      "Ciphertexts no key in the ring could open.",
		}),
		IntegrityFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "securefiles",
			Name:      "integrity_failures_total",
			Help:      "Decrypted files whose checksum did not match the record.",
		}),
		StorageOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "securefiles",
			Name:      "storage_operations_total",
			Help:      "Content store calls by operation and result.",
		}, []string{"op", "result"}),
		Reencryptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "securefiles",
			Name:      "reencryptions_total",
			Help:      "Re-encryption job outcomes per file.",
		}, []string{"result"}),
		gatherer: reg,
	}

	for _, c := range []prometheus.Collector{
		m.FallbackDecryptions, m.DecryptionFailures, m.IntegrityFailures, m.StorageOperations, m.Reencryptions,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveStorage counts one content store call.
func (m *Metrics) ObserveStorage(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.StorageOperations.WithLabelValues(op, result).Inc()
}
