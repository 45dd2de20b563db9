// Package metrics holds the Prometheus collectors of the sealing service.
//
// Recording functions are safe to call before New; until a server has been
// created the observations go to collectors that are never exported.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"
)

type serviceCollectors struct {
	sealsGenerated *prometheus.CounterVec
	verifications  *prometheus.CounterVec
	votesCast      *prometheus.CounterVec
	chainAudits    *prometheus.CounterVec
}

func newCollectors(namespace string) *serviceCollectors {
	return &serviceCollectors{
		sealsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "seals_generated_total",
			Help:      "Seals generated, by whether they carry an HMAC signature.",
		}, []string{"signed"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "seal_verifications_total",
			Help:      "Seal verifications, by lifecycle outcome.",
		}, []string{"outcome"}),
		votesCast: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_cast_total",
			Help:      "Vote cast attempts, by result.",
		}, []string{"result"}),
		chainAudits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_chain_checks_total",
			Help:      "Audit chain verifications, by result.",
		}, []string{"valid"}),
	}
}

var active atomic.Pointer[serviceCollectors]

func init() {
	active.Store(newCollectors("unregistered"))
}

func setActive(c *serviceCollectors) {
	active.Store(c)
}

func RecordSealGenerated(signed bool) {
	active.Load().sealsGenerated.WithLabelValues(strconv.FormatBool(signed)).Inc()
}

func RecordVerification(outcome string) {
	active.Load().verifications.WithLabelValues(outcome).Inc()
}

// RecordVoteCast counts a cast attempt; result is "ok" or a short error class.
func RecordVoteCast(result string) {
	active.Load().votesCast.WithLabelValues(result).Inc()
}

func RecordChainAudit(valid bool) {
	active.Load().chainAudits.WithLabelValues(strconv.FormatBool(valid)).Inc()
}
