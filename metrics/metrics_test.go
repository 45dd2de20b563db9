package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecording(t *testing.T) {
	srv, err := New("evidence_seal_test", "127.0.0.1:0")
	require.NoError(t, err)

	RecordSealGenerated(true)
	RecordSealGenerated(true)
	RecordSealGenerated(false)
	RecordVerification("verified-valid")
	RecordVoteCast("ok")
	RecordChainAudit(false)

	c := active.Load()
	assert.Equal(t, 2.0, testutil.ToFloat64(c.sealsGenerated.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.sealsGenerated.WithLabelValues("false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.verifications.WithLabelValues("verified-valid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.votesCast.WithLabelValues("ok")))

	count, err := testutil.GatherAndCount(srv.Registry(), "evidence_seal_test_audit_chain_checks_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRecording_SwapsCollectorsOnNew(t *testing.T) {
	before := active.Load()
	require.NotNil(t, before)
	RecordVoteCast("early")
	assert.Equal(t, 1.0, testutil.ToFloat64(before.votesCast.WithLabelValues("early")))

	_, err := New("evidence_seal_swap", "127.0.0.1:0")
	require.NoError(t, err)

	after := active.Load()
	require.NotSame(t, before, after)
	RecordVoteCast("early")
	assert.Equal(t, 1.0, testutil.ToFloat64(after.votesCast.WithLabelValues("early")))
	assert.Equal(t, 1.0, testutil.ToFloat64(before.votesCast.WithLabelValues("early")))
}
