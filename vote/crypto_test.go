package vote

import (
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/ruteri/evidence-seal/cryptoutils"
	"github.com/ruteri/evidence-seal/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	hexLower   = regexp.MustCompile(`^[0-9a-f]+$`)
	receiptFmt = regexp.MustCompile(`^RCPT-[0-9A-F]{32}$`)
	codeFmt    = regexp.MustCompile(`^[0-9A-F]{6}$`)
	castAt     = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
)

func TestGenerateSessionSalt(t *testing.T) {
	a, err := GenerateSessionSalt()
	require.NoError(t, err)
	b, err := GenerateSessionSalt()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.Regexp(t, hexLower, a)
	assert.NotEqual(t, a, b)
}

func TestGenerateAnonymousVoterID(t *testing.T) {
	id := GenerateAnonymousVoterID("user-1", "session-1", "salt")
	assert.Len(t, id, 32)
	assert.Equal(t, cryptoutils.SHA256HexString("user-1:session-1:salt")[:32], id)

	assert.Equal(t, id, GenerateAnonymousVoterID("user-1", "session-1", "salt"), "stable for identical inputs")
	assert.NotEqual(t, id, GenerateAnonymousVoterID("user-1", "session-2", "salt"), "scoped by session")
	assert.NotEqual(t, id, GenerateAnonymousVoterID("user-1", "session-1", "other"), "scoped by salt")
	assert.NotEqual(t, id, GenerateAnonymousVoterID("user-2", "session-1", "salt"))
}

func TestDerivedHashes(t *testing.T) {
	ts := "2026-03-01T09:00:00.000Z"
	assert.Equal(t, cryptoutils.SHA256HexString("anon"+ts), GenerateVoterHash("anon", ts))
	assert.Equal(t, cryptoutils.SHA256HexString("s:o:anon:"+ts), GenerateVoteSignature("s", "o", "anon", ts))
	assert.Equal(t,
		cryptoutils.SHA256HexString("RCPT-1:vh:sig:GENESIS:"+ts),
		GenerateAuditHash("RCPT-1", "vh", "sig", "", ts))
	assert.Equal(t,
		GenerateAuditHash("RCPT-1", "vh", "sig", "", ts),
		GenerateAuditHash("RCPT-1", "vh", "sig", interfaces.GenesisAuditHash, ts))
}

func TestVerifyAuditChainLink_CaseSensitive(t *testing.T) {
	ts := "2026-03-01T09:00:00.000Z"
	stored := GenerateAuditHash("RCPT-1", "vh", "sig", "", ts)

	assert.True(t, VerifyAuditChainLink("RCPT-1", "vh", "sig", "", ts, stored))
	assert.False(t, VerifyAuditChainLink("RCPT-1", "vh", "sig", "", ts, strings.ToUpper(stored)))
}

func TestReceiptAndCodeFormats(t *testing.T) {
	for i := 0; i < 20; i++ {
		receipt, err := GenerateReceiptID()
		require.NoError(t, err)
		assert.Regexp(t, receiptFmt, receipt)

		code, err := GenerateVerificationCode()
		require.NoError(t, err)
		assert.Regexp(t, codeFmt, code)
	}
}

func TestVerifyVoteByCode(t *testing.T) {
	assert.True(t, VerifyVoteByCode("A1B2C3", "A1B2C3"))
	assert.True(t, VerifyVoteByCode("A1B2C3", "a1b2c3"))
	assert.False(t, VerifyVoteByCode("A1B2C3", "A1B2C4"))
	assert.False(t, VerifyVoteByCode("A1B2C3", ""))
}

func TestGenerateVoteMetadata(t *testing.T) {
	meta, err := GenerateVoteMetadataAt("session-1", "option-a", "user-1", "salt", "", castAt)
	require.NoError(t, err)

	assert.Regexp(t, receiptFmt, meta.ReceiptID)
	assert.Regexp(t, codeFmt, meta.VerificationCode)
	assert.Equal(t, "2026-03-01T09:00:00.000Z", meta.Timestamp)
	assert.Equal(t, GenerateAnonymousVoterID("user-1", "session-1", "salt"), meta.AnonymousVoterID)
	assert.Equal(t, GenerateVoterHash(meta.AnonymousVoterID, meta.Timestamp), meta.VoterHash)
	assert.Equal(t, GenerateVoteSignature("session-1", "option-a", meta.AnonymousVoterID, meta.Timestamp), meta.Signature)
	assert.True(t, VerifyAuditChainLink(meta.ReceiptID, meta.VoterHash, meta.Signature, "", meta.Timestamp, meta.AuditHash))
	assert.False(t, VerifyAuditChainLink(meta.ReceiptID, meta.VoterHash, meta.Signature, meta.AuditHash, meta.Timestamp, meta.AuditHash))

	live, err := GenerateVoteMetadata("session-1", "option-a", "user-1", "salt", meta.AuditHash)
	require.NoError(t, err)
	assert.NotEqual(t, meta.ReceiptID, live.ReceiptID)
}

func TestGenerateVoteMetadata_InvalidInput(t *testing.T) {
	cases := map[string][4]string{
		"sessionId":   {"", "o", "u", "salt"},
		"optionId":    {"s", "", "u", "salt"},
		"realUserId":  {"s", "o", "", "salt"},
		"sessionSalt": {"s", "o", "u", ""},
	}
	for field, in := range cases {
		_, err := GenerateVoteMetadataAt(in[0], in[1], in[2], in[3], "", castAt)
		var inputErr *interfaces.InvalidVoteInputError
		require.True(t, errors.As(err, &inputErr), field)
		assert.Equal(t, field, inputErr.Field)
	}
}
