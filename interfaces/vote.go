package interfaces

import "context"

// GenesisAuditHash stands in for the previous audit hash of the first vote in a chain.
const GenesisAuditHash = "GENESIS"

// VoteMetadata is the per-ballot record produced when a vote is cast.
type VoteMetadata struct {
	ReceiptID        string `json:"receiptId"`
	VerificationCode string `json:"verificationCode"`
	AnonymousVoterID string `json:"anonymousVoterId"`
	VoterHash        string `json:"voterHash"`
	Signature        string `json:"signature"`
	AuditHash        string `json:"auditHash"`
	Timestamp        string `json:"timestamp"`
}

// ChainEntry is one persisted link of a session's audit chain. It stores the
// predecessor pointer explicitly so verifiers can check linkage, not only
// each link in isolation.
type ChainEntry struct {
	Sequence          uint64 `json:"sequence"`
	SessionID         string `json:"sessionId"`
	OptionID          string `json:"optionId"`
	PreviousAuditHash string `json:"previousAuditHash"`
	VoteMetadata
}

// ChainReport is the result of re-walking an audit chain from genesis.
type ChainReport struct {
	Valid bool `json:"valid"`
	// Entries is the chain length that was walked.
	Entries int `json:"entries"`
	// Verified counts the intact prefix. Every entry at or after BrokenAt is untrusted.
	Verified int    `json:"verified"`
	BrokenAt int    `json:"brokenAt"`
	Reason   string `json:"reason,omitempty"`
	Tail     string `json:"tail,omitempty"`
}

// AuditLedger persists per-session audit chains. Implementations own the
// concurrency control: Append must fail with ErrStaleTail when expectedTail
// no longer matches the stored tail.
type AuditLedger interface {
	// SessionSalt returns the session salt, creating it on first use.
	SessionSalt(ctx context.Context, sessionID string) (string, error)

	// Tail returns the audit hash of the newest entry, or "" for an empty chain.
	Tail(ctx context.Context, sessionID string) (string, error)

	// Append adds entry if the tail still equals expectedTail.
	Append(ctx context.Context, sessionID string, expectedTail string, entry ChainEntry) (ChainEntry, error)

	// Entries returns the chain in link order.
	Entries(ctx context.Context, sessionID string) ([]ChainEntry, error)

	// EntryByReceipt finds an entry by its receipt ID.
	EntryByReceipt(ctx context.Context, sessionID string, receiptID string) (ChainEntry, error)

	Close() error
}
