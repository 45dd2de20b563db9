package api

import (
	"github.com/ruteri/evidence-seal/interfaces"
)

// MaxBodySize is the largest request body the service accepts (4MB).
const MaxBodySize = 4 * 1024 * 1024

// SealResponse is returned by POST /api/seal.
type SealResponse struct {
	Seal *interfaces.SealEnvelope `json:"seal"`
	Pack interfaces.SealedPack    `json:"pack"`
	// ContentID is set when the sealed pack was persisted.
	ContentID string `json:"contentId,omitempty"`
}

// VerifyResponse is the verification diagnostic plus the resulting lifecycle state.
type VerifyResponse struct {
	interfaces.VerificationResult
	Outcome interfaces.EvidenceState `json:"outcome"`
}

// NewVerifyResponse wraps a verification result.
func NewVerifyResponse(result interfaces.VerificationResult) VerifyResponse {
	return VerifyResponse{VerificationResult: result, Outcome: result.Outcome()}
}

// StoredPackResponse is returned by GET /api/packs/{content_id}. The pack is
// re-verified on every read.
type StoredPackResponse struct {
	ContentID    string                `json:"contentId"`
	Pack         interfaces.SealedPack `json:"pack"`
	Verification VerifyResponse        `json:"verification"`
}

type CastVoteRequest struct {
	OptionID string `json:"optionId"`
	VoterID  string `json:"voterId"`
}

// CastVoteResponse is the voter's receipt. The verification code is shown
// to the voter once and is needed to confirm the ballot later.
type CastVoteResponse struct {
	ReceiptID        string `json:"receiptId"`
	VerificationCode string `json:"verificationCode"`
	AuditHash        string `json:"auditHash"`
	Timestamp        string `json:"timestamp"`
	Sequence         uint64 `json:"sequence"`
}

type ConfirmReceiptRequest struct {
	Code string `json:"code"`
}

type ConfirmReceiptResponse struct {
	Confirmed bool `json:"confirmed"`
}

// SnapshotResponse is returned by POST /api/elections/{session_id}/snapshot.
type SnapshotResponse struct {
	Pack      interfaces.SealedPack  `json:"pack"`
	Chain     interfaces.ChainReport `json:"chain"`
	ContentID string                 `json:"contentId,omitempty"`
}

// SealProvider seals and verifies evidence packs.
type SealProvider interface {
	Seal(pack interfaces.PackIndex, store bool) (*SealResponse, error)
	Verify(pack interfaces.SealedPack) (*VerifyResponse, error)
	GetPack(id interfaces.ContentID) (*StoredPackResponse, error)
}

// ElectionProvider records ballots and audits the per-session chain.
type ElectionProvider interface {
	CastVote(sessionID string, req CastVoteRequest) (*CastVoteResponse, error)
	Audit(sessionID string) (*interfaces.ChainReport, error)
	ConfirmReceipt(sessionID, receiptID, code string) (bool, error)
	Snapshot(sessionID string) (*SnapshotResponse, error)
}
