package vote

import (
	"strings"
	"time"

	"github.com/ruteri/evidence-seal/cryptoutils"
	"github.com/ruteri/evidence-seal/interfaces"
)

const (
	saltBytes            = 32
	receiptBytes         = 16
	verificationBytes    = 3
	anonymousIDHexLength = 32

	// ReceiptPrefix starts every receipt ID.
	ReceiptPrefix = "RCPT-"
)

// GenerateSessionSalt returns 32 random bytes as hex, the per-session secret
// that scopes voter pseudonyms.
func GenerateSessionSalt() (string, error) {
	return cryptoutils.RandomHex(saltBytes)
}

// GenerateAnonymousVoterID derives the session-scoped pseudonym of a voter.
// The same inputs always yield the same 32 hex characters.
func GenerateAnonymousVoterID(realUserID, sessionID, sessionSalt string) string {
	digest := cryptoutils.SHA256HexString(realUserID + ":" + sessionID + ":" + sessionSalt)
	return digest[:anonymousIDHexLength]
}

// GenerateVoterHash binds a pseudonym to the cast time. The two values are
// concatenated without a separator.
func GenerateVoterHash(anonymousVoterID, timestamp string) string {
	return cryptoutils.SHA256HexString(anonymousVoterID + timestamp)
}

// GenerateReceiptID returns "RCPT-" followed by 32 upper-case hex characters.
func GenerateReceiptID() (string, error) {
	h, err := cryptoutils.RandomHex(receiptBytes)
	if err != nil {
		return "", err
	}
	return ReceiptPrefix + strings.ToUpper(h), nil
}

// GenerateVerificationCode returns a 6 character upper-case hex code.
func GenerateVerificationCode() (string, error) {
	h, err := cryptoutils.RandomHex(verificationBytes)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(h), nil
}

// GenerateVoteSignature binds session, option, pseudonym and time.
func GenerateVoteSignature(sessionID, optionID, anonymousVoterID, timestamp string) string {
	return cryptoutils.SHA256HexString(sessionID + ":" + optionID + ":" + anonymousVoterID + ":" + timestamp)
}

// GenerateAuditHash computes the chain link for a vote. An empty
// previousAuditHash marks the first vote and is replaced by "GENESIS".
func GenerateAuditHash(receiptID, voterHash, signature, previousAuditHash, timestamp string) string {
	return cryptoutils.SHA256HexString(receiptID + ":" + voterHash + ":" + signature + ":" + linkPointer(previousAuditHash) + ":" + timestamp)
}

// VerifyAuditChainLink recomputes one link and compares it with the stored
// audit hash. It checks the link in isolation; use VerifyChain for linkage.
func VerifyAuditChainLink(receiptID, voterHash, signature, previousAuditHash, timestamp, storedAuditHash string) bool {
	return cryptoutils.EqualHex(GenerateAuditHash(receiptID, voterHash, signature, previousAuditHash, timestamp), storedAuditHash)
}

// VerifyVoteByCode compares a voter-supplied code with the stored one, ignoring case.
func VerifyVoteByCode(storedCode, providedCode string) bool {
	return strings.EqualFold(storedCode, providedCode)
}

// GenerateVoteMetadata produces the full record of a vote cast now.
// The caller must serialize casts per session and pass the current chain tail.
func GenerateVoteMetadata(sessionID, optionID, realUserID, sessionSalt, previousAuditHash string) (*interfaces.VoteMetadata, error) {
	return GenerateVoteMetadataAt(sessionID, optionID, realUserID, sessionSalt, previousAuditHash, time.Now())
}

// GenerateVoteMetadataAt is GenerateVoteMetadata with an explicit cast time.
func GenerateVoteMetadataAt(sessionID, optionID, realUserID, sessionSalt, previousAuditHash string, at time.Time) (*interfaces.VoteMetadata, error) {
	for _, f := range []struct{ name, value string }{
		{"sessionId", sessionID},
		{"optionId", optionID},
		{"realUserId", realUserID},
		{"sessionSalt", sessionSalt},
	} {
		if f.value == "" {
			return nil, &interfaces.InvalidVoteInputError{Field: f.name}
		}
	}

	receiptID, err := GenerateReceiptID()
	if err != nil {
		return nil, err
	}
	code, err := GenerateVerificationCode()
	if err != nil {
		return nil, err
	}

	timestamp := cryptoutils.FormatTimestamp(at)
	anonymousID := GenerateAnonymousVoterID(realUserID, sessionID, sessionSalt)
	voterHash := GenerateVoterHash(anonymousID, timestamp)
	signature := GenerateVoteSignature(sessionID, optionID, anonymousID, timestamp)

	return &interfaces.VoteMetadata{
		ReceiptID:        receiptID,
		VerificationCode: code,
		AnonymousVoterID: anonymousID,
		VoterHash:        voterHash,
		Signature:        signature,
		AuditHash:        GenerateAuditHash(receiptID, voterHash, signature, previousAuditHash, timestamp),
		Timestamp:        timestamp,
	}, nil
}

func linkPointer(previousAuditHash string) string {
	if previousAuditHash == "" {
		return interfaces.GenesisAuditHash
	}
	return previousAuditHash
}
