package vote

import (
	"fmt"

	"github.com/ruteri/evidence-seal/cryptoutils"
	"github.com/ruteri/evidence-seal/interfaces"
)

// VerifyChain re-walks a session's audit chain from genesis. Besides
// recomputing each entry's derived hashes it checks that every entry points
// at its actual predecessor. The first failure marks that entry and every
// later one as untrusted.
func VerifyChain(entries []interfaces.ChainEntry) interfaces.ChainReport {
	report := interfaces.ChainReport{
		Valid:    true,
		Entries:  len(entries),
		BrokenAt: -1,
	}

	expectedPrev := interfaces.GenesisAuditHash
	for i, e := range entries {
		if reason := checkEntry(e, expectedPrev); reason != "" {
			report.Valid = false
			report.BrokenAt = i
			report.Reason = fmt.Sprintf("entry %d (%s): %s", i, e.ReceiptID, reason)
			return report
		}
		report.Verified++
		report.Tail = e.AuditHash
		expectedPrev = e.AuditHash
	}
	return report
}

func checkEntry(e interfaces.ChainEntry, expectedPrev string) string {
	if !cryptoutils.EqualHex(linkPointer(e.PreviousAuditHash), expectedPrev) {
		return fmt.Sprintf("previous audit hash %s does not point at %s", linkPointer(e.PreviousAuditHash), expectedPrev)
	}
	if !cryptoutils.EqualHex(GenerateVoterHash(e.AnonymousVoterID, e.Timestamp), e.VoterHash) {
		return "voter hash does not match pseudonym and timestamp"
	}
	if !cryptoutils.EqualHex(GenerateVoteSignature(e.SessionID, e.OptionID, e.AnonymousVoterID, e.Timestamp), e.Signature) {
		return "signature does not match session, option, pseudonym and timestamp"
	}
	if !VerifyAuditChainLink(e.ReceiptID, e.VoterHash, e.Signature, e.PreviousAuditHash, e.Timestamp, e.AuditHash) {
		return "audit hash does not match"
	}
	return ""
}
