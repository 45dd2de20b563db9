package ledger

import (
	"fmt"
	"strings"

	"github.com/ruteri/evidence-seal/interfaces"
)

// Badger key layout, all under "session/<id>/":
//
//	salt              session salt
//	tail              JSON chainTail
//	entry/<seq>       JSON ChainEntry, seq zero padded so keys sort in chain order
//	receipt/<id>      seq of the entry carrying the receipt
//	voter/<anon id>   receipt ID of the pseudonym's vote
const sessionPrefix = "session/"

type chainTail struct {
	Sequence  uint64 `json:"sequence"`
	AuditHash string `json:"auditHash"`
}

func checkSessionID(sessionID string) error {
	if sessionID == "" || strings.Contains(sessionID, "/") {
		return &interfaces.InvalidVoteInputError{Field: "sessionId"}
	}
	return nil
}

func sessionKey(sessionID, suffix string) []byte {
	return []byte(sessionPrefix + sessionID + "/" + suffix)
}

func saltKey(sessionID string) []byte {
	return sessionKey(sessionID, "salt")
}

func tailKey(sessionID string) []byte {
	return sessionKey(sessionID, "tail")
}

func entryPrefix(sessionID string) []byte {
	return sessionKey(sessionID, "entry/")
}

func entryKey(sessionID string, seq uint64) []byte {
	return sessionKey(sessionID, fmt.Sprintf("entry/%020d", seq))
}

func receiptKey(sessionID, receiptID string) []byte {
	return sessionKey(sessionID, "receipt/"+receiptID)
}

func voterKey(sessionID, anonymousVoterID string) []byte {
	return sessionKey(sessionID, "voter/"+anonymousVoterID)
}
