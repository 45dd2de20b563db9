package ledger

import (
	"context"
	"sync"

	"github.com/ruteri/evidence-seal/interfaces"
	"github.com/ruteri/evidence-seal/vote"
)

type memorySession struct {
	salt     string
	entries  []interfaces.ChainEntry
	receipts map[string]int
	voters   map[string]string
}

// MemoryLedger keeps audit chains in process memory.
type MemoryLedger struct {
	mu       sync.RWMutex
	sessions map[string]*memorySession
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{sessions: make(map[string]*memorySession)}
}

func (l *MemoryLedger) SessionSalt(_ context.Context, sessionID string) (string, error) {
	if err := checkSessionID(sessionID); err != nil {
		return "", err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if s, ok := l.sessions[sessionID]; ok {
		return s.salt, nil
	}

	salt, err := vote.GenerateSessionSalt()
	if err != nil {
		return "", err
	}
	l.sessions[sessionID] = &memorySession{
		salt:     salt,
		receipts: make(map[string]int),
		voters:   make(map[string]string),
	}
	return salt, nil
}

func (l *MemoryLedger) Tail(_ context.Context, sessionID string) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s, ok := l.sessions[sessionID]
	if !ok || len(s.entries) == 0 {
		return "", nil
	}
	return s.entries[len(s.entries)-1].AuditHash, nil
}

func (l *MemoryLedger) Append(_ context.Context, sessionID string, expectedTail string, entry interfaces.ChainEntry) (interfaces.ChainEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.sessions[sessionID]
	if !ok {
		return interfaces.ChainEntry{}, interfaces.ErrSessionNotFound
	}

	tail := ""
	if len(s.entries) > 0 {
		tail = s.entries[len(s.entries)-1].AuditHash
	}
	if tail != expectedTail {
		return interfaces.ChainEntry{}, interfaces.ErrStaleTail
	}
	if _, voted := s.voters[entry.AnonymousVoterID]; voted {
		return interfaces.ChainEntry{}, interfaces.ErrAlreadyVoted
	}

	entry.SessionID = sessionID
	entry.Sequence = uint64(len(s.entries) + 1)
	entry.PreviousAuditHash = expectedTail

	s.receipts[entry.ReceiptID] = len(s.entries)
	s.voters[entry.AnonymousVoterID] = entry.ReceiptID
	s.entries = append(s.entries, entry)
	return entry, nil
}

func (l *MemoryLedger) Entries(_ context.Context, sessionID string) ([]interfaces.ChainEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s, ok := l.sessions[sessionID]
	if !ok {
		return nil, interfaces.ErrSessionNotFound
	}
	return append([]interfaces.ChainEntry{}, s.entries...), nil
}

func (l *MemoryLedger) EntryByReceipt(_ context.Context, sessionID string, receiptID string) (interfaces.ChainEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s, ok := l.sessions[sessionID]
	if !ok {
		return interfaces.ChainEntry{}, interfaces.ErrSessionNotFound
	}
	idx, ok := s.receipts[receiptID]
	if !ok {
		return interfaces.ChainEntry{}, interfaces.ErrReceiptNotFound
	}
	return s.entries[idx], nil
}

func (l *MemoryLedger) Close() error {
	return nil
}
