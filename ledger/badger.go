package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/dgraph-io/badger/v4"
	"github.com/ruteri/evidence-seal/interfaces"
	"github.com/ruteri/evidence-seal/vote"
)

// BadgerLedger persists audit chains in BadgerDB. Appends run in a
// read-write transaction that reads the tail, so two appends racing on the
// same tail conflict and the loser gets interfaces.ErrStaleTail.
type BadgerLedger struct {
	db  *badger.DB
	log *slog.Logger
}

// OpenBadgerLedger opens or creates a ledger in dir. An empty dir opens an
// in-memory database.
func OpenBadgerLedger(dir string, log *slog.Logger) (*BadgerLedger, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}

	log.Info("Opened audit ledger", slog.String("dir", dir), slog.Bool("inMemory", dir == ""))
	return NewBadgerLedger(db, log), nil
}

// NewBadgerLedger wraps an already open database.
func NewBadgerLedger(db *badger.DB, log *slog.Logger) *BadgerLedger {
	return &BadgerLedger{db: db, log: log}
}

func (l *BadgerLedger) SessionSalt(ctx context.Context, sessionID string) (string, error) {
	if err := checkSessionID(sessionID); err != nil {
		return "", err
	}

	var salt string
	for attempt := 0; attempt < 3; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		err := l.db.Update(func(txn *badger.Txn) error {
			item, err := txn.Get(saltKey(sessionID))
			if err == nil {
				raw, err := item.ValueCopy(nil)
				salt = string(raw)
				return err
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}

			salt, err = vote.GenerateSessionSalt()
			if err != nil {
				return err
			}
			return txn.Set(saltKey(sessionID), []byte(salt))
		})
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to load session salt: %w", err)
		}
		return salt, nil
	}
	return "", fmt.Errorf("failed to load session salt: %w", badger.ErrConflict)
}

func (l *BadgerLedger) Tail(_ context.Context, sessionID string) (string, error) {
	var tail chainTail
	err := l.db.View(func(txn *badger.Txn) error {
		var err error
		tail, err = readTail(txn, sessionID)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to read chain tail: %w", err)
	}
	return tail.AuditHash, nil
}

func readTail(txn *badger.Txn, sessionID string) (chainTail, error) {
	var tail chainTail
	item, err := txn.Get(tailKey(sessionID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return tail, nil
	}
	if err != nil {
		return tail, err
	}
	err = item.Value(func(v []byte) error {
		return json.Unmarshal(v, &tail)
	})
	return tail, err
}

func (l *BadgerLedger) Append(ctx context.Context, sessionID string, expectedTail string, entry interfaces.ChainEntry) (interfaces.ChainEntry, error) {
	if err := ctx.Err(); err != nil {
		return interfaces.ChainEntry{}, err
	}

	err := l.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(saltKey(sessionID)); errors.Is(err, badger.ErrKeyNotFound) {
			return interfaces.ErrSessionNotFound
		} else if err != nil {
			return err
		}

		tail, err := readTail(txn, sessionID)
		if err != nil {
			return err
		}
		if tail.AuditHash != expectedTail {
			return interfaces.ErrStaleTail
		}

		if _, err := txn.Get(voterKey(sessionID, entry.AnonymousVoterID)); err == nil {
			return interfaces.ErrAlreadyVoted
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		entry.SessionID = sessionID
		entry.Sequence = tail.Sequence + 1
		entry.PreviousAuditHash = expectedTail

		raw, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		newTail, err := json.Marshal(chainTail{Sequence: entry.Sequence, AuditHash: entry.AuditHash})
		if err != nil {
			return err
		}

		if err := txn.Set(entryKey(sessionID, entry.Sequence), raw); err != nil {
			return err
		}
		if err := txn.Set(receiptKey(sessionID, entry.ReceiptID), []byte(strconv.FormatUint(entry.Sequence, 10))); err != nil {
			return err
		}
		if err := txn.Set(voterKey(sessionID, entry.AnonymousVoterID), []byte(entry.ReceiptID)); err != nil {
			return err
		}
		return txn.Set(tailKey(sessionID), newTail)
	})

	switch {
	case errors.Is(err, badger.ErrConflict):
		return interfaces.ChainEntry{}, interfaces.ErrStaleTail
	case err != nil:
		return interfaces.ChainEntry{}, err
	}

	l.log.Debug("Appended audit chain entry",
		slog.String("session", sessionID),
		slog.Uint64("sequence", entry.Sequence),
		slog.String("auditHash", entry.AuditHash))
	return entry, nil
}

func (l *BadgerLedger) Entries(_ context.Context, sessionID string) ([]interfaces.ChainEntry, error) {
	entries := []interfaces.ChainEntry{}
	err := l.db.View(func(txn *badger.Txn) error {
		if _, err := txn.Get(saltKey(sessionID)); errors.Is(err, badger.ErrKeyNotFound) {
			return interfaces.ErrSessionNotFound
		} else if err != nil {
			return err
		}

		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := entryPrefix(sessionID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var entry interfaces.ChainEntry
			if err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &entry)
			}); err != nil {
				return err
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (l *BadgerLedger) EntryByReceipt(_ context.Context, sessionID string, receiptID string) (interfaces.ChainEntry, error) {
	var entry interfaces.ChainEntry
	err := l.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(receiptKey(sessionID, receiptID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return interfaces.ErrReceiptNotFound
		}
		if err != nil {
			return err
		}

		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		seq, err := strconv.ParseUint(string(raw), 10, 64)
		if err != nil {
			return fmt.Errorf("corrupt receipt index: %w", err)
		}

		item, err = txn.Get(entryKey(sessionID, seq))
		if err != nil {
			return fmt.Errorf("receipt points at missing entry %d: %w", seq, err)
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &entry)
		})
	})
	return entry, err
}

func (l *BadgerLedger) Close() error {
	return l.db.Close()
}
