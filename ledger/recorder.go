package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ruteri/evidence-seal/interfaces"
	"github.com/ruteri/evidence-seal/vote"
)

// DefaultCastAttempts bounds how often Cast re-reads the tail after losing a race.
const DefaultCastAttempts = 8

// castBackoff is the base delay between cast attempts; each retry waits a
// random duration up to castBackoff << attempt.
const castBackoff = 2 * time.Millisecond

// SnapshotKind is the "kind" metadata of an audit snapshot pack.
const SnapshotKind = "vote-audit-snapshot"

// Recorder casts ballots onto an AuditLedger. Casts on the same session are
// serialized in process; the ledger's tail check guards against other
// processes appending to the same chain.
type Recorder struct {
	ledger      interfaces.AuditLedger
	log         *slog.Logger
	now         func() time.Time
	maxAttempts int

	sessionLocks sync.Map // session ID -> *sync.Mutex
}

func NewRecorder(ledger interfaces.AuditLedger, log *slog.Logger) *Recorder {
	return &Recorder{
		ledger:      ledger,
		log:         log,
		now:         time.Now,
		maxAttempts: DefaultCastAttempts,
	}
}

// WithClock replaces the clock used for cast timestamps.
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	r.now = now
	return r
}

// Cast records a ballot and returns the stored chain entry.
func (r *Recorder) Cast(ctx context.Context, sessionID, optionID, realUserID string) (interfaces.ChainEntry, error) {
	salt, err := r.ledger.SessionSalt(ctx, sessionID)
	if err != nil {
		return interfaces.ChainEntry{}, err
	}

	lock := r.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleepJittered(ctx, attempt); err != nil {
				return interfaces.ChainEntry{}, err
			}
		}

		tail, err := r.ledger.Tail(ctx, sessionID)
		if err != nil {
			return interfaces.ChainEntry{}, err
		}

		meta, err := vote.GenerateVoteMetadataAt(sessionID, optionID, realUserID, salt, tail, r.now())
		if err != nil {
			return interfaces.ChainEntry{}, err
		}

		entry, err := r.ledger.Append(ctx, sessionID, tail, interfaces.ChainEntry{
			SessionID:         sessionID,
			OptionID:          optionID,
			PreviousAuditHash: tail,
			VoteMetadata:      *meta,
		})
		if errors.Is(err, interfaces.ErrStaleTail) {
			r.log.Debug("Chain tail moved, retrying cast",
				slog.String("session", sessionID),
				slog.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return interfaces.ChainEntry{}, err
		}

		r.log.Info("Vote cast",
			slog.String("session", sessionID),
			slog.String("receipt", entry.ReceiptID),
			slog.Uint64("sequence", entry.Sequence))
		return entry, nil
	}

	return interfaces.ChainEntry{}, fmt.Errorf("gave up after %d attempts: %w", r.maxAttempts, interfaces.ErrStaleTail)
}

func (r *Recorder) sessionLock(sessionID string) *sync.Mutex {
	lock, _ := r.sessionLocks.LoadOrStore(sessionID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

func sleepJittered(ctx context.Context, attempt int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	delay := time.Duration(rand.Int64N(int64(castBackoff << min(attempt, 8))))
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Audit re-walks the session's chain from genesis.
func (r *Recorder) Audit(ctx context.Context, sessionID string) (interfaces.ChainReport, error) {
	entries, err := r.ledger.Entries(ctx, sessionID)
	if err != nil {
		return interfaces.ChainReport{}, err
	}

	report := vote.VerifyChain(entries)
	if !report.Valid {
		r.log.Warn("Audit chain verification failed",
			slog.String("session", sessionID),
			slog.Int("brokenAt", report.BrokenAt),
			slog.String("reason", report.Reason))
	}
	return report, nil
}

// ConfirmReceipt checks a voter's verification code against the ballot
// stored under receiptID.
func (r *Recorder) ConfirmReceipt(ctx context.Context, sessionID, receiptID, code string) (bool, error) {
	entry, err := r.ledger.EntryByReceipt(ctx, sessionID, receiptID)
	if err != nil {
		return false, err
	}
	return vote.VerifyVoteByCode(entry.VerificationCode, code), nil
}

// Snapshot builds a pack index over the session's chain, one artifact per
// ballot in chain order with the audit hash as artifact hash. Sealing it
// freezes the chain as of its current tail. The returned report describes
// exactly the entries in the pack.
func (r *Recorder) Snapshot(ctx context.Context, sessionID string) (interfaces.PackIndex, interfaces.ChainReport, error) {
	entries, err := r.ledger.Entries(ctx, sessionID)
	if err != nil {
		return interfaces.PackIndex{}, interfaces.ChainReport{}, err
	}

	report := vote.VerifyChain(entries)

	var pack interfaces.PackIndex
	metadata := map[string]any{
		"kind":       SnapshotKind,
		"sessionId":  sessionID,
		"entries":    len(entries),
		"chainValid": report.Valid,
		"tail":       report.Tail,
	}
	for k, v := range metadata {
		if err := pack.SetMetadata(k, v); err != nil {
			return interfaces.PackIndex{}, interfaces.ChainReport{}, err
		}
	}

	pack.Artifacts = make([]interfaces.ArtifactRef, 0, len(entries))
	for _, e := range entries {
		seq, err := json.Marshal(e.Sequence)
		if err != nil {
			return interfaces.PackIndex{}, interfaces.ChainReport{}, err
		}
		receipt, err := json.Marshal(e.ReceiptID)
		if err != nil {
			return interfaces.PackIndex{}, interfaces.ChainReport{}, err
		}
		pack.Artifacts = append(pack.Artifacts, interfaces.ArtifactRef{
			SHA256: e.AuditHash,
			Fields: map[string]json.RawMessage{
				"sequence":  seq,
				"receiptId": receipt,
			},
		})
	}
	return pack, report, nil
}
