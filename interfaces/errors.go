package interfaces

import (
	"errors"
	"fmt"
)

var (
	// ErrStaleTail is returned by an AuditLedger when the chain tail moved
	// between reading it and appending against it.
	ErrStaleTail = errors.New("audit chain tail changed concurrently")

	// ErrAlreadyVoted is returned when a pseudonym already has a vote in the session.
	ErrAlreadyVoted = errors.New("voter already cast a ballot in this session")

	// ErrSessionNotFound is returned for reads on a session that has no state.
	ErrSessionNotFound = errors.New("voting session not found")

	// ErrReceiptNotFound is returned when no chain entry carries the receipt ID.
	ErrReceiptNotFound = errors.New("vote receipt not found")

	// ErrUnsealedPack is returned when persisting a pack that carries no seal.
	ErrUnsealedPack = errors.New("pack has no seal")
)

// MalformedHashError reports an artifact hash that is not 64 hex characters.
type MalformedHashError struct {
	Index int
	Value string
}

func (e *MalformedHashError) Error() string {
	return fmt.Sprintf("malformed sha256 hash at index %d: %q", e.Index, e.Value)
}

// MissingArtifactHashError reports an artifact entry without a sha256 field.
type MissingArtifactHashError struct {
	Index int
}

func (e *MissingArtifactHashError) Error() string {
	return fmt.Sprintf("artifact at index %d has no sha256", e.Index)
}

// InvalidVoteInputError reports an empty required vote input.
type InvalidVoteInputError struct {
	Field string
}

func (e *InvalidVoteInputError) Error() string {
	return fmt.Sprintf("invalid vote input: %s is required", e.Field)
}
