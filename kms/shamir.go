package kms

import (
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/vault/shamir"
	"github.com/ruteri/evidence-seal/cryptoutils"
)

// MinSealKeyLength is the shortest seal key accepted for escrow.
const MinSealKeyLength = 16

var ErrNotEnoughShares = errors.New("not enough shares to reconstruct the key")

// SplitKey splits a seal key into shares, any threshold of which reconstruct it.
// The shares are meant to be handed to separate custodians.
func SplitKey(key []byte, shares, threshold int) ([][]byte, error) {
	if len(key) < MinSealKeyLength {
		return nil, fmt.Errorf("seal key must be at least %d bytes", MinSealKeyLength)
	}

	if threshold < 2 {
		return nil, errors.New("threshold must be at least 2")
	}

	if shares < threshold {
		return nil, errors.New("total shares must be at least equal to threshold")
	}

	parts, err := shamir.Split(key, shares, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to split seal key: %w", err)
	}
	return parts, nil
}

// CombineShares reconstructs a seal key from at least threshold shares.
// Combining fewer shares than the threshold yields a wrong key, not an error,
// so callers should check the result against a known key ID.
func CombineShares(shares [][]byte) ([]byte, error) {
	if len(shares) < 2 {
		return nil, ErrNotEnoughShares
	}

	key, err := shamir.Combine(shares)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct seal key: %w", err)
	}
	return key, nil
}

// ShareCollector gathers custodian shares until the threshold is reached and
// then reconstructs the seal key. Received shares are wiped after use.
type ShareCollector struct {
	mu             sync.Mutex
	threshold      int
	expectedKeyID  string
	receivedShares map[string][]byte
	key            []byte
}

// NewShareCollector creates a collector. When expectedKeyID is set, the
// reconstructed key must match it.
func NewShareCollector(threshold int, expectedKeyID string) *ShareCollector {
	return &ShareCollector{
		threshold:      threshold,
		expectedKeyID:  expectedKeyID,
		receivedShares: make(map[string][]byte),
	}
}

// Submit adds a share. It returns true once the key has been reconstructed.
func (c *ShareCollector) Submit(share []byte) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.key != nil {
		return true, errors.New("seal key already reconstructed")
	}
	if len(share) < 2 {
		return false, errors.New("share is too short")
	}

	c.receivedShares[string(share)] = append([]byte(nil), share...)
	if len(c.receivedShares) < c.threshold {
		return false, nil
	}

	shares := make([][]byte, 0, len(c.receivedShares))
	for _, s := range c.receivedShares {
		shares = append(shares, s)
	}

	key, err := CombineShares(shares)
	c.reset()
	if err != nil {
		return false, err
	}

	if c.expectedKeyID != "" && cryptoutils.KeyID(key) != c.expectedKeyID {
		wipeBytes(key)
		return false, errors.New("reconstructed key does not match the expected key ID")
	}

	c.key = key
	return true, nil
}

// Keyring returns a keyring with the reconstructed key as active key and
// retired as verification-only keys.
func (c *ShareCollector) Keyring(retired ...[]byte) (*Keyring, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.key == nil {
		return nil, ErrNotEnoughShares
	}
	return NewKeyring(c.key, retired...), nil
}

func (c *ShareCollector) reset() {
	for k, s := range c.receivedShares {
		wipeBytes(s)
		delete(c.receivedShares, k)
	}
}

// Securely wipe data from memory
func wipeBytes(data []byte) {
	for i := range data {
		data[i] = 0
	}
}
