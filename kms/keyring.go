package kms

import (
	"sync"

	"github.com/ruteri/evidence-seal/cryptoutils"
)

// Keyring holds the HMAC seal keys known to a process. The active key signs
// new seals; retired keys are only used to verify seals made before a rotation.
// A nil or empty keyring puts the seal engine in unsigned mode.
type Keyring struct {
	mu       sync.RWMutex
	activeID string
	keys     map[string][]byte
}

// NewKeyring creates a keyring. An empty active key means no signing key.
// Empty retired keys are skipped.
func NewKeyring(active []byte, retired ...[]byte) *Keyring {
	k := &Keyring{keys: make(map[string][]byte)}
	for _, key := range retired {
		k.add(key)
	}
	if len(active) > 0 {
		k.activeID = k.add(active)
	}
	return k
}

func (k *Keyring) add(key []byte) string {
	if len(key) == 0 {
		return ""
	}
	id := cryptoutils.KeyID(key)
	k.keys[id] = append([]byte(nil), key...)
	return id
}

// Active returns the signing key and its identifier.
func (k *Keyring) Active() (key []byte, keyID string, ok bool) {
	if k == nil {
		return nil, "", false
	}
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.activeID == "" {
		return nil, "", false
	}
	return k.keys[k.activeID], k.activeID, true
}

// Lookup returns the key whose identifier is keyID, active or retired.
func (k *Keyring) Lookup(keyID string) ([]byte, bool) {
	if k == nil || keyID == "" {
		return nil, false
	}
	k.mu.RLock()
	defer k.mu.RUnlock()

	key, ok := k.keys[keyID]
	return key, ok
}

// Rotate makes key the active signing key. The previous active key stays
// available for verification.
func (k *Keyring) Rotate(key []byte) string {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.keys == nil {
		k.keys = make(map[string][]byte)
	}
	k.activeID = k.add(key)
	return k.activeID
}

// KeyIDs lists the identifiers of every key in the ring.
func (k *Keyring) KeyIDs() []string {
	if k == nil {
		return nil
	}
	k.mu.RLock()
	defer k.mu.RUnlock()

	ids := make([]string, 0, len(k.keys))
	for id := range k.keys {
		ids = append(ids, id)
	}
	return ids
}
