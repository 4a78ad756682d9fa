// Package keyring holds the per-instance master key while a vault is
// unlocked. Exactly one key is current at a time; the unlock/lock flow is
// the only writer, every store operation is a reader.
package keyring

import (
	"sync"

	"github.com/tearleads/rapidvault/internal/common"
)

// Keyring owns the currently-unlocked master key and the identifier of the
// instance it belongs to. The zero value is a locked keyring.
type Keyring struct {
	mu         sync.RWMutex
	key        []byte
	instanceID string
}

func New() *Keyring {
	return &Keyring{}
}

// Unlock installs the key for the given instance. Any previously held key
// material is wiped first.
func (k *Keyring) Unlock(key []byte, instanceID string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	common.WipeByteArray(k.key)
	k.key = make([]byte, len(key))
	copy(k.key, key)
	k.instanceID = instanceID
}

// Lock wipes the key material and returns the keyring to the locked state.
func (k *Keyring) Lock() {
	k.mu.Lock()
	defer k.mu.Unlock()

	common.WipeByteArray(k.key)
	k.key = nil
	k.instanceID = ""
}

// IsUnlocked reports whether a key is currently installed.
func (k *Keyring) IsUnlocked() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.key != nil
}

// CurrentKey returns a copy of the active master key, or
// common.ErrNotUnlocked when the keyring is locked. The copy stays valid
// across a later Lock; callers handling long-lived copies should wipe them
// when done.
func (k *Keyring) CurrentKey() ([]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.key == nil {
		return nil, common.ErrNotUnlocked
	}

	key := make([]byte, len(k.key))
	copy(key, k.key)
	return key, nil
}

// InstanceID returns the identifier of the unlocked instance, or
// common.ErrNotUnlocked when locked.
func (k *Keyring) InstanceID() (string, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.key == nil {
		return "", common.ErrNotUnlocked
	}
	return k.instanceID, nil
}
