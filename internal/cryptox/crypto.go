// Package cryptox implements the cryptographic primitives the blob store is
// built on: AES-GCM authenticated encryption with per-message random nonces,
// SHA-256 content hashing for content addressing, and argon2id master-key
// derivation for the unlock flow.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"fmt"

	"github.com/tearleads/rapidvault/internal/common"
	"golang.org/x/crypto/argon2"
)

// NonceSize is the AES-GCM nonce length in bytes.
const NonceSize = 12

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

// ContentHash returns the SHA-256 digest of the plaintext payload. Identical
// payloads always produce identical digests, which is what makes the store's
// content addressing and dedup work.
func ContentHash(plaintext []byte) []byte {
	h := sha256.Sum256(plaintext)
	return h[:]
}

// MakeVerifier returns a hash of the master key that can be persisted and
// compared on a later unlock without storing the key itself.
func MakeVerifier(masterKey []byte) []byte {
	hash := sha256.Sum256(masterKey)
	return hash[:]
}

// DeriveMasterKey derives an AES-256 key from a passphrase and a per-instance
// salt using argon2id.
func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, KeySize)
}

// Encrypt seals the plaintext under the given AES key with a freshly
// generated random nonce. The ciphertext and nonce are returned separately;
// callers persist both and must supply the same nonce to Decrypt.
//
// The key must be a valid AES key length (16, 24, or 32 bytes).
func Encrypt(plaintext, key []byte) (ciphertext, nonce []byte, err error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, fmt.Errorf("new cipher: %w", err)
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, fmt.Errorf("new gcm: %w", err)
	}

	nonce = common.GenerateRandByteArray(aesgcm.NonceSize())
	ciphertext = aesgcm.Seal(nil, nonce, plaintext, nil)

	return ciphertext, nonce, nil
}

// Decrypt opens ciphertext produced by Encrypt. The key and nonce must be
// the ones used at encryption time. Authentication failure (wrong key,
// corrupted ciphertext, wrong nonce) is reported as
// common.ErrDecryptionFailed so callers can distinguish it from I/O errors
// with errors.Is.
func Decrypt(ciphertext, nonce, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDecryptionFailed, err)
	}

	// Open returns nil for an empty message; keep the round-trip byte-equal.
	if plaintext == nil {
		plaintext = []byte{}
	}

	return plaintext, nil
}
