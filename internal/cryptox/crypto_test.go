package cryptox

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tearleads/rapidvault/internal/common"
)

func TestDeriveMasterKey_Deterministic(t *testing.T) {
	password := []byte("secret-password")
	salt := []byte("fixed-salt")

	key1 := DeriveMasterKey(password, salt)
	key2 := DeriveMasterKey(password, salt)

	require.Equal(t, key1, key2)
	assert.Len(t, key1, KeySize)

	// snapshot of a known derivation, catches parameter drift
	expectedHex := "34f7a1c64df63ab1ad5b5ee06e64db5713b35f81839823304db63e8e5e6a6a39"
	assert.Equal(t, expectedHex, hex.EncodeToString(key1))
}

func TestDeriveMasterKey_DifferentSalts(t *testing.T) {
	password := []byte("secret-password")

	key1 := DeriveMasterKey(password, []byte("salt-1"))
	key2 := DeriveMasterKey(password, []byte("salt-2"))

	assert.NotEqual(t, key1, key2)
}

func TestContentHash_Deterministic(t *testing.T) {
	p := []byte("same bytes every time")
	assert.Equal(t, ContentHash(p), ContentHash(p))
	assert.Len(t, ContentHash(p), 32)
	assert.NotEqual(t, ContentHash(p), ContentHash([]byte("other bytes")))
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	key := common.GenerateRandByteArray(KeySize)

	tests := []struct {
		name      string
		plaintext []byte
	}{
		{"short", []byte{1, 2, 3}},
		{"text", []byte("hello, vault")},
		{"binary", bytes.Repeat([]byte{0x00, 0xFF}, 4096)},
		{"empty", []byte{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ciphertext, nonce, err := Encrypt(tt.plaintext, key)
			require.NoError(t, err)
			require.Len(t, nonce, NonceSize)

			got, err := Decrypt(ciphertext, nonce, key)
			require.NoError(t, err)
			assert.NotNil(t, got)
			assert.Equal(t, tt.plaintext, got)
		})
	}
}

func TestEncrypt_FreshNoncePerCall(t *testing.T) {
	key := common.GenerateRandByteArray(KeySize)
	p := []byte("same plaintext")

	c1, n1, err := Encrypt(p, key)
	require.NoError(t, err)
	c2, n2, err := Encrypt(p, key)
	require.NoError(t, err)

	assert.NotEqual(t, n1, n2)
	assert.NotEqual(t, c1, c2)
}

func TestDecrypt_WrongKey(t *testing.T) {
	key := common.GenerateRandByteArray(KeySize)
	other := common.GenerateRandByteArray(KeySize)

	ciphertext, nonce, err := Encrypt([]byte("secret"), key)
	require.NoError(t, err)

	_, err = Decrypt(ciphertext, nonce, other)
	assert.True(t, errors.Is(err, common.ErrDecryptionFailed))
}

func TestDecrypt_CorruptedCiphertext(t *testing.T) {
	key := common.GenerateRandByteArray(KeySize)

	ciphertext, nonce, err := Encrypt([]byte("secret"), key)
	require.NoError(t, err)

	ciphertext[0] ^= 0xFF
	_, err = Decrypt(ciphertext, nonce, key)
	assert.True(t, errors.Is(err, common.ErrDecryptionFailed))
}

func TestEncrypt_InvalidKeyLength(t *testing.T) {
	_, _, err := Encrypt([]byte("x"), []byte("short-key"))
	assert.Error(t, err)
}

func TestMakeVerifier(t *testing.T) {
	key := common.GenerateRandByteArray(KeySize)
	assert.Equal(t, MakeVerifier(key), MakeVerifier(key))
	assert.Len(t, MakeVerifier(key), 32)
}
