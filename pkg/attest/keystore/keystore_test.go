package keystore

import (
	"crypto/ed25519"
	"testing"

	"github.com/cosmos/go-bip39"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test mnemonic (DO NOT use in production).
const testMnemonic = "notice oak worry limit wrap speak medal online prefer cluster roof addict wrist behave treat actual wasp year salad speed social layer crew genius"

func TestFromMnemonic_ValidMnemonic(t *testing.T) {
	ks, err := FromMnemonic(testMnemonic, 0)
	require.NoError(t, err, "FromMnemonic should not return error")
	require.NotNil(t, ks, "Keystore should not be nil")

	assert.Len(t, ks.PublicKey(), ed25519.PublicKeySize, "Public key should be 32 bytes")
	assert.NotEmpty(t, ks.Address(), "Address should not be empty")
}

func TestFromMnemonic_InvalidMnemonic(t *testing.T) {
	_, err := FromMnemonic("definitely not a mnemonic", 0)
	require.ErrorIs(t, err, ErrInvalidMnemonic)
}

func TestFromMnemonic_DeterministicKeys(t *testing.T) {
	ks1, err := FromMnemonic(testMnemonic, 0)
	require.NoError(t, err)
	ks2, err := FromMnemonic(testMnemonic, 0)
	require.NoError(t, err)

	assert.Equal(t, ks1.PublicKey(), ks2.PublicKey(),
		"Same mnemonic should produce same public key")
	assert.Equal(t, ks1.Address(), ks2.Address(),
		"Same mnemonic should produce same address")

	testMsg := []byte("test message")
	sig1, err := ks1.Sign(testMsg)
	require.NoError(t, err)
	sig2, err := ks2.Sign(testMsg)
	require.NoError(t, err)
	assert.Equal(t, sig1, sig2, "Same mnemonic should produce same signatures")
}

func TestFromMnemonic_DifferentMnemonics(t *testing.T) {
	other, err := generateTestMnemonic()
	require.NoError(t, err)

	ks1, err := FromMnemonic(testMnemonic, 0)
	require.NoError(t, err)
	ks2, err := FromMnemonic(other, 0)
	require.NoError(t, err)

	assert.NotEqual(t, ks1.Address(), ks2.Address(),
		"Different mnemonics should produce different addresses")
}

func TestFromMnemonic_AccountIndexes(t *testing.T) {
	ks0, err := FromMnemonic(testMnemonic, 0)
	require.NoError(t, err)
	ks1, err := FromMnemonic(testMnemonic, 1)
	require.NoError(t, err)

	assert.NotEqual(t, ks0.Address(), ks1.Address(),
		"Different account indexes should produce different addresses")
}

func TestKeystore_Sign(t *testing.T) {
	ks, err := FromMnemonic(testMnemonic, 0)
	require.NoError(t, err)

	testMsg := []byte("test message to sign")
	signature, err := ks.Sign(testMsg)
	require.NoError(t, err, "Signing should not return error")
	require.Len(t, signature, ed25519.SignatureSize)

	valid := ed25519.Verify(ed25519.PublicKey(ks.PublicKey()), testMsg, signature)
	assert.True(t, valid, "Signature should be valid")
}

func TestKeystore_PublicKeyIsCopy(t *testing.T) {
	ks, err := FromMnemonic(testMnemonic, 0)
	require.NoError(t, err)

	pub := ks.PublicKey()
	pub[0] ^= 0xFF
	assert.NotEqual(t, pub, ks.PublicKey(), "Mutating the returned key must not affect the keystore")
}

// Helper function to generate a random test mnemonic.
func generateTestMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

func BenchmarkFromMnemonic(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := FromMnemonic(testMnemonic, 0); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSign(b *testing.B) {
	ks, err := FromMnemonic(testMnemonic, 0)
	require.NoError(b, err)
	testMsg := []byte("test message to sign")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ks.Sign(testMsg); err != nil {
			b.Fatal(err)
		}
	}
}
