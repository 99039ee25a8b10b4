// Package keystore derives attestation signing keys from BIP39 mnemonics.
package keystore

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cosmos/go-bip39"
	"github.com/mr-tron/base58"

	"tc.com/price-attestor/pkg/attest"
)

// Derivation follows SLIP-0010 for ed25519 along m/44'/148'/account', so a
// mnemonic yields the same keys here as in ecosystem wallets.
const (
	purposeIndex  = 44
	coinTypeIndex = 148

	hardenedOffset = 0x80000000
)

var masterKeySalt = []byte("ed25519 seed")

// ErrInvalidMnemonic indicates the mnemonic fails BIP39 checksum or wordlist
// validation.
var ErrInvalidMnemonic = errors.New("invalid mnemonic")

var _ attest.Signer = (*Keystore)(nil)

// Keystore holds one derived ed25519 signing key. It never exposes the
// private key; signing is the only operation.
type Keystore struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// FromMnemonic derives the signing key at the given account index.
func FromMnemonic(mnemonic string, account uint32) (*Keystore, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	seed := bip39.NewSeed(mnemonic, "")

	key, err := deriveKey(seed, []uint32{purposeIndex, coinTypeIndex, account})
	if err != nil {
		return nil, fmt.Errorf("derive signing key: %w", err)
	}

	priv := ed25519.NewKeyFromSeed(key)
	return &Keystore{
		priv: priv,
		pub:  priv.Public().(ed25519.PublicKey),
	}, nil
}

// Sign produces a detached ed25519 signature over msg.
func (k *Keystore) Sign(msg []byte) ([]byte, error) {
	return ed25519.Sign(k.priv, msg), nil
}

// PublicKey returns a copy of the raw 32-byte public key.
func (k *Keystore) PublicKey() []byte {
	pub := make([]byte, len(k.pub))
	copy(pub, k.pub)
	return pub
}

// Address is the base58 form of the public key, used to identify the signer
// in logs and publication records.
func (k *Keystore) Address() string {
	return base58.Encode(k.pub)
}

// deriveKey walks a hardened SLIP-0010 path from the master seed. Every
// segment is hardened; ed25519 derivation has no non-hardened form.
func deriveKey(seed []byte, path []uint32) ([]byte, error) {
	if len(seed) == 0 {
		return nil, errors.New("empty seed")
	}

	mac := hmac.New(sha512.New, masterKeySalt)
	mac.Write(seed)
	sum := mac.Sum(nil)
	key, chainCode := sum[:32], sum[32:]

	for _, segment := range path {
		var data [37]byte
		copy(data[1:33], key)
		binary.BigEndian.PutUint32(data[33:], segment|hardenedOffset)

		mac = hmac.New(sha512.New, chainCode)
		mac.Write(data[:])
		sum = mac.Sum(nil)
		key, chainCode = sum[:32], sum[32:]
	}

	return key, nil
}
