package attest

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/shopspring/decimal"
)

// PriceDecimals is the fixed-point scale used on chain. A price of 100.01
// is carried as 1000100000.
const PriceDecimals = 7

// symbolLenMax bounds the length-prefixed symbol field in the canonical
// encoding.
const symbolLenMax = 0xFFFF

// ScalePrice converts a decimal price to its fixed-point integer form,
// rounding half away from zero at PriceDecimals places.
func ScalePrice(price decimal.Decimal) (int64, error) {
	if !price.IsPositive() {
		return 0, fmt.Errorf("%w: %s", ErrNonPositivePrice, price)
	}
	scaled := price.Round(PriceDecimals).Shift(PriceDecimals)
	bi := scaled.BigInt()
	if !bi.IsInt64() {
		return 0, fmt.Errorf("%w: %s", ErrPriceOverflow, price)
	}
	return bi.Int64(), nil
}

// UnscalePrice is the inverse of ScalePrice.
func UnscalePrice(scaled int64) decimal.Decimal {
	return decimal.New(scaled, -PriceDecimals)
}

// EncodeCommitmentInput produces the canonical byte encoding hashed into a
// commitment. Layout, all integers big-endian:
//
//	uint16  symbol length
//	bytes   symbol
//	int64   scaled price
//	int64   unix timestamp (seconds)
//	uint64  nonce
//
// The same inputs always yield the same bytes, so commitments are
// reproducible by any party holding the attested values.
func EncodeCommitmentInput(symbol string, scaledPrice int64, timestamp int64, nonce uint64) ([]byte, error) {
	if symbol == "" {
		return nil, ErrMissingSymbol
	}
	if len(symbol) > symbolLenMax {
		return nil, fmt.Errorf("%w: %d bytes", ErrSymbolTooLong, len(symbol))
	}
	buf := make([]byte, 0, 2+len(symbol)+8+8+8)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(symbol)))
	buf = append(buf, symbol...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(scaledPrice))
	buf = binary.BigEndian.AppendUint64(buf, uint64(timestamp))
	buf = binary.BigEndian.AppendUint64(buf, nonce)
	return buf, nil
}

// CommitmentDigest hashes the canonical encoding with SHA-256.
func CommitmentDigest(symbol string, scaledPrice int64, timestamp int64, nonce uint64) ([32]byte, error) {
	input, err := EncodeCommitmentInput(symbol, scaledPrice, timestamp, nonce)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(input), nil
}

// CommitmentHex returns the upper-hex form of the commitment digest, the
// representation used for ledger records and logs.
func CommitmentHex(symbol string, scaledPrice int64, timestamp int64, nonce uint64) (string, error) {
	digest, err := CommitmentDigest(symbol, scaledPrice, timestamp, nonce)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%X", digest), nil
}
