package ledger

import (
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// accountLen is the raw byte length of ledger accounts and contract ids.
const accountLen = 32

// ValidateAccount checks that an account or contract id is well formed:
// base58, 32 bytes, and a canonical ed25519 curve point.
func ValidateAccount(account string) error {
	if account == "" {
		return fmt.Errorf("%w: empty", ErrInvalidAccount)
	}
	raw, err := base58.Decode(account)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAccount, err)
	}
	if len(raw) != accountLen {
		return fmt.Errorf("%w: %d bytes, want %d", ErrInvalidAccount, len(raw), accountLen)
	}
	if !isOnCurve(raw) {
		return fmt.Errorf("%w: not on curve", ErrInvalidAccount)
	}
	return nil
}

func isOnCurve(point []byte) bool {
	if len(point) != accountLen {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}
