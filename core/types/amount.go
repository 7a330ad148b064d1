package types

import (
	"math/big"
	"strings"

	"github.com/holiman/uint256"

	protoerrors "ideacapital/core/errors"
)

const (
	// StableDecimals is the scale of the stable-value payment ledger.
	StableDecimals uint8 = 6
	// TokenDecimals is the scale of royalty and reputation balances.
	TokenDecimals uint8 = 18
)

// ValidateAmount rejects nil, negative and values wider than 256 bits.
func ValidateAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return protoerrors.ErrInvalidAmount
	}
	if _, overflow := uint256.FromBig(amount); overflow {
		return protoerrors.ErrInvalidAmount
	}
	return nil
}

// ParseAmount decodes a base-unit decimal string.
func ParseAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, protoerrors.ErrMissingField
	}
	value, err := uint256.FromDecimal(trimmed)
	if err != nil {
		return nil, protoerrors.ErrInvalidAmount
	}
	return value.ToBig(), nil
}

// FormatAmount renders nil as "0".
func FormatAmount(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.String()
}

// Units scales a whole number into base units, e.g. Units(50, 18).
func Units(whole int64, decimals uint8) *big.Int {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return scale.Mul(scale, big.NewInt(whole))
}

// CloneAmount returns a defensive copy, mapping nil to zero.
func CloneAmount(amount *big.Int) *big.Int {
	if amount == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(amount)
}
