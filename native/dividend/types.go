package dividend

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Kind tags dividend vaults in the contract registry.
const Kind = "dividend_vault"

// Vault is the persisted header of a payout vault.
type Vault struct {
	Address      common.Address
	Owner        common.Address
	PayoutToken  common.Address
	CurrentEpoch uint64
	CreatedAt    uint64
}

// Epoch is one funded payout round.
type Epoch struct {
	Number    uint64
	Root      common.Hash
	Total     *big.Int
	Claimed   *big.Int
	Funder    common.Address
	CreatedAt uint64
}

func (e *Epoch) normalize() {
	if e.Total == nil {
		e.Total = big.NewInt(0)
	}
	if e.Claimed == nil {
		e.Claimed = big.NewInt(0)
	}
}

// Remaining returns the unclaimed part of the epoch.
func (e *Epoch) Remaining() *big.Int {
	return new(big.Int).Sub(e.Total, e.Claimed)
}
