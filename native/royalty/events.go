package royalty

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"ideacapital/core/types"
)

const (
	// EventTypeTokensDistributed is emitted for every capped mint.
	EventTypeTokensDistributed = "royalty.tokens_distributed"
	// EventTypeDistributionFinalized is emitted once when minting closes.
	EventTypeDistributionFinalized = "royalty.distribution_finalized"
)

func TokensDistributedEvent(tok, to common.Address, amount *big.Int, role string) *types.Event {
	return &types.Event{
		Type: EventTypeTokensDistributed,
		Attributes: map[string]string{
			"token":  tok.Hex(),
			"to":     to.Hex(),
			"amount": types.FormatAmount(amount),
			"role":   role,
		},
	}
}

func DistributionFinalizedEvent(tok common.Address, totalSupply *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeDistributionFinalized,
		Attributes: map[string]string{
			"token":       tok.Hex(),
			"totalSupply": types.FormatAmount(totalSupply),
		},
	}
}
