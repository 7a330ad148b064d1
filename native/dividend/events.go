package dividend

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"ideacapital/core/types"
)

const (
	EventTypeDeployed        = "dividend.deployed"
	EventTypeNewDistribution = "dividend.new_distribution"
	EventTypeDividendClaimed = "dividend.claimed"
)

func DeployedEvent(v *Vault) *types.Event {
	return &types.Event{
		Type: EventTypeDeployed,
		Attributes: map[string]string{
			"vault":       v.Address.Hex(),
			"owner":       v.Owner.Hex(),
			"payoutToken": v.PayoutToken.Hex(),
		},
	}
}

func NewDistributionEvent(vault common.Address, epoch uint64, root common.Hash, total *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeNewDistribution,
		Attributes: map[string]string{
			"vault":       vault.Hex(),
			"epoch":       strconv.FormatUint(epoch, 10),
			"root":        root.Hex(),
			"totalAmount": types.FormatAmount(total),
		},
	}
}

func DividendClaimedEvent(vault common.Address, epoch uint64, claimant common.Address, amount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeDividendClaimed,
		Attributes: map[string]string{
			"vault":    vault.Hex(),
			"epoch":    strconv.FormatUint(epoch, 10),
			"claimant": claimant.Hex(),
			"amount":   types.FormatAmount(amount),
		},
	}
}
