package ipnft

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"ideacapital/core/types"
)

const (
	EventTypeDeployed    = "ipnft.deployed"
	EventTypeMinted      = "ipnft.invention_minted"
	EventTypeTransferred = "ipnft.transfer"
)

func DeployedEvent(r *Registry) *types.Event {
	return &types.Event{
		Type: EventTypeDeployed,
		Attributes: map[string]string{
			"registry": r.Address.Hex(),
			"owner":    r.Owner.Hex(),
		},
	}
}

func InventionMintedEvent(registry common.Address, inv *Invention) *types.Event {
	return &types.Event{
		Type: EventTypeMinted,
		Attributes: map[string]string{
			"registry":     registry.Hex(),
			"tokenId":      strconv.FormatUint(inv.TokenID, 10),
			"to":           inv.Owner.Hex(),
			"pointer":      inv.MetadataPointer,
			"royaltyToken": inv.RoyaltyToken.Hex(),
		},
	}
}

func TransferEvent(registry common.Address, id uint64, from, to common.Address) *types.Event {
	return &types.Event{
		Type: EventTypeTransferred,
		Attributes: map[string]string{
			"registry": registry.Hex(),
			"tokenId":  strconv.FormatUint(id, 10),
			"from":     from.Hex(),
			"to":       to.Hex(),
		},
	}
}
