package token

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"ideacapital/core/types"
)

const (
	// EventTypeDeployed is emitted when a ledger instance is created.
	EventTypeDeployed = "token.deployed"
	// EventTypeTransfer is emitted for every balance movement, including
	// mints (from the zero address) and burns (to the zero address).
	EventTypeTransfer = "token.transfer"
	// EventTypeApproval is emitted when an allowance is set.
	EventTypeApproval = "token.approval"
	// EventTypeOwnershipTransferred is emitted when mint authority moves.
	EventTypeOwnershipTransferred = "token.ownership"
)

func DeployedEvent(meta *Metadata) *types.Event {
	return &types.Event{
		Type: EventTypeDeployed,
		Attributes: map[string]string{
			"token":        meta.Address.Hex(),
			"name":         meta.Name,
			"symbol":       meta.Symbol,
			"decimals":     strconv.Itoa(int(meta.Decimals)),
			"owner":        meta.Owner.Hex(),
			"transferable": strconv.FormatBool(meta.Transferable),
		},
	}
}

func TransferEvent(token, from, to common.Address, amount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeTransfer,
		Attributes: map[string]string{
			"token":  token.Hex(),
			"from":   from.Hex(),
			"to":     to.Hex(),
			"amount": types.FormatAmount(amount),
		},
	}
}

func ApprovalEvent(token, owner, spender common.Address, amount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeApproval,
		Attributes: map[string]string{
			"token":   token.Hex(),
			"owner":   owner.Hex(),
			"spender": spender.Hex(),
			"amount":  types.FormatAmount(amount),
		},
	}
}

func OwnershipTransferredEvent(token, previous, next common.Address) *types.Event {
	return &types.Event{
		Type: EventTypeOwnershipTransferred,
		Attributes: map[string]string{
			"token":         token.Hex(),
			"previousOwner": previous.Hex(),
			"newOwner":      next.Hex(),
		},
	}
}
