package crowdsale

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"ideacapital/core/types"
)

const (
	EventTypeDeployed    = "crowdsale.deployed"
	EventTypeInvestment  = "crowdsale.investment"
	EventTypeGoalReached = "crowdsale.goal_reached"
	EventTypeFinalized   = "crowdsale.finalized"
	EventTypeRefunded    = "crowdsale.refunded"
)

func DeployedEvent(s *Sale) *types.Event {
	return &types.Event{
		Type: EventTypeDeployed,
		Attributes: map[string]string{
			"sale":          s.Address.Hex(),
			"owner":         s.Owner.Hex(),
			"paymentToken":  s.PaymentToken.Hex(),
			"royaltyToken":  s.RoyaltyToken.Hex(),
			"goal":          types.FormatAmount(s.Goal),
			"minInvestment": types.FormatAmount(s.MinInvestment),
			"deadline":      strconv.FormatUint(s.Deadline, 10),
		},
	}
}

// InvestmentEvent records a contribution. A non-zero unminted amount is the
// share the royalty cap could no longer cover.
func InvestmentEvent(sale, investor common.Address, usdcAmount, tokenAmount, unminted *big.Int) *types.Event {
	attrs := map[string]string{
		"sale":        sale.Hex(),
		"investor":    investor.Hex(),
		"usdcAmount":  types.FormatAmount(usdcAmount),
		"tokenAmount": types.FormatAmount(tokenAmount),
	}
	if unminted != nil && unminted.Sign() > 0 {
		attrs["tokensUnminted"] = types.FormatAmount(unminted)
	}
	return &types.Event{Type: EventTypeInvestment, Attributes: attrs}
}

func GoalReachedEvent(sale common.Address, totalRaised *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeGoalReached,
		Attributes: map[string]string{
			"sale":        sale.Hex(),
			"totalRaised": types.FormatAmount(totalRaised),
		},
	}
}

func FinalizedEvent(sale common.Address, goalReached bool, totalRaised *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeFinalized,
		Attributes: map[string]string{
			"sale":        sale.Hex(),
			"goalReached": strconv.FormatBool(goalReached),
			"totalRaised": types.FormatAmount(totalRaised),
		},
	}
}

func RefundedEvent(sale, investor common.Address, amount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeRefunded,
		Attributes: map[string]string{
			"sale":     sale.Hex(),
			"investor": investor.Hex(),
			"amount":   types.FormatAmount(amount),
		},
	}
}
