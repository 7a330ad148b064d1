package governance

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"ideacapital/core/types"
)

const (
	EventTypeDeployed        = "governance.deployed"
	EventTypeProposalCreated = "governance.proposal_created"
	EventTypeVoted           = "governance.voted"
	EventTypeDelegated       = "governance.delegated"
)

func DeployedEvent(g *Governor) *types.Event {
	return &types.Event{
		Type: EventTypeDeployed,
		Attributes: map[string]string{
			"governor":   g.Address.Hex(),
			"owner":      g.Owner.Hex(),
			"reputation": g.ReputationToken.Hex(),
			"threshold":  types.FormatAmount(g.ProposalThreshold),
		},
	}
}

func ProposalCreatedEvent(gov common.Address, p *Proposal) *types.Event {
	return &types.Event{
		Type: EventTypeProposalCreated,
		Attributes: map[string]string{
			"governor":  gov.Hex(),
			"id":        strconv.FormatUint(p.ID, 10),
			"proposer":  p.Proposer.Hex(),
			"text":      p.Text,
			"timestamp": strconv.FormatUint(p.CreatedAt, 10),
		},
	}
}

func VotedEvent(gov common.Address, id uint64, voter common.Address, support bool, weight *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeVoted,
		Attributes: map[string]string{
			"governor": gov.Hex(),
			"id":       strconv.FormatUint(id, 10),
			"voter":    voter.Hex(),
			"support":  strconv.FormatBool(support),
			"weight":   types.FormatAmount(weight),
		},
	}
}

func DelegatedEvent(gov, from, to common.Address) *types.Event {
	return &types.Event{
		Type: EventTypeDelegated,
		Attributes: map[string]string{
			"governor": gov.Hex(),
			"from":     from.Hex(),
			"to":       to.Hex(),
		},
	}
}
