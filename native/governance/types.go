package governance

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"ideacapital/core/types"
)

// Kind tags governor instances in the contract registry.
const Kind = "governor"

// DefaultProposalThreshold is the reputation balance required to open a
// proposal when none is configured: 100 whole REP.
var DefaultProposalThreshold = types.Units(100, types.TokenDecimals)

// Governor is the persisted header of a governance instance.
type Governor struct {
	Address           common.Address
	Owner             common.Address
	ReputationToken   common.Address
	ProposalThreshold *big.Int
	NextProposalID    uint64
	CreatedAt         uint64
}

// Proposal is a text proposal and its running tally.
type Proposal struct {
	ID           uint64
	Proposer     common.Address
	Text         string
	CreatedAt    uint64
	VotesFor     *big.Int
	VotesAgainst *big.Int
}

func (p *Proposal) normalize() {
	if p.VotesFor == nil {
		p.VotesFor = big.NewInt(0)
	}
	if p.VotesAgainst == nil {
		p.VotesAgainst = big.NewInt(0)
	}
}

// Vote is the receipt of a cast ballot.
type Vote struct {
	ProposalID uint64
	Voter      common.Address
	Support    bool
	Weight     *big.Int
}
