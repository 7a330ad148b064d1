package crowdsale

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Kind tags crowdsales in the contract registry.
const Kind = "crowdsale"

// Sale is the persisted funding state of one invention.
type Sale struct {
	Address       common.Address
	Owner         common.Address
	PaymentToken  common.Address
	RoyaltyToken  common.Address
	Goal          *big.Int
	MinInvestment *big.Int
	Deadline      uint64
	TotalRaised   *big.Int
	GoalReached   bool
	Finalized     bool
	InvestorCount uint64
	CreatedAt     uint64
}

func (s *Sale) normalize() {
	if s.Goal == nil {
		s.Goal = big.NewInt(0)
	}
	if s.MinInvestment == nil {
		s.MinInvestment = big.NewInt(0)
	}
	if s.TotalRaised == nil {
		s.TotalRaised = big.NewInt(0)
	}
}

// DeadlineTime returns the deadline as a time.
func (s *Sale) DeadlineTime() time.Time { return time.Unix(int64(s.Deadline), 0).UTC() }

// DeployParams configures a new crowdsale. The deployer becomes its owner and
// receives the raised funds on a successful finalize.
type DeployParams struct {
	Deployer      common.Address
	PaymentToken  common.Address
	RoyaltyToken  common.Address
	Goal          *big.Int
	MinInvestment *big.Int
	Duration      time.Duration
}

// Receipt describes the outcome of a successful investment. TokensUnminted
// is the part of the payment's token value the remaining cap could not cover.
type Receipt struct {
	Sale           common.Address
	Investor       common.Address
	Paid           *big.Int
	TokensMinted   *big.Int
	TokensUnminted *big.Int
	GoalReached    bool
}
