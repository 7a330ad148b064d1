package royalty

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"ideacapital/native/token"
)

// Kind tags royalty ledgers in the contract registry.
const Kind = "royalty"

const (
	RoleInvestor = "investor"
	RoleInventor = "inventor"
)

// Terms holds the royalty-specific state layered on top of the ledger.
type Terms struct {
	Token                 common.Address
	MaxSupply             *big.Int
	DistributionFinalized bool
	IPNFTTokenID          uint64
}

// Info is the combined view returned to callers.
type Info struct {
	*token.Metadata
	MaxSupply             *big.Int
	DistributionFinalized bool
	IPNFTTokenID          uint64
}

// CreateParams configures a new royalty token.
type CreateParams struct {
	Deployer     common.Address
	Name         string
	Symbol       string
	IPNFTTokenID uint64
	MaxSupply    *big.Int
}
