package token

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"ideacapital/core/state"
)

// KindToken tags plain fungible ledgers in the contract registry.
const KindToken = "token"

// State is the persistence surface every ledger-backed engine needs. The
// state transaction satisfies it; engines that call into the ledger embed it
// in their own state interface.
type State interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVAppend(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
	NextContractAddress(deployer common.Address) (common.Address, error)
	RegisterContract(c *state.Contract) error
	Contract(addr common.Address) (*state.Contract, bool, error)
}

// Metadata is the stored header of a ledger instance.
type Metadata struct {
	Address      common.Address
	Name         string
	Symbol       string
	Decimals     uint8
	Owner        common.Address
	TotalSupply  *big.Int
	Transferable bool
	CreatedAt    uint64
}

// Clone returns a deep copy of the metadata.
func (m *Metadata) Clone() *Metadata {
	if m == nil {
		return nil
	}
	out := *m
	if m.TotalSupply != nil {
		out.TotalSupply = new(big.Int).Set(m.TotalSupply)
	} else {
		out.TotalSupply = big.NewInt(0)
	}
	return &out
}

// DeployParams configures a new ledger instance.
type DeployParams struct {
	Deployer     common.Address
	Owner        common.Address
	Name         string
	Symbol       string
	Decimals     uint8
	Transferable bool
	// Kind overrides the registry tag; wrappers such as the royalty token set
	// their own.
	Kind string
}
