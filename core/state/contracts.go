package state

import (
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Contract describes a deployed protocol instance.
type Contract struct {
	Address   common.Address
	Kind      string
	Deployer  common.Address
	CreatedAt uint64
}

func nonceKey(deployer common.Address) []byte {
	return append([]byte("contracts/nonce/"), deployer.Bytes()...)
}

func contractKey(addr common.Address) []byte {
	return append([]byte("contracts/record/"), addr.Bytes()...)
}

func contractIndexKey(kind string) []byte {
	return []byte("contracts/index/" + kind)
}

// NextContractAddress derives the address of the deployer's next instance
// the same way account-nonce chains do, keccak256(rlp(deployer, nonce))[12:],
// and advances the nonce.
func (tx *Tx) NextContractAddress(deployer common.Address) (common.Address, error) {
	var nonce uint64
	if _, err := tx.KVGet(nonceKey(deployer), &nonce); err != nil {
		return common.Address{}, err
	}
	addr := ethcrypto.CreateAddress(deployer, nonce)
	if err := tx.KVPut(nonceKey(deployer), nonce+1); err != nil {
		return common.Address{}, err
	}
	return addr, nil
}

// RegisterContract records the instance and indexes it by kind.
func (tx *Tx) RegisterContract(c *Contract) error {
	if err := tx.KVPut(contractKey(c.Address), c); err != nil {
		return err
	}
	return tx.KVAppend(contractIndexKey(c.Kind), c.Address.Bytes())
}

// Contract loads an instance record.
func (tx *Tx) Contract(addr common.Address) (*Contract, bool, error) {
	var c Contract
	ok, err := tx.KVGet(contractKey(addr), &c)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &c, true, nil
}

// ContractsOfKind lists deployed instances of kind in deployment order.
func (tx *Tx) ContractsOfKind(kind string) ([]common.Address, error) {
	var raw [][]byte
	if err := tx.KVGetList(contractIndexKey(kind), &raw); err != nil {
		return nil, err
	}
	out := make([]common.Address, 0, len(raw))
	for _, b := range raw {
		out = append(out, common.BytesToAddress(b))
	}
	return out, nil
}
