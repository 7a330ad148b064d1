package token

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

func metaKey(token common.Address) []byte {
	return append([]byte("token/meta/"), token.Bytes()...)
}

func balanceKey(token, holder common.Address) []byte {
	key := append([]byte("token/balance/"), token.Bytes()...)
	return append(key, holder.Bytes()...)
}

func allowanceKey(token, owner, spender common.Address) []byte {
	key := append([]byte("token/allowance/"), token.Bytes()...)
	key = append(key, owner.Bytes()...)
	return append(key, spender.Bytes()...)
}

func holdersKey(token common.Address) []byte {
	return append([]byte("token/holders/"), token.Bytes()...)
}

func (e *Engine) loadMeta(token common.Address) (*Metadata, bool, error) {
	var meta Metadata
	ok, err := e.state.KVGet(metaKey(token), &meta)
	if err != nil || !ok {
		return nil, ok, err
	}
	if meta.TotalSupply == nil {
		meta.TotalSupply = big.NewInt(0)
	}
	return &meta, true, nil
}

func (e *Engine) storeMeta(meta *Metadata) error {
	return e.state.KVPut(metaKey(meta.Address), meta)
}

func (e *Engine) loadAmount(key []byte) (*big.Int, error) {
	amount := new(big.Int)
	ok, err := e.state.KVGet(key, amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return amount, nil
}

func (e *Engine) setBalance(token, holder common.Address, amount *big.Int) error {
	if err := e.state.KVPut(balanceKey(token, holder), amount); err != nil {
		return err
	}
	if amount.Sign() > 0 {
		return e.state.KVAppend(holdersKey(token), holder.Bytes())
	}
	return nil
}
