package core

import (
	"context"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"ideacapital/native/token"
)

// DeployToken creates a plain fungible ledger, such as the stable payment
// token.
func (n *Node) DeployToken(ctx context.Context, params token.DeployParams) (*token.Metadata, error) {
	var out *token.Metadata
	err := n.update(ctx, "token.deploy", params.Deployer, func(x *engines) error {
		var err error
		out, err = x.ledger.Deploy(params)
		return err
	})
	return out, err
}

// MintTokens issues amount of tok to to. Owner only.
func (n *Node) MintTokens(ctx context.Context, tok, caller, to common.Address, amount *big.Int) error {
	return n.update(ctx, "token.mint", caller, func(x *engines) error {
		return x.ledger.Mint(tok, caller, to, amount)
	})
}

func (n *Node) Transfer(ctx context.Context, tok, from, to common.Address, amount *big.Int) error {
	return n.update(ctx, "token.transfer", from, func(x *engines) error {
		return x.ledger.Transfer(tok, from, to, amount)
	})
}

func (n *Node) Approve(ctx context.Context, tok, owner, spender common.Address, amount *big.Int) error {
	return n.update(ctx, "token.approve", owner, func(x *engines) error {
		return x.ledger.Approve(tok, owner, spender, amount)
	})
}

func (n *Node) TransferFrom(ctx context.Context, tok, spender, from, to common.Address, amount *big.Int) error {
	return n.update(ctx, "token.transfer_from", spender, func(x *engines) error {
		return x.ledger.TransferFrom(tok, spender, from, to, amount)
	})
}

// Burn destroys amount of holder's balance. Royalty tokens stay burnable
// after their distribution is finalized.
func (n *Node) Burn(ctx context.Context, tok, holder common.Address, amount *big.Int) error {
	return n.update(ctx, "token.burn", holder, func(x *engines) error {
		return x.ledger.Burn(tok, holder, amount)
	})
}

func (n *Node) Token(ctx context.Context, tok common.Address) (*token.Metadata, error) {
	var out *token.Metadata
	err := n.view(ctx, func(x *engines) error {
		var err error
		out, err = x.ledger.Token(tok)
		return err
	})
	return out, err
}

func (n *Node) BalanceOf(ctx context.Context, tok, holder common.Address) (*big.Int, error) {
	var out *big.Int
	err := n.view(ctx, func(x *engines) error {
		var err error
		out, err = x.ledger.BalanceOf(tok, holder)
		return err
	})
	return out, err
}

func (n *Node) Allowance(ctx context.Context, tok, owner, spender common.Address) (*big.Int, error) {
	var out *big.Int
	err := n.view(ctx, func(x *engines) error {
		var err error
		out, err = x.ledger.Allowance(tok, owner, spender)
		return err
	})
	return out, err
}

// Holding is one account's balance of a token.
type Holding struct {
	Account common.Address
	Balance *big.Int
}

// Holdings returns the non-zero balances of tok held by accounts that are not
// protocol contracts, ordered by address. Balances parked in a crowdsale or a
// marketplace escrow are excluded.
func (n *Node) Holdings(ctx context.Context, tok common.Address) ([]Holding, error) {
	var out []Holding
	err := n.view(ctx, func(x *engines) error {
		holders, err := x.ledger.Holders(tok)
		if err != nil {
			return err
		}
		for _, holder := range holders {
			if _, isContract, err := x.tx.Contract(holder); err != nil {
				return err
			} else if isContract {
				continue
			}
			balance, err := x.ledger.BalanceOf(tok, holder)
			if err != nil {
				return err
			}
			if balance.Sign() == 0 {
				continue
			}
			out = append(out, Holding{Account: holder, Balance: balance})
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		return out[i].Account.Cmp(out[j].Account) < 0
	})
	return out, err
}
