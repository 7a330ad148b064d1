package core

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"ideacapital/native/dividend"
)

func (n *Node) DeployVault(ctx context.Context, deployer, payoutToken common.Address) (*dividend.Vault, error) {
	var out *dividend.Vault
	err := n.update(ctx, "dividend.deploy", deployer, func(x *engines) error {
		var err error
		out, err = x.dividend.Deploy(deployer, payoutToken)
		return err
	})
	return out, err
}

// CreateDistribution funds a new epoch from the caller's payout allowance.
func (n *Node) CreateDistribution(ctx context.Context, vault, caller common.Address, root common.Hash, total *big.Int) (uint64, error) {
	var epoch uint64
	err := n.update(ctx, "dividend.create_distribution", caller, func(x *engines) error {
		var err error
		epoch, err = x.dividend.CreateDistribution(vault, caller, root, total)
		return err
	})
	return epoch, err
}

func (n *Node) ClaimDividend(ctx context.Context, vault, caller common.Address, epoch uint64, amount *big.Int, proof []common.Hash) error {
	return n.update(ctx, "dividend.claim", caller, func(x *engines) error {
		return x.dividend.ClaimDividend(vault, caller, epoch, amount, proof)
	})
}

func (n *Node) Vault(ctx context.Context, vault common.Address) (*dividend.Vault, error) {
	var out *dividend.Vault
	err := n.view(ctx, func(x *engines) error {
		var err error
		out, err = x.dividend.Vault(vault)
		return err
	})
	return out, err
}

func (n *Node) Epoch(ctx context.Context, vault common.Address, epoch uint64) (*dividend.Epoch, error) {
	var out *dividend.Epoch
	err := n.view(ctx, func(x *engines) error {
		var err error
		out, err = x.dividend.Epoch(vault, epoch)
		return err
	})
	return out, err
}

func (n *Node) HasClaimed(ctx context.Context, vault common.Address, epoch uint64, account common.Address) (bool, error) {
	var out bool
	err := n.view(ctx, func(x *engines) error {
		var err error
		out, err = x.dividend.HasClaimed(vault, epoch, account)
		return err
	})
	return out, err
}
