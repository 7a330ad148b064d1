package core

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"ideacapital/native/ipnft"
	"ideacapital/native/marketplace"
)

func (n *Node) DeployMarketplace(ctx context.Context, owner, paymentToken common.Address, feeBps uint32) (*marketplace.Market, error) {
	var out *marketplace.Market
	err := n.update(ctx, "marketplace.deploy", owner, func(x *engines) error {
		var err error
		out, err = x.marketplace.Deploy(owner, paymentToken, feeBps)
		return err
	})
	return out, err
}

func (n *Node) CreateListing(ctx context.Context, market, seller, asset common.Address, amount, price *big.Int) (*marketplace.Listing, error) {
	var out *marketplace.Listing
	err := n.update(ctx, "marketplace.list", seller, func(x *engines) error {
		var err error
		out, err = x.marketplace.CreateListing(market, seller, asset, amount, price)
		return err
	})
	return out, err
}

func (n *Node) BuyListing(ctx context.Context, market, buyer common.Address, id uint64) (*marketplace.Sale, error) {
	var out *marketplace.Sale
	err := n.update(ctx, "marketplace.buy", buyer, func(x *engines) error {
		var err error
		out, err = x.marketplace.BuyListing(market, buyer, id)
		return err
	})
	return out, err
}

func (n *Node) CancelListing(ctx context.Context, market, caller common.Address, id uint64) error {
	return n.update(ctx, "marketplace.cancel", caller, func(x *engines) error {
		return x.marketplace.CancelListing(market, caller, id)
	})
}

func (n *Node) WithdrawFees(ctx context.Context, market, caller, to common.Address) (*big.Int, error) {
	var out *big.Int
	err := n.update(ctx, "marketplace.withdraw_fees", caller, func(x *engines) error {
		var err error
		out, err = x.marketplace.WithdrawFees(market, caller, to)
		return err
	})
	return out, err
}

func (n *Node) Listing(ctx context.Context, market common.Address, id uint64) (*marketplace.Listing, error) {
	var out *marketplace.Listing
	err := n.view(ctx, func(x *engines) error {
		var err error
		out, err = x.marketplace.Listing(market, id)
		return err
	})
	return out, err
}

func (n *Node) DeployRegistry(ctx context.Context, owner common.Address) (*ipnft.Registry, error) {
	var out *ipnft.Registry
	err := n.update(ctx, "ipnft.deploy", owner, func(x *engines) error {
		var err error
		out, err = x.ipnft.Deploy(owner)
		return err
	})
	return out, err
}

func (n *Node) MintInvention(ctx context.Context, registry, caller, to common.Address, pointer string, royaltyToken common.Address) (*ipnft.Invention, error) {
	var out *ipnft.Invention
	err := n.update(ctx, "ipnft.mint", caller, func(x *engines) error {
		var err error
		out, err = x.ipnft.MintInvention(registry, caller, to, pointer, royaltyToken)
		return err
	})
	return out, err
}

func (n *Node) TransferInvention(ctx context.Context, registry, caller, to common.Address, id uint64) error {
	return n.update(ctx, "ipnft.transfer", caller, func(x *engines) error {
		return x.ipnft.TransferInvention(registry, caller, to, id)
	})
}

func (n *Node) Invention(ctx context.Context, registry common.Address, id uint64) (*ipnft.Invention, error) {
	var out *ipnft.Invention
	err := n.view(ctx, func(x *engines) error {
		var err error
		out, err = x.ipnft.Invention(registry, id)
		return err
	})
	return out, err
}

func (n *Node) TokenURI(ctx context.Context, registry common.Address, id uint64) (string, error) {
	var out string
	err := n.view(ctx, func(x *engines) error {
		var err error
		out, err = x.ipnft.TokenURI(registry, id)
		return err
	})
	return out, err
}
