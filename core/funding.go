package core

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	protoerrors "ideacapital/core/errors"
	"ideacapital/core/types"
	"ideacapital/native/crowdsale"
	"ideacapital/native/royalty"
)

func (n *Node) CreateRoyaltyToken(ctx context.Context, params royalty.CreateParams) (*royalty.Info, error) {
	var out *royalty.Info
	err := n.update(ctx, "royalty.create", params.Deployer, func(x *engines) error {
		var err error
		out, err = x.royalty.Create(params)
		return err
	})
	return out, err
}

func (n *Node) MintToInvestor(ctx context.Context, tok, caller, to common.Address, amount *big.Int) error {
	return n.update(ctx, "royalty.mint_investor", caller, func(x *engines) error {
		return x.royalty.MintToInvestor(tok, caller, to, amount)
	})
}

func (n *Node) MintToInventor(ctx context.Context, tok, caller, to common.Address, amount *big.Int) error {
	return n.update(ctx, "royalty.mint_inventor", caller, func(x *engines) error {
		return x.royalty.MintToInventor(tok, caller, to, amount)
	})
}

func (n *Node) FinalizeDistribution(ctx context.Context, tok, caller common.Address) error {
	return n.update(ctx, "royalty.finalize", caller, func(x *engines) error {
		return x.royalty.FinalizeDistribution(tok, caller)
	})
}

func (n *Node) RoyaltyInfo(ctx context.Context, tok common.Address) (*royalty.Info, error) {
	var out *royalty.Info
	err := n.view(ctx, func(x *engines) error {
		var err error
		out, err = x.royalty.Info(tok)
		return err
	})
	return out, err
}

// DeployCrowdsale creates a sale. Hand mint authority over the royalty token
// to the sale before the first investment, or use LaunchCampaign.
func (n *Node) DeployCrowdsale(ctx context.Context, params crowdsale.DeployParams) (*crowdsale.Sale, error) {
	var out *crowdsale.Sale
	err := n.update(ctx, "crowdsale.deploy", params.Deployer, func(x *engines) error {
		var err error
		out, err = x.crowdsale.Deploy(params)
		return err
	})
	return out, err
}

func (n *Node) Invest(ctx context.Context, sale, investor common.Address, amount *big.Int) (*crowdsale.Receipt, error) {
	var out *crowdsale.Receipt
	err := n.update(ctx, "crowdsale.invest", investor, func(x *engines) error {
		var err error
		out, err = x.crowdsale.Invest(sale, investor, amount)
		return err
	})
	return out, err
}

func (n *Node) FinalizeCrowdsale(ctx context.Context, sale, caller common.Address) (*crowdsale.Sale, error) {
	var out *crowdsale.Sale
	err := n.update(ctx, "crowdsale.finalize", caller, func(x *engines) error {
		var err error
		out, err = x.crowdsale.Finalize(sale, caller)
		return err
	})
	return out, err
}

func (n *Node) Refund(ctx context.Context, sale, investor common.Address) (*big.Int, error) {
	var out *big.Int
	err := n.update(ctx, "crowdsale.refund", investor, func(x *engines) error {
		var err error
		out, err = x.crowdsale.Refund(sale, investor)
		return err
	})
	return out, err
}

func (n *Node) Sale(ctx context.Context, sale common.Address) (*crowdsale.Sale, error) {
	var out *crowdsale.Sale
	err := n.view(ctx, func(x *engines) error {
		var err error
		out, err = x.crowdsale.Sale(sale)
		return err
	})
	return out, err
}

func (n *Node) Contribution(ctx context.Context, sale, investor common.Address) (*big.Int, error) {
	var out *big.Int
	err := n.view(ctx, func(x *engines) error {
		var err error
		out, err = x.crowdsale.Contribution(sale, investor)
		return err
	})
	return out, err
}

// CampaignParams describes one invention's funding round.
type CampaignParams struct {
	Inventor           common.Address
	Name               string
	Symbol             string
	MaxSupply          *big.Int
	InventorAllocation *big.Int
	Goal               *big.Int
	MinInvestment      *big.Int
	Duration           time.Duration
	// MetadataPointer, when set, anchors the invention in the IP-NFT
	// registry.
	MetadataPointer string
}

// Campaign lists what LaunchCampaign deployed.
type Campaign struct {
	RoyaltyToken common.Address `json:"royaltyToken"`
	Crowdsale    common.Address `json:"crowdsale"`
	IPNFTTokenID *uint64        `json:"ipnftTokenId,omitempty"`
	Deadline     uint64         `json:"deadline"`
}

// LaunchCampaign deploys an invention's royalty token and crowdsale in one
// update: the inventor allocation is minted first, then mint authority moves
// to the sale. With a metadata pointer the registry operator also mints the
// invention's IP-NFT to the inventor.
func (n *Node) LaunchCampaign(ctx context.Context, params CampaignParams) (*Campaign, error) {
	if params.Inventor == (common.Address{}) {
		return nil, protoerrors.ErrInvalidAddress
	}
	pointer := strings.TrimSpace(params.MetadataPointer)
	var out *Campaign
	err := n.update(ctx, "campaign.launch", params.Inventor, func(x *engines) error {
		dep, err := loadDeployment(x)
		if err != nil {
			return err
		}
		campaign := &Campaign{}
		var tokenID uint64
		if pointer != "" {
			reg, err := x.ipnft.Registry(dep.IPNFT)
			if err != nil {
				return err
			}
			tokenID = reg.NextTokenID
		}
		info, err := x.royalty.Create(royalty.CreateParams{
			Deployer:     params.Inventor,
			Name:         params.Name,
			Symbol:       params.Symbol,
			MaxSupply:    params.MaxSupply,
			IPNFTTokenID: tokenID,
		})
		if err != nil {
			return fmt.Errorf("create royalty token: %w", err)
		}
		campaign.RoyaltyToken = info.Address
		if params.InventorAllocation != nil && params.InventorAllocation.Sign() > 0 {
			if err := x.royalty.MintToInventor(info.Address, params.Inventor, params.Inventor, params.InventorAllocation); err != nil {
				return fmt.Errorf("mint inventor allocation: %w", err)
			}
		}
		sale, err := x.crowdsale.Deploy(crowdsale.DeployParams{
			Deployer:      params.Inventor,
			PaymentToken:  dep.PaymentToken,
			RoyaltyToken:  info.Address,
			Goal:          params.Goal,
			MinInvestment: params.MinInvestment,
			Duration:      params.Duration,
		})
		if err != nil {
			return fmt.Errorf("deploy crowdsale: %w", err)
		}
		campaign.Crowdsale = sale.Address
		campaign.Deadline = sale.Deadline
		if err := x.ledger.TransferOwnership(info.Address, params.Inventor, sale.Address); err != nil {
			return fmt.Errorf("hand over mint authority: %w", err)
		}
		if pointer != "" {
			inv, err := x.ipnft.MintInvention(dep.IPNFT, dep.Operator, params.Inventor, pointer, info.Address)
			if err != nil {
				return fmt.Errorf("mint ipnft: %w", err)
			}
			id := inv.TokenID
			campaign.IPNFTTokenID = &id
		}
		out = campaign
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// TokensFor previews how many royalty tokens amount buys in a sale.
func (n *Node) TokensFor(ctx context.Context, sale common.Address, amount *big.Int) (*big.Int, error) {
	if err := types.ValidateAmount(amount); err != nil {
		return nil, err
	}
	var out *big.Int
	err := n.view(ctx, func(x *engines) error {
		s, err := x.crowdsale.Sale(sale)
		if err != nil {
			return err
		}
		info, err := x.royalty.Info(s.RoyaltyToken)
		if err != nil {
			return err
		}
		out = crowdsale.TokensFor(amount, info.MaxSupply, s.Goal)
		return nil
	})
	return out, err
}
