package core

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"ideacapital/native/governance"
	"ideacapital/native/token"
)

func (n *Node) DeployReputation(ctx context.Context, deployer common.Address) (*token.Metadata, error) {
	var out *token.Metadata
	err := n.update(ctx, "reputation.deploy", deployer, func(x *engines) error {
		var err error
		out, err = x.reputation.Deploy(deployer)
		return err
	})
	return out, err
}

// GrantReputation mints soulbound voting weight. Owner only.
func (n *Node) GrantReputation(ctx context.Context, tok, caller, to common.Address, amount *big.Int) error {
	return n.update(ctx, "reputation.grant", caller, func(x *engines) error {
		return x.reputation.Mint(tok, caller, to, amount)
	})
}

func (n *Node) DeployGovernor(ctx context.Context, owner, reputationToken common.Address, threshold *big.Int) (*governance.Governor, error) {
	var out *governance.Governor
	err := n.update(ctx, "governance.deploy", owner, func(x *engines) error {
		var err error
		out, err = x.governance.Deploy(owner, reputationToken, threshold)
		return err
	})
	return out, err
}

func (n *Node) CreateProposal(ctx context.Context, gov, caller common.Address, text string) (*governance.Proposal, error) {
	var out *governance.Proposal
	err := n.update(ctx, "governance.propose", caller, func(x *engines) error {
		var err error
		out, err = x.governance.CreateProposal(gov, caller, text)
		return err
	})
	return out, err
}

func (n *Node) Vote(ctx context.Context, gov, caller common.Address, id uint64, support bool) (*governance.Vote, error) {
	var out *governance.Vote
	err := n.update(ctx, "governance.vote", caller, func(x *engines) error {
		var err error
		out, err = x.governance.Vote(gov, caller, id, support)
		return err
	})
	return out, err
}

func (n *Node) Delegate(ctx context.Context, gov, caller, to common.Address) error {
	return n.update(ctx, "governance.delegate", caller, func(x *engines) error {
		return x.governance.Delegate(gov, caller, to)
	})
}

func (n *Node) Proposal(ctx context.Context, gov common.Address, id uint64) (*governance.Proposal, error) {
	var out *governance.Proposal
	err := n.view(ctx, func(x *engines) error {
		var err error
		out, err = x.governance.Proposal(gov, id)
		return err
	})
	return out, err
}

func (n *Node) DelegateOf(ctx context.Context, gov, from common.Address) (common.Address, error) {
	var out common.Address
	err := n.view(ctx, func(x *engines) error {
		var err error
		out, err = x.governance.DelegateOf(gov, from)
		return err
	})
	return out, err
}
