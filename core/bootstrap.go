package core

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	protoerrors "ideacapital/core/errors"
	"ideacapital/core/types"
	"ideacapital/native/marketplace"
	"ideacapital/native/token"
)

var (
	deploymentKey = []byte("node/deployment")

	// ErrNotBootstrapped is returned by operations that need the protocol
	// singletons before Bootstrap has run.
	ErrNotBootstrapped = errors.New("core: protocol not bootstrapped")
)

// Deployment lists the protocol singletons created by Bootstrap.
type Deployment struct {
	Operator     common.Address `json:"operator"`
	PaymentToken common.Address `json:"paymentToken"`
	IPNFT        common.Address `json:"ipnft"`
	Vault        common.Address `json:"vault"`
	Reputation   common.Address `json:"reputation"`
	Governor     common.Address `json:"governor"`
	Marketplace  common.Address `json:"marketplace"`
}

// BootstrapParams configures the singletons.
type BootstrapParams struct {
	Operator          common.Address
	PaymentName       string
	PaymentSymbol     string
	ProposalThreshold *big.Int
	MarketplaceFeeBps uint32
}

// Bootstrap deploys the IP-NFT registry, the stable payment token, the
// dividend vault, the reputation token with its governor and the marketplace,
// all owned by the operator. Running it again returns the existing
// deployment unchanged.
func (n *Node) Bootstrap(ctx context.Context, params BootstrapParams) (*Deployment, error) {
	if params.Operator == (common.Address{}) {
		return nil, protoerrors.ErrInvalidAddress
	}
	if params.PaymentName == "" {
		params.PaymentName = "Mock USDC"
	}
	if params.PaymentSymbol == "" {
		params.PaymentSymbol = "USDC"
	}
	var out *Deployment
	err := n.update(ctx, "bootstrap", params.Operator, func(x *engines) error {
		existing, err := loadDeployment(x)
		if err != nil && !errors.Is(err, ErrNotBootstrapped) {
			return err
		}
		if existing != nil {
			out = existing
			return nil
		}
		dep := &Deployment{Operator: params.Operator}
		reg, err := x.ipnft.Deploy(params.Operator)
		if err != nil {
			return fmt.Errorf("deploy ipnft: %w", err)
		}
		dep.IPNFT = reg.Address
		payment, err := x.ledger.Deploy(token.DeployParams{
			Deployer:     params.Operator,
			Owner:        params.Operator,
			Name:         params.PaymentName,
			Symbol:       params.PaymentSymbol,
			Decimals:     types.StableDecimals,
			Transferable: true,
		})
		if err != nil {
			return fmt.Errorf("deploy payment token: %w", err)
		}
		dep.PaymentToken = payment.Address
		vault, err := x.dividend.Deploy(params.Operator, payment.Address)
		if err != nil {
			return fmt.Errorf("deploy vault: %w", err)
		}
		dep.Vault = vault.Address
		rep, err := x.reputation.Deploy(params.Operator)
		if err != nil {
			return fmt.Errorf("deploy reputation: %w", err)
		}
		dep.Reputation = rep.Address
		gov, err := x.governance.Deploy(params.Operator, rep.Address, params.ProposalThreshold)
		if err != nil {
			return fmt.Errorf("deploy governor: %w", err)
		}
		dep.Governor = gov.Address
		feeBps := params.MarketplaceFeeBps
		if feeBps == 0 {
			feeBps = marketplace.DefaultFeeBps
		}
		market, err := x.marketplace.Deploy(params.Operator, payment.Address, feeBps)
		if err != nil {
			return fmt.Errorf("deploy marketplace: %w", err)
		}
		dep.Marketplace = market.Address
		if err := x.tx.KVPut(deploymentKey, dep); err != nil {
			return err
		}
		out = dep
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Deployment returns the singletons or ErrNotBootstrapped.
func (n *Node) Deployment(ctx context.Context) (*Deployment, error) {
	var out *Deployment
	err := n.view(ctx, func(x *engines) error {
		var err error
		out, err = loadDeployment(x)
		return err
	})
	return out, err
}

func loadDeployment(x *engines) (*Deployment, error) {
	var dep Deployment
	ok, err := x.tx.KVGet(deploymentKey, &dep)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotBootstrapped
	}
	return &dep, nil
}
