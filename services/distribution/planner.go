package distribution

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"ideacapital/core"
)

// Planner turns royalty token holdings into funded dividend epochs.
type Planner struct {
	// fundMu serialises Fund so a plan is checked and funded by one caller
	// at a time.
	fundMu    sync.Mutex
	node      *core.Node
	store     *ClaimStore
	logger    *slog.Logger
	exportDir string
}

// NewPlanner wires a planner to the node and claim store. A non-empty
// exportDir makes every new plan also land as CSV and Parquet there.
func NewPlanner(node *core.Node, store *ClaimStore, exportDir string, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Planner{node: node, store: store, logger: logger, exportDir: exportDir}
}

// Store exposes the claim store for readers.
func (p *Planner) Store() *ClaimStore { return p.store }

// Plan snapshots the holders of royaltyToken and splits revenue between
// them. The plan targets vault but is not funded yet.
func (p *Planner) Plan(ctx context.Context, royaltyToken, vault common.Address, revenue *big.Int) (*Plan, error) {
	if _, err := p.node.RoyaltyInfo(ctx, royaltyToken); err != nil {
		return nil, err
	}
	if _, err := p.node.Vault(ctx, vault); err != nil {
		return nil, err
	}
	holdings, err := p.node.Holdings(ctx, royaltyToken)
	if err != nil {
		return nil, err
	}
	plan, err := BuildPlan(royaltyToken, vault, revenue, holdings, p.node.Now())
	if err != nil {
		return nil, err
	}
	if err := p.store.SavePlan(ctx, plan); err != nil {
		return nil, err
	}
	if p.exportDir != "" {
		csvPath, parquetPath, err := Export(p.exportDir, plan)
		if err != nil {
			return nil, err
		}
		p.logger.Info("distribution plan exported", "plan", plan.ID, "csv", csvPath, "parquet", parquetPath)
	}
	p.logger.Info("distribution planned",
		"plan", plan.ID,
		"token", royaltyToken.Hex(),
		"holders", len(plan.Claims),
		"allocated", plan.Allocated.String(),
		"root", plan.Root.Hex())
	return plan, nil
}

// Fund opens a vault epoch for the plan, pulling exactly the allocated
// amount from the funder's payout allowance. If an earlier attempt committed
// the epoch but failed to record it, Fund adopts that epoch instead of
// funding the plan twice.
func (p *Planner) Fund(ctx context.Context, planID string, funder common.Address) (*Plan, error) {
	p.fundMu.Lock()
	defer p.fundMu.Unlock()

	plan, err := p.store.Plan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan.Epoch != 0 {
		return nil, fmt.Errorf("%w: %s is epoch %d", ErrAlreadyFunded, planID, plan.Epoch)
	}
	epoch, err := p.committedEpoch(ctx, plan, funder)
	if err != nil {
		return nil, err
	}
	if epoch != 0 {
		p.logger.Warn("distribution epoch recovered", "plan", planID, "vault", plan.Vault.Hex(), "epoch", epoch)
	} else {
		epoch, err = p.node.CreateDistribution(ctx, plan.Vault, funder, plan.Root, plan.Allocated)
		if err != nil {
			return nil, err
		}
	}
	if err := p.store.SetEpoch(ctx, planID, epoch); err != nil {
		p.logger.Error("distribution epoch not recorded", "plan", planID, "epoch", epoch, "error", err)
		return nil, err
	}
	plan.Epoch = epoch
	for i := range plan.Claims {
		plan.Claims[i].Epoch = epoch
	}
	p.logger.Info("distribution funded", "plan", planID, "vault", plan.Vault.Hex(), "epoch", epoch)
	return plan, nil
}

// committedEpoch finds a vault epoch funded by funder with the plan's root
// and total that no stored plan owns yet. Zero means none.
func (p *Planner) committedEpoch(ctx context.Context, plan *Plan, funder common.Address) (uint64, error) {
	vault, err := p.node.Vault(ctx, plan.Vault)
	if err != nil {
		return 0, err
	}
	for n := vault.CurrentEpoch; n > 0; n-- {
		epoch, err := p.node.Epoch(ctx, plan.Vault, n)
		if err != nil {
			return 0, err
		}
		if epoch.Root != plan.Root || epoch.Funder != funder || epoch.Total.Cmp(plan.Allocated) != 0 {
			continue
		}
		owned, err := p.store.EpochRecorded(ctx, plan.Vault, n)
		if err != nil {
			return 0, err
		}
		if !owned {
			return n, nil
		}
	}
	return 0, nil
}

// PendingClaims lists the account's unpaid claims from funded plans.
func (p *Planner) PendingClaims(ctx context.Context, account common.Address) ([]Claim, error) {
	return p.store.ClaimsFor(ctx, account, true)
}
