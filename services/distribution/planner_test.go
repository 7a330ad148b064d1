package distribution

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"ideacapital/core"
	"ideacapital/core/types"
	"ideacapital/storage"
)

var (
	operator = common.HexToAddress("0x0f00000000000000000000000000000000000000")
	inventor = common.HexToAddress("0x1000000000000000000000000000000000000001")
	alice    = common.HexToAddress("0x2000000000000000000000000000000000000002")
	bob      = common.HexToAddress("0x3000000000000000000000000000000000000003")
)

func usdc(n int64) *big.Int { return types.Units(n, types.StableDecimals) }

func TestPlannerEndToEnd(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0).UTC()
	node := core.NewNode(storage.NewMemDB(), core.WithClock(func() time.Time { return now }))
	dep, err := node.Bootstrap(ctx, core.BootstrapParams{Operator: operator})
	require.NoError(t, err)

	campaign, err := node.LaunchCampaign(ctx, core.CampaignParams{
		Inventor:  inventor,
		Name:      "Tidal Turbine Royalty",
		Symbol:    "TTR",
		MaxSupply: types.Units(1_000_000, types.TokenDecimals),
		Goal:      usdc(10_000),
		Duration:  time.Hour,
	})
	require.NoError(t, err)
	for investor, amount := range map[common.Address]*big.Int{alice: usdc(7_000), bob: usdc(3_000)} {
		require.NoError(t, node.MintTokens(ctx, dep.PaymentToken, operator, investor, amount))
		require.NoError(t, node.Approve(ctx, dep.PaymentToken, investor, campaign.Crowdsale, amount))
		_, err := node.Invest(ctx, campaign.Crowdsale, investor, amount)
		require.NoError(t, err)
	}
	_, err = node.FinalizeCrowdsale(ctx, campaign.Crowdsale, operator)
	require.NoError(t, err)

	store := openStore(t)
	exports := t.TempDir()
	planner := NewPlanner(node, store, exports, nil)

	plan, err := planner.Plan(ctx, campaign.RoyaltyToken, dep.Vault, usdc(1_000))
	require.NoError(t, err)
	require.Len(t, plan.Claims, 2)
	require.Zero(t, plan.Allocated.Cmp(usdc(1_000)))
	require.FileExists(t, exports+"/"+plan.ID+".parquet")

	pending, err := planner.PendingClaims(ctx, alice)
	require.NoError(t, err)
	require.Empty(t, pending)

	require.NoError(t, node.MintTokens(ctx, dep.PaymentToken, operator, operator, usdc(1_000)))
	require.NoError(t, node.Approve(ctx, dep.PaymentToken, operator, dep.Vault, usdc(1_000)))
	funded, err := planner.Fund(ctx, plan.ID, operator)
	require.NoError(t, err)
	require.Equal(t, uint64(1), funded.Epoch)

	_, err = planner.Fund(ctx, plan.ID, operator)
	require.ErrorIs(t, err, ErrAlreadyFunded)

	pending, err = planner.PendingClaims(ctx, alice)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	claim := pending[0]
	require.Zero(t, claim.Amount.Cmp(usdc(700)))

	require.NoError(t, node.ClaimDividend(ctx, claim.Vault, alice, claim.Epoch, claim.Amount, claim.Proof))
	paid, err := node.BalanceOf(ctx, dep.PaymentToken, alice)
	require.NoError(t, err)
	require.Zero(t, paid.Cmp(usdc(700)))
}

func TestPlannerRejectsUnknownToken(t *testing.T) {
	ctx := context.Background()
	node := core.NewNode(storage.NewMemDB())
	dep, err := node.Bootstrap(ctx, core.BootstrapParams{Operator: operator})
	require.NoError(t, err)
	planner := NewPlanner(node, openStore(t), "", nil)

	_, err = planner.Plan(ctx, common.Address{0x42}, dep.Vault, usdc(10))
	require.Error(t, err)
}

func closedCampaign(t *testing.T) (*core.Node, *core.Deployment, common.Address) {
	t.Helper()
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0).UTC()
	node := core.NewNode(storage.NewMemDB(), core.WithClock(func() time.Time { return now }))
	dep, err := node.Bootstrap(ctx, core.BootstrapParams{Operator: operator})
	require.NoError(t, err)
	campaign, err := node.LaunchCampaign(ctx, core.CampaignParams{
		Inventor:  inventor,
		Name:      "Kelp Bioplastic Royalty",
		Symbol:    "KBR",
		MaxSupply: types.Units(1_000_000, types.TokenDecimals),
		Goal:      usdc(10_000),
		Duration:  time.Hour,
	})
	require.NoError(t, err)
	require.NoError(t, node.MintTokens(ctx, dep.PaymentToken, operator, alice, usdc(10_000)))
	require.NoError(t, node.Approve(ctx, dep.PaymentToken, alice, campaign.Crowdsale, usdc(10_000)))
	_, err = node.Invest(ctx, campaign.Crowdsale, alice, usdc(10_000))
	require.NoError(t, err)
	_, err = node.FinalizeCrowdsale(ctx, campaign.Crowdsale, operator)
	require.NoError(t, err)

	require.NoError(t, node.MintTokens(ctx, dep.PaymentToken, operator, operator, usdc(5_000)))
	require.NoError(t, node.Approve(ctx, dep.PaymentToken, operator, dep.Vault, usdc(5_000)))
	return node, dep, campaign.RoyaltyToken
}

func TestFundAdoptsEpochCommittedByEarlierAttempt(t *testing.T) {
	ctx := context.Background()
	node, dep, royaltyToken := closedCampaign(t)
	planner := NewPlanner(node, openStore(t), "", nil)
	plan, err := planner.Plan(ctx, royaltyToken, dep.Vault, usdc(1_000))
	require.NoError(t, err)

	// The vault accepted the epoch but the store never learned about it.
	epoch, err := node.CreateDistribution(ctx, dep.Vault, operator, plan.Root, plan.Allocated)
	require.NoError(t, err)
	before, err := node.BalanceOf(ctx, dep.PaymentToken, operator)
	require.NoError(t, err)

	funded, err := planner.Fund(ctx, plan.ID, operator)
	require.NoError(t, err)
	require.Equal(t, epoch, funded.Epoch)

	after, err := node.BalanceOf(ctx, dep.PaymentToken, operator)
	require.NoError(t, err)
	require.Zero(t, before.Cmp(after))
	vault, err := node.Vault(ctx, dep.Vault)
	require.NoError(t, err)
	require.Equal(t, epoch, vault.CurrentEpoch)

	_, err = planner.Fund(ctx, plan.ID, operator)
	require.ErrorIs(t, err, ErrAlreadyFunded)
}

func TestIdenticalPlansFundSeparateEpochs(t *testing.T) {
	ctx := context.Background()
	node, dep, royaltyToken := closedCampaign(t)
	planner := NewPlanner(node, openStore(t), "", nil)
	first, err := planner.Plan(ctx, royaltyToken, dep.Vault, usdc(1_000))
	require.NoError(t, err)
	second, err := planner.Plan(ctx, royaltyToken, dep.Vault, usdc(1_000))
	require.NoError(t, err)
	require.Equal(t, first.Root, second.Root)

	a, err := planner.Fund(ctx, first.ID, operator)
	require.NoError(t, err)
	b, err := planner.Fund(ctx, second.ID, operator)
	require.NoError(t, err)
	require.NotEqual(t, a.Epoch, b.Epoch)
}

func TestConcurrentFundOpensOneEpoch(t *testing.T) {
	ctx := context.Background()
	node, dep, royaltyToken := closedCampaign(t)
	planner := NewPlanner(node, openStore(t), "", nil)
	plan, err := planner.Plan(ctx, royaltyToken, dep.Vault, usdc(1_000))
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := planner.Fund(ctx, plan.ID, operator); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, success)
	vault, err := node.Vault(ctx, dep.Vault)
	require.NoError(t, err)
	require.Equal(t, uint64(1), vault.CurrentEpoch)
}
