package core

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	protoerrors "ideacapital/core/errors"
	"ideacapital/core/types"
	"ideacapital/crypto/merkle"
	"ideacapital/native/crowdsale"
	"ideacapital/native/dividend"
	"ideacapital/native/royalty"
	"ideacapital/storage"
)

var (
	operator = common.HexToAddress("0x0f00000000000000000000000000000000000000")
	inventor = common.HexToAddress("0x1000000000000000000000000000000000000001")
	alice    = common.HexToAddress("0x2000000000000000000000000000000000000002")
	bob      = common.HexToAddress("0x3000000000000000000000000000000000000003")
)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func usdc(n int64) *big.Int  { return types.Units(n, types.StableDecimals) }
func whole(n int64) *big.Int { return types.Units(n, types.TokenDecimals) }

func newTestNode(t *testing.T) (*Node, *testClock, *Deployment) {
	t.Helper()
	clock := &testClock{now: time.Unix(1_700_000_000, 0).UTC()}
	n := NewNode(storage.NewMemDB(), WithClock(clock.Now))
	dep, err := n.Bootstrap(context.Background(), BootstrapParams{Operator: operator})
	require.NoError(t, err)
	for _, investor := range []common.Address{alice, bob} {
		require.NoError(t, n.MintTokens(context.Background(), dep.PaymentToken, operator, investor, usdc(20_000)))
	}
	return n, clock, dep
}

func launch(t *testing.T, n *Node, params CampaignParams) *Campaign {
	t.Helper()
	if params.Inventor == (common.Address{}) {
		params.Inventor = inventor
	}
	if params.Name == "" {
		params.Name, params.Symbol = "Solar Membrane Royalty", "SMR"
	}
	if params.MaxSupply == nil {
		params.MaxSupply = whole(1_000_000)
	}
	if params.Goal == nil {
		params.Goal = usdc(10_000)
	}
	if params.Duration == 0 {
		params.Duration = 30 * 24 * time.Hour
	}
	campaign, err := n.LaunchCampaign(context.Background(), params)
	require.NoError(t, err)
	return campaign
}

func invest(t *testing.T, n *Node, dep *Deployment, sale, investor common.Address, amount *big.Int) *crowdsale.Receipt {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, n.Approve(ctx, dep.PaymentToken, investor, sale, amount))
	receipt, err := n.Invest(ctx, sale, investor, amount)
	require.NoError(t, err)
	return receipt
}

func TestBootstrapIsIdempotent(t *testing.T) {
	n, _, dep := newTestNode(t)
	again, err := n.Bootstrap(context.Background(), BootstrapParams{Operator: alice})
	require.NoError(t, err)
	require.Equal(t, dep, again)

	meta, err := n.Token(context.Background(), dep.PaymentToken)
	require.NoError(t, err)
	require.Equal(t, uint8(types.StableDecimals), meta.Decimals)
	require.Equal(t, "USDC", meta.Symbol)

	stored, err := n.Deployment(context.Background())
	require.NoError(t, err)
	require.Equal(t, dep, stored)
}

func TestLaunchCampaignRequiresBootstrap(t *testing.T) {
	n := NewNode(storage.NewMemDB())
	_, err := n.LaunchCampaign(context.Background(), CampaignParams{Inventor: inventor, Name: "X", Symbol: "X", MaxSupply: big.NewInt(1), Goal: big.NewInt(1), Duration: time.Hour})
	require.ErrorIs(t, err, ErrNotBootstrapped)
}

func TestCampaignLifecycle(t *testing.T) {
	ctx := context.Background()
	n, _, dep := newTestNode(t)
	campaign := launch(t, n, CampaignParams{MetadataPointer: "bafySolar"})
	require.NotNil(t, campaign.IPNFTTokenID)
	require.Equal(t, uint64(0), *campaign.IPNFTTokenID)

	uri, err := n.TokenURI(ctx, dep.IPNFT, 0)
	require.NoError(t, err)
	require.Equal(t, "ipfs://bafySolar", uri)
	inv, err := n.Invention(ctx, dep.IPNFT, 0)
	require.NoError(t, err)
	require.Equal(t, inventor, inv.Owner)
	require.Equal(t, campaign.RoyaltyToken, inv.RoyaltyToken)

	info, err := n.RoyaltyInfo(ctx, campaign.RoyaltyToken)
	require.NoError(t, err)
	require.Equal(t, campaign.Crowdsale, info.Owner)

	preview, err := n.TokensFor(ctx, campaign.Crowdsale, usdc(1_000))
	require.NoError(t, err)
	require.Zero(t, preview.Cmp(whole(100_000)))

	first := invest(t, n, dep, campaign.Crowdsale, alice, usdc(6_000))
	require.Zero(t, first.TokensMinted.Cmp(whole(600_000)))
	require.False(t, first.GoalReached)
	second := invest(t, n, dep, campaign.Crowdsale, bob, usdc(4_000))
	require.True(t, second.GoalReached)

	sale, err := n.FinalizeCrowdsale(ctx, campaign.Crowdsale, bob)
	require.NoError(t, err)
	require.True(t, sale.Finalized)

	paid, err := n.BalanceOf(ctx, dep.PaymentToken, inventor)
	require.NoError(t, err)
	require.Zero(t, paid.Cmp(usdc(10_000)))
	info, err = n.RoyaltyInfo(ctx, campaign.RoyaltyToken)
	require.NoError(t, err)
	require.True(t, info.DistributionFinalized)

	_, err = n.Refund(ctx, campaign.Crowdsale, alice)
	require.ErrorIs(t, err, protoerrors.ErrGoalReachedNoRefund)

	holdings, err := n.Holdings(ctx, campaign.RoyaltyToken)
	require.NoError(t, err)
	require.Len(t, holdings, 2)
	require.Equal(t, alice, holdings[0].Account)
	require.Zero(t, holdings[1].Balance.Cmp(whole(400_000)))

	// Secondary sale: bob sells 100k tokens to alice for 500 USDC.
	require.NoError(t, n.Approve(ctx, campaign.RoyaltyToken, bob, dep.Marketplace, whole(100_000)))
	listing, err := n.CreateListing(ctx, dep.Marketplace, bob, campaign.RoyaltyToken, whole(100_000), usdc(500))
	require.NoError(t, err)
	require.NoError(t, n.Approve(ctx, dep.PaymentToken, alice, dep.Marketplace, usdc(500)))
	settled, err := n.BuyListing(ctx, dep.Marketplace, alice, listing.ID)
	require.NoError(t, err)
	require.Zero(t, settled.Fee.Cmp(big.NewInt(12_500_000)))

	// Dividend round over the post-trade holdings: 1,000 USDC revenue.
	holdings, err = n.Holdings(ctx, campaign.RoyaltyToken)
	require.NoError(t, err)
	claims := []merkle.Claim{
		{Account: holdings[0].Account, Amount: usdc(700)},
		{Account: holdings[1].Account, Amount: usdc(300)},
	}
	require.Zero(t, holdings[0].Balance.Cmp(whole(700_000)))
	tree, err := merkle.Build(claims)
	require.NoError(t, err)

	require.NoError(t, n.MintTokens(ctx, dep.PaymentToken, operator, operator, usdc(1_000)))
	require.NoError(t, n.Approve(ctx, dep.PaymentToken, operator, dep.Vault, usdc(1_000)))
	epoch, err := n.CreateDistribution(ctx, dep.Vault, operator, tree.Root(), usdc(1_000))
	require.NoError(t, err)
	require.Equal(t, uint64(1), epoch)

	for _, c := range claims {
		proof, ok := tree.ProofFor(c.Account, c.Amount)
		require.True(t, ok)
		require.NoError(t, n.ClaimDividend(ctx, dep.Vault, c.Account, epoch, c.Amount, proof))
	}
	ep, err := n.Epoch(ctx, dep.Vault, epoch)
	require.NoError(t, err)
	require.Zero(t, ep.Remaining().Sign())
	claimed, err := n.HasClaimed(ctx, dep.Vault, epoch, bob)
	require.NoError(t, err)
	require.True(t, claimed)

	records, err := n.State().EventsSince(0, 0)
	require.NoError(t, err)
	var claimedEvents int
	for _, rec := range records {
		if rec.Event.Type == dividend.EventTypeDividendClaimed {
			claimedEvents++
		}
	}
	require.Equal(t, 2, claimedEvents)
}

func TestFailedCampaignRefunds(t *testing.T) {
	ctx := context.Background()
	n, clock, dep := newTestNode(t)
	campaign := launch(t, n, CampaignParams{Duration: time.Hour})
	invest(t, n, dep, campaign.Crowdsale, alice, usdc(2_500))

	_, err := n.FinalizeCrowdsale(ctx, campaign.Crowdsale, alice)
	require.ErrorIs(t, err, protoerrors.ErrStillActive)

	clock.Advance(2 * time.Hour)
	_, err = n.Invest(ctx, campaign.Crowdsale, bob, usdc(100))
	require.ErrorIs(t, err, protoerrors.ErrCrowdsaleEnded)

	sale, err := n.FinalizeCrowdsale(ctx, campaign.Crowdsale, bob)
	require.NoError(t, err)
	require.False(t, sale.GoalReached)

	refunded, err := n.Refund(ctx, campaign.Crowdsale, alice)
	require.NoError(t, err)
	require.Zero(t, refunded.Cmp(usdc(2_500)))
	balance, err := n.BalanceOf(ctx, dep.PaymentToken, alice)
	require.NoError(t, err)
	require.Zero(t, balance.Cmp(usdc(20_000)))

	_, err = n.Refund(ctx, campaign.Crowdsale, alice)
	require.ErrorIs(t, err, protoerrors.ErrNoContributionToRefund)
}

func TestInventorAllocationShrinksInvestorCap(t *testing.T) {
	ctx := context.Background()
	n, _, dep := newTestNode(t)
	campaign := launch(t, n, CampaignParams{InventorAllocation: whole(200_000)})

	held, err := n.BalanceOf(ctx, campaign.RoyaltyToken, inventor)
	require.NoError(t, err)
	require.Zero(t, held.Cmp(whole(200_000)))

	first := invest(t, n, dep, campaign.Crowdsale, alice, usdc(9_000))
	require.Zero(t, first.TokensMinted.Cmp(whole(800_000)))
	require.Zero(t, first.TokensUnminted.Cmp(whole(100_000)))
	last := invest(t, n, dep, campaign.Crowdsale, bob, usdc(1_000))
	require.Zero(t, last.TokensMinted.Sign())
	require.Zero(t, last.TokensUnminted.Cmp(whole(100_000)))

	info, err := n.RoyaltyInfo(ctx, campaign.RoyaltyToken)
	require.NoError(t, err)
	require.Zero(t, info.TotalSupply.Cmp(info.MaxSupply))
}

func TestLaunchCampaignIsAtomic(t *testing.T) {
	ctx := context.Background()
	n, _, _ := newTestNode(t)
	before, err := n.State().LatestSeq()
	require.NoError(t, err)

	// The allocation exceeds the cap, so the token deployed earlier in the
	// same update must disappear too.
	_, err = n.LaunchCampaign(ctx, CampaignParams{
		Inventor:           inventor,
		Name:               "Overallocated",
		Symbol:             "OVR",
		MaxSupply:          whole(10),
		InventorAllocation: whole(11),
		Goal:               usdc(1),
		Duration:           time.Hour,
	})
	require.ErrorIs(t, err, protoerrors.ErrExceedsMaxSupply)

	after, err := n.State().LatestSeq()
	require.NoError(t, err)
	require.Equal(t, before, after)

	// The inventor's contract nonce did not advance either.
	campaign := launch(t, n, CampaignParams{})
	_, err = n.RoyaltyInfo(ctx, campaign.RoyaltyToken)
	require.NoError(t, err)
	require.Equal(t, ethcrypto.CreateAddress(inventor, 0), campaign.RoyaltyToken)
}

func TestGovernanceThroughNode(t *testing.T) {
	ctx := context.Background()
	n, _, dep := newTestNode(t)
	require.NoError(t, n.GrantReputation(ctx, dep.Reputation, operator, alice, whole(50)))
	require.NoError(t, n.GrantReputation(ctx, dep.Reputation, operator, bob, whole(150)))

	_, err := n.CreateProposal(ctx, dep.Governor, alice, "Lower the marketplace fee")
	require.ErrorIs(t, err, protoerrors.ErrInsufficientReputation)
	p, err := n.CreateProposal(ctx, dep.Governor, bob, "Lower the marketplace fee")
	require.NoError(t, err)

	_, err = n.Vote(ctx, dep.Governor, alice, p.ID, true)
	require.NoError(t, err)
	_, err = n.Vote(ctx, dep.Governor, alice, p.ID, false)
	require.ErrorIs(t, err, protoerrors.ErrAlreadyVoted)
	require.NoError(t, n.Delegate(ctx, dep.Governor, alice, bob))

	got, err := n.Proposal(ctx, dep.Governor, p.ID)
	require.NoError(t, err)
	require.Zero(t, got.VotesFor.Cmp(whole(50)))
	to, err := n.DelegateOf(ctx, dep.Governor, alice)
	require.NoError(t, err)
	require.Equal(t, bob, to)
}

func TestCancelledContextSkipsUpdate(t *testing.T) {
	n, _, dep := newTestNode(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := n.MintTokens(ctx, dep.PaymentToken, operator, alice, usdc(1))
	require.ErrorIs(t, err, context.Canceled)
}

func TestPlainMintCannotBypassRoyaltyCap(t *testing.T) {
	ctx := context.Background()
	n, _, dep := newTestNode(t)
	info, err := n.CreateRoyaltyToken(ctx, royalty.CreateParams{Deployer: inventor, Name: "Cap", Symbol: "CAP", MaxSupply: whole(1_000)})
	require.NoError(t, err)
	require.NoError(t, n.MintToInventor(ctx, info.Address, inventor, inventor, whole(1_000)))
	require.NoError(t, n.FinalizeDistribution(ctx, info.Address, inventor))

	err = n.MintTokens(ctx, info.Address, inventor, alice, whole(5_000))
	require.ErrorIs(t, err, protoerrors.ErrUnauthorized)
	err = n.MintTokens(ctx, dep.Reputation, operator, alice, whole(1))
	require.ErrorIs(t, err, protoerrors.ErrUnauthorized)

	after, err := n.RoyaltyInfo(ctx, info.Address)
	require.NoError(t, err)
	require.Zero(t, after.TotalSupply.Cmp(whole(1_000)))
	require.True(t, after.DistributionFinalized)
}

func TestContractsAreRejectedAsCallers(t *testing.T) {
	ctx := context.Background()
	n, _, dep := newTestNode(t)
	campaign := launch(t, n, CampaignParams{})
	invest(t, n, dep, campaign.Crowdsale, alice, usdc(1_000))

	err := n.Transfer(ctx, dep.PaymentToken, campaign.Crowdsale, bob, usdc(1_000))
	require.ErrorIs(t, err, protoerrors.ErrContractCaller)
	require.Equal(t, protoerrors.KindAuthorization, protoerrors.KindOf(err))
	err = n.Approve(ctx, dep.PaymentToken, dep.Marketplace, bob, usdc(1))
	require.ErrorIs(t, err, protoerrors.ErrContractCaller)

	held, err := n.BalanceOf(ctx, dep.PaymentToken, campaign.Crowdsale)
	require.NoError(t, err)
	require.Zero(t, held.Cmp(usdc(1_000)))
}
