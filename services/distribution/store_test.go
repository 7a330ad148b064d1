package distribution

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"ideacapital/core"
)

func samplePlan(t *testing.T) *Plan {
	t.Helper()
	holdings := []core.Holding{
		{Account: holderA, Balance: big.NewInt(500)},
		{Account: holderB, Balance: big.NewInt(300)},
		{Account: holderC, Balance: big.NewInt(200)},
	}
	plan, err := BuildPlan(common.Address{1}, common.Address{2}, big.NewInt(1_000), holdings, time.UnixMilli(1_700_000_000_123))
	require.NoError(t, err)
	return plan
}

func openStore(t *testing.T) *ClaimStore {
	t.Helper()
	store, err := OpenClaimStore(filepath.Join(t.TempDir(), "claims.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestOpenClaimStoreRequiresPath(t *testing.T) {
	_, err := OpenClaimStore("  ")
	require.ErrorIs(t, err, ErrPathRequired)
}

func TestClaimStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	plan := samplePlan(t)
	require.NoError(t, store.SavePlan(ctx, plan))

	loaded, err := store.Plan(ctx, plan.ID)
	require.NoError(t, err)
	require.Equal(t, plan.Root, loaded.Root)
	require.Zero(t, plan.Allocated.Cmp(loaded.Allocated))
	require.Zero(t, plan.Revenue.Cmp(loaded.Revenue))
	require.True(t, plan.CreatedAt.Equal(loaded.CreatedAt))
	require.Len(t, loaded.Claims, 3)

	byAccount := make(map[common.Address]Claim)
	for _, c := range loaded.Claims {
		byAccount[c.Account] = c
	}
	for _, want := range plan.Claims {
		got := byAccount[want.Account]
		require.Zero(t, want.Amount.Cmp(got.Amount))
		require.Equal(t, want.Proof, got.Proof)
	}

	_, err = store.Plan(ctx, "missing")
	require.ErrorIs(t, err, ErrPlanNotFound)
	require.ErrorIs(t, store.SetEpoch(ctx, "missing", 1), ErrPlanNotFound)
}

func TestClaimsForOnlyListsFundedPlans(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	plan := samplePlan(t)
	require.NoError(t, store.SavePlan(ctx, plan))

	claims, err := store.ClaimsFor(ctx, holderA, true)
	require.NoError(t, err)
	require.Empty(t, claims)

	require.NoError(t, store.SetEpoch(ctx, plan.ID, 3))
	claims, err = store.ClaimsFor(ctx, holderA, true)
	require.NoError(t, err)
	require.Len(t, claims, 1)
	require.Equal(t, uint64(3), claims[0].Epoch)
	require.Equal(t, int64(500), claims[0].Amount.Int64())

	matched, err := store.MarkClaimed(ctx, plan.Vault, 3, holderA)
	require.NoError(t, err)
	require.True(t, matched)

	claims, err = store.ClaimsFor(ctx, holderA, true)
	require.NoError(t, err)
	require.Empty(t, claims)
	claims, err = store.ClaimsFor(ctx, holderA, false)
	require.NoError(t, err)
	require.Len(t, claims, 1)
	require.True(t, claims[0].Claimed)

	matched, err = store.MarkClaimed(ctx, plan.Vault, 4, holderA)
	require.NoError(t, err)
	require.False(t, matched)
}
