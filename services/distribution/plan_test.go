package distribution

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"ideacapital/core"
	protoerrors "ideacapital/core/errors"
	"ideacapital/crypto/merkle"
)

var (
	holderA = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	holderB = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	holderC = common.HexToAddress("0x00000000000000000000000000000000000000c3")
)

func TestAllocateProRata(t *testing.T) {
	holdings := []core.Holding{
		{Account: holderA, Balance: big.NewInt(600)},
		{Account: holderB, Balance: big.NewInt(300)},
		{Account: holderC, Balance: big.NewInt(100)},
	}
	claims, allocated, err := Allocate(holdings, big.NewInt(1_000))
	require.NoError(t, err)
	require.Len(t, claims, 3)
	require.Equal(t, int64(600), claims[0].Amount.Int64())
	require.Equal(t, int64(300), claims[1].Amount.Int64())
	require.Equal(t, int64(100), claims[2].Amount.Int64())
	require.Equal(t, int64(1_000), allocated.Int64())
}

func TestAllocateLeavesDustUnallocated(t *testing.T) {
	holdings := []core.Holding{
		{Account: holderA, Balance: big.NewInt(1)},
		{Account: holderB, Balance: big.NewInt(1)},
		{Account: holderC, Balance: big.NewInt(1)},
	}
	claims, allocated, err := Allocate(holdings, big.NewInt(100))
	require.NoError(t, err)
	require.Len(t, claims, 3)
	for _, c := range claims {
		require.Equal(t, int64(33), c.Amount.Int64())
	}
	require.Equal(t, int64(99), allocated.Int64())
}

func TestAllocateDropsZeroShares(t *testing.T) {
	holdings := []core.Holding{
		{Account: holderA, Balance: big.NewInt(1_000_000)},
		{Account: holderB, Balance: big.NewInt(1)},
	}
	claims, allocated, err := Allocate(holdings, big.NewInt(10))
	require.NoError(t, err)
	require.Len(t, claims, 1)
	require.Equal(t, holderA, claims[0].Account)
	require.Equal(t, int64(9), allocated.Int64())
}

func TestAllocateRejectsBadInput(t *testing.T) {
	holdings := []core.Holding{{Account: holderA, Balance: big.NewInt(5)}}

	_, _, err := Allocate(holdings, big.NewInt(0))
	require.ErrorIs(t, err, protoerrors.ErrZeroAmount)

	_, _, err = Allocate(nil, big.NewInt(10))
	require.ErrorIs(t, err, ErrNoHolders)

	_, _, err = Allocate([]core.Holding{{Account: holderA, Balance: new(big.Int)}}, big.NewInt(10))
	require.ErrorIs(t, err, ErrNoHolders)
}

func TestBuildPlanProofsVerify(t *testing.T) {
	vault := common.HexToAddress("0x00000000000000000000000000000000000000ff")
	holdings := []core.Holding{
		{Account: holderA, Balance: big.NewInt(500)},
		{Account: holderB, Balance: big.NewInt(300)},
		{Account: holderC, Balance: big.NewInt(200)},
	}
	plan, err := BuildPlan(common.Address{1}, vault, big.NewInt(1_000), holdings, time.Unix(1_700_000_000, 0))
	require.NoError(t, err)
	require.NotEmpty(t, plan.ID)
	require.Zero(t, plan.Allocated.Cmp(big.NewInt(1_000)))
	for _, c := range plan.Claims {
		require.Equal(t, plan.ID, c.PlanID)
		require.Equal(t, vault, c.Vault)
		leaf, err := merkle.LeafHash(c.Account, c.Amount)
		require.NoError(t, err)
		require.True(t, merkle.Verify(c.Proof, plan.Root, leaf))
	}
}
