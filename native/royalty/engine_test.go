package royalty

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	protoerrors "ideacapital/core/errors"
	"ideacapital/core/state"
	"ideacapital/native/nativetest"
)

var (
	inventor = common.HexToAddress("0x1000000000000000000000000000000000000001")
	investor = common.HexToAddress("0x2000000000000000000000000000000000000002")
	buyer    = common.HexToAddress("0x3000000000000000000000000000000000000003")
)

func run(h *nativetest.Harness, fn func(e *Engine) error) error {
	return h.Update(func(tx *state.Tx) error {
		e := NewEngine()
		e.SetState(tx)
		e.SetEmitter(tx)
		e.SetNowFunc(h.Now)
		return fn(e)
	})
}

func create(t *testing.T, h *nativetest.Harness, maxSupply int64) common.Address {
	t.Helper()
	var addr common.Address
	require.NoError(t, run(h, func(e *Engine) error {
		info, err := e.Create(CreateParams{Deployer: inventor, Name: "Solar Membrane Royalty", Symbol: "SMR", IPNFTTokenID: 0, MaxSupply: big.NewInt(maxSupply)})
		if err != nil {
			return err
		}
		addr = info.Address
		return nil
	}))
	return addr
}

func TestMintEmitsRoleAndRespectsCap(t *testing.T) {
	h := nativetest.New(t)
	tok := create(t, h, 1_000)

	require.NoError(t, run(h, func(e *Engine) error { return e.MintToInvestor(tok, inventor, investor, big.NewInt(600)) }))
	require.NoError(t, run(h, func(e *Engine) error { return e.MintToInventor(tok, inventor, inventor, big.NewInt(300)) }))

	evt := h.Last(EventTypeTokensDistributed)
	require.NotNil(t, evt)
	require.Equal(t, RoleInventor, evt.Attributes["role"])
	require.Equal(t, "300", evt.Attributes["amount"])

	// Each call is within the cap on its own but the sum is not.
	err := run(h, func(e *Engine) error { return e.MintToInvestor(tok, inventor, investor, big.NewInt(101)) })
	require.ErrorIs(t, err, protoerrors.ErrExceedsMaxSupply)

	require.NoError(t, run(h, func(e *Engine) error { return e.MintToInvestor(tok, inventor, investor, big.NewInt(100)) }))
	require.NoError(t, run(h, func(e *Engine) error {
		info, err := e.Info(tok)
		require.NoError(t, err)
		require.Equal(t, int64(1_000), info.TotalSupply.Int64())
		require.True(t, info.TotalSupply.Cmp(info.MaxSupply) <= 0)
		remaining, err := e.RemainingSupply(tok)
		require.NoError(t, err)
		require.Zero(t, remaining.Sign())
		return nil
	}))
	require.ErrorIs(t, run(h, func(e *Engine) error { return e.MintToInvestor(tok, inventor, investor, big.NewInt(1)) }), protoerrors.ErrExceedsMaxSupply)
}

func TestMintRestrictedToOwner(t *testing.T) {
	h := nativetest.New(t)
	tok := create(t, h, 1_000)
	err := run(h, func(e *Engine) error { return e.MintToInvestor(tok, investor, investor, big.NewInt(1)) })
	require.ErrorIs(t, err, protoerrors.ErrUnauthorized)
	require.Equal(t, protoerrors.KindAuthorization, protoerrors.KindOf(err))
}

func TestFinalizeIsOneWay(t *testing.T) {
	h := nativetest.New(t)
	tok := create(t, h, 1_000)
	require.NoError(t, run(h, func(e *Engine) error { return e.MintToInvestor(tok, inventor, investor, big.NewInt(10)) }))

	require.ErrorIs(t, run(h, func(e *Engine) error { return e.FinalizeDistribution(tok, investor) }), protoerrors.ErrUnauthorized)
	require.NoError(t, run(h, func(e *Engine) error { return e.FinalizeDistribution(tok, inventor) }))
	require.ErrorIs(t, run(h, func(e *Engine) error { return e.FinalizeDistribution(tok, inventor) }), protoerrors.ErrDistributionFinalized)
	require.ErrorIs(t, run(h, func(e *Engine) error { return e.MintToInvestor(tok, inventor, investor, big.NewInt(1)) }), protoerrors.ErrDistributionFinalized)

	finalized := 0
	for _, typ := range h.Types() {
		if typ == EventTypeDistributionFinalized {
			finalized++
		}
	}
	require.Equal(t, 1, finalized)

	// Transfers and burns stay open after finalization.
	require.NoError(t, run(h, func(e *Engine) error { return e.Ledger().Transfer(tok, investor, buyer, big.NewInt(4)) }))
	require.NoError(t, run(h, func(e *Engine) error { return e.Ledger().Burn(tok, investor, big.NewInt(1)) }))
	require.NoError(t, run(h, func(e *Engine) error {
		bal, err := e.Ledger().BalanceOf(tok, investor)
		require.NoError(t, err)
		require.Equal(t, int64(5), bal.Int64())
		return nil
	}))
}

func TestCreateRejectsZeroCap(t *testing.T) {
	h := nativetest.New(t)
	err := run(h, func(e *Engine) error {
		_, err := e.Create(CreateParams{Deployer: inventor, Name: "X", Symbol: "X", MaxSupply: big.NewInt(0)})
		return err
	})
	require.ErrorIs(t, err, protoerrors.ErrZeroAmount)
}
