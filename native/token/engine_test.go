package token

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	protoerrors "ideacapital/core/errors"
	"ideacapital/core/events"
	"ideacapital/core/state"
	"ideacapital/storage"
)

var (
	issuer  = common.HexToAddress("0x1000000000000000000000000000000000000001")
	alice   = common.HexToAddress("0x2000000000000000000000000000000000000002")
	bob     = common.HexToAddress("0x3000000000000000000000000000000000000003")
	spender = common.HexToAddress("0x4000000000000000000000000000000000000004")
)

type harness struct {
	t   *testing.T
	mgr *state.Manager
	rec *events.Recorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return &harness{t: t, mgr: state.NewManager(storage.NewMemDB()), rec: &events.Recorder{}}
}

func (h *harness) run(fn func(e *Engine) error) error {
	_, err := h.mgr.Update(func(tx *state.Tx) error {
		engine := NewEngine()
		engine.SetState(tx)
		engine.SetEmitter(multiEmitter{tx, h.rec})
		engine.SetNowFunc(func() time.Time { return time.Unix(1_700_000_000, 0) })
		return fn(engine)
	})
	return err
}

type multiEmitter []events.Emitter

func (m multiEmitter) Emit(evt events.Event) {
	for _, e := range m {
		e.Emit(evt)
	}
}

func (h *harness) deploy(transferable bool) common.Address {
	var addr common.Address
	require.NoError(h.t, h.run(func(e *Engine) error {
		meta, err := e.Deploy(DeployParams{Deployer: issuer, Owner: issuer, Name: "Mock USDC", Symbol: "USDC", Decimals: 6, Transferable: transferable})
		if err != nil {
			return err
		}
		addr = meta.Address
		return nil
	}))
	return addr
}

func (h *harness) balance(token, holder common.Address) *big.Int {
	var out *big.Int
	require.NoError(h.t, h.run(func(e *Engine) error {
		var err error
		out, err = e.BalanceOf(token, holder)
		return err
	}))
	return out
}

func TestMintTransferAndSupply(t *testing.T) {
	h := newHarness(t)
	tok := h.deploy(true)

	require.NoError(t, h.run(func(e *Engine) error { return e.Mint(tok, issuer, alice, big.NewInt(1_000)) }))
	require.NoError(t, h.run(func(e *Engine) error { return e.Transfer(tok, alice, bob, big.NewInt(400)) }))

	require.Equal(t, int64(600), h.balance(tok, alice).Int64())
	require.Equal(t, int64(400), h.balance(tok, bob).Int64())

	require.NoError(t, h.run(func(e *Engine) error {
		meta, err := e.Token(tok)
		require.NoError(t, err)
		require.Equal(t, int64(1_000), meta.TotalSupply.Int64())
		holders, err := e.Holders(tok)
		require.NoError(t, err)
		require.Equal(t, []common.Address{alice, bob}, holders)
		return nil
	}))
	require.Equal(t, []string{EventTypeDeployed, EventTypeTransfer, EventTypeTransfer}, h.rec.Types())
}

func TestMintRequiresOwner(t *testing.T) {
	h := newHarness(t)
	tok := h.deploy(true)
	err := h.run(func(e *Engine) error { return e.Mint(tok, alice, alice, big.NewInt(1)) })
	require.ErrorIs(t, err, protoerrors.ErrUnauthorized)
}

func TestTransferInsufficientBalanceLeavesStateUntouched(t *testing.T) {
	h := newHarness(t)
	tok := h.deploy(true)
	require.NoError(t, h.run(func(e *Engine) error { return e.Mint(tok, issuer, alice, big.NewInt(10)) }))

	err := h.run(func(e *Engine) error { return e.Transfer(tok, alice, bob, big.NewInt(11)) })
	require.ErrorIs(t, err, protoerrors.ErrInsufficientBalance)
	require.Equal(t, int64(10), h.balance(tok, alice).Int64())
	require.Equal(t, int64(0), h.balance(tok, bob).Int64())
}

func TestApproveAndTransferFrom(t *testing.T) {
	h := newHarness(t)
	tok := h.deploy(true)
	require.NoError(t, h.run(func(e *Engine) error { return e.Mint(tok, issuer, alice, big.NewInt(100)) }))
	require.NoError(t, h.run(func(e *Engine) error { return e.Approve(tok, alice, spender, big.NewInt(60)) }))

	require.NoError(t, h.run(func(e *Engine) error { return e.TransferFrom(tok, spender, alice, bob, big.NewInt(50)) }))
	err := h.run(func(e *Engine) error { return e.TransferFrom(tok, spender, alice, bob, big.NewInt(20)) })
	require.ErrorIs(t, err, protoerrors.ErrInsufficientAllowance)

	require.NoError(t, h.run(func(e *Engine) error {
		left, err := e.Allowance(tok, alice, spender)
		require.NoError(t, err)
		require.Equal(t, int64(10), left.Int64())
		return nil
	}))
	require.Equal(t, int64(50), h.balance(tok, bob).Int64())
}

func TestBurnReducesSupply(t *testing.T) {
	h := newHarness(t)
	tok := h.deploy(true)
	require.NoError(t, h.run(func(e *Engine) error { return e.Mint(tok, issuer, alice, big.NewInt(100)) }))
	require.NoError(t, h.run(func(e *Engine) error { return e.Burn(tok, alice, big.NewInt(30)) }))
	require.NoError(t, h.run(func(e *Engine) error {
		meta, err := e.Token(tok)
		require.NoError(t, err)
		require.Equal(t, int64(70), meta.TotalSupply.Int64())
		return nil
	}))
}

func TestNonTransferableLedgerRejectsMovement(t *testing.T) {
	h := newHarness(t)
	tok := h.deploy(false)
	require.NoError(t, h.run(func(e *Engine) error { return e.Mint(tok, issuer, alice, big.NewInt(100)) }))

	for name, op := range map[string]func(e *Engine) error{
		"transfer":     func(e *Engine) error { return e.Transfer(tok, alice, bob, big.NewInt(1)) },
		"transferFrom": func(e *Engine) error { return e.TransferFrom(tok, spender, alice, bob, big.NewInt(1)) },
		"approve":      func(e *Engine) error { return e.Approve(tok, alice, spender, big.NewInt(1)) },
		"burn":         func(e *Engine) error { return e.Burn(tok, alice, big.NewInt(1)) },
	} {
		require.ErrorIs(t, h.run(op), protoerrors.ErrNonTransferable, name)
	}
}

func TestTransferOwnership(t *testing.T) {
	h := newHarness(t)
	tok := h.deploy(true)
	require.ErrorIs(t, h.run(func(e *Engine) error { return e.TransferOwnership(tok, alice, bob) }), protoerrors.ErrUnauthorized)
	require.NoError(t, h.run(func(e *Engine) error { return e.TransferOwnership(tok, issuer, bob) }))
	require.NoError(t, h.run(func(e *Engine) error { return e.Mint(tok, bob, alice, big.NewInt(1)) }))
	require.ErrorIs(t, h.run(func(e *Engine) error { return e.Mint(tok, issuer, alice, big.NewInt(1)) }), protoerrors.ErrUnauthorized)
}

func TestUnknownTokenIsNotFound(t *testing.T) {
	h := newHarness(t)
	err := h.run(func(e *Engine) error {
		_, err := e.BalanceOf(common.HexToAddress("0xdead"), alice)
		return err
	})
	require.ErrorIs(t, err, protoerrors.ErrContractNotFound)
}

func TestDeployNormalizesNameAndSymbol(t *testing.T) {
	h := newHarness(t)
	var meta *Metadata
	require.NoError(t, h.run(func(e *Engine) error {
		var err error
		meta, err = e.Deploy(DeployParams{Deployer: issuer, Owner: issuer, Name: " Ｍｏｃｋ USDC ", Symbol: "ＵＳＤＣ", Decimals: 6})
		return err
	}))
	require.Equal(t, "Mock USDC", meta.Name)
	require.Equal(t, "USDC", meta.Symbol)

	err := h.run(func(e *Engine) error {
		_, err := e.Deploy(DeployParams{Deployer: issuer, Owner: issuer, Name: "Blank", Symbol: "  "})
		return err
	})
	require.ErrorIs(t, err, protoerrors.ErrMissingField)
}

func TestMintRejectsLedgersOfOtherKinds(t *testing.T) {
	h := newHarness(t)
	var tok common.Address
	require.NoError(t, h.run(func(e *Engine) error {
		meta, err := e.Deploy(DeployParams{Deployer: issuer, Owner: issuer, Name: "Capped", Symbol: "CAP", Decimals: 18, Transferable: true, Kind: "royalty"})
		if err != nil {
			return err
		}
		tok = meta.Address
		return nil
	}))

	require.ErrorIs(t, h.run(func(e *Engine) error { return e.Mint(tok, issuer, alice, big.NewInt(1)) }), protoerrors.ErrUnauthorized)
	require.ErrorIs(t, h.run(func(e *Engine) error { return e.MintKind(KindToken, tok, issuer, alice, big.NewInt(1)) }), protoerrors.ErrUnauthorized)
	require.NoError(t, h.run(func(e *Engine) error { return e.MintKind("royalty", tok, issuer, alice, big.NewInt(1)) }))
	require.Zero(t, h.balance(tok, alice).Cmp(big.NewInt(1)))
}
