// Package reputation implements the soulbound voting-weight token. Balances
// only ever change through owner mints; every transfer path is rejected.
package reputation

import (
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	protoerrors "ideacapital/core/errors"
	"ideacapital/core/events"
	"ideacapital/core/types"
	"ideacapital/native/token"
)

// Kind tags reputation ledgers in the contract registry.
const Kind = "reputation"

// EventTypeGranted is emitted when reputation is minted.
const EventTypeGranted = "reputation.granted"

var errStateNotConfigured = errors.New("reputation: state not configured")

type Engine struct {
	state   token.State
	ledger  *token.Engine
	emitter events.Emitter
}

func NewEngine() *Engine {
	return &Engine{ledger: token.NewEngine(), emitter: events.NoopEmitter{}}
}

func (e *Engine) SetState(s token.State) {
	e.state = s
	e.ledger.SetState(s)
}

func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
	e.ledger.SetEmitter(emitter)
}

func (e *Engine) SetNowFunc(now func() time.Time) { e.ledger.SetNowFunc(now) }

func (e *Engine) check(tok common.Address) (*token.Metadata, error) {
	if e == nil || e.state == nil {
		return nil, errStateNotConfigured
	}
	c, ok, err := e.state.Contract(tok)
	if err != nil {
		return nil, err
	}
	if !ok || c.Kind != Kind {
		return nil, protoerrors.ErrContractNotFound
	}
	return e.ledger.Token(tok)
}

// Deploy creates a reputation token owned by the deployer.
func (e *Engine) Deploy(deployer common.Address) (*token.Metadata, error) {
	if e == nil || e.state == nil {
		return nil, errStateNotConfigured
	}
	return e.ledger.Deploy(token.DeployParams{
		Deployer:     deployer,
		Owner:        deployer,
		Name:         "IdeaCapital Reputation",
		Symbol:       "REP",
		Decimals:     types.TokenDecimals,
		Transferable: false,
		Kind:         Kind,
	})
}

// Mint grants reputation. Owner only.
func (e *Engine) Mint(tok, caller, to common.Address, amount *big.Int) error {
	if _, err := e.check(tok); err != nil {
		return err
	}
	if err := e.ledger.MintKind(Kind, tok, caller, to, amount); err != nil {
		return err
	}
	e.emitter.Emit(events.Wrap(&types.Event{
		Type: EventTypeGranted,
		Attributes: map[string]string{
			"token":  tok.Hex(),
			"to":     to.Hex(),
			"amount": types.FormatAmount(amount),
		},
	}))
	return nil
}

// Transfer always fails; reputation is a capability marker, not currency.
func (e *Engine) Transfer(tok, from, to common.Address, amount *big.Int) error {
	if _, err := e.check(tok); err != nil {
		return err
	}
	return protoerrors.ErrNonTransferable
}

// BalanceOf returns the live reputation balance.
func (e *Engine) BalanceOf(tok, holder common.Address) (*big.Int, error) {
	if _, err := e.check(tok); err != nil {
		return nil, err
	}
	return e.ledger.BalanceOf(tok, holder)
}

// Token returns the ledger header.
func (e *Engine) Token(tok common.Address) (*token.Metadata, error) {
	return e.check(tok)
}
