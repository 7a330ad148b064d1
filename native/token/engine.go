package token

import (
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"golang.org/x/text/unicode/norm"

	protoerrors "ideacapital/core/errors"
	"ideacapital/core/events"
	"ideacapital/core/state"
	"ideacapital/core/types"
)

var errStateNotConfigured = errors.New("token: state not configured")

// Engine implements the fungible balance ledger shared by the payment token,
// royalty tokens and the reputation token.
type Engine struct {
	state   State
	emitter events.Emitter
	nowFn   func() time.Time
}

// NewEngine constructs a ledger engine with default no-op dependencies.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

// SetState wires the engine to the state backend.
func (e *Engine) SetState(s State) { e.state = s }

// SetEmitter configures the event emitter used by the engine. Passing nil resets
// the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the clock. Nil restores the default UTC clock.
func (e *Engine) SetNowFunc(now func() time.Time) {
	if now == nil {
		e.nowFn = func() time.Time { return time.Now().UTC() }
		return
	}
	e.nowFn = now
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(events.Wrap(evt))
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errStateNotConfigured
	}
	return nil
}

// Deploy creates a new ledger owned by params.Owner.
func (e *Engine) Deploy(params DeployParams) (*Metadata, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if params.Owner == (common.Address{}) || params.Deployer == (common.Address{}) {
		return nil, protoerrors.ErrInvalidAddress
	}
	// Compatibility forms fold so "ＵＳＤＣ" and "USDC" name the same ticker.
	name := norm.NFKC.String(strings.TrimSpace(params.Name))
	symbol := norm.NFKC.String(strings.TrimSpace(params.Symbol))
	if name == "" || symbol == "" {
		return nil, protoerrors.ErrMissingField
	}
	kind := params.Kind
	if kind == "" {
		kind = KindToken
	}
	addr, err := e.state.NextContractAddress(params.Deployer)
	if err != nil {
		return nil, err
	}
	now := uint64(e.nowFn().Unix())
	meta := &Metadata{
		Address:      addr,
		Name:         name,
		Symbol:       symbol,
		Decimals:     params.Decimals,
		Owner:        params.Owner,
		TotalSupply:  big.NewInt(0),
		Transferable: params.Transferable,
		CreatedAt:    now,
	}
	if err := e.state.RegisterContract(&state.Contract{Address: addr, Kind: kind, Deployer: params.Deployer, CreatedAt: now}); err != nil {
		return nil, err
	}
	if err := e.storeMeta(meta); err != nil {
		return nil, err
	}
	e.emit(DeployedEvent(meta))
	return meta.Clone(), nil
}

// Token returns the ledger header or ErrContractNotFound.
func (e *Engine) Token(token common.Address) (*Metadata, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	meta, ok, err := e.loadMeta(token)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, protoerrors.ErrContractNotFound
	}
	return meta, nil
}

// BalanceOf returns the holder's balance.
func (e *Engine) BalanceOf(token, holder common.Address) (*big.Int, error) {
	if _, err := e.Token(token); err != nil {
		return nil, err
	}
	return e.loadAmount(balanceKey(token, holder))
}

// Allowance returns how much spender may move on behalf of owner.
func (e *Engine) Allowance(token, owner, spender common.Address) (*big.Int, error) {
	if _, err := e.Token(token); err != nil {
		return nil, err
	}
	return e.loadAmount(allowanceKey(token, owner, spender))
}

// Holders lists every address that has ever held a positive balance.
func (e *Engine) Holders(token common.Address) ([]common.Address, error) {
	if _, err := e.Token(token); err != nil {
		return nil, err
	}
	var raw [][]byte
	if err := e.state.KVGetList(holdersKey(token), &raw); err != nil {
		return nil, err
	}
	out := make([]common.Address, 0, len(raw))
	for _, b := range raw {
		out = append(out, common.BytesToAddress(b))
	}
	return out, nil
}

// Mint credits amount to the recipient of a plain ledger. Only the ledger
// owner may mint. Royalty and reputation ledgers reject it; their supply
// moves through their own engines.
func (e *Engine) Mint(token, caller, to common.Address, amount *big.Int) error {
	return e.MintKind(KindToken, token, caller, to, amount)
}

// MintKind mints on a ledger registered under kind. Engines layered on the
// ledger call it after applying their own supply rules.
func (e *Engine) MintKind(kind string, token, caller, to common.Address, amount *big.Int) error {
	meta, err := e.Token(token)
	if err != nil {
		return err
	}
	c, ok, err := e.state.Contract(token)
	if err != nil {
		return err
	}
	if !ok || c.Kind != kind {
		return protoerrors.ErrUnauthorized
	}
	if caller != meta.Owner {
		return protoerrors.ErrUnauthorized
	}
	if to == (common.Address{}) {
		return protoerrors.ErrInvalidAddress
	}
	if err := types.ValidateAmount(amount); err != nil {
		return err
	}
	supply := new(big.Int).Add(meta.TotalSupply, amount)
	if _, overflow := uint256.FromBig(supply); overflow {
		return protoerrors.ErrInvalidAmount
	}
	balance, err := e.loadAmount(balanceKey(token, to))
	if err != nil {
		return err
	}
	if err := e.setBalance(token, to, balance.Add(balance, amount)); err != nil {
		return err
	}
	meta.TotalSupply = supply
	if err := e.storeMeta(meta); err != nil {
		return err
	}
	e.emit(TransferEvent(token, common.Address{}, to, amount))
	return nil
}

// Transfer moves amount from the caller to the recipient.
func (e *Engine) Transfer(token, from, to common.Address, amount *big.Int) error {
	meta, err := e.Token(token)
	if err != nil {
		return err
	}
	if !meta.Transferable {
		return protoerrors.ErrNonTransferable
	}
	return e.move(token, from, to, amount)
}

// Approve sets the spender's allowance over the caller's balance.
func (e *Engine) Approve(token, owner, spender common.Address, amount *big.Int) error {
	meta, err := e.Token(token)
	if err != nil {
		return err
	}
	if !meta.Transferable {
		return protoerrors.ErrNonTransferable
	}
	if spender == (common.Address{}) {
		return protoerrors.ErrInvalidAddress
	}
	if err := types.ValidateAmount(amount); err != nil {
		return err
	}
	if err := e.state.KVPut(allowanceKey(token, owner, spender), amount); err != nil {
		return err
	}
	e.emit(ApprovalEvent(token, owner, spender, amount))
	return nil
}

// TransferFrom moves amount out of from's balance using spender's allowance.
func (e *Engine) TransferFrom(token, spender, from, to common.Address, amount *big.Int) error {
	meta, err := e.Token(token)
	if err != nil {
		return err
	}
	if !meta.Transferable {
		return protoerrors.ErrNonTransferable
	}
	if err := types.ValidateAmount(amount); err != nil {
		return err
	}
	key := allowanceKey(token, from, spender)
	allowance, err := e.loadAmount(key)
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) < 0 {
		return protoerrors.ErrInsufficientAllowance
	}
	if err := e.move(token, from, to, amount); err != nil {
		return err
	}
	return e.state.KVPut(key, allowance.Sub(allowance, amount))
}

// Burn destroys amount of the caller's balance.
func (e *Engine) Burn(token, holder common.Address, amount *big.Int) error {
	meta, err := e.Token(token)
	if err != nil {
		return err
	}
	if !meta.Transferable {
		return protoerrors.ErrNonTransferable
	}
	if err := types.ValidateAmount(amount); err != nil {
		return err
	}
	balance, err := e.loadAmount(balanceKey(token, holder))
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return protoerrors.ErrInsufficientBalance
	}
	if err := e.setBalance(token, holder, balance.Sub(balance, amount)); err != nil {
		return err
	}
	meta.TotalSupply = new(big.Int).Sub(meta.TotalSupply, amount)
	if err := e.storeMeta(meta); err != nil {
		return err
	}
	e.emit(TransferEvent(token, holder, common.Address{}, amount))
	return nil
}

// TransferOwnership hands mint authority to next.
func (e *Engine) TransferOwnership(token, caller, next common.Address) error {
	meta, err := e.Token(token)
	if err != nil {
		return err
	}
	if caller != meta.Owner {
		return protoerrors.ErrUnauthorized
	}
	if next == (common.Address{}) {
		return protoerrors.ErrInvalidAddress
	}
	previous := meta.Owner
	meta.Owner = next
	if err := e.storeMeta(meta); err != nil {
		return err
	}
	e.emit(OwnershipTransferredEvent(token, previous, next))
	return nil
}

func (e *Engine) move(token, from, to common.Address, amount *big.Int) error {
	if to == (common.Address{}) {
		return protoerrors.ErrInvalidAddress
	}
	if err := types.ValidateAmount(amount); err != nil {
		return err
	}
	fromBal, err := e.loadAmount(balanceKey(token, from))
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return protoerrors.ErrInsufficientBalance
	}
	if from != to {
		toBal, err := e.loadAmount(balanceKey(token, to))
		if err != nil {
			return err
		}
		if err := e.setBalance(token, from, fromBal.Sub(fromBal, amount)); err != nil {
			return err
		}
		if err := e.setBalance(token, to, toBal.Add(toBal, amount)); err != nil {
			return err
		}
	}
	e.emit(TransferEvent(token, from, to, amount))
	return nil
}
