package royalty

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

var errStateNotConfigured = errors.New("royalty: state not configured")

// Engine manages capped royalty tokens. Balances, transfers and burns live in
// the shared ledger; this engine owns the cap and the one-way distribution
// flag.
type Engine struct {
	state   token.State
	ledger  *token.Engine
	emitter events.Emitter
	nowFn   func() time.Time
}

// NewEngine constructs a royalty engine with default no-op dependencies.
func NewEngine() *Engine {
	return &Engine{
		ledger:  token.NewEngine(),
		emitter: events.NoopEmitter{},
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

// SetState wires the engine and its ledger to the state backend.
func (e *Engine) SetState(s token.State) {
	e.state = s
	e.ledger.SetState(s)
}

// SetEmitter configures the event emitter. Passing nil resets the emitter to a
// no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
	e.ledger.SetEmitter(emitter)
}

// SetNowFunc overrides the clock. Nil restores the default UTC clock.
func (e *Engine) SetNowFunc(now func() time.Time) {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	e.nowFn = now
	e.ledger.SetNowFunc(now)
}

// Ledger exposes the underlying balance ledger for transfers and queries.
func (e *Engine) Ledger() *token.Engine { return e.ledger }

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(events.Wrap(evt))
}

func termsKey(tok common.Address) []byte {
	return append([]byte("royalty/terms/"), tok.Bytes()...)
}

func (e *Engine) loadTerms(tok common.Address) (*Terms, error) {
	if e == nil || e.state == nil {
		return nil, errStateNotConfigured
	}
	var terms Terms
	ok, err := e.state.KVGet(termsKey(tok), &terms)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, protoerrors.ErrContractNotFound
	}
	if terms.MaxSupply == nil {
		terms.MaxSupply = big.NewInt(0)
	}
	return &terms, nil
}

// Create deploys a royalty token owned by the deployer. The cap is fixed for
// the token's lifetime.
func (e *Engine) Create(params CreateParams) (*Info, error) {
	if e == nil || e.state == nil {
		return nil, errStateNotConfigured
	}
	if err := types.ValidateAmount(params.MaxSupply); err != nil {
		return nil, err
	}
	if params.MaxSupply.Sign() == 0 {
		return nil, protoerrors.ErrZeroAmount
	}
	meta, err := e.ledger.Deploy(token.DeployParams{
		Deployer:     params.Deployer,
		Owner:        params.Deployer,
		Name:         params.Name,
		Symbol:       params.Symbol,
		Decimals:     types.TokenDecimals,
		Transferable: true,
		Kind:         Kind,
	})
	if err != nil {
		return nil, err
	}
	terms := &Terms{Token: meta.Address, MaxSupply: new(big.Int).Set(params.MaxSupply), IPNFTTokenID: params.IPNFTTokenID}
	if err := e.state.KVPut(termsKey(meta.Address), terms); err != nil {
		return nil, err
	}
	return &Info{Metadata: meta, MaxSupply: terms.MaxSupply, IPNFTTokenID: terms.IPNFTTokenID}, nil
}

// Info returns the token header together with its royalty terms.
func (e *Engine) Info(tok common.Address) (*Info, error) {
	terms, err := e.loadTerms(tok)
	if err != nil {
		return nil, err
	}
	meta, err := e.ledger.Token(tok)
	if err != nil {
		return nil, err
	}
	return &Info{
		Metadata:              meta,
		MaxSupply:             terms.MaxSupply,
		DistributionFinalized: terms.DistributionFinalized,
		IPNFTTokenID:          terms.IPNFTTokenID,
	}, nil
}

// MintToInvestor mints amount to an investor.
func (e *Engine) MintToInvestor(tok, caller, to common.Address, amount *big.Int) error {
	return e.mint(tok, caller, to, amount, RoleInvestor)
}

// MintToInventor mints amount to the inventor or team.
func (e *Engine) MintToInventor(tok, caller, to common.Address, amount *big.Int) error {
	return e.mint(tok, caller, to, amount, RoleInventor)
}

func (e *Engine) mint(tok, caller, to common.Address, amount *big.Int, role string) error {
	info, err := e.Info(tok)
	if err != nil {
		return err
	}
	if caller != info.Owner {
		return protoerrors.ErrUnauthorized
	}
	if info.DistributionFinalized {
		return protoerrors.ErrDistributionFinalized
	}
	if err := types.ValidateAmount(amount); err != nil {
		return err
	}
	if new(big.Int).Add(info.TotalSupply, amount).Cmp(info.MaxSupply) > 0 {
		return protoerrors.ErrExceedsMaxSupply
	}
	if err := e.ledger.MintKind(Kind, tok, caller, to, amount); err != nil {
		return err
	}
	e.emit(TokensDistributedEvent(tok, to, amount, role))
	return nil
}

// FinalizeDistribution permanently closes minting. It can run once.
func (e *Engine) FinalizeDistribution(tok, caller common.Address) error {
	info, err := e.Info(tok)
	if err != nil {
		return err
	}
	if caller != info.Owner {
		return protoerrors.ErrUnauthorized
	}
	if info.DistributionFinalized {
		return protoerrors.ErrDistributionFinalized
	}
	terms, err := e.loadTerms(tok)
	if err != nil {
		return err
	}
	terms.DistributionFinalized = true
	if err := e.state.KVPut(termsKey(tok), terms); err != nil {
		return err
	}
	e.emit(DistributionFinalizedEvent(tok, info.TotalSupply))
	return nil
}

// RemainingSupply returns how much can still be minted under the cap.
func (e *Engine) RemainingSupply(tok common.Address) (*big.Int, error) {
	info, err := e.Info(tok)
	if err != nil {
		return nil, err
	}
	if info.DistributionFinalized {
		return big.NewInt(0), nil
	}
	return new(big.Int).Sub(info.MaxSupply, info.TotalSupply), nil
}
