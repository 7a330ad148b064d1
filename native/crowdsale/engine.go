package crowdsale

import (
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	protoerrors "ideacapital/core/errors"
	"ideacapital/core/events"
	"ideacapital/core/state"
	"ideacapital/core/types"
	"ideacapital/native/royalty"
	"ideacapital/native/token"
)

var errStateNotConfigured = errors.New("crowdsale: state not configured")

// Engine runs the funding lifecycle: Active until finalize, then either
// released to the owner (goal reached) or open for refunds.
type Engine struct {
	state   token.State
	ledger  *token.Engine
	royalty *royalty.Engine
	emitter events.Emitter
	nowFn   func() time.Time
}

// NewEngine constructs a crowdsale engine with default no-op dependencies.
func NewEngine() *Engine {
	return &Engine{
		ledger:  token.NewEngine(),
		royalty: royalty.NewEngine(),
		emitter: events.NoopEmitter{},
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
}

// SetState wires the engine and the engines it calls to the state backend.
func (e *Engine) SetState(s token.State) {
	e.state = s
	e.ledger.SetState(s)
	e.royalty.SetState(s)
}

// SetEmitter configures the event emitter. Passing nil resets the emitter to a
// no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
	e.ledger.SetEmitter(emitter)
	e.royalty.SetEmitter(emitter)
}

// SetNowFunc overrides the clock used for deadline checks. Nil restores the
// default UTC clock.
func (e *Engine) SetNowFunc(now func() time.Time) {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	e.nowFn = now
	e.ledger.SetNowFunc(now)
	e.royalty.SetNowFunc(now)
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(events.Wrap(evt))
}

func (e *Engine) now() uint64 {
	return uint64(e.nowFn().Unix())
}

func saleKey(addr common.Address) []byte {
	return append([]byte("crowdsale/sale/"), addr.Bytes()...)
}

func contributionKey(sale, investor common.Address) []byte {
	key := append([]byte("crowdsale/contribution/"), sale.Bytes()...)
	return append(key, investor.Bytes()...)
}

// Sale loads a crowdsale or returns ErrContractNotFound.
func (e *Engine) Sale(addr common.Address) (*Sale, error) {
	if e == nil || e.state == nil {
		return nil, errStateNotConfigured
	}
	var sale Sale
	ok, err := e.state.KVGet(saleKey(addr), &sale)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, protoerrors.ErrContractNotFound
	}
	sale.normalize()
	return &sale, nil
}

func (e *Engine) putSale(sale *Sale) error {
	return e.state.KVPut(saleKey(sale.Address), sale)
}

// Contribution returns how much investor has paid into the sale and not yet
// been refunded.
func (e *Engine) Contribution(sale, investor common.Address) (*big.Int, error) {
	if _, err := e.Sale(sale); err != nil {
		return nil, err
	}
	amount := new(big.Int)
	ok, err := e.state.KVGet(contributionKey(sale, investor), amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return amount, nil
}

// Deploy creates a crowdsale. Mint authority over the royalty token must be
// handed to the returned sale address before the first investment.
func (e *Engine) Deploy(params DeployParams) (*Sale, error) {
	if e == nil || e.state == nil {
		return nil, errStateNotConfigured
	}
	if params.Deployer == (common.Address{}) {
		return nil, protoerrors.ErrInvalidAddress
	}
	if err := types.ValidateAmount(params.Goal); err != nil {
		return nil, err
	}
	if params.Goal.Sign() == 0 {
		return nil, protoerrors.ErrZeroAmount
	}
	minInvestment := params.MinInvestment
	if minInvestment == nil {
		minInvestment = big.NewInt(0)
	}
	if err := types.ValidateAmount(minInvestment); err != nil {
		return nil, err
	}
	if params.Duration <= 0 {
		return nil, protoerrors.ErrMissingField
	}
	if _, err := e.ledger.Token(params.PaymentToken); err != nil {
		return nil, err
	}
	if _, err := e.royalty.Info(params.RoyaltyToken); err != nil {
		return nil, err
	}
	addr, err := e.state.NextContractAddress(params.Deployer)
	if err != nil {
		return nil, err
	}
	now := e.now()
	sale := &Sale{
		Address:       addr,
		Owner:         params.Deployer,
		PaymentToken:  params.PaymentToken,
		RoyaltyToken:  params.RoyaltyToken,
		Goal:          new(big.Int).Set(params.Goal),
		MinInvestment: new(big.Int).Set(minInvestment),
		Deadline:      now + uint64(params.Duration/time.Second),
		TotalRaised:   big.NewInt(0),
		CreatedAt:     now,
	}
	if err := e.state.RegisterContract(&state.Contract{Address: addr, Kind: Kind, Deployer: params.Deployer, CreatedAt: now}); err != nil {
		return nil, err
	}
	if err := e.putSale(sale); err != nil {
		return nil, err
	}
	e.emit(DeployedEvent(sale))
	return sale, nil
}

// TokensFor computes floor(amount * maxSupply / goal).
func TokensFor(amount, maxSupply, goal *big.Int) *big.Int {
	if goal == nil || goal.Sign() == 0 {
		return big.NewInt(0)
	}
	out := new(big.Int).Mul(amount, maxSupply)
	return out.Quo(out, goal)
}

// Invest pulls amount from the payer's payment allowance into the sale and
// mints royalty tokens pro rata to the goal. Contributions past the goal are
// accepted; the minted amount is then clamped to what the cap still allows.
func (e *Engine) Invest(saleAddr, payer common.Address, amount *big.Int) (*Receipt, error) {
	sale, err := e.Sale(saleAddr)
	if err != nil {
		return nil, err
	}
	if err := types.ValidateAmount(amount); err != nil {
		return nil, err
	}
	if amount.Cmp(sale.MinInvestment) < 0 {
		return nil, protoerrors.ErrBelowMinimumInvestment
	}
	if amount.Sign() == 0 {
		return nil, protoerrors.ErrZeroAmount
	}
	if e.now() > sale.Deadline {
		return nil, protoerrors.ErrCrowdsaleEnded
	}
	if sale.Finalized {
		return nil, protoerrors.ErrAlreadyFinalized
	}

	info, err := e.royalty.Info(sale.RoyaltyToken)
	if err != nil {
		return nil, err
	}
	due := TokensFor(amount, info.MaxSupply, sale.Goal)
	remaining, err := e.royalty.RemainingSupply(sale.RoyaltyToken)
	if err != nil {
		return nil, err
	}
	tokens := new(big.Int).Set(due)
	if tokens.Cmp(remaining) > 0 {
		tokens.Set(remaining)
	}
	unminted := new(big.Int).Sub(due, tokens)

	if err := e.ledger.TransferFrom(sale.PaymentToken, sale.Address, payer, sale.Address, amount); err != nil {
		return nil, err
	}

	previous, err := e.Contribution(saleAddr, payer)
	if err != nil {
		return nil, err
	}
	if previous.Sign() == 0 {
		sale.InvestorCount++
	}
	if err := e.state.KVPut(contributionKey(saleAddr, payer), new(big.Int).Add(previous, amount)); err != nil {
		return nil, err
	}
	sale.TotalRaised = new(big.Int).Add(sale.TotalRaised, amount)
	crossed := !sale.GoalReached && sale.TotalRaised.Cmp(sale.Goal) >= 0
	if crossed {
		sale.GoalReached = true
	}
	if err := e.putSale(sale); err != nil {
		return nil, err
	}

	if tokens.Sign() > 0 {
		if err := e.royalty.MintToInvestor(sale.RoyaltyToken, sale.Address, payer, tokens); err != nil {
			return nil, err
		}
	}
	e.emit(InvestmentEvent(saleAddr, payer, amount, tokens, unminted))
	if crossed {
		e.emit(GoalReachedEvent(saleAddr, sale.TotalRaised))
	}
	return &Receipt{
		Sale:           saleAddr,
		Investor:       payer,
		Paid:           new(big.Int).Set(amount),
		TokensMinted:   tokens,
		TokensUnminted: unminted,
		GoalReached:    sale.GoalReached,
	}, nil
}

// Finalize closes the sale. Anyone may call it once the goal is reached or the
// deadline has passed. On success the raised funds go to the owner and the
// royalty distribution is closed; otherwise funds stay for refunds.
func (e *Engine) Finalize(saleAddr, caller common.Address) (*Sale, error) {
	sale, err := e.Sale(saleAddr)
	if err != nil {
		return nil, err
	}
	if sale.Finalized {
		return nil, protoerrors.ErrAlreadyFinalized
	}
	if !sale.GoalReached && e.now() <= sale.Deadline {
		return nil, protoerrors.ErrStillActive
	}
	sale.Finalized = true
	if err := e.putSale(sale); err != nil {
		return nil, err
	}
	if sale.GoalReached {
		if sale.TotalRaised.Sign() > 0 {
			if err := e.ledger.Transfer(sale.PaymentToken, sale.Address, sale.Owner, sale.TotalRaised); err != nil {
				return nil, err
			}
		}
		if err := e.royalty.FinalizeDistribution(sale.RoyaltyToken, sale.Address); err != nil {
			return nil, err
		}
	}
	e.emit(FinalizedEvent(saleAddr, sale.GoalReached, sale.TotalRaised))
	return sale, nil
}

// Refund returns the caller's full contribution after a failed sale.
func (e *Engine) Refund(saleAddr, caller common.Address) (*big.Int, error) {
	sale, err := e.Sale(saleAddr)
	if err != nil {
		return nil, err
	}
	if sale.GoalReached {
		return nil, protoerrors.ErrGoalReachedNoRefund
	}
	if !sale.Finalized {
		return nil, protoerrors.ErrNotFinalized
	}
	amount, err := e.Contribution(saleAddr, caller)
	if err != nil {
		return nil, err
	}
	if amount.Sign() == 0 {
		return nil, protoerrors.ErrNoContributionToRefund
	}
	if err := e.state.KVPut(contributionKey(saleAddr, caller), big.NewInt(0)); err != nil {
		return nil, err
	}
	if err := e.ledger.Transfer(sale.PaymentToken, sale.Address, caller, amount); err != nil {
		return nil, err
	}
	e.emit(RefundedEvent(saleAddr, caller, amount))
	return amount, nil
}
