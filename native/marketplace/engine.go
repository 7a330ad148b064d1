package marketplace

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	protoerrors "ideacapital/core/errors"
	"ideacapital/core/events"
	"ideacapital/core/state"
	"ideacapital/core/types"
	"ideacapital/native/token"
)

var errStateNotConfigured = errors.New("marketplace: state not configured")

// Engine settles fixed-price listings of ledger tokens. Listed amounts are
// held by the market until the listing is sold or cancelled.
type Engine struct {
	state   token.State
	ledger  *token.Engine
	emitter events.Emitter
	nowFn   func() time.Time
}

// NewEngine constructs a marketplace engine with default no-op dependencies.
func NewEngine() *Engine {
	return &Engine{
		ledger:  token.NewEngine(),
		emitter: events.NoopEmitter{},
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
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

func (e *Engine) SetNowFunc(now func() time.Time) {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	e.nowFn = now
	e.ledger.SetNowFunc(now)
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(events.Wrap(evt))
}

func marketKey(addr common.Address) []byte {
	return append([]byte("market/header/"), addr.Bytes()...)
}

func listingKey(market common.Address, id uint64) []byte {
	key := append([]byte("market/listing/"), market.Bytes()...)
	return binary.BigEndian.AppendUint64(key, id)
}

// Deploy creates a marketplace settling in paymentToken.
func (e *Engine) Deploy(owner, paymentToken common.Address, feeBps uint32) (*Market, error) {
	if e == nil || e.state == nil {
		return nil, errStateNotConfigured
	}
	if owner == (common.Address{}) {
		return nil, protoerrors.ErrInvalidAddress
	}
	if feeBps > maxFeeBps {
		return nil, fmt.Errorf("%w: fee bps %d out of range", protoerrors.ErrInvalidAmount, feeBps)
	}
	if _, err := e.ledger.Token(paymentToken); err != nil {
		return nil, err
	}
	addr, err := e.state.NextContractAddress(owner)
	if err != nil {
		return nil, err
	}
	now := uint64(e.nowFn().Unix())
	market := &Market{
		Address:      addr,
		Owner:        owner,
		PaymentToken: paymentToken,
		FeeBps:       feeBps,
		FeesAccrued:  big.NewInt(0),
		CreatedAt:    now,
	}
	if err := e.state.RegisterContract(&state.Contract{Address: addr, Kind: Kind, Deployer: owner, CreatedAt: now}); err != nil {
		return nil, err
	}
	if err := e.state.KVPut(marketKey(addr), market); err != nil {
		return nil, err
	}
	e.emit(DeployedEvent(market))
	return market, nil
}

// Market loads a marketplace header or returns ErrContractNotFound.
func (e *Engine) Market(addr common.Address) (*Market, error) {
	if e == nil || e.state == nil {
		return nil, errStateNotConfigured
	}
	var market Market
	ok, err := e.state.KVGet(marketKey(addr), &market)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, protoerrors.ErrContractNotFound
	}
	if market.FeesAccrued == nil {
		market.FeesAccrued = big.NewInt(0)
	}
	return &market, nil
}

// Listing loads a listing or returns ErrListingNotFound.
func (e *Engine) Listing(marketAddr common.Address, id uint64) (*Listing, error) {
	if _, err := e.Market(marketAddr); err != nil {
		return nil, err
	}
	var listing Listing
	ok, err := e.state.KVGet(listingKey(marketAddr, id), &listing)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, protoerrors.ErrListingNotFound
	}
	if listing.Amount == nil {
		listing.Amount = big.NewInt(0)
	}
	if listing.Price == nil {
		listing.Price = big.NewInt(0)
	}
	return &listing, nil
}

// CreateListing escrows amount of asset from the seller's allowance and
// offers it for price. Ids start at 0.
func (e *Engine) CreateListing(marketAddr, seller, asset common.Address, amount, price *big.Int) (*Listing, error) {
	market, err := e.Market(marketAddr)
	if err != nil {
		return nil, err
	}
	for _, v := range []*big.Int{amount, price} {
		if err := types.ValidateAmount(v); err != nil {
			return nil, err
		}
		if v.Sign() == 0 {
			return nil, protoerrors.ErrZeroAmount
		}
	}
	if err := e.ledger.TransferFrom(asset, marketAddr, seller, marketAddr, amount); err != nil {
		return nil, err
	}
	listing := &Listing{
		ID:        market.NextListingID,
		Seller:    seller,
		Asset:     asset,
		Amount:    new(big.Int).Set(amount),
		Price:     new(big.Int).Set(price),
		Active:    true,
		CreatedAt: uint64(e.nowFn().Unix()),
	}
	market.NextListingID++
	if err := e.state.KVPut(listingKey(marketAddr, listing.ID), listing); err != nil {
		return nil, err
	}
	if err := e.state.KVPut(marketKey(marketAddr), market); err != nil {
		return nil, err
	}
	e.emit(ListingCreatedEvent(marketAddr, listing))
	return listing, nil
}

// BuyListing pulls the price from the buyer's payment allowance, pays the
// seller net of the fee and releases the escrowed asset to the buyer.
func (e *Engine) BuyListing(marketAddr, buyer common.Address, id uint64) (*Sale, error) {
	market, err := e.Market(marketAddr)
	if err != nil {
		return nil, err
	}
	listing, err := e.Listing(marketAddr, id)
	if err != nil {
		return nil, err
	}
	if !listing.Active {
		return nil, protoerrors.ErrListingInactive
	}
	fee := Fee(listing.Price, market.FeeBps)
	sale := &Sale{
		ListingID:    id,
		Buyer:        buyer,
		Price:        new(big.Int).Set(listing.Price),
		Fee:          fee,
		SellerAmount: new(big.Int).Sub(listing.Price, fee),
	}
	if err := e.ledger.TransferFrom(market.PaymentToken, marketAddr, buyer, marketAddr, listing.Price); err != nil {
		return nil, err
	}
	if sale.SellerAmount.Sign() > 0 {
		if err := e.ledger.Transfer(market.PaymentToken, marketAddr, listing.Seller, sale.SellerAmount); err != nil {
			return nil, err
		}
	}
	if err := e.ledger.Transfer(listing.Asset, marketAddr, buyer, listing.Amount); err != nil {
		return nil, err
	}
	listing.Active = false
	listing.Buyer = buyer
	if err := e.state.KVPut(listingKey(marketAddr, id), listing); err != nil {
		return nil, err
	}
	market.FeesAccrued = new(big.Int).Add(market.FeesAccrued, fee)
	if err := e.state.KVPut(marketKey(marketAddr), market); err != nil {
		return nil, err
	}
	e.emit(ListingSoldEvent(marketAddr, sale))
	return sale, nil
}

// CancelListing returns the escrowed asset to the seller. Seller only.
func (e *Engine) CancelListing(marketAddr, caller common.Address, id uint64) error {
	listing, err := e.Listing(marketAddr, id)
	if err != nil {
		return err
	}
	if caller != listing.Seller {
		return protoerrors.ErrUnauthorized
	}
	if !listing.Active {
		return protoerrors.ErrListingInactive
	}
	if err := e.ledger.Transfer(listing.Asset, marketAddr, listing.Seller, listing.Amount); err != nil {
		return err
	}
	listing.Active = false
	if err := e.state.KVPut(listingKey(marketAddr, id), listing); err != nil {
		return err
	}
	e.emit(ListingCancelledEvent(marketAddr, id))
	return nil
}

// WithdrawFees sends all accrued fees to to. Owner only.
func (e *Engine) WithdrawFees(marketAddr, caller, to common.Address) (*big.Int, error) {
	market, err := e.Market(marketAddr)
	if err != nil {
		return nil, err
	}
	if caller != market.Owner {
		return nil, protoerrors.ErrUnauthorized
	}
	if market.FeesAccrued.Sign() == 0 {
		return nil, protoerrors.ErrNothingToWithdraw
	}
	amount := market.FeesAccrued
	if err := e.ledger.Transfer(market.PaymentToken, marketAddr, to, amount); err != nil {
		return nil, err
	}
	market.FeesAccrued = big.NewInt(0)
	if err := e.state.KVPut(marketKey(marketAddr), market); err != nil {
		return nil, err
	}
	e.emit(FeesWithdrawnEvent(marketAddr, to, amount))
	return amount, nil
}
