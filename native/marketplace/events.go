package marketplace

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"ideacapital/core/types"
)

const (
	EventTypeDeployed         = "marketplace.deployed"
	EventTypeListingCreated   = "marketplace.listing_created"
	EventTypeListingSold      = "marketplace.listing_sold"
	EventTypeListingCancelled = "marketplace.listing_cancelled"
	EventTypeFeesWithdrawn    = "marketplace.fees_withdrawn"
)

func DeployedEvent(m *Market) *types.Event {
	return &types.Event{
		Type: EventTypeDeployed,
		Attributes: map[string]string{
			"market":       m.Address.Hex(),
			"owner":        m.Owner.Hex(),
			"paymentToken": m.PaymentToken.Hex(),
			"feeBps":       strconv.FormatUint(uint64(m.FeeBps), 10),
		},
	}
}

func ListingCreatedEvent(market common.Address, l *Listing) *types.Event {
	return &types.Event{
		Type: EventTypeListingCreated,
		Attributes: map[string]string{
			"market": market.Hex(),
			"id":     strconv.FormatUint(l.ID, 10),
			"seller": l.Seller.Hex(),
			"asset":  l.Asset.Hex(),
			"amount": types.FormatAmount(l.Amount),
			"price":  types.FormatAmount(l.Price),
		},
	}
}

func ListingSoldEvent(market common.Address, s *Sale) *types.Event {
	return &types.Event{
		Type: EventTypeListingSold,
		Attributes: map[string]string{
			"market": market.Hex(),
			"id":     strconv.FormatUint(s.ListingID, 10),
			"buyer":  s.Buyer.Hex(),
			"price":  types.FormatAmount(s.Price),
			"fee":    types.FormatAmount(s.Fee),
		},
	}
}

func ListingCancelledEvent(market common.Address, id uint64) *types.Event {
	return &types.Event{
		Type: EventTypeListingCancelled,
		Attributes: map[string]string{
			"market": market.Hex(),
			"id":     strconv.FormatUint(id, 10),
		},
	}
}

func FeesWithdrawnEvent(market, to common.Address, amount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeFeesWithdrawn,
		Attributes: map[string]string{
			"market": market.Hex(),
			"to":     to.Hex(),
			"amount": types.FormatAmount(amount),
		},
	}
}
