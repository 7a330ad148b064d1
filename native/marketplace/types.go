package marketplace

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// Kind tags marketplace instances in the contract registry.
	Kind = "marketplace"
	// DefaultFeeBps is the protocol fee retained on every sale (2.5%).
	DefaultFeeBps uint32 = 250
	maxFeeBps     uint32 = 10_000
)

// Market is the persisted header of a marketplace instance.
type Market struct {
	Address       common.Address
	Owner         common.Address
	PaymentToken  common.Address
	FeeBps        uint32
	NextListingID uint64
	FeesAccrued   *big.Int
	CreatedAt     uint64
}

// Listing is an escrowed offer to sell Amount of Asset for Price.
type Listing struct {
	ID        uint64
	Seller    common.Address
	Asset     common.Address
	Amount    *big.Int
	Price     *big.Int
	Active    bool
	Buyer     common.Address
	CreatedAt uint64
}

// Sale is the settlement breakdown of a purchase.
type Sale struct {
	ListingID    uint64
	Buyer        common.Address
	Price        *big.Int
	Fee          *big.Int
	SellerAmount *big.Int
}

// Fee returns floor(price * feeBps / 10000).
func Fee(price *big.Int, feeBps uint32) *big.Int {
	fee := new(big.Int).Mul(price, new(big.Int).SetUint64(uint64(feeBps)))
	return fee.Div(fee, big.NewInt(int64(maxFeeBps)))
}
