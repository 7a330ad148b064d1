// Package distribution plans dividend rounds off-chain: it snapshots royalty
// token holdings, splits a revenue amount pro rata, commits the split to a
// Merkle root and keeps every holder's claim and proof for later retrieval.
package distribution

import (
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"ideacapital/core"
	protoerrors "ideacapital/core/errors"
	"ideacapital/core/types"
	"ideacapital/crypto/merkle"
)

// ErrNoHolders is returned when no holder would receive a non-zero share.
var ErrNoHolders = errors.New("distribution: token has no eligible holders")

// Claim is one holder's entitlement within a plan.
type Claim struct {
	PlanID  string         `json:"planId"`
	Vault   common.Address `json:"vault"`
	Epoch   uint64         `json:"epoch"`
	Account common.Address `json:"account"`
	Balance *big.Int       `json:"balance"`
	Amount  *big.Int       `json:"amount"`
	Proof   []common.Hash  `json:"proof"`
	Claimed bool           `json:"claimed"`
}

// Plan is a computed dividend round. Epoch stays zero until the plan is
// funded on the vault.
type Plan struct {
	ID           string         `json:"id"`
	RoyaltyToken common.Address `json:"royaltyToken"`
	Vault        common.Address `json:"vault"`
	Revenue      *big.Int       `json:"revenue"`
	Allocated    *big.Int       `json:"allocated"`
	Root         common.Hash    `json:"root"`
	Epoch        uint64         `json:"epoch"`
	CreatedAt    time.Time      `json:"createdAt"`
	Claims       []Claim        `json:"claims"`
}

// Allocate splits revenue across holdings as floor(balance*revenue/total),
// where total is the sum of the supplied balances. Holders whose share
// truncates to zero are dropped. The truncation dust is not allocated.
func Allocate(holdings []core.Holding, revenue *big.Int) ([]Claim, *big.Int, error) {
	if err := types.ValidateAmount(revenue); err != nil {
		return nil, nil, err
	}
	if revenue.Sign() == 0 {
		return nil, nil, protoerrors.ErrZeroAmount
	}
	total := new(big.Int)
	for _, h := range holdings {
		total.Add(total, h.Balance)
	}
	if total.Sign() == 0 {
		return nil, nil, ErrNoHolders
	}
	claims := make([]Claim, 0, len(holdings))
	allocated := new(big.Int)
	for _, h := range holdings {
		share := new(big.Int).Mul(h.Balance, revenue)
		share.Quo(share, total)
		if share.Sign() == 0 {
			continue
		}
		allocated.Add(allocated, share)
		claims = append(claims, Claim{
			Account: h.Account,
			Balance: new(big.Int).Set(h.Balance),
			Amount:  share,
		})
	}
	if len(claims) == 0 {
		return nil, nil, ErrNoHolders
	}
	return claims, allocated, nil
}

// BuildPlan allocates revenue over holdings and attaches a proof to every
// claim.
func BuildPlan(royaltyToken, vault common.Address, revenue *big.Int, holdings []core.Holding, now time.Time) (*Plan, error) {
	claims, allocated, err := Allocate(holdings, revenue)
	if err != nil {
		return nil, err
	}
	leaves := make([]merkle.Claim, len(claims))
	for i, c := range claims {
		leaves[i] = merkle.Claim{Account: c.Account, Amount: c.Amount}
	}
	tree, err := merkle.Build(leaves)
	if err != nil {
		return nil, err
	}
	plan := &Plan{
		ID:           uuid.NewString(),
		RoyaltyToken: royaltyToken,
		Vault:        vault,
		Revenue:      new(big.Int).Set(revenue),
		Allocated:    allocated,
		Root:         tree.Root(),
		CreatedAt:    now.UTC(),
	}
	for i := range claims {
		proof, ok := tree.ProofFor(claims[i].Account, claims[i].Amount)
		if !ok {
			return nil, errors.New("distribution: claim missing from tree")
		}
		claims[i].PlanID = plan.ID
		claims[i].Vault = vault
		claims[i].Proof = proof
	}
	plan.Claims = claims
	return plan, nil
}
