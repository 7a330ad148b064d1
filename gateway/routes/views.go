package routes

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"ideacapital/core"
	"ideacapital/native/crowdsale"
	"ideacapital/native/dividend"
	"ideacapital/native/governance"
	"ideacapital/native/ipnft"
	"ideacapital/native/marketplace"
	"ideacapital/native/royalty"
	"ideacapital/native/token"
	"ideacapital/services/distribution"
)

// Amounts leave the API as base-unit decimal strings.

type tokenView struct {
	Address      common.Address `json:"address"`
	Name         string         `json:"name"`
	Symbol       string         `json:"symbol"`
	Decimals     uint8          `json:"decimals"`
	Owner        common.Address `json:"owner"`
	TotalSupply  string         `json:"totalSupply"`
	Transferable bool           `json:"transferable"`
	CreatedAt    uint64         `json:"createdAt"`
}

func viewToken(m *token.Metadata) tokenView {
	return tokenView{
		Address:      m.Address,
		Name:         m.Name,
		Symbol:       m.Symbol,
		Decimals:     m.Decimals,
		Owner:        m.Owner,
		TotalSupply:  amount(m.TotalSupply),
		Transferable: m.Transferable,
		CreatedAt:    m.CreatedAt,
	}
}

type royaltyView struct {
	tokenView
	MaxSupply             string `json:"maxSupply"`
	DistributionFinalized bool   `json:"distributionFinalized"`
	IPNFTTokenID          uint64 `json:"ipnftTokenId"`
}

func viewRoyalty(info *royalty.Info) royaltyView {
	return royaltyView{
		tokenView:             viewToken(info.Metadata),
		MaxSupply:             amount(info.MaxSupply),
		DistributionFinalized: info.DistributionFinalized,
		IPNFTTokenID:          info.IPNFTTokenID,
	}
}

type holdingView struct {
	Account common.Address `json:"account"`
	Balance string         `json:"balance"`
}

func viewHoldings(in []core.Holding) []holdingView {
	out := make([]holdingView, len(in))
	for i, h := range in {
		out[i] = holdingView{Account: h.Account, Balance: amount(h.Balance)}
	}
	return out
}

type saleView struct {
	Address       common.Address `json:"address"`
	Owner         common.Address `json:"owner"`
	PaymentToken  common.Address `json:"paymentToken"`
	RoyaltyToken  common.Address `json:"royaltyToken"`
	Goal          string         `json:"goal"`
	MinInvestment string         `json:"minInvestment"`
	Deadline      uint64         `json:"deadline"`
	TotalRaised   string         `json:"totalRaised"`
	GoalReached   bool           `json:"goalReached"`
	Finalized     bool           `json:"finalized"`
	InvestorCount uint64         `json:"investorCount"`
}

func viewSale(s *crowdsale.Sale) saleView {
	return saleView{
		Address:       s.Address,
		Owner:         s.Owner,
		PaymentToken:  s.PaymentToken,
		RoyaltyToken:  s.RoyaltyToken,
		Goal:          amount(s.Goal),
		MinInvestment: amount(s.MinInvestment),
		Deadline:      s.Deadline,
		TotalRaised:   amount(s.TotalRaised),
		GoalReached:   s.GoalReached,
		Finalized:     s.Finalized,
		InvestorCount: s.InvestorCount,
	}
}

type receiptView struct {
	Sale         common.Address `json:"sale"`
	Investor     common.Address `json:"investor"`
	Paid         string         `json:"paid"`
	TokensMinted string         `json:"tokensMinted"`
	Unminted     string         `json:"tokensUnminted,omitempty"`
	GoalReached  bool           `json:"goalReached"`
}

func viewReceipt(r *crowdsale.Receipt) receiptView {
	return receiptView{
		Sale:         r.Sale,
		Investor:     r.Investor,
		Paid:         amount(r.Paid),
		TokensMinted: amount(r.TokensMinted),
		Unminted:     unminted(r.TokensUnminted),
		GoalReached:  r.GoalReached,
	}
}

func unminted(v *big.Int) string {
	if v == nil || v.Sign() == 0 {
		return ""
	}
	return amount(v)
}

type vaultView struct {
	Address      common.Address `json:"address"`
	Owner        common.Address `json:"owner"`
	PayoutToken  common.Address `json:"payoutToken"`
	CurrentEpoch uint64         `json:"currentEpoch"`
}

func viewVault(v *dividend.Vault) vaultView {
	return vaultView{Address: v.Address, Owner: v.Owner, PayoutToken: v.PayoutToken, CurrentEpoch: v.CurrentEpoch}
}

type epochView struct {
	Number    uint64         `json:"number"`
	Root      common.Hash    `json:"root"`
	Total     string         `json:"total"`
	Claimed   string         `json:"claimed"`
	Remaining string         `json:"remaining"`
	Funder    common.Address `json:"funder"`
	CreatedAt uint64         `json:"createdAt"`
}

func viewEpoch(e *dividend.Epoch) epochView {
	return epochView{
		Number:    e.Number,
		Root:      e.Root,
		Total:     amount(e.Total),
		Claimed:   amount(e.Claimed),
		Remaining: amount(e.Remaining()),
		Funder:    e.Funder,
		CreatedAt: e.CreatedAt,
	}
}

type claimView struct {
	PlanID  string         `json:"planId"`
	Vault   common.Address `json:"vault"`
	Epoch   uint64         `json:"epoch"`
	Account common.Address `json:"account"`
	Balance string         `json:"balance"`
	Amount  string         `json:"amount"`
	Proof   []common.Hash  `json:"proof"`
	Claimed bool           `json:"claimed"`
}

func viewClaims(in []distribution.Claim) []claimView {
	out := make([]claimView, len(in))
	for i, c := range in {
		out[i] = claimView{
			PlanID:  c.PlanID,
			Vault:   c.Vault,
			Epoch:   c.Epoch,
			Account: c.Account,
			Balance: amount(c.Balance),
			Amount:  amount(c.Amount),
			Proof:   c.Proof,
			Claimed: c.Claimed,
		}
	}
	return out
}

type planView struct {
	ID           string         `json:"id"`
	RoyaltyToken common.Address `json:"royaltyToken"`
	Vault        common.Address `json:"vault"`
	Revenue      string         `json:"revenue"`
	Allocated    string         `json:"allocated"`
	Root         common.Hash    `json:"root"`
	Epoch        uint64         `json:"epoch"`
	Claims       []claimView    `json:"claims"`
}

func viewPlan(p *distribution.Plan) planView {
	return planView{
		ID:           p.ID,
		RoyaltyToken: p.RoyaltyToken,
		Vault:        p.Vault,
		Revenue:      amount(p.Revenue),
		Allocated:    amount(p.Allocated),
		Root:         p.Root,
		Epoch:        p.Epoch,
		Claims:       viewClaims(p.Claims),
	}
}

type governorView struct {
	Address           common.Address `json:"address"`
	Owner             common.Address `json:"owner"`
	ReputationToken   common.Address `json:"reputationToken"`
	ProposalThreshold string         `json:"proposalThreshold"`
	NextProposalID    uint64         `json:"nextProposalId"`
}

func viewGovernor(g *governance.Governor) governorView {
	return governorView{
		Address:           g.Address,
		Owner:             g.Owner,
		ReputationToken:   g.ReputationToken,
		ProposalThreshold: amount(g.ProposalThreshold),
		NextProposalID:    g.NextProposalID,
	}
}

type proposalView struct {
	ID           uint64         `json:"id"`
	Proposer     common.Address `json:"proposer"`
	Text         string         `json:"text"`
	CreatedAt    uint64         `json:"createdAt"`
	VotesFor     string         `json:"votesFor"`
	VotesAgainst string         `json:"votesAgainst"`
}

func viewProposal(p *governance.Proposal) proposalView {
	return proposalView{
		ID:           p.ID,
		Proposer:     p.Proposer,
		Text:         p.Text,
		CreatedAt:    p.CreatedAt,
		VotesFor:     amount(p.VotesFor),
		VotesAgainst: amount(p.VotesAgainst),
	}
}

type voteView struct {
	ProposalID uint64         `json:"proposalId"`
	Voter      common.Address `json:"voter"`
	Support    bool           `json:"support"`
	Weight     string         `json:"weight"`
}

func viewVote(v *governance.Vote) voteView {
	return voteView{ProposalID: v.ProposalID, Voter: v.Voter, Support: v.Support, Weight: amount(v.Weight)}
}

type marketView struct {
	Address       common.Address `json:"address"`
	Owner         common.Address `json:"owner"`
	PaymentToken  common.Address `json:"paymentToken"`
	FeeBps        uint32         `json:"feeBps"`
	NextListingID uint64         `json:"nextListingId"`
	FeesAccrued   string         `json:"feesAccrued"`
}

func viewMarket(m *marketplace.Market) marketView {
	return marketView{
		Address:       m.Address,
		Owner:         m.Owner,
		PaymentToken:  m.PaymentToken,
		FeeBps:        m.FeeBps,
		NextListingID: m.NextListingID,
		FeesAccrued:   amount(m.FeesAccrued),
	}
}

type listingView struct {
	ID        uint64          `json:"id"`
	Seller    common.Address  `json:"seller"`
	Asset     common.Address  `json:"asset"`
	Amount    string          `json:"amount"`
	Price     string          `json:"price"`
	Active    bool            `json:"active"`
	Buyer     *common.Address `json:"buyer,omitempty"`
	CreatedAt uint64          `json:"createdAt"`
}

func viewListing(l *marketplace.Listing) listingView {
	out := listingView{
		ID:        l.ID,
		Seller:    l.Seller,
		Asset:     l.Asset,
		Amount:    amount(l.Amount),
		Price:     amount(l.Price),
		Active:    l.Active,
		CreatedAt: l.CreatedAt,
	}
	if l.Buyer != (common.Address{}) {
		buyer := l.Buyer
		out.Buyer = &buyer
	}
	return out
}

type saleSettlementView struct {
	ListingID    uint64         `json:"listingId"`
	Buyer        common.Address `json:"buyer"`
	Price        string         `json:"price"`
	Fee          string         `json:"fee"`
	SellerAmount string         `json:"sellerAmount"`
}

func viewSettlement(s *marketplace.Sale) saleSettlementView {
	return saleSettlementView{
		ListingID:    s.ListingID,
		Buyer:        s.Buyer,
		Price:        amount(s.Price),
		Fee:          amount(s.Fee),
		SellerAmount: amount(s.SellerAmount),
	}
}

type registryView struct {
	Address     common.Address `json:"address"`
	Owner       common.Address `json:"owner"`
	NextTokenID uint64         `json:"nextTokenId"`
}

func viewRegistry(r *ipnft.Registry) registryView {
	return registryView{Address: r.Address, Owner: r.Owner, NextTokenID: r.NextTokenID}
}

type inventionView struct {
	TokenID         uint64         `json:"tokenId"`
	Owner           common.Address `json:"owner"`
	MetadataPointer string         `json:"metadataPointer"`
	TokenURI        string         `json:"tokenUri"`
	RoyaltyToken    common.Address `json:"royaltyToken"`
	MintedAt        uint64         `json:"mintedAt"`
}

func viewInvention(inv *ipnft.Invention) inventionView {
	return inventionView{
		TokenID:         inv.TokenID,
		Owner:           inv.Owner,
		MetadataPointer: inv.MetadataPointer,
		TokenURI:        ipnft.URIScheme + inv.MetadataPointer,
		RoyaltyToken:    inv.RoyaltyToken,
		MintedAt:        inv.MintedAt,
	}
}
