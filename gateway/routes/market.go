package routes

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
)

func (a *api) mountMarket(r chi.Router) {
	write(r, http.MethodPost, "/marketplaces", a.deployMarketplace)
	write(r, http.MethodPost, "/marketplaces/{market}/listings", a.createListing)
	r.Get("/marketplaces/{market}/listings/{id}", a.getListing)
	write(r, http.MethodPost, "/marketplaces/{market}/listings/{id}/buy", a.buyListing)
	write(r, http.MethodPost, "/marketplaces/{market}/listings/{id}/cancel", a.cancelListing)
	write(r, http.MethodPost, "/marketplaces/{market}/withdraw", a.withdrawFees)

	write(r, http.MethodPost, "/ipnft-registries", a.deployRegistry)
	write(r, http.MethodPost, "/ipnft-registries/{registry}/inventions", a.mintInvention)
	r.Get("/ipnft-registries/{registry}/inventions/{id}", a.getInvention)
	write(r, http.MethodPost, "/ipnft-registries/{registry}/inventions/{id}/transfer", a.transferInvention)
}

type deployMarketRequest struct {
	PaymentToken string `json:"paymentToken"`
	FeeBps       uint32 `json:"feeBps"`
}

func (a *api) deployMarketplace(w http.ResponseWriter, r *http.Request) {
	var req deployMarketRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	payment, err := parseAddress(req.PaymentToken, "paymentToken")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	market, err := a.node.DeployMarketplace(r.Context(), caller(r), payment, req.FeeBps)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewMarket(market))
}

type listingRequest struct {
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
	Price  string `json:"price"`
}

func (a *api) createListing(w http.ResponseWriter, r *http.Request) {
	market, err := pathAddress(r, "market")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var req listingRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	asset, err := parseAddress(req.Asset, "asset")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	qty, err := parseAmount(req.Amount, "amount")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	price, err := parseAmount(req.Price, "price")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	listing, err := a.node.CreateListing(r.Context(), market, caller(r), asset, qty, price)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewListing(listing))
}

func (a *api) getListing(w http.ResponseWriter, r *http.Request) {
	market, err := pathAddress(r, "market")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	id, err := pathUint(r, "id")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	listing, err := a.node.Listing(r.Context(), market, id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewListing(listing))
}

func (a *api) buyListing(w http.ResponseWriter, r *http.Request) {
	market, err := pathAddress(r, "market")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	id, err := pathUint(r, "id")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	sale, err := a.node.BuyListing(r.Context(), market, caller(r), id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewSettlement(sale))
}

func (a *api) cancelListing(w http.ResponseWriter, r *http.Request) {
	market, err := pathAddress(r, "market")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	id, err := pathUint(r, "id")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.node.CancelListing(r.Context(), market, caller(r), id); err != nil {
		a.writeError(w, r, err)
		return
	}
	listing, err := a.node.Listing(r.Context(), market, id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewListing(listing))
}

// withdrawRequest also carries the recipient of an invention transfer.
type withdrawRequest struct {
	To string `json:"to"`
}

func (a *api) withdrawFees(w http.ResponseWriter, r *http.Request) {
	market, err := pathAddress(r, "market")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var req withdrawRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	to, err := parseAddress(req.To, "to")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	withdrawn, err := a.node.WithdrawFees(r.Context(), market, caller(r), to)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"to": to, "amount": amount(withdrawn)})
}

func (a *api) deployRegistry(w http.ResponseWriter, r *http.Request) {
	registry, err := a.node.DeployRegistry(r.Context(), caller(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewRegistry(registry))
}

type mintInventionRequest struct {
	To              string `json:"to"`
	MetadataPointer string `json:"metadataPointer"`
	RoyaltyToken    string `json:"royaltyToken"`
}

func (a *api) mintInvention(w http.ResponseWriter, r *http.Request) {
	registry, err := pathAddress(r, "registry")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var req mintInventionRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	to, err := parseAddress(req.To, "to")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var royaltyToken common.Address
	if req.RoyaltyToken != "" {
		if royaltyToken, err = parseAddress(req.RoyaltyToken, "royaltyToken"); err != nil {
			a.writeError(w, r, err)
			return
		}
	}
	inv, err := a.node.MintInvention(r.Context(), registry, caller(r), to, req.MetadataPointer, royaltyToken)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewInvention(inv))
}

func (a *api) getInvention(w http.ResponseWriter, r *http.Request) {
	registry, err := pathAddress(r, "registry")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	id, err := pathUint(r, "id")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	inv, err := a.node.Invention(r.Context(), registry, id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewInvention(inv))
}

func (a *api) transferInvention(w http.ResponseWriter, r *http.Request) {
	registry, err := pathAddress(r, "registry")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	id, err := pathUint(r, "id")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var req withdrawRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	to, err := parseAddress(req.To, "to")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.node.TransferInvention(r.Context(), registry, caller(r), to, id); err != nil {
		a.writeError(w, r, err)
		return
	}
	inv, err := a.node.Invention(r.Context(), registry, id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewInvention(inv))
}
