package routes

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
)

func (a *api) mountDividends(r chi.Router) {
	write(r, http.MethodPost, "/vaults", a.deployVault)
	r.Get("/vaults/{vault}", a.getVault)
	r.Get("/vaults/{vault}/epochs/{epoch}", a.getEpoch)
	r.Get("/vaults/{vault}/epochs/{epoch}/claimed/{account}", a.hasClaimed)
	write(r, http.MethodPost, "/vaults/{vault}/distributions", a.createDistribution)
	write(r, http.MethodPost, "/vaults/{vault}/claims", a.claimDividend)

	write(r, http.MethodPost, "/distribution-plans", a.createPlan)
	r.Get("/distribution-plans/{plan}", a.getPlan)
	write(r, http.MethodPost, "/distribution-plans/{plan}/fund", a.fundPlan)
	r.Get("/claims/{wallet}", a.pendingClaims)
}

type deployVaultRequest struct {
	PayoutToken string `json:"payoutToken"`
}

func (a *api) deployVault(w http.ResponseWriter, r *http.Request) {
	var req deployVaultRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	payout, err := parseAddress(req.PayoutToken, "payoutToken")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	vault, err := a.node.DeployVault(r.Context(), caller(r), payout)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewVault(vault))
}

func (a *api) getVault(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r, "vault")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	vault, err := a.node.Vault(r.Context(), addr)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewVault(vault))
}

func (a *api) getEpoch(w http.ResponseWriter, r *http.Request) {
	vault, err := pathAddress(r, "vault")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	number, err := pathUint(r, "epoch")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	epoch, err := a.node.Epoch(r.Context(), vault, number)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewEpoch(epoch))
}

func (a *api) hasClaimed(w http.ResponseWriter, r *http.Request) {
	vault, err := pathAddress(r, "vault")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	number, err := pathUint(r, "epoch")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	account, err := pathAddress(r, "account")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	claimed, err := a.node.HasClaimed(r.Context(), vault, number, account)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"epoch": number, "account": account, "claimed": claimed})
}

type distributionRequest struct {
	Root  common.Hash `json:"root"`
	Total string      `json:"total"`
}

func (a *api) createDistribution(w http.ResponseWriter, r *http.Request) {
	vault, err := pathAddress(r, "vault")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var req distributionRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	total, err := parseAmount(req.Total, "total")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	number, err := a.node.CreateDistribution(r.Context(), vault, caller(r), req.Root, total)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	epoch, err := a.node.Epoch(r.Context(), vault, number)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewEpoch(epoch))
}

type claimRequest struct {
	Epoch  uint64        `json:"epoch"`
	Amount string        `json:"amount"`
	Proof  []common.Hash `json:"proof"`
}

func (a *api) claimDividend(w http.ResponseWriter, r *http.Request) {
	vault, err := pathAddress(r, "vault")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var req claimRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	paid, err := parseAmount(req.Amount, "amount")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.node.ClaimDividend(r.Context(), vault, caller(r), req.Epoch, paid, req.Proof); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"epoch": req.Epoch, "account": caller(r), "amount": amount(paid)})
}

type planRequest struct {
	RoyaltyToken string `json:"royaltyToken"`
	Vault        string `json:"vault"`
	Revenue      string `json:"revenue"`
}

func (a *api) createPlan(w http.ResponseWriter, r *http.Request) {
	if a.planner == nil {
		a.writeError(w, r, errUnavailable)
		return
	}
	var req planRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	tok, err := parseAddress(req.RoyaltyToken, "royaltyToken")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var vault common.Address
	if req.Vault == "" {
		dep, err := a.node.Deployment(r.Context())
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		vault = dep.Vault
	} else if vault, err = parseAddress(req.Vault, "vault"); err != nil {
		a.writeError(w, r, err)
		return
	}
	revenue, err := parseAmount(req.Revenue, "revenue")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	plan, err := a.planner.Plan(r.Context(), tok, vault, revenue)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewPlan(plan))
}

func (a *api) getPlan(w http.ResponseWriter, r *http.Request) {
	if a.planner == nil {
		a.writeError(w, r, errUnavailable)
		return
	}
	plan, err := a.planner.Store().Plan(r.Context(), chi.URLParam(r, "plan"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewPlan(plan))
}

func (a *api) fundPlan(w http.ResponseWriter, r *http.Request) {
	if a.planner == nil {
		a.writeError(w, r, errUnavailable)
		return
	}
	plan, err := a.planner.Fund(r.Context(), chi.URLParam(r, "plan"), caller(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewPlan(plan))
}

// pendingClaims lists unpaid claims with proofs, ready to submit to the
// vault.
func (a *api) pendingClaims(w http.ResponseWriter, r *http.Request) {
	if a.planner == nil {
		a.writeError(w, r, errUnavailable)
		return
	}
	wallet, err := pathAddress(r, "wallet")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	claims, err := a.planner.PendingClaims(r.Context(), wallet)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewClaims(claims))
}
