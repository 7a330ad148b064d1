package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ideacapital/core"
	"ideacapital/native/crowdsale"
)

func (a *api) mountFunding(r chi.Router) {
	write(r, http.MethodPost, "/campaigns", a.launchCampaign)
	write(r, http.MethodPost, "/crowdsales", a.deployCrowdsale)
	r.Get("/crowdsales/{sale}", a.getSale)
	r.Get("/crowdsales/{sale}/contributions/{investor}", a.contribution)
	r.Get("/crowdsales/{sale}/quote", a.quote)
	write(r, http.MethodPost, "/crowdsales/{sale}/invest", a.invest)
	// Finalization is permissionless once the deadline passes or the goal
	// is met; the caller is still recorded.
	write(r, http.MethodPost, "/crowdsales/{sale}/finalize", a.finalizeSale)
	write(r, http.MethodPost, "/crowdsales/{sale}/refund", a.refund)
}

type campaignRequest struct {
	Name               string `json:"name"`
	Symbol             string `json:"symbol"`
	MaxSupply          string `json:"maxSupply"`
	InventorAllocation string `json:"inventorAllocation"`
	Goal               string `json:"goal"`
	MinInvestment      string `json:"minInvestment"`
	DurationSeconds    uint64 `json:"durationSeconds"`
	MetadataPointer    string `json:"metadataPointer"`
}

func (a *api) launchCampaign(w http.ResponseWriter, r *http.Request) {
	var req campaignRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	params := core.CampaignParams{
		Inventor:        caller(r),
		Name:            req.Name,
		Symbol:          req.Symbol,
		Duration:        time.Duration(req.DurationSeconds) * time.Second,
		MetadataPointer: req.MetadataPointer,
	}
	var err error
	if params.MaxSupply, err = parseAmount(req.MaxSupply, "maxSupply"); err != nil {
		a.writeError(w, r, err)
		return
	}
	if params.InventorAllocation, err = optionalAmount(req.InventorAllocation, "inventorAllocation"); err != nil {
		a.writeError(w, r, err)
		return
	}
	if params.Goal, err = parseAmount(req.Goal, "goal"); err != nil {
		a.writeError(w, r, err)
		return
	}
	if params.MinInvestment, err = optionalAmount(req.MinInvestment, "minInvestment"); err != nil {
		a.writeError(w, r, err)
		return
	}
	campaign, err := a.node.LaunchCampaign(r.Context(), params)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, campaign)
}

type deploySaleRequest struct {
	PaymentToken    string `json:"paymentToken"`
	RoyaltyToken    string `json:"royaltyToken"`
	Goal            string `json:"goal"`
	MinInvestment   string `json:"minInvestment"`
	DurationSeconds uint64 `json:"durationSeconds"`
}

func (a *api) deployCrowdsale(w http.ResponseWriter, r *http.Request) {
	var req deploySaleRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	params := crowdsale.DeployParams{
		Deployer: caller(r),
		Duration: time.Duration(req.DurationSeconds) * time.Second,
	}
	var err error
	if params.RoyaltyToken, err = parseAddress(req.RoyaltyToken, "royaltyToken"); err != nil {
		a.writeError(w, r, err)
		return
	}
	if req.PaymentToken == "" {
		dep, err := a.node.Deployment(r.Context())
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		params.PaymentToken = dep.PaymentToken
	} else if params.PaymentToken, err = parseAddress(req.PaymentToken, "paymentToken"); err != nil {
		a.writeError(w, r, err)
		return
	}
	if params.Goal, err = parseAmount(req.Goal, "goal"); err != nil {
		a.writeError(w, r, err)
		return
	}
	if params.MinInvestment, err = optionalAmount(req.MinInvestment, "minInvestment"); err != nil {
		a.writeError(w, r, err)
		return
	}
	sale, err := a.node.DeployCrowdsale(r.Context(), params)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewSale(sale))
}

func (a *api) getSale(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r, "sale")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	sale, err := a.node.Sale(r.Context(), addr)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewSale(sale))
}

func (a *api) contribution(w http.ResponseWriter, r *http.Request) {
	sale, err := pathAddress(r, "sale")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	investor, err := pathAddress(r, "investor")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	paid, err := a.node.Contribution(r.Context(), sale, investor)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sale": sale, "investor": investor, "contribution": amount(paid)})
}

func (a *api) quote(w http.ResponseWriter, r *http.Request) {
	sale, err := pathAddress(r, "sale")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	paid, err := parseAmount(r.URL.Query().Get("amount"), "amount")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	tokens, err := a.node.TokensFor(r.Context(), sale, paid)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"amount": amount(paid), "tokens": amount(tokens)})
}

type amountRequest struct {
	Amount string `json:"amount"`
}

func (a *api) invest(w http.ResponseWriter, r *http.Request) {
	sale, err := pathAddress(r, "sale")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var req amountRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	paid, err := parseAmount(req.Amount, "amount")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	receipt, err := a.node.Invest(r.Context(), sale, caller(r), paid)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewReceipt(receipt))
}

func (a *api) finalizeSale(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r, "sale")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	sale, err := a.node.FinalizeCrowdsale(r.Context(), addr, caller(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewSale(sale))
}

func (a *api) refund(w http.ResponseWriter, r *http.Request) {
	sale, err := pathAddress(r, "sale")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	refunded, err := a.node.Refund(r.Context(), sale, caller(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sale": sale, "investor": caller(r), "refunded": amount(refunded)})
}
