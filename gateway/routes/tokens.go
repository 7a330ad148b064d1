package routes

import (
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	"ideacapital/native/royalty"
	"ideacapital/native/token"
)

func (a *api) mountTokens(r chi.Router) {
	write(r, http.MethodPost, "/tokens", a.deployToken)
	r.Get("/tokens/{token}", a.getToken)
	r.Get("/tokens/{token}/balances/{holder}", a.balanceOf)
	r.Get("/tokens/{token}/allowances/{owner}/{spender}", a.allowance)
	r.Get("/tokens/{token}/holders", a.holders)
	write(r, http.MethodPost, "/tokens/{token}/mint", a.mint)
	write(r, http.MethodPost, "/tokens/{token}/transfer", a.transfer)
	write(r, http.MethodPost, "/tokens/{token}/approve", a.approve)
	write(r, http.MethodPost, "/tokens/{token}/transfer-from", a.transferFrom)
	write(r, http.MethodPost, "/tokens/{token}/burn", a.burn)

	write(r, http.MethodPost, "/royalty-tokens", a.createRoyaltyToken)
	r.Get("/royalty-tokens/{token}", a.getRoyaltyToken)
	write(r, http.MethodPost, "/royalty-tokens/{token}/mint-investor", a.mintToInvestor)
	write(r, http.MethodPost, "/royalty-tokens/{token}/mint-inventor", a.mintToInventor)
	write(r, http.MethodPost, "/royalty-tokens/{token}/finalize", a.finalizeRoyalty)
}

type deployTokenRequest struct {
	Owner        string `json:"owner"`
	Name         string `json:"name"`
	Symbol       string `json:"symbol"`
	Decimals     uint8  `json:"decimals"`
	Transferable bool   `json:"transferable"`
}

func (a *api) deployToken(w http.ResponseWriter, r *http.Request) {
	var req deployTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	deployer := caller(r)
	params := token.DeployParams{
		Deployer:     deployer,
		Owner:        deployer,
		Name:         req.Name,
		Symbol:       req.Symbol,
		Decimals:     req.Decimals,
		Transferable: req.Transferable,
	}
	if req.Owner != "" {
		owner, err := parseAddress(req.Owner, "owner")
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		params.Owner = owner
	}
	meta, err := a.node.DeployToken(r.Context(), params)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewToken(meta))
}

func (a *api) getToken(w http.ResponseWriter, r *http.Request) {
	tok, err := pathAddress(r, "token")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	meta, err := a.node.Token(r.Context(), tok)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewToken(meta))
}

func (a *api) balanceOf(w http.ResponseWriter, r *http.Request) {
	tok, err := pathAddress(r, "token")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	holder, err := pathAddress(r, "holder")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	bal, err := a.node.BalanceOf(r.Context(), tok, holder)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, holdingView{Account: holder, Balance: amount(bal)})
}

func (a *api) allowance(w http.ResponseWriter, r *http.Request) {
	tok, err := pathAddress(r, "token")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	owner, err := pathAddress(r, "owner")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	spender, err := pathAddress(r, "spender")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	allowed, err := a.node.Allowance(r.Context(), tok, owner, spender)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"owner":     owner,
		"spender":   spender,
		"allowance": amount(allowed),
	})
}

func (a *api) holders(w http.ResponseWriter, r *http.Request) {
	tok, err := pathAddress(r, "token")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	holdings, err := a.node.Holdings(r.Context(), tok)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewHoldings(holdings))
}

// transferRequest covers every single-amount token movement. From is only
// read by transfer-from.
type transferRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type parsedTransfer struct {
	token  common.Address
	from   common.Address
	to     common.Address
	amount *big.Int
}

func decodeTransfer(r *http.Request, needTo, needFrom bool) (*parsedTransfer, error) {
	var req transferRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}
	out := &parsedTransfer{}
	var err error
	if out.token, err = pathAddress(r, "token"); err != nil {
		return nil, err
	}
	if needTo {
		if out.to, err = parseAddress(req.To, "to"); err != nil {
			return nil, err
		}
	}
	if needFrom {
		if out.from, err = parseAddress(req.From, "from"); err != nil {
			return nil, err
		}
	}
	if out.amount, err = parseAmount(req.Amount, "amount"); err != nil {
		return nil, err
	}
	return out, nil
}

// respondBalance answers a token movement with the affected balance.
func (a *api) respondBalance(w http.ResponseWriter, r *http.Request, tok, holder common.Address) {
	bal, err := a.node.BalanceOf(r.Context(), tok, holder)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, holdingView{Account: holder, Balance: amount(bal)})
}

func (a *api) mint(w http.ResponseWriter, r *http.Request) {
	p, err := decodeTransfer(r, true, false)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.node.MintTokens(r.Context(), p.token, caller(r), p.to, p.amount); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.respondBalance(w, r, p.token, p.to)
}

func (a *api) transfer(w http.ResponseWriter, r *http.Request) {
	p, err := decodeTransfer(r, true, false)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.node.Transfer(r.Context(), p.token, caller(r), p.to, p.amount); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.respondBalance(w, r, p.token, caller(r))
}

func (a *api) approve(w http.ResponseWriter, r *http.Request) {
	p, err := decodeTransfer(r, true, false)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.node.Approve(r.Context(), p.token, caller(r), p.to, p.amount); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"owner":     caller(r),
		"spender":   p.to,
		"allowance": amount(p.amount),
	})
}

func (a *api) transferFrom(w http.ResponseWriter, r *http.Request) {
	p, err := decodeTransfer(r, true, true)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.node.TransferFrom(r.Context(), p.token, caller(r), p.from, p.to, p.amount); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.respondBalance(w, r, p.token, p.from)
}

func (a *api) burn(w http.ResponseWriter, r *http.Request) {
	p, err := decodeTransfer(r, false, false)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.node.Burn(r.Context(), p.token, caller(r), p.amount); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.respondBalance(w, r, p.token, caller(r))
}

type createRoyaltyRequest struct {
	Name         string `json:"name"`
	Symbol       string `json:"symbol"`
	IPNFTTokenID uint64 `json:"ipnftTokenId"`
	MaxSupply    string `json:"maxSupply"`
}

func (a *api) createRoyaltyToken(w http.ResponseWriter, r *http.Request) {
	var req createRoyaltyRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	maxSupply, err := parseAmount(req.MaxSupply, "maxSupply")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	info, err := a.node.CreateRoyaltyToken(r.Context(), royalty.CreateParams{
		Deployer:     caller(r),
		Name:         req.Name,
		Symbol:       req.Symbol,
		IPNFTTokenID: req.IPNFTTokenID,
		MaxSupply:    maxSupply,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewRoyalty(info))
}

func (a *api) getRoyaltyToken(w http.ResponseWriter, r *http.Request) {
	tok, err := pathAddress(r, "token")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	info, err := a.node.RoyaltyInfo(r.Context(), tok)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewRoyalty(info))
}

func (a *api) mintToInvestor(w http.ResponseWriter, r *http.Request) {
	p, err := decodeTransfer(r, true, false)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.node.MintToInvestor(r.Context(), p.token, caller(r), p.to, p.amount); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.respondBalance(w, r, p.token, p.to)
}

func (a *api) mintToInventor(w http.ResponseWriter, r *http.Request) {
	p, err := decodeTransfer(r, true, false)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.node.MintToInventor(r.Context(), p.token, caller(r), p.to, p.amount); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.respondBalance(w, r, p.token, p.to)
}

func (a *api) finalizeRoyalty(w http.ResponseWriter, r *http.Request) {
	tok, err := pathAddress(r, "token")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.node.FinalizeDistribution(r.Context(), tok, caller(r)); err != nil {
		a.writeError(w, r, err)
		return
	}
	info, err := a.node.RoyaltyInfo(r.Context(), tok)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewRoyalty(info))
}
