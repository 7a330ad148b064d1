package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (a *api) mountGovernance(r chi.Router) {
	write(r, http.MethodPost, "/reputation-tokens", a.deployReputation)
	write(r, http.MethodPost, "/reputation-tokens/{token}/grant", a.grantReputation)
	write(r, http.MethodPost, "/governors", a.deployGovernor)
	write(r, http.MethodPost, "/governors/{gov}/proposals", a.createProposal)
	r.Get("/governors/{gov}/proposals/{id}", a.getProposal)
	write(r, http.MethodPost, "/governors/{gov}/proposals/{id}/votes", a.vote)
	write(r, http.MethodPost, "/governors/{gov}/delegate", a.delegate)
	r.Get("/governors/{gov}/delegates/{account}", a.delegateOf)
}

func (a *api) deployReputation(w http.ResponseWriter, r *http.Request) {
	meta, err := a.node.DeployReputation(r.Context(), caller(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewToken(meta))
}

func (a *api) grantReputation(w http.ResponseWriter, r *http.Request) {
	p, err := decodeTransfer(r, true, false)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.node.GrantReputation(r.Context(), p.token, caller(r), p.to, p.amount); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.respondBalance(w, r, p.token, p.to)
}

type deployGovernorRequest struct {
	ReputationToken   string `json:"reputationToken"`
	ProposalThreshold string `json:"proposalThreshold"`
}

func (a *api) deployGovernor(w http.ResponseWriter, r *http.Request) {
	var req deployGovernorRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	rep, err := parseAddress(req.ReputationToken, "reputationToken")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	threshold, err := optionalAmount(req.ProposalThreshold, "proposalThreshold")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	gov, err := a.node.DeployGovernor(r.Context(), caller(r), rep, threshold)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewGovernor(gov))
}

type proposalRequest struct {
	Text string `json:"text"`
}

func (a *api) createProposal(w http.ResponseWriter, r *http.Request) {
	gov, err := pathAddress(r, "gov")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var req proposalRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	proposal, err := a.node.CreateProposal(r.Context(), gov, caller(r), req.Text)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewProposal(proposal))
}

func (a *api) getProposal(w http.ResponseWriter, r *http.Request) {
	gov, err := pathAddress(r, "gov")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	id, err := pathUint(r, "id")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	proposal, err := a.node.Proposal(r.Context(), gov, id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewProposal(proposal))
}

type voteRequest struct {
	Support bool `json:"support"`
}

func (a *api) vote(w http.ResponseWriter, r *http.Request) {
	gov, err := pathAddress(r, "gov")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	id, err := pathUint(r, "id")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var req voteRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	vote, err := a.node.Vote(r.Context(), gov, caller(r), id, req.Support)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewVote(vote))
}

type delegateRequest struct {
	To string `json:"to"`
}

func (a *api) delegate(w http.ResponseWriter, r *http.Request) {
	gov, err := pathAddress(r, "gov")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var req delegateRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	to, err := parseAddress(req.To, "to")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := a.node.Delegate(r.Context(), gov, caller(r), to); err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"from": caller(r), "to": to})
}

func (a *api) delegateOf(w http.ResponseWriter, r *http.Request) {
	gov, err := pathAddress(r, "gov")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	account, err := pathAddress(r, "account")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	to, err := a.node.DelegateOf(r.Context(), gov, account)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"from": account, "to": to})
}
