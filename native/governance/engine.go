package governance

import (
	"encoding/binary"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	protoerrors "ideacapital/core/errors"
	"ideacapital/core/events"
	"ideacapital/core/state"
	"ideacapital/core/types"
	"ideacapital/native/reputation"
	"ideacapital/native/token"
)

var errStateNotConfigured = errors.New("governance: state not configured")

// Engine records text proposals and reputation-weighted votes. Weight is the
// voter's live reputation balance when the vote is cast; delegation is
// recorded but does not move weight.
type Engine struct {
	state      token.State
	reputation *reputation.Engine
	emitter    events.Emitter
	nowFn      func() time.Time
}

// NewEngine constructs a governance engine with default no-op dependencies.
func NewEngine() *Engine {
	return &Engine{
		reputation: reputation.NewEngine(),
		emitter:    events.NoopEmitter{},
		nowFn:      func() time.Time { return time.Now().UTC() },
	}
}

// SetState wires the engine to the state backend providing persistence helpers.
func (e *Engine) SetState(s token.State) {
	e.state = s
	e.reputation.SetState(s)
}

// SetEmitter configures the event emitter used by the engine. Passing nil resets
// the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e.emitter = emitter
	e.reputation.SetEmitter(emitter)
}

// SetNowFunc overrides the time source used to stamp proposals. Nil restores the
// default UTC clock.
func (e *Engine) SetNowFunc(now func() time.Time) {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	e.nowFn = now
	e.reputation.SetNowFunc(now)
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(events.Wrap(evt))
}

func governorKey(addr common.Address) []byte {
	return append([]byte("gov/governor/"), addr.Bytes()...)
}

func proposalKey(gov common.Address, id uint64) []byte {
	key := append([]byte("gov/proposal/"), gov.Bytes()...)
	return binary.BigEndian.AppendUint64(key, id)
}

func votedKey(gov common.Address, id uint64, voter common.Address) []byte {
	key := append([]byte("gov/voted/"), gov.Bytes()...)
	key = binary.BigEndian.AppendUint64(key, id)
	return append(key, voter.Bytes()...)
}

func delegateKey(gov, from common.Address) []byte {
	key := append([]byte("gov/delegate/"), gov.Bytes()...)
	return append(key, from.Bytes()...)
}

// Deploy creates a governor over an existing reputation token. A nil threshold
// selects DefaultProposalThreshold.
func (e *Engine) Deploy(owner, reputationToken common.Address, threshold *big.Int) (*Governor, error) {
	if e == nil || e.state == nil {
		return nil, errStateNotConfigured
	}
	if owner == (common.Address{}) {
		return nil, protoerrors.ErrInvalidAddress
	}
	if threshold == nil {
		threshold = DefaultProposalThreshold
	}
	if err := types.ValidateAmount(threshold); err != nil {
		return nil, err
	}
	if _, err := e.reputation.Token(reputationToken); err != nil {
		return nil, err
	}
	addr, err := e.state.NextContractAddress(owner)
	if err != nil {
		return nil, err
	}
	now := uint64(e.nowFn().Unix())
	gov := &Governor{
		Address:           addr,
		Owner:             owner,
		ReputationToken:   reputationToken,
		ProposalThreshold: new(big.Int).Set(threshold),
		CreatedAt:         now,
	}
	if err := e.state.RegisterContract(&state.Contract{Address: addr, Kind: Kind, Deployer: owner, CreatedAt: now}); err != nil {
		return nil, err
	}
	if err := e.state.KVPut(governorKey(addr), gov); err != nil {
		return nil, err
	}
	e.emit(DeployedEvent(gov))
	return gov, nil
}

// Governor loads a governor header or returns ErrContractNotFound.
func (e *Engine) Governor(addr common.Address) (*Governor, error) {
	if e == nil || e.state == nil {
		return nil, errStateNotConfigured
	}
	var gov Governor
	ok, err := e.state.KVGet(governorKey(addr), &gov)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, protoerrors.ErrContractNotFound
	}
	if gov.ProposalThreshold == nil {
		gov.ProposalThreshold = big.NewInt(0)
	}
	return &gov, nil
}

// CreateProposal opens a proposal if the caller's reputation meets the
// threshold. Ids start at 0.
func (e *Engine) CreateProposal(govAddr, caller common.Address, text string) (*Proposal, error) {
	gov, err := e.Governor(govAddr)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, protoerrors.ErrMissingField
	}
	weight, err := e.reputation.BalanceOf(gov.ReputationToken, caller)
	if err != nil {
		return nil, err
	}
	if weight.Cmp(gov.ProposalThreshold) < 0 {
		return nil, protoerrors.ErrInsufficientReputation
	}
	proposal := &Proposal{
		ID:           gov.NextProposalID,
		Proposer:     caller,
		Text:         text,
		CreatedAt:    uint64(e.nowFn().Unix()),
		VotesFor:     big.NewInt(0),
		VotesAgainst: big.NewInt(0),
	}
	gov.NextProposalID++
	if err := e.state.KVPut(proposalKey(govAddr, proposal.ID), proposal); err != nil {
		return nil, err
	}
	if err := e.state.KVPut(governorKey(govAddr), gov); err != nil {
		return nil, err
	}
	e.emit(ProposalCreatedEvent(govAddr, proposal))
	return proposal, nil
}

// Proposal loads a proposal or returns ErrProposalNotFound.
func (e *Engine) Proposal(govAddr common.Address, id uint64) (*Proposal, error) {
	if _, err := e.Governor(govAddr); err != nil {
		return nil, err
	}
	var proposal Proposal
	ok, err := e.state.KVGet(proposalKey(govAddr, id), &proposal)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, protoerrors.ErrProposalNotFound
	}
	proposal.normalize()
	return &proposal, nil
}

// HasVoted reports whether voter already voted on the proposal.
func (e *Engine) HasVoted(govAddr common.Address, id uint64, voter common.Address) (bool, error) {
	if _, err := e.Governor(govAddr); err != nil {
		return false, err
	}
	var voted bool
	if _, err := e.state.KVGet(votedKey(govAddr, id, voter), &voted); err != nil {
		return false, err
	}
	return voted, nil
}

// Vote adds the caller's live reputation balance to one side of the tally.
// An address votes at most once per proposal, even with zero weight.
func (e *Engine) Vote(govAddr, caller common.Address, id uint64, support bool) (*Vote, error) {
	proposal, err := e.Proposal(govAddr, id)
	if err != nil {
		return nil, err
	}
	voted, err := e.HasVoted(govAddr, id, caller)
	if err != nil {
		return nil, err
	}
	if voted {
		return nil, protoerrors.ErrAlreadyVoted
	}
	gov, err := e.Governor(govAddr)
	if err != nil {
		return nil, err
	}
	weight, err := e.reputation.BalanceOf(gov.ReputationToken, caller)
	if err != nil {
		return nil, err
	}
	if support {
		proposal.VotesFor = new(big.Int).Add(proposal.VotesFor, weight)
	} else {
		proposal.VotesAgainst = new(big.Int).Add(proposal.VotesAgainst, weight)
	}
	if err := e.state.KVPut(votedKey(govAddr, id, caller), true); err != nil {
		return nil, err
	}
	if err := e.state.KVPut(proposalKey(govAddr, id), proposal); err != nil {
		return nil, err
	}
	e.emit(VotedEvent(govAddr, id, caller, support, weight))
	return &Vote{ProposalID: id, Voter: caller, Support: support, Weight: weight}, nil
}

// Delegate records to as the caller's delegate, replacing any earlier choice.
func (e *Engine) Delegate(govAddr, caller, to common.Address) error {
	if _, err := e.Governor(govAddr); err != nil {
		return err
	}
	if to == (common.Address{}) || to == caller {
		return protoerrors.ErrInvalidDelegate
	}
	if err := e.state.KVPut(delegateKey(govAddr, caller), to); err != nil {
		return err
	}
	e.emit(DelegatedEvent(govAddr, caller, to))
	return nil
}

// DelegateOf returns the caller's recorded delegate, or the zero address.
func (e *Engine) DelegateOf(govAddr, from common.Address) (common.Address, error) {
	if _, err := e.Governor(govAddr); err != nil {
		return common.Address{}, err
	}
	var to common.Address
	if _, err := e.state.KVGet(delegateKey(govAddr, from), &to); err != nil {
		return common.Address{}, err
	}
	return to, nil
}
