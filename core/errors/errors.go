// Package errors defines the failure taxonomy shared by every protocol
// engine. Each named failure is a sentinel matched with errors.Is; the Kind
// tells callers whether resubmitting can ever succeed.
package errors

import (
	stderrors "errors"
	"net/http"
)

// Kind classifies a protocol failure.
type Kind uint8

const (
	KindUnknown Kind = iota
	// KindValidation means the caller must correct the input and resubmit.
	KindValidation
	// KindAuthorization means the caller lacks the capability for the call.
	KindAuthorization
	// KindStateConflict means the operation is no longer valid for the current state.
	KindStateConflict
	// KindProof means a submitted Merkle proof does not match the committed root.
	KindProof
	// KindNotFound means a referenced contract or record does not exist.
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindStateConflict:
		return "state_conflict"
	case KindProof:
		return "proof"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error is a named protocol failure.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

var (
	ErrZeroAmount             = newError(KindValidation, "ZeroAmount", "amount must be greater than zero")
	ErrInvalidAmount          = newError(KindValidation, "InvalidAmount", "amount must be an unsigned 256-bit integer")
	ErrInvalidRoot            = newError(KindValidation, "InvalidRoot", "merkle root must not be zero")
	ErrBelowMinimumInvestment = newError(KindValidation, "BelowMinimumInvestment", "investment below minimum")
	ErrMissingField           = newError(KindValidation, "MissingField", "required field missing")
	ErrInvalidAddress         = newError(KindValidation, "InvalidAddress", "address must not be zero")
	ErrInvalidDelegate        = newError(KindValidation, "InvalidDelegate", "cannot delegate to self or zero address")

	ErrUnauthorized   = newError(KindAuthorization, "Unauthorized", "caller is not the owner")
	ErrContractCaller = newError(KindAuthorization, "ContractCaller", "protocol contracts cannot act as callers")

	ErrAlreadyClaimed         = newError(KindStateConflict, "AlreadyClaimed", "dividend already claimed")
	ErrAlreadyVoted           = newError(KindStateConflict, "AlreadyVoted", "already voted on proposal")
	ErrCrowdsaleEnded         = newError(KindStateConflict, "CrowdsaleEnded", "crowdsale ended")
	ErrStillActive            = newError(KindStateConflict, "StillActive", "crowdsale still active")
	ErrGoalReachedNoRefund    = newError(KindStateConflict, "GoalReachedNoRefund", "goal was reached, no refunds")
	ErrNoContributionToRefund = newError(KindStateConflict, "NoContributionToRefund", "no contribution to refund")
	ErrNotFinalized           = newError(KindStateConflict, "NotFinalized", "crowdsale not finalized")
	ErrAlreadyFinalized       = newError(KindStateConflict, "AlreadyFinalized", "crowdsale already finalized")
	ErrExceedsMaxSupply       = newError(KindStateConflict, "ExceedsMaxSupply", "exceeds max supply")
	ErrDistributionFinalized  = newError(KindStateConflict, "DistributionFinalized", "distribution is finalized")
	ErrInsufficientReputation = newError(KindStateConflict, "InsufficientReputation", "insufficient reputation to propose")
	ErrInsufficientBalance    = newError(KindStateConflict, "InsufficientBalance", "insufficient balance")
	ErrInsufficientAllowance  = newError(KindStateConflict, "InsufficientAllowance", "insufficient allowance")
	ErrNonTransferable        = newError(KindStateConflict, "NonTransferable", "token is non-transferable")
	ErrListingInactive        = newError(KindStateConflict, "ListingInactive", "listing not active")
	ErrEpochExhausted         = newError(KindStateConflict, "EpochExhausted", "claim exceeds epoch total")
	ErrUnknownEpoch           = newError(KindStateConflict, "UnknownEpoch", "epoch has no distribution")
	ErrNothingToWithdraw      = newError(KindStateConflict, "NothingToWithdraw", "no fees accrued")
	ErrContractExists         = newError(KindStateConflict, "ContractExists", "contract already deployed")

	ErrInvalidProof = newError(KindProof, "InvalidProof", "invalid merkle proof")

	ErrContractNotFound  = newError(KindNotFound, "ContractNotFound", "contract not found")
	ErrProposalNotFound  = newError(KindNotFound, "ProposalNotFound", "proposal not found")
	ErrListingNotFound   = newError(KindNotFound, "ListingNotFound", "listing not found")
	ErrInventionNotFound = newError(KindNotFound, "InventionNotFound", "invention not found")
)

// As extracts the protocol error from err, if any.
func As(err error) (*Error, bool) {
	var target *Error
	if stderrors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// KindOf reports the classification of err. Errors outside the taxonomy are
// KindUnknown.
func KindOf(err error) Kind {
	if perr, ok := As(err); ok {
		return perr.Kind
	}
	return KindUnknown
}

// CodeOf returns the stable failure name for err, or "Internal".
func CodeOf(err error) string {
	if perr, ok := As(err); ok {
		return perr.Code
	}
	return "Internal"
}

// HTTPStatus maps a failure to the status code the gateway returns.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthorization:
		return http.StatusForbidden
	case KindStateConflict:
		return http.StatusConflict
	case KindProof:
		return http.StatusUnprocessableEntity
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
