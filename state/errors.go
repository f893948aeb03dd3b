package state

import (
	"errors"

	"github.com/calehh/circle-app/tx"
)

// Validation errors.
var (
	ErrInvalidDuration = errors.New("invalid auto-sign duration")
	ErrInsufficientFee = errors.New("insufficient entry fee")
	ErrInvalidAmount   = errors.New("invalid amount")
)

// State-conflict errors.
var (
	ErrNotYourTurn            = errors.New("not your turn")
	ErrAlreadySignedThisEpoch = errors.New("already signed this epoch")
	ErrAlreadyStarted         = errors.New("cycle already started")
	ErrNoActiveCycle          = errors.New("no active cycle")
	ErrNotYetTimedOut         = errors.New("cycle not yet timed out")
	ErrStillBanned            = errors.New("member still banned")
	ErrAlreadyMember          = errors.New("owner already has a live member")
	ErrDeadlinePassed         = errors.New("forwarding deadline passed")
	ErrHolderCannotLeave      = errors.New("current holder cannot leave")
	ErrCommitmentActive       = errors.New("member has an active commitment")
	ErrMemberRetired          = errors.New("member retired")
	ErrNotOwner               = errors.New("signer does not own member")
)

// Resource-exhaustion errors.
var (
	ErrNoActiveMembers           = errors.New("no active members")
	ErrNothingToClaim            = errors.New("nothing to claim")
	ErrClaimWindowClosed         = errors.New("claim window closed")
	ErrNothingToProcess          = errors.New("nothing to process")
	ErrInsufficientBalance       = errors.New("insufficient balance")
	ErrInsufficientCenterBalance = errors.New("insufficient center balance")
)

var (
	ErrNotFound            = errors.New("not found")
	ErrMemberNoexists      = errors.New("member noexists")
	ErrTxNonceInvalid      = errors.New("nonce invalid")
	ErrTxSigInvalid        = errors.New("signature invalid")
	ErrTxSenderInvalid     = errors.New("sender invalid")
	ErrParamsInvalid       = errors.New("params invalid")
	ErrReadOnlyState       = errors.New("read only state")
	ErrUnexpectedStateData = errors.New("unexpected state data")
)

// Result codes returned in CheckTx and FinalizeBlock results. Codes are stable
// and grouped by kind: 1xx validation, 2xx state conflict, 3xx exhaustion,
// 4xx envelope.
const (
	CodeOK       uint32 = 0
	CodeInternal uint32 = 1
)

var errCodes = []struct {
	err  error
	code uint32
}{
	{ErrInvalidDuration, 101},
	{ErrInsufficientFee, 102},
	{ErrInvalidAmount, 103},

	{ErrNotYourTurn, 201},
	{ErrAlreadySignedThisEpoch, 202},
	{ErrAlreadyStarted, 203},
	{ErrNoActiveCycle, 204},
	{ErrNotYetTimedOut, 205},
	{ErrStillBanned, 206},
	{ErrAlreadyMember, 207},
	{ErrDeadlinePassed, 208},
	{ErrHolderCannotLeave, 209},
	{ErrCommitmentActive, 210},
	{ErrMemberRetired, 211},
	{ErrNotOwner, 212},
	{ErrMemberNoexists, 213},

	{ErrNoActiveMembers, 301},
	{ErrNothingToClaim, 302},
	{ErrClaimWindowClosed, 303},
	{ErrNothingToProcess, 304},
	{ErrInsufficientBalance, 305},
	{ErrInsufficientCenterBalance, 306},

	{ErrTxNonceInvalid, 401},
	{ErrTxSigInvalid, 402},
	{ErrTxSenderInvalid, 403},
	{tx.ErrInvalidTx, 404},
	{tx.ErrUnsupportedTxType, 405},
	{tx.ErrUnmatchedTxType, 406},
	{tx.ErrUnsupportedTxVersion, 407},
}

// Code maps an operation error to its ABCI result code.
func Code(err error) uint32 {
	if err == nil {
		return CodeOK
	}
	for _, c := range errCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}
