package pawn

import "errors"

var (
	// ErrInvalidLoanStatus is returned when a transition is attempted against
	// a loan whose status does not permit it.
	ErrInvalidLoanStatus = errors.New("pawn: invalid loan status")
	// ErrInvalidLoanTerms is returned when a requested term field is zero or
	// negative.
	ErrInvalidLoanTerms = errors.New("pawn: invalid loan terms")
	// ErrUnexpectedDesiredTerms is returned when the terms restated by the
	// underwriter do not match the loan's desired terms.
	ErrUnexpectedDesiredTerms = errors.New("pawn: desired terms do not match expectation")
	// ErrUnexpectedCollateralAsset is returned when the collateral restated by
	// the underwriter does not match the pledged collateral.
	ErrUnexpectedCollateralAsset = errors.New("pawn: collateral does not match expectation")
	// ErrCannotSeizeBeforeExpiry is returned when seizure is attempted at or
	// before the loan due date.
	ErrCannotSeizeBeforeExpiry = errors.New("pawn: loan has not expired")
	// ErrCalculation is returned for any arithmetic overflow, underflow or
	// negative-duration condition. Results are never silently truncated.
	ErrCalculation = errors.New("pawn: calculation overflow")
)

var (
	errNilState            = errors.New("pawn engine: state not configured")
	errNilFreezer          = errors.New("pawn engine: freeze authority not configured")
	errLoanNotFound        = errors.New("pawn engine: loan not found")
	errLoanExists          = errors.New("pawn engine: loan already exists")
	errUnauthorizedCaller  = errors.New("pawn engine: unauthorized caller")
	errInsufficientBalance = errors.New("pawn engine: insufficient balance")
	errInvalidCollateral   = errors.New("pawn engine: invalid collateral")
	errAssetFrozen         = errors.New("pawn engine: asset is frozen")
)
