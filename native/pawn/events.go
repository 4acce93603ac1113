package pawn

import (
	"encoding/hex"
	"strconv"

	"pawnhub/core/types"
	"pawnhub/crypto"
)

const (
	EventTypeLoanRequested    = "pawn.loan.requested"
	EventTypeLoanUnderwritten = "pawn.loan.underwritten"
	EventTypeLoanRepaid       = "pawn.loan.repaid"
	EventTypePawnSeized       = "pawn.loan.seized"
	EventTypeLoanCancelled    = "pawn.loan.cancelled"
)

// NewRequestedEvent returns the canonical payload emitted when a borrower
// opens a loan ask.
func NewRequestedEvent(l *Loan) *types.Event { return newLoanEvent(EventTypeLoanRequested, l) }

// NewUnderwrittenEvent returns the canonical payload emitted when a lender
// activates a loan.
func NewUnderwrittenEvent(l *Loan) *types.Event { return newLoanEvent(EventTypeLoanUnderwritten, l) }

// NewRepaidEvent returns the canonical payload emitted at repayment.
func NewRepaidEvent(l *Loan) *types.Event { return newLoanEvent(EventTypeLoanRepaid, l) }

// NewSeizedEvent returns the canonical payload emitted when collateral is
// seized on default.
func NewSeizedEvent(l *Loan) *types.Event { return newLoanEvent(EventTypePawnSeized, l) }

// NewCancelledEvent returns the canonical payload emitted when an open ask is
// withdrawn.
func NewCancelledEvent(l *Loan) *types.Event { return newLoanEvent(EventTypeLoanCancelled, l) }

// newLoanEvent flattens the full loan snapshot at the moment of the
// transition into event attributes for external indexing.
func newLoanEvent(eventType string, l *Loan) *types.Event {
	attrs := make(map[string]string)
	if l == nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	attrs["id"] = hex.EncodeToString(l.ID[:])
	attrs["base"] = hex.EncodeToString(l.Base[:])
	attrs["bump"] = strconv.FormatUint(uint64(l.Bump), 10)
	attrs["borrower"] = crypto.NewAddress(crypto.PawnPrefix, l.Borrower[:]).String()
	if l.Lender != ([20]byte{}) {
		attrs["lender"] = crypto.NewAddress(crypto.PawnPrefix, l.Lender[:]).String()
	}
	attrs["collateralAsset"] = string(l.Collateral.Asset)
	attrs["collateralKind"] = strconv.FormatUint(uint64(l.Collateral.Kind), 10)
	attrs["collateralAmount"] = strconv.FormatUint(l.Collateral.Amount, 10)
	attrs["status"] = l.Status.String()
	attrs["creationTime"] = strconv.FormatInt(l.CreationTime, 10)
	if l.StartTime != 0 {
		attrs["startTime"] = strconv.FormatInt(l.StartTime, 10)
	}
	if l.EndTime != 0 {
		attrs["endTime"] = strconv.FormatInt(l.EndTime, 10)
	}
	if terms := l.Terms; terms != nil {
		writeTerms(attrs, "terms", terms)
	}
	if desired := l.DesiredTerms; desired != nil {
		writeTerms(attrs, "desiredTerms", desired)
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}

func writeTerms(attrs map[string]string, prefix string, terms *LoanTerms) {
	attrs[prefix+".principalAmount"] = strconv.FormatUint(terms.PrincipalAmount, 10)
	attrs[prefix+".paymentAsset"] = string(terms.PaymentAsset)
	attrs[prefix+".annualRateBps"] = strconv.FormatUint(terms.AnnualRateBps, 10)
	attrs[prefix+".durationSeconds"] = strconv.FormatInt(terms.DurationSeconds, 10)
}
