package pawn

import "github.com/holiman/uint256"

// The accrual functions are pure and deterministic. All intermediate
// arithmetic runs in the widened uint256 domain so the single multiplication
// chain cannot lose precision before the final division; narrowing back to
// uint64 is an explicit fallible step.

// InterestDue computes the interest owed on the supplied terms between
// startTime and now. A clock reading before startTime is a calculation error,
// not a clamp. The chargeable elapsed time is floored at
// duration * MinDurationRatioBps / 10_000 so a lender always earns at least a
// quarter-term of interest.
func InterestDue(terms *LoanTerms, startTime, now int64) (uint64, error) {
	if terms == nil || terms.DurationSeconds <= 0 {
		return 0, ErrInvalidLoanTerms
	}
	if now < startTime {
		return 0, ErrCalculation
	}
	elapsed := uint256.NewInt(uint64(now - startTime))

	floor := new(uint256.Int).Mul(
		uint256.NewInt(uint64(terms.DurationSeconds)),
		uint256.NewInt(MinDurationRatioBps),
	)
	floor.Div(floor, uint256.NewInt(basisPoints))
	effective := elapsed
	if effective.Lt(floor) {
		effective = floor
	}

	// principal * rateBps * effective cannot exceed 192 bits, so the widened
	// product is exact; only the narrowing below can fail.
	due := new(uint256.Int).Mul(uint256.NewInt(terms.PrincipalAmount), uint256.NewInt(terms.AnnualRateBps))
	due.Mul(due, effective)
	due.Div(due, uint256.NewInt(SecondsPerYear*basisPoints))
	if !due.IsUint64() {
		return 0, ErrCalculation
	}
	return due.Uint64(), nil
}

// AdminFee computes the protocol fee charged on accrued interest, expressed
// in basis points of the interest amount.
func AdminFee(interestDue, feeBps uint64) (uint64, error) {
	fee := new(uint256.Int).Mul(uint256.NewInt(interestDue), uint256.NewInt(feeBps))
	fee.Div(fee, uint256.NewInt(basisPoints))
	if !fee.IsUint64() {
		return 0, ErrCalculation
	}
	return fee.Uint64(), nil
}

// PayoffAmount is the amount the borrower owes the lender at repayment:
// principal plus interest, net of the admin fee routed to the treasury. The
// fee is computed as a fraction of interest so fee > interest indicates a
// caller bug and is rejected.
func PayoffAmount(principal, interestDue, adminFee uint64) (uint64, error) {
	if adminFee > interestDue {
		return 0, ErrCalculation
	}
	total := new(uint256.Int).Add(uint256.NewInt(principal), uint256.NewInt(interestDue))
	total.Sub(total, uint256.NewInt(adminFee))
	if !total.IsUint64() {
		return 0, ErrCalculation
	}
	return total.Uint64(), nil
}
