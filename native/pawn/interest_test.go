package pawn

import (
	"errors"
	"math"
	"testing"
)

func termsFixture() *LoanTerms {
	return &LoanTerms{
		PrincipalAmount: 5_000_000_000,
		PaymentAsset:    AssetNative,
		AnnualRateBps:   3500,
		DurationSeconds: 604_800,
	}
}

func TestInterestDueFullDuration(t *testing.T) {
	terms := termsFixture()
	got, err := InterestDue(terms, 0, terms.DurationSeconds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 33_561_643 {
		t.Fatalf("full duration interest = %d, want 33561643", got)
	}
}

func TestInterestDueHalfDuration(t *testing.T) {
	terms := termsFixture()
	got, err := InterestDue(terms, 0, terms.DurationSeconds/2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 16_780_821 {
		t.Fatalf("half duration interest = %d, want 16780821", got)
	}
}

func TestInterestDueFloorsBelowQuarterDuration(t *testing.T) {
	terms := termsFixture()
	tenth, err := InterestDue(terms, 0, terms.DurationSeconds/10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tenth != 8_390_410 {
		t.Fatalf("tenth duration interest = %d, want the floored 8390410", tenth)
	}
	quarter, err := InterestDue(terms, 0, terms.DurationSeconds/4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tenth != quarter {
		t.Fatalf("floored interest %d should equal quarter-duration interest %d", tenth, quarter)
	}
	// One second past the floor boundary the raw proportional value applies.
	past, err := InterestDue(terms, 0, terms.DurationSeconds/4+1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if past < quarter {
		t.Fatalf("interest after the floor boundary regressed: %d < %d", past, quarter)
	}
}

func TestInterestDueMonotonic(t *testing.T) {
	terms := termsFixture()
	full, _ := InterestDue(terms, 0, terms.DurationSeconds)
	half, _ := InterestDue(terms, 0, terms.DurationSeconds/2)
	tenth, _ := InterestDue(terms, 0, terms.DurationSeconds/10)
	if !(full >= half && half >= tenth) {
		t.Fatalf("interest not monotonic: full=%d half=%d tenth=%d", full, half, tenth)
	}
}

func TestInterestDueNegativeElapsed(t *testing.T) {
	terms := termsFixture()
	if _, err := InterestDue(terms, 100, 99); !errors.Is(err, ErrCalculation) {
		t.Fatalf("expected ErrCalculation for backward clock, got %v", err)
	}
}

func TestInterestDueExtremeInputs(t *testing.T) {
	terms := &LoanTerms{
		PrincipalAmount: math.MaxUint64,
		PaymentAsset:    AssetNative,
		AnnualRateBps:   math.MaxUint64,
		DurationSeconds: math.MaxInt64,
	}
	if _, err := InterestDue(terms, 0, math.MaxInt64); !errors.Is(err, ErrCalculation) {
		t.Fatalf("expected ErrCalculation on narrowing overflow, got %v", err)
	}
}

func TestAdminFee(t *testing.T) {
	fee, err := AdminFee(100, 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fee != 2 {
		t.Fatalf("AdminFee(100, 200) = %d, want 2", fee)
	}
	zero, err := AdminFee(0, 200)
	if err != nil || zero != 0 {
		t.Fatalf("AdminFee(0, 200) = %d, %v, want 0, nil", zero, err)
	}
}

func TestPayoffAmount(t *testing.T) {
	got, err := PayoffAmount(1234, 5678, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 6902 {
		t.Fatalf("PayoffAmount(1234, 5678, 10) = %d, want 6902", got)
	}
}

func TestPayoffAmountOverflow(t *testing.T) {
	if _, err := PayoffAmount(math.MaxUint64, 1, 0); !errors.Is(err, ErrCalculation) {
		t.Fatalf("expected ErrCalculation for additive overflow, got %v", err)
	}
}

func TestPayoffAmountFeeExceedsInterest(t *testing.T) {
	if _, err := PayoffAmount(1000, 5, 6); !errors.Is(err, ErrCalculation) {
		t.Fatalf("expected ErrCalculation when fee exceeds interest, got %v", err)
	}
}
