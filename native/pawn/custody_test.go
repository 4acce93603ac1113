package pawn

import "testing"

func TestDeriveAuthorityDeterministic(t *testing.T) {
	id := LoanID(newTestAddress(0x01), newTestBase(0xAA))
	bump := DeriveBump(id)
	first := DeriveAuthority(id, bump)
	second := DeriveAuthority(id, bump)
	if first != second {
		t.Fatalf("authority derivation is not reproducible")
	}
	if first == ([20]byte{}) {
		t.Fatalf("derived authority is the zero address")
	}
}

func TestDeriveAuthorityDistinctPerLoan(t *testing.T) {
	idA := LoanID(newTestAddress(0x01), newTestBase(0xAA))
	idB := LoanID(newTestAddress(0x01), newTestBase(0xBB))
	if idA == idB {
		t.Fatalf("loan identifiers collide across bases")
	}
	authA := DeriveAuthority(idA, DeriveBump(idA))
	authB := DeriveAuthority(idB, DeriveBump(idB))
	if authA == authB {
		t.Fatalf("custody authorities collide across loans")
	}
}

func TestCustodyAddressDisjointFromAuthority(t *testing.T) {
	id := LoanID(newTestAddress(0x01), newTestBase(0xAA))
	bump := DeriveBump(id)
	if CustodyAddress(id, bump) == DeriveAuthority(id, bump) {
		t.Fatalf("custody holding account must differ from its authority key")
	}
}

func TestCustodyBumpChangesDerivation(t *testing.T) {
	id := LoanID(newTestAddress(0x01), newTestBase(0xAA))
	bump := DeriveBump(id)
	if DeriveAuthority(id, bump) == DeriveAuthority(id, bump+1) {
		t.Fatalf("authority derivation ignores the bump salt")
	}
}

func TestCustodyManagerRequiresFreezerForUnique(t *testing.T) {
	state := newMockState()
	manager := NewCustodyManager(state, nil)
	loan := &Loan{
		ID:         LoanID(newTestAddress(0x01), newTestBase(0xAA)),
		Borrower:   newTestAddress(0x01),
		Collateral: Collateral{Kind: CollateralUnique, Asset: "RARE-003", Amount: 1},
	}
	loan.Bump = DeriveBump(loan.ID)
	if err := manager.Lock(loan, loan.Borrower); err == nil {
		t.Fatalf("expected error locking unique collateral without a freeze authority")
	}
}
