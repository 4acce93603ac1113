package storage

import (
	"math/big"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"pawnhub/core/types"
	"pawnhub/native/pawn"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "pawn.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })
	return store
}

func testAddr(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

func testBase(fill byte) [32]byte {
	var base [32]byte
	for i := range base {
		base[i] = fill
	}
	return base
}

func TestLoanRoundTrip(t *testing.T) {
	store := openTestStore(t)
	borrower := testAddr(0x01)
	id := pawn.LoanID(borrower, testBase(0xAA))
	terms := pawn.LoanTerms{
		PrincipalAmount: 5_000_000_000,
		PaymentAsset:    pawn.AssetNative,
		AnnualRateBps:   3500,
		DurationSeconds: 604_800,
	}
	loan := &pawn.Loan{
		ID:           id,
		Base:         testBase(0xAA),
		Bump:         pawn.DeriveBump(id),
		Borrower:     borrower,
		Collateral:   pawn.Collateral{Kind: pawn.CollateralFungible, Asset: "GEM", Amount: 250},
		DesiredTerms: &terms,
		Status:       pawn.LoanOpen,
		CreationTime: 1_700_000_000,
	}
	require.NoError(t, store.PawnLoanPut(loan))

	got, ok := store.PawnLoanGet(id)
	require.True(t, ok)
	require.Equal(t, loan.ID, got.ID)
	require.Equal(t, loan.Bump, got.Bump)
	require.Equal(t, loan.Collateral, got.Collateral)
	require.NotNil(t, got.DesiredTerms)
	require.True(t, got.DesiredTerms.Equal(terms))
	require.Nil(t, got.Terms)

	require.NoError(t, store.PawnLoanDelete(id))
	_, ok = store.PawnLoanGet(id)
	require.False(t, ok)
}

func TestAccountDefaultsAndBalances(t *testing.T) {
	store := openTestStore(t)
	addr := testAddr(0x02)

	acc, err := store.GetAccount(addr)
	require.NoError(t, err)
	require.Zero(t, acc.BalanceNative.Sign())

	acc.BalanceNative = big.NewInt(42)
	acc.SetTokenBalance("GEM", big.NewInt(7))
	require.NoError(t, store.PutAccount(addr, acc))

	reloaded, err := store.GetAccount(addr)
	require.NoError(t, err)
	require.Equal(t, int64(42), reloaded.BalanceNative.Int64())
	require.Equal(t, int64(7), reloaded.TokenBalance("GEM").Int64())
}

func TestFreezeThawSemantics(t *testing.T) {
	store := openTestStore(t)
	const asset = pawn.AssetID("RARE-001")
	delegate := testAddr(0x03)
	owner := testAddr(0x04)

	require.NoError(t, store.Freeze(asset, delegate, owner))
	frozen, err := store.Frozen(asset)
	require.NoError(t, err)
	require.True(t, frozen)

	frozenOwner, frozen, err := store.FrozenOwner(asset)
	require.NoError(t, err)
	require.True(t, frozen)
	require.Equal(t, owner, frozenOwner)

	require.ErrorIs(t, store.Freeze(asset, delegate, owner), ErrAlreadyFrozen)
	require.ErrorIs(t, store.Thaw(asset, testAddr(0x05), owner), ErrDelegateMismatch)

	require.NoError(t, store.Thaw(asset, delegate, owner))
	frozen, err = store.Frozen(asset)
	require.NoError(t, err)
	require.False(t, frozen)

	_, frozen, err = store.FrozenOwner(asset)
	require.NoError(t, err)
	require.False(t, frozen)

	require.ErrorIs(t, store.Thaw(asset, delegate, owner), ErrNotFrozen)
}

// The store must serve as the engine's state backend end to end, not just as
// a record bag: run a full lifecycle against it.
func TestEngineLifecycleOnStore(t *testing.T) {
	store := openTestStore(t)
	borrower := testAddr(0x01)
	lender := testAddr(0x02)

	now := int64(1_700_000_000)
	engine := pawn.NewEngine()
	engine.SetState(store)
	engine.SetFreezeAuthority(store)
	engine.SetNowFunc(func() int64 { return now })

	fund := func(addr [20]byte, native uint64, asset pawn.AssetID, tokens uint64) {
		acc, err := store.GetAccount(addr)
		require.NoError(t, err)
		acc.BalanceNative = new(big.Int).SetUint64(native)
		if asset != "" {
			acc.SetTokenBalance(string(asset), new(big.Int).SetUint64(tokens))
		}
		require.NoError(t, store.PutAccount(addr, acc))
	}
	fund(borrower, 10_000_000_000, "GEM", 250)
	fund(lender, 10_000_000_000, "", 0)

	terms := pawn.LoanTerms{
		PrincipalAmount: 5_000_000_000,
		PaymentAsset:    pawn.AssetNative,
		AnnualRateBps:   3500,
		DurationSeconds: 604_800,
	}
	collateral := pawn.Collateral{Kind: pawn.CollateralFungible, Asset: "GEM", Amount: 250}

	loan, err := engine.RequestLoan(testBase(0xAA), borrower, collateral, terms)
	require.NoError(t, err)

	_, err = engine.UnderwriteLoan(loan.ID, lender, terms, collateral.Asset, collateral.Amount)
	require.NoError(t, err)

	now += 604_800
	repaid, err := engine.RepayLoan(loan.ID, borrower)
	require.NoError(t, err)
	require.Equal(t, pawn.LoanRepaid, repaid.Status)

	lenderAcc, err := store.GetAccount(lender)
	require.NoError(t, err)
	require.Equal(t, uint64(10_032_890_411), lenderAcc.BalanceNative.Uint64())

	borrowerAcc, err := store.GetAccount(borrower)
	require.NoError(t, err)
	require.Equal(t, int64(250), borrowerAcc.TokenBalance("GEM").Int64())

	treasuryAcc, err := store.GetAccount(pawn.TreasuryAddress(pawn.AssetNative))
	require.NoError(t, err)
	require.Equal(t, uint64(671_232), treasuryAcc.BalanceNative.Uint64())
}
