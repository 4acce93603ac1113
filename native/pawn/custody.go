package pawn

import (
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"pawnhub/core/types"
)

// custodyState is the slice of ledger state needed to move balances. The
// freeze registry is part of it: a standing freeze locks the asset against any
// transfer out of the frozen owner, so balance movement has to consult it.
type custodyState interface {
	GetAccount(addr [20]byte) (*types.Account, error)
	PutAccount(addr [20]byte, account *types.Account) error
	FrozenOwner(asset AssetID) (owner [20]byte, frozen bool, err error)
}

// FreezeAuthority is the collaborator locking unique assets in place. Freeze
// blocks any transfer of the asset, including by its owner of record, while
// the delegation to the custody authority stands; Thaw is the inverse and is
// required before the delegate can execute any transfer out.
type FreezeAuthority interface {
	Freeze(asset AssetID, delegate, owner [20]byte) error
	Thaw(asset AssetID, delegate, owner [20]byte) error
}

// DeriveBump returns the custody derivation salt for a loan identifier. It is
// computed once at creation and persisted on the loan record so the authority
// derivation is reproducible at release time.
func DeriveBump(loanID [32]byte) uint8 {
	h := ethcrypto.Keccak256Hash(loanID[:], []byte("pawn-custody-bump"))
	return h[31]
}

// DeriveAuthority returns the loan's custody authority key. The authority is
// a deterministic lookup key, not a live handle: release re-derives it from
// the persisted (ID, Bump) pair and signs for it again.
func DeriveAuthority(loanID [32]byte, bump uint8) [20]byte {
	h := ethcrypto.Keccak256Hash(loanID[:], []byte("pawn-custody-authority"), []byte{bump})
	var addr [20]byte
	copy(addr[:], h[12:])
	return addr
}

// CustodyAddress returns the escrow holding account for fungible collateral.
// Its sole transfer authority is the derived custody authority, never a human
// key.
func CustodyAddress(loanID [32]byte, bump uint8) [20]byte {
	h := ethcrypto.Keccak256Hash(loanID[:], []byte("pawn-token-account"), []byte{bump})
	var addr [20]byte
	copy(addr[:], h[12:])
	return addr
}

// moveBalance debits from and credits to in the supplied asset. Both account
// writes happen after the balance check, so an insufficient balance leaves the
// ledger untouched.
func moveBalance(state custodyState, from, to [20]byte, asset AssetID, amount uint64) error {
	if state == nil {
		return errNilState
	}
	if amount == 0 {
		return nil
	}
	normalized, err := NormalizeAsset(asset)
	if err != nil {
		return err
	}
	frozenOwner, frozen, err := state.FrozenOwner(normalized)
	if err != nil {
		return err
	}
	if frozen && frozenOwner == from {
		return errAssetFrozen
	}
	fromAcc, err := state.GetAccount(from)
	if err != nil {
		return err
	}
	toAcc, err := state.GetAccount(to)
	if err != nil {
		return err
	}
	fromAcc = fromAcc.EnsureDefaults()
	toAcc = toAcc.EnsureDefaults()
	amt := new(big.Int).SetUint64(amount)
	if normalized == AssetNative {
		if fromAcc.BalanceNative.Cmp(amt) < 0 {
			return errInsufficientBalance
		}
		fromAcc.BalanceNative = new(big.Int).Sub(fromAcc.BalanceNative, amt)
		toAcc.BalanceNative = new(big.Int).Add(toAcc.BalanceNative, amt)
	} else {
		balance := fromAcc.TokenBalance(string(normalized))
		if balance.Cmp(amt) < 0 {
			return errInsufficientBalance
		}
		fromAcc.SetTokenBalance(string(normalized), balance.Sub(balance, amt))
		toBalance := toAcc.TokenBalance(string(normalized))
		toAcc.SetTokenBalance(string(normalized), toBalance.Add(toBalance, amt))
	}
	if err := state.PutAccount(from, fromAcc); err != nil {
		return err
	}
	return state.PutAccount(to, toAcc)
}

// CustodyManager guarantees pledged collateral is inaccessible to the
// borrower for the loan's active lifetime and is released to exactly one
// party exactly once at resolution. Release trusts the engine's status
// gating; it does not re-check the loan lifecycle itself.
type CustodyManager struct {
	state   custodyState
	freezer FreezeAuthority
}

// NewCustodyManager wires the manager to the ledger backend and the freeze
// collaborator for unique collateral.
func NewCustodyManager(state custodyState, freezer FreezeAuthority) *CustodyManager {
	return &CustodyManager{state: state, freezer: freezer}
}

// Lock takes custody of the loan's collateral. Fungible collateral moves into
// the loan's derived escrow account; unique collateral stays with its owner of
// record under a freeze delegation granted to the loan authority.
func (m *CustodyManager) Lock(loan *Loan, owner [20]byte) error {
	if m == nil || m.state == nil {
		return errNilState
	}
	if loan == nil {
		return errLoanNotFound
	}
	switch loan.Collateral.Kind {
	case CollateralFungible:
		custody := CustodyAddress(loan.ID, loan.Bump)
		return moveBalance(m.state, owner, custody, loan.Collateral.Asset, loan.Collateral.Amount)
	case CollateralUnique:
		if m.freezer == nil {
			return errNilFreezer
		}
		// The freeze itself never touches balances, so the pledge has to be
		// verified against the ledger before the delegation is granted.
		acc, err := m.state.GetAccount(owner)
		if err != nil {
			return err
		}
		held := acc.EnsureDefaults().TokenBalance(string(loan.Collateral.Asset))
		if held.Cmp(new(big.Int).SetUint64(loan.Collateral.Amount)) < 0 {
			return errInsufficientBalance
		}
		authority := DeriveAuthority(loan.ID, loan.Bump)
		return m.freezer.Freeze(loan.Collateral.Asset, authority, owner)
	default:
		return fmt.Errorf("%w: unknown kind %d", errInvalidCollateral, loan.Collateral.Kind)
	}
}

// Release hands the collateral to destination. For the escrow path the
// custody authority is re-derived from the persisted salt and signs the
// transfer out. For the freeze path the asset is thawed first; when the
// destination is not the owner of record (seizure) the delegated authority
// then executes the single-unit transfer.
func (m *CustodyManager) Release(loan *Loan, destination [20]byte) error {
	if m == nil || m.state == nil {
		return errNilState
	}
	if loan == nil {
		return errLoanNotFound
	}
	switch loan.Collateral.Kind {
	case CollateralFungible:
		custody := CustodyAddress(loan.ID, loan.Bump)
		return moveBalance(m.state, custody, destination, loan.Collateral.Asset, loan.Collateral.Amount)
	case CollateralUnique:
		if m.freezer == nil {
			return errNilFreezer
		}
		authority := DeriveAuthority(loan.ID, loan.Bump)
		if err := m.freezer.Thaw(loan.Collateral.Asset, authority, loan.Borrower); err != nil {
			return err
		}
		if destination == loan.Borrower {
			return nil
		}
		return moveBalance(m.state, loan.Borrower, destination, loan.Collateral.Asset, loan.Collateral.Amount)
	default:
		return fmt.Errorf("%w: unknown kind %d", errInvalidCollateral, loan.Collateral.Kind)
	}
}
