package pawn

import (
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// TreasuryAddress derives the custody account accumulating admin fees for the
// supplied payment asset. The authority over it is protocol-derived, not any
// individual admin key; repayments from unrelated loans deposit into the same
// account and are serialized by the ledger's per-account write discipline.
func TreasuryAddress(asset AssetID) [20]byte {
	normalized, err := NormalizeAsset(asset)
	if err != nil {
		normalized = asset
	}
	h := ethcrypto.Keccak256Hash([]byte("pawn-fee-treasury"), []byte(normalized))
	var addr [20]byte
	copy(addr[:], h[12:])
	return addr
}

// Treasury sweeps accumulated admin fees to the configured fee collector.
//
// Withdrawals of the native asset leave the reserve floor behind so the
// treasury account stays alive under the ledger's existence-rent rules and
// later fee deposits never fail for lack of a live destination. Token
// balances are swept in full since token accounts carry no rent requirement.
// The asymmetry is deliberate and mirrors the hosting ledger's storage model.
type Treasury struct {
	state        custodyState
	collector    [20]byte
	reserveFloor *big.Int
}

// NewTreasury wires the treasury to the ledger backend, the designated fee
// collector identity, and the native reserve floor.
func NewTreasury(state custodyState, collector [20]byte, reserveFloor *big.Int) *Treasury {
	if reserveFloor == nil {
		reserveFloor = big.NewInt(0)
	}
	return &Treasury{state: state, collector: collector, reserveFloor: new(big.Int).Set(reserveFloor)}
}

// Balance reports the fee balance currently held for the supplied asset.
func (t *Treasury) Balance(asset AssetID) (*big.Int, error) {
	if t == nil || t.state == nil {
		return nil, errNilState
	}
	normalized, err := NormalizeAsset(asset)
	if err != nil {
		return nil, err
	}
	acc, err := t.state.GetAccount(TreasuryAddress(normalized))
	if err != nil {
		return nil, err
	}
	acc = acc.EnsureDefaults()
	if normalized == AssetNative {
		return new(big.Int).Set(acc.BalanceNative), nil
	}
	return acc.TokenBalance(string(normalized)), nil
}

// Withdraw sweeps the withdrawable fee balance for asset to destination and
// returns the amount moved. Only the designated fee collector may call it.
func (t *Treasury) Withdraw(caller [20]byte, asset AssetID, destination [20]byte) (*big.Int, error) {
	if t == nil || t.state == nil {
		return nil, errNilState
	}
	if caller != t.collector {
		return nil, errUnauthorizedCaller
	}
	normalized, err := NormalizeAsset(asset)
	if err != nil {
		return nil, err
	}
	balance, err := t.Balance(normalized)
	if err != nil {
		return nil, err
	}
	withdrawable := new(big.Int).Set(balance)
	if normalized == AssetNative {
		withdrawable.Sub(withdrawable, t.reserveFloor)
	}
	if withdrawable.Sign() <= 0 {
		return big.NewInt(0), nil
	}
	if !withdrawable.IsUint64() {
		return nil, ErrCalculation
	}
	if err := moveBalance(t.state, TreasuryAddress(normalized), destination, normalized, withdrawable.Uint64()); err != nil {
		return nil, err
	}
	return withdrawable, nil
}
