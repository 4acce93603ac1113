package types

import "math/big"

// Account is the ledger view the pawn engine mutates: the native coin balance
// plus per-token balances keyed by normalized asset symbol. Amounts are big
// integers to match on-ledger precision.
type Account struct {
	Nonce         uint64              `json:"nonce"`
	BalanceNative *big.Int            `json:"balanceNative"`
	TokenBalances map[string]*big.Int `json:"tokenBalances,omitempty"`
}

// EnsureDefaults populates nil balance fields so JSON round-trips and balance
// arithmetic never observe a nil big.Int.
func (a *Account) EnsureDefaults() *Account {
	if a == nil {
		return &Account{BalanceNative: big.NewInt(0), TokenBalances: map[string]*big.Int{}}
	}
	if a.BalanceNative == nil {
		a.BalanceNative = big.NewInt(0)
	}
	if a.TokenBalances == nil {
		a.TokenBalances = map[string]*big.Int{}
	}
	return a
}

// TokenBalance returns the balance held for the supplied asset symbol,
// treating missing entries as zero. The returned value is a copy.
func (a *Account) TokenBalance(symbol string) *big.Int {
	if a == nil || a.TokenBalances == nil {
		return big.NewInt(0)
	}
	bal, ok := a.TokenBalances[symbol]
	if !ok || bal == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(bal)
}

// SetTokenBalance records the balance for the supplied asset symbol.
func (a *Account) SetTokenBalance(symbol string, amount *big.Int) {
	if a == nil {
		return
	}
	if a.TokenBalances == nil {
		a.TokenBalances = map[string]*big.Int{}
	}
	if amount == nil {
		amount = big.NewInt(0)
	}
	a.TokenBalances[symbol] = new(big.Int).Set(amount)
}
