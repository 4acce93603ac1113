package pawn

import (
	"fmt"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// AssetID identifies the asset a balance is denominated in. AssetNative is the
// chain's native coin; any other normalized symbol is a fungible token mint.
type AssetID string

// AssetNative denominates amounts in the chain's native coin.
const AssetNative AssetID = "NATIVE"

// NormalizeAsset canonicalises an asset symbol for consistent lookups.
func NormalizeAsset(asset AssetID) (AssetID, error) {
	trimmed := AssetID(strings.ToUpper(strings.TrimSpace(string(asset))))
	if trimmed == "" {
		return "", fmt.Errorf("pawn: empty asset identifier")
	}
	return trimmed, nil
}

// CollateralKind selects the custody strategy applied to pledged collateral.
type CollateralKind uint8

const (
	// CollateralFungible is escrowed by moving the pledged amount into a
	// program-controlled custody account.
	CollateralFungible CollateralKind = iota
	// CollateralUnique stays with its owner of record under a freeze/thaw
	// delegation granted to the loan's custody authority.
	CollateralUnique
)

// Valid reports whether the kind is within the supported range.
func (k CollateralKind) Valid() bool {
	switch k {
	case CollateralFungible, CollateralUnique:
		return true
	default:
		return false
	}
}

// Collateral describes the pledged asset backing a loan.
type Collateral struct {
	Kind   CollateralKind `json:"kind"`
	Asset  AssetID        `json:"asset"`
	Amount uint64         `json:"amount"`
}

// Validate normalises the collateral reference and enforces the single-unit
// rule for unique assets.
func (c Collateral) Validate() (Collateral, error) {
	if !c.Kind.Valid() {
		return Collateral{}, fmt.Errorf("%w: unknown kind %d", errInvalidCollateral, c.Kind)
	}
	asset, err := NormalizeAsset(c.Asset)
	if err != nil {
		return Collateral{}, fmt.Errorf("%w: %v", errInvalidCollateral, err)
	}
	c.Asset = asset
	if c.Amount == 0 {
		return Collateral{}, fmt.Errorf("%w: zero amount", errInvalidCollateral)
	}
	if c.Kind == CollateralUnique && c.Amount != 1 {
		return Collateral{}, fmt.Errorf("%w: unique collateral must be a single unit", errInvalidCollateral)
	}
	return c, nil
}

// LoanTerms is the immutable value type describing a loan's economics. All
// four fields must be positive when supplied as desired terms.
type LoanTerms struct {
	PrincipalAmount uint64  `json:"principalAmount"`
	PaymentAsset    AssetID `json:"paymentAsset"`
	AnnualRateBps   uint64  `json:"annualRateBps"`
	DurationSeconds int64   `json:"durationSeconds"`
}

// Validate normalises the payment asset and rejects zero or negative fields.
func (t LoanTerms) Validate() (LoanTerms, error) {
	if t.PrincipalAmount == 0 || t.AnnualRateBps == 0 || t.DurationSeconds <= 0 {
		return LoanTerms{}, ErrInvalidLoanTerms
	}
	asset, err := NormalizeAsset(t.PaymentAsset)
	if err != nil {
		return LoanTerms{}, ErrInvalidLoanTerms
	}
	t.PaymentAsset = asset
	return t, nil
}

// Equal reports whether two term sets match field for field.
func (t LoanTerms) Equal(other LoanTerms) bool {
	return t.PrincipalAmount == other.PrincipalAmount &&
		t.PaymentAsset == other.PaymentAsset &&
		t.AnnualRateBps == other.AnnualRateBps &&
		t.DurationSeconds == other.DurationSeconds
}

// Clone returns a copy of the terms so callers can safely hold them.
func (t *LoanTerms) Clone() *LoanTerms {
	if t == nil {
		return nil
	}
	clone := *t
	return &clone
}

// LoanStatus represents the lifecycle states supported by the pawn engine.
type LoanStatus uint8

const (
	LoanOpen LoanStatus = iota
	LoanActive
	LoanRepaid
	LoanDefaulted
	LoanCancelled
)

// Valid reports whether the status value is within the supported range.
func (s LoanStatus) Valid() bool {
	switch s {
	case LoanOpen, LoanActive, LoanRepaid, LoanDefaulted, LoanCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status admits no further transitions.
func (s LoanStatus) Terminal() bool {
	switch s {
	case LoanRepaid, LoanDefaulted, LoanCancelled:
		return true
	default:
		return false
	}
}

func (s LoanStatus) String() string {
	switch s {
	case LoanOpen:
		return "open"
	case LoanActive:
		return "active"
	case LoanRepaid:
		return "repaid"
	case LoanDefaulted:
		return "defaulted"
	case LoanCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

// Loan is the central entity tracked by the lifecycle engine. The identifier
// is the keccak256 hash of the borrower and a caller-supplied base
// discriminator, so one borrower can hold several concurrent loans under
// distinct bases. Bump is the custody derivation salt persisted at creation;
// releasing collateral re-derives the custody authority from (ID, Bump), which
// must reproduce the derivation used at lock time.
type Loan struct {
	ID         [32]byte   `json:"id"`
	Base       [32]byte   `json:"base"`
	Bump       uint8      `json:"bump"`
	Borrower   [20]byte   `json:"borrower"`
	Lender     [20]byte   `json:"lender"`
	Collateral Collateral `json:"collateral"`
	// DesiredTerms is the borrower's ask, set at creation and consumed at
	// underwriting. Terms is nil until the loan becomes active and immutable
	// thereafter.
	DesiredTerms *LoanTerms `json:"desiredTerms,omitempty"`
	Terms        *LoanTerms `json:"terms,omitempty"`
	Status       LoanStatus `json:"status"`
	CreationTime int64      `json:"creationTime"`
	StartTime    int64      `json:"startTime"`
	EndTime      int64      `json:"endTime"`
}

// LoanID derives the deterministic identifier for a borrower/base pair.
func LoanID(borrower [20]byte, base [32]byte) [32]byte {
	return ethcrypto.Keccak256Hash(borrower[:], base[:], []byte("pawn-loan"))
}

// Clone returns a deep copy of the loan so callers can safely mutate the copy
// without affecting the stored instance.
func (l *Loan) Clone() *Loan {
	if l == nil {
		return nil
	}
	clone := *l
	clone.DesiredTerms = l.DesiredTerms.Clone()
	clone.Terms = l.Terms.Clone()
	return &clone
}

// DueTime returns the instant the loan falls overdue. Valid only once the
// loan is active.
func (l *Loan) DueTime() int64 {
	if l == nil || l.Terms == nil {
		return 0
	}
	return l.StartTime + l.Terms.DurationSeconds
}
