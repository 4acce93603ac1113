package pawn

import (
	"fmt"
	"math/big"
	"time"

	"pawnhub/core/events"
	"pawnhub/core/types"
)

type engineState interface {
	PawnLoanPut(*Loan) error
	PawnLoanGet(id [32]byte) (*Loan, bool)
	PawnLoanDelete(id [32]byte) error
	GetAccount(addr [20]byte) (*types.Account, error)
	PutAccount(addr [20]byte, account *types.Account) error
	FrozenOwner(asset AssetID) (owner [20]byte, frozen bool, err error)
}

type pawnEvent struct {
	evt *types.Event
}

func (e pawnEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e pawnEvent) Event() *types.Event { return e.evt }

// transitionRecorder receives the outcome of every attempted transition so a
// metrics backend can count them without the engine depending on one.
type transitionRecorder interface {
	RecordTransition(op string, err error)
}

// Engine owns the loan lifecycle: it enforces valid status transitions,
// orchestrates the payment legs of each transition through the ledger state,
// and delegates collateral custody to the CustodyManager. Events are emitted
// only after the transition has fully committed.
type Engine struct {
	state   engineState
	custody *CustodyManager
	emitter events.Emitter
	metrics transitionRecorder
	nowFn   func() int64
	feeBps  uint64
}

// NewEngine creates a pawn engine with a no-op emitter and the default admin
// fee. Callers wire the state backend via SetState.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
		feeBps:  DefaultAdminFeeBps,
	}
}

// SetState configures the state backend used by the engine and rebinds the
// custody manager to it.
func (e *Engine) SetState(state engineState) {
	e.state = state
	if e.custody != nil {
		e.custody = NewCustodyManager(state, e.custody.freezer)
	} else {
		e.custody = NewCustodyManager(state, nil)
	}
}

// SetFreezeAuthority configures the collaborator locking unique collateral.
func (e *Engine) SetFreezeAuthority(freezer FreezeAuthority) {
	e.custody = NewCustodyManager(e.state, freezer)
}

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetMetrics configures the transition outcome recorder. Passing nil disables
// recording.
func (e *Engine) SetMetrics(metrics transitionRecorder) { e.metrics = metrics }

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetAdminFeeBps overrides the protocol fee charged on accrued interest.
func (e *Engine) SetAdminFeeBps(bps uint64) {
	if bps > basisPoints {
		bps = basisPoints
	}
	e.feeBps = bps
}

// AdminFeeBps returns the protocol fee currently applied at repayment.
func (e *Engine) AdminFeeBps() uint64 { return e.feeBps }

func (e *Engine) emit(event *types.Event) {
	if e == nil || e.emitter == nil || event == nil {
		return
	}
	e.emitter.Emit(pawnEvent{evt: event})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) record(op string, err error) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.RecordTransition(op, err)
}

func (e *Engine) loadLoan(id [32]byte) (*Loan, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	loan, ok := e.state.PawnLoanGet(id)
	if !ok {
		return nil, errLoanNotFound
	}
	return loan, nil
}

// GetLoan returns a copy of the stored loan record.
func (e *Engine) GetLoan(id [32]byte) (*Loan, error) {
	loan, err := e.loadLoan(id)
	if err != nil {
		return nil, err
	}
	return loan.Clone(), nil
}

// RequestLoan opens a loan: it validates the borrower's desired terms, locks
// the pledged collateral in custody and persists the new record with status
// Open. The base discriminator lets one borrower hold several concurrent
// loans.
func (e *Engine) RequestLoan(base [32]byte, borrower [20]byte, collateral Collateral, desired LoanTerms) (loan *Loan, err error) {
	defer func() { e.record("request", err) }()
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	validTerms, err := desired.Validate()
	if err != nil {
		return nil, err
	}
	validCollateral, err := collateral.Validate()
	if err != nil {
		return nil, err
	}
	id := LoanID(borrower, base)
	if _, ok := e.state.PawnLoanGet(id); ok {
		return nil, errLoanExists
	}
	loan = &Loan{
		ID:           id,
		Base:         base,
		Bump:         DeriveBump(id),
		Borrower:     borrower,
		Collateral:   validCollateral,
		DesiredTerms: &validTerms,
		Status:       LoanOpen,
		CreationTime: e.now(),
	}
	if err = e.custody.Lock(loan, borrower); err != nil {
		return nil, err
	}
	if err = e.state.PawnLoanPut(loan); err != nil {
		return nil, err
	}
	e.emit(NewRequestedEvent(loan))
	return loan.Clone(), nil
}

// UnderwriteLoan accepts the borrower's ask and activates the loan. The
// lender restates the exact terms and collateral they observed; any mismatch
// rejects the transition, so a borrower cannot alter the ask between the
// lender's quote and the underwriting landing. Principal moves lender to
// borrower in the terms' payment asset.
func (e *Engine) UnderwriteLoan(id [32]byte, lender [20]byte, expectedTerms LoanTerms, expectedCollateralAsset AssetID, expectedCollateralAmount uint64) (loan *Loan, err error) {
	defer func() { e.record("underwrite", err) }()
	loan, err = e.loadLoan(id)
	if err != nil {
		return nil, err
	}
	if loan.Status != LoanOpen {
		return nil, fmt.Errorf("%w: cannot underwrite in status %s", ErrInvalidLoanStatus, loan.Status)
	}
	if loan.DesiredTerms == nil || !loan.DesiredTerms.Equal(expectedTerms) {
		return nil, ErrUnexpectedDesiredTerms
	}
	expectedAsset, err := NormalizeAsset(expectedCollateralAsset)
	if err != nil {
		return nil, ErrUnexpectedCollateralAsset
	}
	if loan.Collateral.Asset != expectedAsset || loan.Collateral.Amount != expectedCollateralAmount {
		return nil, ErrUnexpectedCollateralAsset
	}
	terms := loan.DesiredTerms.Clone()
	if err = moveBalance(e.state, lender, loan.Borrower, terms.PaymentAsset, terms.PrincipalAmount); err != nil {
		return nil, err
	}
	loan.Terms = terms
	loan.DesiredTerms = nil
	loan.Lender = lender
	loan.StartTime = e.now()
	loan.Status = LoanActive
	if err = e.state.PawnLoanPut(loan); err != nil {
		return nil, err
	}
	e.emit(NewUnderwrittenEvent(loan))
	return loan.Clone(), nil
}

// RepayLoan settles an active loan: the borrower pays principal plus accrued
// interest net of the admin fee to the lender, the fee lands in the per-asset
// treasury, and the collateral returns to the borrower. The borrower's
// balance is checked against the full obligation up front so a shortfall
// rejects the transition before any leg executes.
func (e *Engine) RepayLoan(id [32]byte, caller [20]byte) (loan *Loan, err error) {
	defer func() { e.record("repay", err) }()
	loan, err = e.loadLoan(id)
	if err != nil {
		return nil, err
	}
	if loan.Status != LoanActive {
		return nil, fmt.Errorf("%w: cannot repay in status %s", ErrInvalidLoanStatus, loan.Status)
	}
	if caller != loan.Borrower {
		return nil, errUnauthorizedCaller
	}
	now := e.now()
	interest, err := InterestDue(loan.Terms, loan.StartTime, now)
	if err != nil {
		return nil, err
	}
	fee, err := AdminFee(interest, e.feeBps)
	if err != nil {
		return nil, err
	}
	payoff, err := PayoffAmount(loan.Terms.PrincipalAmount, interest, fee)
	if err != nil {
		return nil, err
	}
	if err = e.ensureBalance(loan.Borrower, loan.Terms.PaymentAsset, payoff, fee); err != nil {
		return nil, err
	}
	if err = moveBalance(e.state, loan.Borrower, loan.Lender, loan.Terms.PaymentAsset, payoff); err != nil {
		return nil, err
	}
	if err = moveBalance(e.state, loan.Borrower, TreasuryAddress(loan.Terms.PaymentAsset), loan.Terms.PaymentAsset, fee); err != nil {
		return nil, err
	}
	if err = e.custody.Release(loan, loan.Borrower); err != nil {
		return nil, err
	}
	loan.Status = LoanRepaid
	loan.EndTime = now
	if err = e.state.PawnLoanPut(loan); err != nil {
		return nil, err
	}
	e.emit(NewRepaidEvent(loan))
	return loan.Clone(), nil
}

// SeizePawn resolves an overdue loan in the lender's favour. Seizure requires
// the clock to be strictly past the due time; at exactly start + duration the
// borrower can still repay. No funds move, the lender recovers value through
// the collateral alone.
func (e *Engine) SeizePawn(id [32]byte, caller [20]byte) (loan *Loan, err error) {
	defer func() { e.record("seize", err) }()
	loan, err = e.loadLoan(id)
	if err != nil {
		return nil, err
	}
	if loan.Status != LoanActive {
		return nil, fmt.Errorf("%w: cannot seize in status %s", ErrInvalidLoanStatus, loan.Status)
	}
	if caller != loan.Lender {
		return nil, errUnauthorizedCaller
	}
	now := e.now()
	if now <= loan.DueTime() {
		return nil, ErrCannotSeizeBeforeExpiry
	}
	if err = e.custody.Release(loan, loan.Lender); err != nil {
		return nil, err
	}
	loan.Status = LoanDefaulted
	loan.EndTime = now
	if err = e.state.PawnLoanPut(loan); err != nil {
		return nil, err
	}
	e.emit(NewSeizedEvent(loan))
	return loan.Clone(), nil
}

// CancelLoan withdraws an open ask before underwriting. The collateral goes
// back to the borrower and the record is deallocated entirely, reclaiming its
// storage cost.
func (e *Engine) CancelLoan(id [32]byte, caller [20]byte) (err error) {
	defer func() { e.record("cancel", err) }()
	loan, err := e.loadLoan(id)
	if err != nil {
		return err
	}
	if loan.Status != LoanOpen {
		return fmt.Errorf("%w: cannot cancel in status %s", ErrInvalidLoanStatus, loan.Status)
	}
	if caller != loan.Borrower {
		return errUnauthorizedCaller
	}
	if err = e.custody.Release(loan, loan.Borrower); err != nil {
		return err
	}
	loan.Status = LoanCancelled
	loan.EndTime = e.now()
	e.emit(NewCancelledEvent(loan))
	return e.state.PawnLoanDelete(id)
}

// ensureBalance verifies the account can cover every repayment leg before any
// of them executes, keeping failed transitions side-effect free.
func (e *Engine) ensureBalance(addr [20]byte, asset AssetID, amounts ...uint64) error {
	acc, err := e.state.GetAccount(addr)
	if err != nil {
		return err
	}
	acc = acc.EnsureDefaults()
	required := new(big.Int)
	for _, amount := range amounts {
		required.Add(required, new(big.Int).SetUint64(amount))
	}
	normalized, err := NormalizeAsset(asset)
	if err != nil {
		return err
	}
	balance := acc.BalanceNative
	if normalized != AssetNative {
		balance = acc.TokenBalance(string(normalized))
	}
	if balance.Cmp(required) < 0 {
		return errInsufficientBalance
	}
	return nil
}
