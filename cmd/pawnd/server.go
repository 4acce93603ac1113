package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"pawnhub/core/events"
	"pawnhub/core/types"
	"pawnhub/crypto"
	"pawnhub/native/pawn"
)

// The HTTP surface sits behind the host's authentication layer: callers
// arrive with already-verified identities, so request bodies carry bech32
// addresses rather than signatures.
type server struct {
	log      *slog.Logger
	engine   *pawn.Engine
	treasury *pawn.Treasury
	rps      float64
}

// logEmitter forwards engine events to the structured log for indexing.
type logEmitter struct {
	log *slog.Logger
}

func (l *logEmitter) Emit(evt events.Event) {
	if l == nil || l.log == nil || evt == nil {
		return
	}
	args := []any{"type", evt.EventType()}
	if carrier, ok := evt.(interface{ Event() *types.Event }); ok {
		if payload := carrier.Event(); payload != nil {
			for key, value := range payload.Attributes {
				args = append(args, key, value)
			}
		}
	}
	l.log.Info("loan event", args...)
}

func newReserve(amount uint64) *big.Int {
	return new(big.Int).SetUint64(amount)
}

func (s *server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if s.rps > 0 {
		limiter := rate.NewLimiter(rate.Limit(s.rps), int(s.rps)+1)
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				if !limiter.Allow() {
					http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
					return
				}
				next.ServeHTTP(w, req)
			})
		})
	}
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/v1", func(r chi.Router) {
		r.Post("/loans", s.handleRequestLoan)
		r.Get("/loans/{id}", s.handleGetLoan)
		r.Post("/loans/{id}/underwrite", s.handleUnderwrite)
		r.Post("/loans/{id}/repay", s.handleRepay)
		r.Post("/loans/{id}/seize", s.handleSeize)
		r.Post("/loans/{id}/cancel", s.handleCancel)
		r.Post("/treasury/withdraw", s.handleTreasuryWithdraw)
	})
	return r
}

type termsPayload struct {
	PrincipalAmount uint64 `json:"principalAmount"`
	PaymentAsset    string `json:"paymentAsset"`
	AnnualRateBps   uint64 `json:"annualRateBps"`
	DurationSeconds int64  `json:"durationSeconds"`
}

func (p termsPayload) terms() pawn.LoanTerms {
	return pawn.LoanTerms{
		PrincipalAmount: p.PrincipalAmount,
		PaymentAsset:    pawn.AssetID(p.PaymentAsset),
		AnnualRateBps:   p.AnnualRateBps,
		DurationSeconds: p.DurationSeconds,
	}
}

type collateralPayload struct {
	Kind   string `json:"kind"`
	Asset  string `json:"asset"`
	Amount uint64 `json:"amount"`
}

func (p collateralPayload) collateral() (pawn.Collateral, error) {
	var kind pawn.CollateralKind
	switch strings.ToLower(strings.TrimSpace(p.Kind)) {
	case "fungible":
		kind = pawn.CollateralFungible
	case "unique":
		kind = pawn.CollateralUnique
	default:
		return pawn.Collateral{}, fmt.Errorf("unknown collateral kind %q", p.Kind)
	}
	return pawn.Collateral{Kind: kind, Asset: pawn.AssetID(p.Asset), Amount: p.Amount}, nil
}

type loanView struct {
	ID           string         `json:"id"`
	Base         string         `json:"base"`
	Bump         uint8          `json:"bump"`
	Borrower     string         `json:"borrower"`
	Lender       string         `json:"lender,omitempty"`
	Collateral   pawn.Collateral `json:"collateral"`
	DesiredTerms *pawn.LoanTerms `json:"desiredTerms,omitempty"`
	Terms        *pawn.LoanTerms `json:"terms,omitempty"`
	Status       string         `json:"status"`
	CreationTime int64          `json:"creationTime"`
	StartTime    int64          `json:"startTime,omitempty"`
	EndTime      int64          `json:"endTime,omitempty"`
}

func newLoanView(l *pawn.Loan) loanView {
	view := loanView{
		ID:           hex.EncodeToString(l.ID[:]),
		Base:         hex.EncodeToString(l.Base[:]),
		Bump:         l.Bump,
		Borrower:     crypto.NewAddress(crypto.PawnPrefix, l.Borrower[:]).String(),
		Collateral:   l.Collateral,
		DesiredTerms: l.DesiredTerms,
		Terms:        l.Terms,
		Status:       l.Status.String(),
		CreationTime: l.CreationTime,
		StartTime:    l.StartTime,
		EndTime:      l.EndTime,
	}
	if l.Lender != ([20]byte{}) {
		view.Lender = crypto.NewAddress(crypto.PawnPrefix, l.Lender[:]).String()
	}
	return view
}

func decodeAddr(value string) ([20]byte, error) {
	var out [20]byte
	addr, err := crypto.DecodeAddress(strings.TrimSpace(value))
	if err != nil {
		return out, err
	}
	copy(out[:], addr.Bytes())
	return out, nil
}

func decodeBase(value string) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(strings.TrimSpace(value))
	if err != nil {
		return out, fmt.Errorf("invalid base discriminator: %w", err)
	}
	if len(raw) != 32 {
		return out, fmt.Errorf("base discriminator must be 32 bytes, got %d", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

func (s *server) loanID(r *http.Request) ([32]byte, error) {
	return decodeBase(chi.URLParam(r, "id"))
}

func (s *server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Error("failed to encode response", "err", err)
	}
}

func (s *server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, pawn.ErrInvalidLoanStatus),
		errors.Is(err, pawn.ErrCannotSeizeBeforeExpiry):
		status = http.StatusConflict
	case errors.Is(err, pawn.ErrInvalidLoanTerms),
		errors.Is(err, pawn.ErrUnexpectedDesiredTerms),
		errors.Is(err, pawn.ErrUnexpectedCollateralAsset),
		errors.Is(err, pawn.ErrCalculation):
		status = http.StatusBadRequest
	case strings.Contains(err.Error(), "not found"):
		status = http.StatusNotFound
	case strings.Contains(err.Error(), "unauthorized"):
		status = http.StatusForbidden
	case strings.Contains(err.Error(), "insufficient"):
		status = http.StatusUnprocessableEntity
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *server) decodeBody(w http.ResponseWriter, r *http.Request, into any) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

func (s *server) handleRequestLoan(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Base         string            `json:"base"`
		Borrower     string            `json:"borrower"`
		Collateral   collateralPayload `json:"collateral"`
		DesiredTerms termsPayload      `json:"desiredTerms"`
	}
	if !s.decodeBody(w, r, &body) {
		return
	}
	base, err := decodeBase(body.Base)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	borrower, err := decodeAddr(body.Borrower)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	collateral, err := body.Collateral.collateral()
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	loan, err := s.engine.RequestLoan(base, borrower, collateral, body.DesiredTerms.terms())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, newLoanView(loan))
}

func (s *server) handleGetLoan(w http.ResponseWriter, r *http.Request) {
	id, err := s.loanID(r)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	loan, err := s.engine.GetLoan(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newLoanView(loan))
}

func (s *server) handleUnderwrite(w http.ResponseWriter, r *http.Request) {
	id, err := s.loanID(r)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	var body struct {
		Lender                   string       `json:"lender"`
		ExpectedTerms            termsPayload `json:"expectedTerms"`
		ExpectedCollateralAsset  string       `json:"expectedCollateralAsset"`
		ExpectedCollateralAmount uint64       `json:"expectedCollateralAmount"`
	}
	if !s.decodeBody(w, r, &body) {
		return
	}
	lender, err := decodeAddr(body.Lender)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	loan, err := s.engine.UnderwriteLoan(id, lender, body.ExpectedTerms.terms(), pawn.AssetID(body.ExpectedCollateralAsset), body.ExpectedCollateralAmount)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newLoanView(loan))
}

func (s *server) handleRepay(w http.ResponseWriter, r *http.Request) {
	s.handleResolution(w, r, func(id [32]byte, caller [20]byte) (*pawn.Loan, error) {
		return s.engine.RepayLoan(id, caller)
	})
}

func (s *server) handleSeize(w http.ResponseWriter, r *http.Request) {
	s.handleResolution(w, r, func(id [32]byte, caller [20]byte) (*pawn.Loan, error) {
		return s.engine.SeizePawn(id, caller)
	})
}

func (s *server) handleResolution(w http.ResponseWriter, r *http.Request, resolve func([32]byte, [20]byte) (*pawn.Loan, error)) {
	id, err := s.loanID(r)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	var body struct {
		Caller string `json:"caller"`
	}
	if !s.decodeBody(w, r, &body) {
		return
	}
	caller, err := decodeAddr(body.Caller)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	loan, err := resolve(id, caller)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newLoanView(loan))
}

func (s *server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := s.loanID(r)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	var body struct {
		Caller string `json:"caller"`
	}
	if !s.decodeBody(w, r, &body) {
		return
	}
	caller, err := decodeAddr(body.Caller)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := s.engine.CancelLoan(id, caller); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (s *server) handleTreasuryWithdraw(w http.ResponseWriter, r *http.Request) {
	if s.treasury == nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "fee collector not configured"})
		return
	}
	var body struct {
		Caller      string `json:"caller"`
		Asset       string `json:"asset"`
		Destination string `json:"destination"`
	}
	if !s.decodeBody(w, r, &body) {
		return
	}
	caller, err := decodeAddr(body.Caller)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	destination, err := decodeAddr(body.Destination)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	swept, err := s.treasury.Withdraw(caller, pawn.AssetID(body.Asset), destination)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"swept": swept.String()})
}
