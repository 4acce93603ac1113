package pawn

// SecondsPerYear is the accrual denominator used when converting an annual
// rate expressed in basis points into interest over elapsed seconds.
const SecondsPerYear = 31_536_000

// basisPoints is the divisor for values expressed in basis points.
const basisPoints = 10_000

// DefaultAdminFeeBps is the protocol fee charged on accrued interest, in
// basis points. Earlier protocol revisions charged 100 bps.
const DefaultAdminFeeBps = 200

// MinDurationRatioBps floors the chargeable elapsed time at a fraction of the
// agreed duration. A loan repaid immediately still pays a quarter-term of
// interest, compensating the lender for capital lock-up.
const MinDurationRatioBps = 2_500
