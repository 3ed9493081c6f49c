package anchors

// Anchor status buckets derived from the reliability score.
const (
	StatusGreen  = "green"
	StatusYellow = "yellow"
	StatusRed    = "red"
)

// AnchorMetrics is the per-anchor entry in the anchors listing.
type AnchorMetrics struct {
	ID                     string  `json:"id"`
	Name                   string  `json:"name"`
	StellarAccount         string  `json:"stellar_account"`
	ReliabilityScore       float64 `json:"reliability_score"`
	AssetCoverage          int     `json:"asset_coverage"`
	FailureRate            float64 `json:"failure_rate"`
	TotalTransactions      int64   `json:"total_transactions"`
	SuccessfulTransactions int64   `json:"successful_transactions"`
	FailedTransactions     int64   `json:"failed_transactions"`
	Status                 string  `json:"status"`
}

// ListResponse is the anchors endpoint payload.
type ListResponse struct {
	Anchors []AnchorMetrics `json:"anchors"`
	Total   int             `json:"total"`
}

// statusFor buckets a reliability score: 99 and above is green, 95 and
// above is yellow, everything else is red.
func statusFor(score float64) string {
	switch {
	case score >= 99.0:
		return StatusGreen
	case score >= 95.0:
		return StatusYellow
	default:
		return StatusRed
	}
}
