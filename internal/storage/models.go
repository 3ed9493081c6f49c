package storage

// Anchor is a registered anchor row. The transaction counters are the
// last persisted totals and serve as the fallback when the live payment
// feed for the anchor's account is unavailable.
type Anchor struct {
	ID                     string
	Name                   string
	StellarAccount         string
	ReliabilityScore       float64
	TotalTransactions      int64
	SuccessfulTransactions int64
	FailedTransactions     int64
}

// Asset is an asset issued by an anchor.
type Asset struct {
	ID       string
	Code     string
	Issuer   string
	AnchorID string
}
