package horizon

import "time"

// Payment is a payment operation record from the Horizon API.
// AssetCode and AssetIssuer are empty for native XLM payments.
type Payment struct {
	ID                    string    `json:"id"`
	Type                  string    `json:"type"`
	From                  string    `json:"from"`
	To                    string    `json:"to"`
	Amount                string    `json:"amount"`
	AssetType             string    `json:"asset_type"`
	AssetCode             string    `json:"asset_code,omitempty"`
	AssetIssuer           string    `json:"asset_issuer,omitempty"`
	TransactionSuccessful bool      `json:"transaction_successful"`
	CreatedAt             time.Time `json:"created_at"`
}

// Trade is a trade record from the Horizon API.
type Trade struct {
	ID               string    `json:"id"`
	BaseAssetType    string    `json:"base_asset_type"`
	BaseAssetCode    string    `json:"base_asset_code,omitempty"`
	BaseAmount       string    `json:"base_amount"`
	CounterAssetType string    `json:"counter_asset_type"`
	CounterAssetCode string    `json:"counter_asset_code,omitempty"`
	CounterAmount    string    `json:"counter_amount"`
	LedgerCloseTime  time.Time `json:"ledger_close_time"`
}

// page is the HAL envelope Horizon wraps collection responses in. The
// client decodes it with T = json.RawMessage so a malformed record drops
// alone instead of discarding the whole page.
type page[T any] struct {
	Embedded struct {
		Records []T `json:"records"`
	} `json:"_embedded"`
}
