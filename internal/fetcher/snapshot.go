package fetcher

import "time"

// Snapshot is one priced reading of a commodity, produced by a single Fetch.
// Optional fields are nil when the upstream does not provide them; the
// exchange-only fields are omitted from JSON entirely in that case.
type Snapshot struct {
	Symbol        string   `json:"symbol"`
	Name          string   `json:"name"`
	Exchange      string   `json:"exchange"`
	Price         float64  `json:"price"`
	Currency      string   `json:"currency"`
	ChangePercent *float64 `json:"change_percent"`

	BidPrice    *float64   `json:"bid_price,omitempty"`
	AskPrice    *float64   `json:"ask_price,omitempty"`
	Volume24h   *float64   `json:"volume_24h,omitempty"`
	Turnover24h *float64   `json:"turnover_24h_usdt,omitempty"`
	PriceDate   *time.Time `json:"price_date,omitempty"`

	// LastUpdated is when this service obtained the snapshot (UTC).
	LastUpdated time.Time `json:"last_updated"`
	Source      string    `json:"source"`
}

// Float returns a pointer to v, for populating optional snapshot fields.
func Float(v float64) *float64 {
	return &v
}
