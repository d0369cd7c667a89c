package bybit

import "encoding/json"

// Response represents a generic response from Bybit's V5 REST API.
// This structure covers the standard response envelope used across all endpoints.
type Response struct {
	RetCode    int             `json:"retCode"`    // 0 means success; non-zero indicates an error code
	RetMsg     string          `json:"retMsg"`     // Human-readable message describing the result or error
	Result     json.RawMessage `json:"result"`     // Delay decoding; payload varies per endpoint
	RetExtInfo map[string]any  `json:"retExtInfo"` // Optional extra info
	Time       int64           `json:"time"`       // Server timestamp (in milliseconds since epoch)
}

// TickerListResponse is the result payload of /v5/market/tickers.
type TickerListResponse struct {
	Category string   `json:"category"` // e.g., "linear", "spot"
	List     []Ticker `json:"list"`
}

// Ticker is a single instrument's 24h ticker. Bybit encodes numbers as strings.
type Ticker struct {
	Symbol       string `json:"symbol"`
	LastPrice    string `json:"lastPrice"`
	Price24hPcnt string `json:"price24hPcnt"` // fraction, e.g. "0.0123" for +1.23%
	Bid1Price    string `json:"bid1Price"`
	Ask1Price    string `json:"ask1Price"`
	Volume24h    string `json:"volume24h"`
	Turnover24h  string `json:"turnover24h"`
}
