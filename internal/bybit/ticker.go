package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"commodityapi/internal/fetcher"
	"commodityapi/internal/ratelimit"

	"github.com/shopspring/decimal"
	"resty.dev/v3"
)

const (
	// DefaultSymbol is the Tether Gold perpetual.
	DefaultSymbol = "XAUTUSDT"
	// DefaultCategory is the market category XAUTUSDT trades in.
	DefaultCategory = "linear"
	// GoldName is the display name of the XAUTUSDT perpetual.
	GoldName = "Gold (Tether Gold) Perpetual"
)

// TickerFetcher fetches a ticker snapshot from the Bybit V5 market API
type TickerFetcher struct {
	category string
	symbol   string
	name     string
	client   *resty.Client
	limiter  *ratelimit.Limiter
}

// NewTickerFetcher creates a new ticker fetcher for symbol in category.
// name is the display name reported in snapshots.
func NewTickerFetcher(category, symbol, name, baseURL string, timeout time.Duration, limiter *ratelimit.Limiter) *TickerFetcher {
	client := fetcher.NewHTTPClient(baseURL, timeout).
		SetHeader("Accept", "application/json")

	return &TickerFetcher{
		category: category,
		symbol:   symbol,
		name:     name,
		client:   client,
		limiter:  limiter,
	}
}

// Fetch retrieves the current ticker and normalizes it into a snapshot
func (f *TickerFetcher) Fetch(ctx context.Context) (fetcher.Snapshot, error) {
	if err := f.limiter.Wait(ctx, ratelimit.APIBybit); err != nil {
		return fetcher.Snapshot{}, fetcher.NewTimeoutError(err)
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"category": f.category,
			"symbol":   f.symbol,
		}).
		Get("/v5/market/tickers")

	if err != nil {
		return fetcher.Snapshot{}, fetcher.ClassifyTransportError(err)
	}

	if !resp.IsSuccess() {
		return fetcher.Snapshot{}, fetcher.ClassifyHTTPError(resp.StatusCode())
	}

	// A 2xx body that does not decode is malformed data, not a transport failure.
	var envelope Response
	if err := json.Unmarshal(resp.Bytes(), &envelope); err != nil {
		return fetcher.Snapshot{}, fetcher.NewValidationError(fmt.Sprintf("decode response: %v", err))
	}

	return f.parse(envelope, time.Now().UTC())
}

func (f *TickerFetcher) parse(envelope Response, fetchedAt time.Time) (fetcher.Snapshot, error) {
	if envelope.RetCode != 0 {
		return fetcher.Snapshot{}, fetcher.NewValidationError(
			fmt.Sprintf("bybit API error %d: %s", envelope.RetCode, envelope.RetMsg))
	}

	var result TickerListResponse
	if len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, &result); err != nil {
			return fetcher.Snapshot{}, fetcher.NewValidationError(fmt.Sprintf("decode result: %v", err))
		}
	}
	if len(result.List) == 0 {
		return fetcher.Snapshot{}, fetcher.NewValidationError("no data returned from Bybit API")
	}

	ticker := result.List[0]
	if ticker.LastPrice == "" {
		return fetcher.Snapshot{}, fetcher.NewValidationError(fmt.Sprintf("lastPrice missing for %s", f.symbol))
	}

	p := numberParser{}

	price := p.parse("lastPrice", ticker.LastPrice)
	changePct := p.parse("price24hPcnt", ticker.Price24hPcnt).Mul(decimal.NewFromInt(100)).Round(4)
	bid := p.parse("bid1Price", ticker.Bid1Price)
	ask := p.parse("ask1Price", ticker.Ask1Price)
	volume := p.parse("volume24h", ticker.Volume24h)
	turnover := p.parse("turnover24h", ticker.Turnover24h)
	if p.err != nil {
		return fetcher.Snapshot{}, p.err
	}

	priceDate := fetchedAt
	if envelope.Time > 0 {
		priceDate = time.UnixMilli(envelope.Time).UTC()
	}

	return fetcher.Snapshot{
		Symbol:        f.symbol,
		Name:          f.name,
		Exchange:      "Bybit",
		Price:         price.InexactFloat64(),
		Currency:      "USDT",
		ChangePercent: fetcher.Float(changePct.InexactFloat64()),
		BidPrice:      fetcher.Float(bid.InexactFloat64()),
		AskPrice:      fetcher.Float(ask.InexactFloat64()),
		Volume24h:     fetcher.Float(volume.InexactFloat64()),
		Turnover24h:   fetcher.Float(turnover.InexactFloat64()),
		PriceDate:     &priceDate,
		LastUpdated:   fetchedAt,
		Source:        "Bybit API",
	}, nil
}

// Key returns the key for this fetcher
func (f *TickerFetcher) Key() string {
	return fmt.Sprintf("fetcher:bybit:%s", f.symbol)
}

// numberParser parses Bybit's string-encoded numbers, keeping the first error.
// Empty strings parse as zero; Bybit leaves fields blank when there is no book.
type numberParser struct {
	err error
}

func (p *numberParser) parse(field, s string) decimal.Decimal {
	if p.err != nil || s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		p.err = fetcher.NewValidationError(fmt.Sprintf("invalid %s %q", field, s))
		return decimal.Zero
	}
	return d
}
