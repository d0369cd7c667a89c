package tradingview

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"commodityapi/internal/fetcher"
	"commodityapi/internal/ratelimit"

	"resty.dev/v3"
)

// DefaultSymbol is the ULSD 10ppm Cargoes CIF NWE (Platts) continuous futures contract.
const DefaultSymbol = "NYMEX-ATY1!"

var (
	// FAQ schema prose, e.g. "The current price of ... is 721.964 USD ... it has risen 0.30%"
	faqPricePattern = regexp.MustCompile(`(?is)The current price of.*?is\s+([\d.]+)\s+USD.*?it has\s+(risen|fallen)\s+([\d.]+)%`)
	// Embedded quote JSON, e.g. "last":721.964
	lastPricePattern = regexp.MustCompile(`"last"["\s:]+([0-9.]+)`)
)

// Instrument describes the contract a symbol page quotes.
type Instrument struct {
	Symbol   string
	Name     string
	Exchange string
	Currency string
}

// ULSD is the instrument served by the /price endpoint.
var ULSD = Instrument{
	Symbol:   "ATY1!",
	Name:     "ULSD 10ppm Cargoes CIF NWE (Platts) Futures",
	Exchange: "NYMEX",
	Currency: "USD",
}

// FuturesFetcher scrapes a futures quote from a TradingView symbol page
type FuturesFetcher struct {
	pageSymbol string
	instrument Instrument
	client     *resty.Client
	limiter    *ratelimit.Limiter
}

// NewFuturesFetcher creates a fetcher for the TradingView page of pageSymbol
// (exchange-prefixed, e.g. "NYMEX-ATY1!").
func NewFuturesFetcher(pageSymbol string, instrument Instrument, baseURL string, timeout time.Duration, limiter *ratelimit.Limiter) *FuturesFetcher {
	client := fetcher.NewHTTPClient(baseURL, timeout).
		SetHeader("Accept", "text/html").
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))

	return &FuturesFetcher{
		pageSymbol: pageSymbol,
		instrument: instrument,
		client:     client,
		limiter:    limiter,
	}
}

// Fetch retrieves the symbol page and extracts the current price
func (f *FuturesFetcher) Fetch(ctx context.Context) (fetcher.Snapshot, error) {
	if err := f.limiter.Wait(ctx, ratelimit.APITradingView); err != nil {
		return fetcher.Snapshot{}, fetcher.NewTimeoutError(err)
	}

	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParam("timeframe", "12M").
		Get("/symbols/" + f.pageSymbol + "/")

	if err != nil {
		return fetcher.Snapshot{}, fetcher.ClassifyTransportError(err)
	}

	if !resp.IsSuccess() {
		return fetcher.Snapshot{}, fetcher.ClassifyHTTPError(resp.StatusCode())
	}

	price, change, err := ParsePage(resp.String())
	if err != nil {
		return fetcher.Snapshot{}, err
	}

	return fetcher.Snapshot{
		Symbol:        f.instrument.Symbol,
		Name:          f.instrument.Name,
		Exchange:      f.instrument.Exchange,
		Price:         price,
		Currency:      f.instrument.Currency,
		ChangePercent: change,
		LastUpdated:   time.Now().UTC(),
		Source:        "TradingView",
	}, nil
}

// Key returns the key for this fetcher
func (f *FuturesFetcher) Key() string {
	return fmt.Sprintf("fetcher:tradingview:%s", f.pageSymbol)
}

// ParsePage extracts the price and signed percent change from a symbol page.
// When only the embedded "last" value is present, change is nil.
func ParsePage(html string) (price float64, change *float64, err error) {
	if m := faqPricePattern.FindStringSubmatch(html); m != nil {
		price, err = strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, nil, fetcher.NewValidationError(fmt.Sprintf("invalid price %q", m[1]))
		}
		pct, err := strconv.ParseFloat(m[3], 64)
		if err != nil {
			return 0, nil, fetcher.NewValidationError(fmt.Sprintf("invalid change percent %q", m[3]))
		}
		if strings.EqualFold(m[2], "fallen") {
			pct = -pct
		}
		return price, &pct, nil
	}

	if m := lastPricePattern.FindStringSubmatch(html); m != nil {
		price, err = strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, nil, fetcher.NewValidationError(fmt.Sprintf("invalid price %q", m[1]))
		}
		return price, nil, nil
	}

	return 0, nil, fetcher.NewValidationError("could not extract price from TradingView page")
}
