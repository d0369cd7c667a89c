package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"commodityapi/internal/coordinator"
	"commodityapi/internal/fetcher"
	"commodityapi/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(ulsd, gold *testutil.MockFetcher) *gin.Engine {
	coord := coordinator.New(nil, nil,
		coordinator.NewSource(SourceULSD, "price", ulsd, time.Hour),
		coordinator.NewSource(SourceGold, "gold price", gold, time.Hour),
	)
	return NewRouter(coord, nil, []string{"*"})
}

func okMocks() (*testutil.MockFetcher, *testutil.MockFetcher) {
	ulsd := testutil.NewMockFetcher("test:ulsd", testutil.NewSnapshot("ATY1!", 721.964), nil)

	goldSnap := testutil.NewSnapshot("XAUTUSDT", 2650.4)
	goldSnap.BidPrice = fetcher.Float(2650.3)
	gold := testutil.NewMockFetcher("test:gold", goldSnap, nil)
	return ulsd, gold
}

func get(t *testing.T, r http.Handler, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("GET %s: body is not a JSON object: %v (%s)", path, err, w.Body.String())
	}
	return w, body
}

func TestRoot(t *testing.T) {
	r := newTestRouter(okMocks())

	w, body := get(t, r, "/")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if body["version"] != "2.0.0" {
		t.Errorf("version = %v, want 2.0.0", body["version"])
	}
	endpoints, ok := body["endpoints"].(map[string]any)
	if !ok {
		t.Fatalf("endpoints = %T, want object", body["endpoints"])
	}
	for _, path := range []string{"/", "/price", "/goldprice", "/prices", "/health"} {
		if _, ok := endpoints[path]; !ok {
			t.Errorf("endpoints missing %s", path)
		}
	}
}

func TestPrice_MissThenHit(t *testing.T) {
	ulsd, gold := okMocks()
	r := newTestRouter(ulsd, gold)

	w, body := get(t, r, "/price")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d (%s)", w.Code, w.Body.String())
	}
	if body["price"] != 721.964 || body["symbol"] != "ATY1!" {
		t.Errorf("body = %v, want ATY1! at 721.964", body)
	}
	if body["cached"] != false {
		t.Errorf("cached = %v, want false", body["cached"])
	}
	if _, err := time.Parse(time.RFC3339, body["cache_expires_at"].(string)); err != nil {
		t.Errorf("cache_expires_at = %v, not RFC 3339: %v", body["cache_expires_at"], err)
	}
	if _, ok := body["bid_price"]; ok {
		t.Error("bid_price present for ULSD, want omitted")
	}

	_, body = get(t, r, "/price")
	if body["cached"] != true {
		t.Errorf("second cached = %v, want true", body["cached"])
	}
	if ulsd.Calls() != 1 {
		t.Errorf("ULSD fetch calls = %d, want 1", ulsd.Calls())
	}
	if gold.Calls() != 0 {
		t.Errorf("gold fetch calls = %d, want 0", gold.Calls())
	}
}

func TestPrice_NullChangePercent(t *testing.T) {
	snap := testutil.NewSnapshot("ATY1!", 718.25)
	snap.ChangePercent = nil
	_, gold := okMocks()
	r := newTestRouter(testutil.NewMockFetcher("test:ulsd", snap, nil), gold)

	_, body := get(t, r, "/price")
	v, ok := body["change_percent"]
	if !ok || v != nil {
		t.Errorf("change_percent = %v (present %v), want null", v, ok)
	}
}

func TestGoldPrice(t *testing.T) {
	r := newTestRouter(okMocks())

	w, body := get(t, r, "/goldprice")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if body["symbol"] != "XAUTUSDT" || body["bid_price"] != 2650.3 {
		t.Errorf("body = %v, want XAUTUSDT with bid 2650.3", body)
	}
}

func TestPrice_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		err        error
		wantStatus int
		wantDetail string
	}{
		{
			name:       "gold upstream 5xx",
			path:       "/goldprice",
			err:        fetcher.NewServerError(502),
			wantStatus: http.StatusServiceUnavailable,
			wantDetail: "Failed to fetch gold price: server error (status 502): server returned an error",
		},
		{
			name:       "ulsd forbidden",
			path:       "/price",
			err:        fetcher.ClassifyHTTPError(403),
			wantStatus: http.StatusServiceUnavailable,
			wantDetail: "Failed to fetch price: client error (status 403): client error: HTTP 403",
		},
		{
			name:       "ulsd unparsable page",
			path:       "/price",
			err:        fetcher.NewValidationError("could not extract price from TradingView page"),
			wantStatus: http.StatusInternalServerError,
			wantDetail: "Error processing price data: validation error: could not extract price from TradingView page",
		},
		{
			name:       "gold api error code",
			path:       "/goldprice",
			err:        fetcher.NewValidationError("no data returned from Bybit API"),
			wantStatus: http.StatusInternalServerError,
			wantDetail: "Error processing gold price data: validation error: no data returned from Bybit API",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			failing := testutil.NewMockFetcher("test:failing", fetcher.Snapshot{}, tt.err)
			ulsd, gold := okMocks()
			if tt.path == "/price" {
				ulsd = failing
			} else {
				gold = failing
			}
			r := newTestRouter(ulsd, gold)

			w, body := get(t, r, tt.path)
			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, w.Code)
			}
			if body["detail"] != tt.wantDetail {
				t.Errorf("detail = %q, want %q", body["detail"], tt.wantDetail)
			}
		})
	}
}

func TestHealth_DoesNotFetch(t *testing.T) {
	ulsd, gold := okMocks()
	r := newTestRouter(ulsd, gold)

	w, body := get(t, r, "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if body["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", body["status"])
	}
	if body["ulsd_cache_status"] != "expired" || body["gold_cache_status"] != "expired" {
		t.Errorf("cache status = %v/%v, want expired/expired", body["ulsd_cache_status"], body["gold_cache_status"])
	}
	if _, err := time.Parse(time.RFC3339, body["timestamp"].(string)); err != nil {
		t.Errorf("timestamp = %v, not RFC 3339: %v", body["timestamp"], err)
	}

	get(t, r, "/goldprice")

	_, body = get(t, r, "/health")
	if body["ulsd_cache_status"] != "expired" || body["gold_cache_status"] != "valid" {
		t.Errorf("cache status = %v/%v, want expired/valid", body["ulsd_cache_status"], body["gold_cache_status"])
	}
	if ulsd.Calls() != 0 || gold.Calls() != 1 {
		t.Errorf("fetch calls = %d/%d, want 0/1", ulsd.Calls(), gold.Calls())
	}
}

func TestPrices_PartialFailure(t *testing.T) {
	ulsd, _ := okMocks()
	gold := testutil.NewMockFetcher("test:gold", fetcher.Snapshot{}, fetcher.NewNetworkError(nil))
	r := newTestRouter(ulsd, gold)

	w, body := get(t, r, "/prices")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	prices := body["prices"].(map[string]any)
	failures := body["errors"].(map[string]any)

	if _, ok := prices["ulsd"]; !ok {
		t.Errorf("prices = %v, want ulsd", prices)
	}
	if _, ok := prices["gold"]; ok {
		t.Errorf("prices contains gold despite failure")
	}
	if failures["gold"] != "Failed to fetch gold price: network error: network request failed" {
		t.Errorf("errors[gold] = %v", failures["gold"])
	}
}

func TestRequestID(t *testing.T) {
	r := newTestRouter(okMocks())

	w, _ := get(t, r, "/health")
	if w.Header().Get(RequestIDHeader) == "" {
		t.Error("X-Request-ID missing from response")
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("X-Request-ID = %q, want abc-123", got)
	}
}

func TestCORS_AllowsAnyOrigin(t *testing.T) {
	r := newTestRouter(okMocks())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://dashboard.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestCorsConfig(t *testing.T) {
	tests := []struct {
		name      string
		origins   []string
		wantAll   bool
		wantCreds bool
	}{
		{"wildcard", []string{"*"}, true, false},
		{"empty", nil, true, false},
		{"explicit", []string{"https://a.example"}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := corsConfig(tt.origins)
			if cfg.AllowAllOrigins != tt.wantAll {
				t.Errorf("AllowAllOrigins = %v, want %v", cfg.AllowAllOrigins, tt.wantAll)
			}
			if cfg.AllowCredentials != tt.wantCreds {
				t.Errorf("AllowCredentials = %v, want %v", cfg.AllowCredentials, tt.wantCreds)
			}
		})
	}
}
