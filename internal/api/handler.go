package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"commodityapi/internal/coordinator"
	"commodityapi/internal/fetcher"
)

// Handler serves the price endpoints from a coordinator.
type Handler struct {
	coord *coordinator.Coordinator
	now   func() time.Time
}

// NewHandler creates a Handler reading quotes through coord.
func NewHandler(coord *coordinator.Coordinator) *Handler {
	return &Handler{
		coord: coord,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Root describes the API.
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Commodity Pricing API",
		"version": Version,
		"endpoints": gin.H{
			"/":          "API information",
			"/price":     "Get ULSD 10ppm Cargoes CIF NWE (Platts) futures price",
			"/goldprice": "Get gold price (XAUTUSDT perpetual on Bybit)",
			"/prices":    "Get every price at once",
			"/health":    "Health check with cache status",
		},
	})
}

// Price returns a handler serving the named source's quote.
func (h *Handler) Price(source string) gin.HandlerFunc {
	return func(c *gin.Context) {
		quote, err := h.coord.Get(c.Request.Context(), source)
		if err != nil {
			status, detail := h.errorDetail(source, err)
			c.JSON(status, gin.H{"detail": detail})
			return
		}
		c.JSON(http.StatusOK, quote)
	}
}

// Prices reads every source and reports quotes and failures side by side.
func (h *Handler) Prices(c *gin.Context) {
	results, err := h.coord.Run(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}

	prices := make(map[string]coordinator.Quote, len(results))
	failures := make(map[string]string)
	for _, res := range results {
		if res.Error != nil {
			_, failures[res.Name] = h.errorDetail(res.Name, res.Error)
			continue
		}
		prices[res.Name] = res.Quote
	}

	c.JSON(http.StatusOK, gin.H{
		"prices": prices,
		"errors": failures,
	})
}

// Health reports cache validity per source. It never triggers a fetch.
func (h *Handler) Health(c *gin.Context) {
	body := gin.H{
		"status":    "healthy",
		"timestamp": h.now(),
	}
	for _, s := range h.coord.Status() {
		status := "expired"
		if s.Valid {
			status = "valid"
		}
		body[s.Name+"_cache_status"] = status
	}
	c.JSON(http.StatusOK, body)
}

// errorDetail maps a fetch error to a status code and client-facing detail.
func (h *Handler) errorDetail(source string, err error) (int, string) {
	what := source
	if src, ok := h.coord.Source(source); ok && src.Label != "" {
		what = src.Label
	}

	switch {
	case errors.Is(err, coordinator.ErrUnknownSource):
		return http.StatusNotFound, err.Error()
	case fetcher.IsUnavailable(err), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, fmt.Sprintf("Failed to fetch %s: %v", what, err)
	default:
		return http.StatusInternalServerError, fmt.Sprintf("Error processing %s data: %v", what, err)
	}
}
