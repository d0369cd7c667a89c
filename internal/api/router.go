// Package api exposes the price cache over HTTP.
package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"commodityapi/internal/coordinator"
)

// Version is reported by the root endpoint.
const Version = "2.0.0"

// Source names registered with the coordinator.
const (
	SourceULSD = "ulsd"
	SourceGold = "gold"
)

// NewRouter wires every route onto a fresh gin engine.
func NewRouter(coord *coordinator.Coordinator, log *zap.Logger, allowOrigins []string) *gin.Engine {
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(Logger(log))
	r.Use(cors.New(corsConfig(allowOrigins)))

	h := NewHandler(coord)

	r.GET("/", h.Root)
	r.GET("/price", h.Price(SourceULSD))
	r.GET("/goldprice", h.Price(SourceGold))
	r.GET("/prices", h.Prices)
	r.GET("/health", h.Health)

	return r
}

func corsConfig(allowOrigins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"},
		AllowHeaders:  []string{"*"},
		ExposeHeaders: []string{RequestIDHeader},
	}

	for _, o := range allowOrigins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(allowOrigins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = allowOrigins
	cfg.AllowCredentials = true
	return cfg
}
