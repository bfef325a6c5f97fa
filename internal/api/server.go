// Package api is the thin HTTP layer: routing, request decoding, and the
// HTTP status mapping for outcomes produced by the trading service.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/amirphl/options-desk/internal/trading"
	"github.com/amirphl/options-desk/internal/utils"
)

type Server struct {
	svc    *trading.Service
	engine *gin.Engine
}

func NewServer(svc *trading.Service) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())

	s := &Server{svc: svc, engine: engine}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.health)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.engine.Group("/api")
	{
		api.POST("/options/orders", s.placeOptionsOrder)
		api.GET("/options/chains", s.optionChain)
		api.GET("/options/expirations", s.expirations)
		api.GET("/quotes", s.quotes)
		api.GET("/orders/:id", s.orderStatus)
		api.DELETE("/orders/:id", s.cancelOrder)
		api.GET("/account/positions", s.positions)
		api.GET("/account/balances", s.balances)
		api.GET("/trading-mode", s.tradingMode)
		api.PUT("/trading-mode", s.switchTradingMode)
	}
}

// Handler exposes the router for the http.Server and for tests.
func (s *Server) Handler() *gin.Engine {
	return s.engine
}

// requestLogger tags each request with a correlation id and logs it on
// completion.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.NewString()
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		c.Next()

		utils.GetLogger().WithFields(map[string]any{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
		}).Debug("request handled")
	}
}
