package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/amirphl/options-desk/internal/order"
	"github.com/amirphl/options-desk/internal/state"
	"github.com/amirphl/options-desk/internal/trading"
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": s.svc.Mode()})
}

// placeOptionsOrder is the placement endpoint. Status mapping: 400 for
// anything rejected before the remote call, the propagated broker status for
// rejections (502 when there is none, e.g. transport failures), 200 on
// success.
func (s *Server) placeOptionsOrder(c *gin.Context) {
	var req order.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid order payload: " + err.Error()})
		return
	}

	placed, failure := s.svc.PlaceOrder(c.Request.Context(), req)
	if failure != nil {
		c.JSON(failureStatus(failure), failure)
		return
	}
	c.JSON(http.StatusOK, placed)
}

func failureStatus(f *trading.Failure) int {
	if f.Kind == trading.FailureValidation {
		return http.StatusBadRequest
	}
	if f.BrokerStatus >= 400 && f.BrokerStatus < 600 {
		return f.BrokerStatus
	}
	return http.StatusBadGateway
}

func (s *Server) quotes(c *gin.Context) {
	raw := c.Query("symbols")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbols query parameter is required"})
		return
	}
	symbols := strings.Split(raw, ",")
	quotes, err := s.svc.Broker().GetQuotes(c.Request.Context(), symbols)
	if err != nil {
		passthroughError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quotes": quotes})
}

func (s *Server) optionChain(c *gin.Context) {
	symbol := c.Query("symbol")
	expiration := c.Query("expiration")
	if symbol == "" || expiration == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol and expiration query parameters are required"})
		return
	}
	chain, err := s.svc.Broker().GetOptionChain(c.Request.Context(), symbol, expiration)
	if err != nil {
		passthroughError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"options": chain})
}

func (s *Server) expirations(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol query parameter is required"})
		return
	}
	dates, err := s.svc.Broker().GetExpirations(c.Request.Context(), symbol)
	if err != nil {
		passthroughError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"expirations": dates})
}

func (s *Server) orderStatus(c *gin.Context) {
	record, err := s.svc.Broker().GetOrderStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		passthroughError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": record})
}

func (s *Server) cancelOrder(c *gin.Context) {
	if err := s.svc.Broker().CancelOrder(c.Request.Context(), c.Param("id")); err != nil {
		passthroughError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) positions(c *gin.Context) {
	positions, err := s.svc.Broker().GetPositions(c.Request.Context())
	if err != nil {
		passthroughError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"positions": positions})
}

func (s *Server) balances(c *gin.Context) {
	balances, err := s.svc.Broker().GetBalances(c.Request.Context())
	if err != nil {
		passthroughError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"balances": balances})
}

func (s *Server) tradingMode(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"mode": s.svc.Mode()})
}

func (s *Server) switchTradingMode(c *gin.Context) {
	var body struct {
		Mode string `json:"mode"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload: " + err.Error()})
		return
	}
	mode, err := state.ParseMode(body.Mode)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.svc.SwitchMode(mode); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"mode": mode})
}
