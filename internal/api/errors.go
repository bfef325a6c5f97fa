package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/amirphl/options-desk/internal/broker"
)

// passthroughError maps a broker/transport error on a pass-through read to an
// HTTP response: the broker's own status when it rejected the call, 502 when
// the broker was unreachable.
func passthroughError(c *gin.Context, err error) {
	var apiErr *broker.APIError
	if errors.As(err, &apiErr) {
		c.JSON(apiErr.StatusCode, gin.H{"error": apiErr.Message, "details": apiErr.Raw})
		return
	}
	c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
}
