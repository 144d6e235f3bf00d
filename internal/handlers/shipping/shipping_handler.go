// internal/handlers/shipping/shipping_handler.go
package shipping

import (
	"net/http"

	"shopcore-service/internal/domain/shipping"
	"shopcore-service/internal/pkg/response"
	service "shopcore-service/internal/service/shipping"

	"github.com/gin-gonic/gin"
)

type ShippingHandler struct {
	aggregator *service.AggregatorService
}

func NewShippingHandler(aggregator *service.AggregatorService) *ShippingHandler {
	return &ShippingHandler{
		aggregator: aggregator,
	}
}

// Quote returns carrier rates and the effective shipping charge for a cart.
// Transport failures come back as a flat-rate quote with rates_unavailable
// set, never as "not deliverable".
func (h *ShippingHandler) Quote(c *gin.Context) {
	var req shipping.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.aggregator.Quote(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to quote shipping", err)
		return
	}

	response.Success(c, http.StatusOK, "shipping quoted", result)
}
