// internal/handlers/offer/offer_handler.go
package offer

import (
	"errors"
	"net/http"
	"strconv"

	"shopcore-service/internal/domain/offer"
	"shopcore-service/internal/middleware"
	xerrors "shopcore-service/internal/pkg/errors"
	"shopcore-service/internal/pkg/response"
	service "shopcore-service/internal/service/offer"

	"github.com/gin-gonic/gin"
)

type OfferHandler struct {
	offerService *service.OfferService
}

func NewOfferHandler(offerService *service.OfferService) *OfferHandler {
	return &OfferHandler{
		offerService: offerService,
	}
}

// ========== Admin Endpoints ==========

// CreateOffer creates a new offer
func (h *OfferHandler) CreateOffer(c *gin.Context) {
	var req offer.CreateOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.offerService.CreateOffer(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, xerrors.ErrDuplicateEntry):
			response.Error(c, http.StatusConflict, "offer code already exists", err)
		case errors.Is(err, xerrors.ErrInvalidInput):
			response.ValidationError(c, "invalid offer record", err)
		default:
			response.Error(c, http.StatusInternalServerError, "failed to create offer", err)
		}
		return
	}

	response.Success(c, http.StatusCreated, "offer created successfully", result)
}

// GetOffer retrieves an offer by ID
func (h *OfferHandler) GetOffer(c *gin.Context) {
	offerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid offer ID", err)
		return
	}

	result, err := h.offerService.GetOffer(c.Request.Context(), offerID)
	if err != nil {
		response.NotFound(c, "offer not found")
		return
	}

	response.Success(c, http.StatusOK, "offer retrieved", result)
}

// GetOfferByCode retrieves an offer by its code
func (h *OfferHandler) GetOfferByCode(c *gin.Context) {
	code := c.Param("code")
	if code == "" {
		response.Error(c, http.StatusBadRequest, "offer code is required", nil)
		return
	}

	result, err := h.offerService.GetOfferByCode(c.Request.Context(), code)
	if err != nil {
		response.NotFound(c, "offer not found")
		return
	}

	response.Success(c, http.StatusOK, "offer retrieved", result)
}

// ListOffers retrieves offers with filters
func (h *OfferHandler) ListOffers(c *gin.Context) {
	var filters offer.OfferListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid filters", err)
		return
	}

	result, err := h.offerService.ListOffers(c.Request.Context(), &filters)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to list offers", err)
		return
	}

	response.Success(c, http.StatusOK, "offers retrieved", result)
}

// UpdateOffer applies a partial update to an offer
func (h *OfferHandler) UpdateOffer(c *gin.Context) {
	offerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid offer ID", err)
		return
	}

	var req offer.UpdateOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	result, err := h.offerService.UpdateOffer(c.Request.Context(), offerID, &req)
	if err != nil {
		switch {
		case errors.Is(err, xerrors.ErrNotFound):
			response.NotFound(c, "offer not found")
		case errors.Is(err, xerrors.ErrInvalidInput):
			response.ValidationError(c, "invalid offer record", err)
		default:
			response.Error(c, http.StatusInternalServerError, "failed to update offer", err)
		}
		return
	}

	response.Success(c, http.StatusOK, "offer updated", result)
}

// DeactivateOffer soft-deletes an offer
func (h *OfferHandler) DeactivateOffer(c *gin.Context) {
	offerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid offer ID", err)
		return
	}

	if err := h.offerService.DeactivateOffer(c.Request.Context(), offerID); err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			response.NotFound(c, "offer not found")
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to deactivate offer", err)
		return
	}

	response.Success(c, http.StatusOK, "offer deactivated", nil)
}

// GetOfferStats reports usage of an offer
func (h *OfferHandler) GetOfferStats(c *gin.Context) {
	offerID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid offer ID", err)
		return
	}

	result, err := h.offerService.GetOfferStats(c.Request.Context(), offerID)
	if err != nil {
		response.NotFound(c, "offer not found")
		return
	}

	response.Success(c, http.StatusOK, "offer stats retrieved", result)
}

// ========== Checkout Endpoints ==========

// ValidateOffer evaluates a code against a cart without consuming a use
func (h *OfferHandler) ValidateOffer(c *gin.Context) {
	var req offer.ValidateOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	// Claims win over the request body when a token is present.
	if _, ok := middleware.GetCustomerID(c); ok {
		req.CustomerRole = middleware.GetRole(c)
		req.IsNewCustomer = middleware.GetIsNewCustomer(c)
	}

	result, err := h.offerService.Validate(c.Request.Context(), &req)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to validate offer", err)
		return
	}

	response.Success(c, http.StatusOK, "offer evaluated", result)
}

// RedeemOffer consumes one use of an offer for the authenticated customer
func (h *OfferHandler) RedeemOffer(c *gin.Context) {
	var req offer.RedeemOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request", err)
		return
	}

	req.CustomerID = middleware.MustGetCustomerID(c)
	req.CustomerRole = middleware.GetRole(c)
	req.IsNewCustomer = middleware.GetIsNewCustomer(c)

	result, err := h.offerService.Redeem(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, xerrors.ErrExhausted) {
			response.Error(c, http.StatusConflict, "offer is sold out", err)
			return
		}
		response.Error(c, http.StatusInternalServerError, "failed to redeem offer", err)
		return
	}

	response.Success(c, http.StatusOK, "offer redemption evaluated", result)
}
