// internal/app/router.go
package app

import (
	"shopcore-service/internal/domain/offer"
	offerHandler "shopcore-service/internal/handlers/offer"
	shippingHandler "shopcore-service/internal/handlers/shipping"
	"shopcore-service/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handlers struct {
	OfferHandler    *offerHandler.OfferHandler
	ShippingHandler *shippingHandler.ShippingHandler
	AuthMiddleware  *middleware.AuthMiddleware
}

func SetupRouter(r *gin.Engine, logger *zap.Logger, h *Handlers) {
	api := r.Group("/api/v1")

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "version": "1.0.0"})
	})

	// ==================== Checkout (public, token optional) ====================
	checkout := api.Group("")
	checkout.Use(h.AuthMiddleware.OptionalAuth())
	{
		checkout.POST("/offers/validate", h.OfferHandler.ValidateOffer)
		checkout.POST("/shipping/quote", h.ShippingHandler.Quote)
	}

	// ==================== Redemption (authenticated) ====================
	redeem := api.Group("/offers")
	redeem.Use(h.AuthMiddleware.Auth())
	{
		redeem.POST("/redeem", h.OfferHandler.RedeemOffer)
	}

	// ==================== Offer Admin ====================
	admin := api.Group("/offers")
	admin.Use(h.AuthMiddleware.Auth(), h.AuthMiddleware.RequireRole(offer.RoleAdmin))
	{
		admin.POST("", h.OfferHandler.CreateOffer)
		admin.GET("", h.OfferHandler.ListOffers)
		admin.GET("/:id", h.OfferHandler.GetOffer)
		admin.GET("/code/:code", h.OfferHandler.GetOfferByCode)
		admin.PUT("/:id", h.OfferHandler.UpdateOffer)
		admin.DELETE("/:id", h.OfferHandler.DeactivateOffer)
		admin.GET("/:id/stats", h.OfferHandler.GetOfferStats)
	}
}
