// internal/middleware/helpers.go
package middleware

import (
	"shopcore-service/internal/domain/offer"

	"github.com/gin-gonic/gin"
)

// MustGetCustomerID gets the customer ID from context or panics
func MustGetCustomerID(c *gin.Context) int64 {
	id, exists := GetCustomerID(c)
	if !exists {
		panic("customer_id not found in context")
	}
	return id
}

// GetCustomerID gets the customer ID from context
func GetCustomerID(c *gin.Context) (int64, bool) {
	v, exists := c.Get("customer_id")
	if !exists {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

// GetRole gets the caller role from context, defaulting to customer
func GetRole(c *gin.Context) string {
	v, exists := c.Get("role")
	if !exists {
		return offer.RoleCustomer
	}
	role, ok := v.(string)
	if !ok || role == "" {
		return offer.RoleCustomer
	}
	return role
}

// GetIsNewCustomer gets the first-purchase flag from context
func GetIsNewCustomer(c *gin.Context) bool {
	v, exists := c.Get("is_new_customer")
	if !exists {
		return false
	}
	flag, ok := v.(bool)
	return ok && flag
}
