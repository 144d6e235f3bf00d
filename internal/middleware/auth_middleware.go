// internal/middleware/auth_middleware.go
package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"shopcore-service/internal/domain/offer"
	"shopcore-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// AuthMiddleware verifies tokens issued by the storefront's auth service.
// Issuance, sessions and refresh all live there; we only check the signature
// and pull out the claims the pricing core needs (customer id, role,
// first-purchase flag).
type AuthMiddleware struct {
	secret []byte
}

func NewAuthMiddleware(secret string) *AuthMiddleware {
	return &AuthMiddleware{secret: []byte(secret)}
}

type customerClaims struct {
	CustomerID    int64  `json:"customer_id"`
	Role          string `json:"role"`
	IsNewCustomer bool   `json:"is_new_customer"`
	jwt.RegisteredClaims
}

// Auth requires a valid bearer token.
func (m *AuthMiddleware) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			response.Error(c, http.StatusUnauthorized, "missing authorization token", nil)
			return
		}

		claims, err := m.parse(token)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "invalid or expired token", err)
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// OptionalAuth parses a token when present but lets anonymous requests
// through with the default customer role.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token != "" {
			if claims, err := m.parse(token); err == nil {
				setClaims(c, claims)
			}
		}
		c.Next()
	}
}

// RequireRole restricts a route to the given roles.
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := GetRole(c)
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		response.Error(c, http.StatusForbidden, "insufficient role", nil)
	}
}

func (m *AuthMiddleware) parse(token string) (*customerClaims, error) {
	claims := &customerClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

func setClaims(c *gin.Context, claims *customerClaims) {
	role := claims.Role
	if role == "" {
		role = offer.RoleCustomer
	}
	c.Set("customer_id", claims.CustomerID)
	c.Set("role", role)
	c.Set("is_new_customer", claims.IsNewCustomer)
}

func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
