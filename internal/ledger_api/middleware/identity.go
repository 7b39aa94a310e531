package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Identity is asserted by the upstream gateway; this service only parses it.
const (
	SellerIDHeader = "X-Seller-ID"
	AdminIDHeader  = "X-Admin-ID"

	sellerIDKey = "seller_id"
	adminIDKey  = "admin_id"
)

// RequireSeller rejects requests without a valid seller identity.
func RequireSeller() gin.HandlerFunc {
	return requireIdentity(SellerIDHeader, sellerIDKey)
}

// RequireAdmin rejects requests without a valid admin identity.
func RequireAdmin() gin.HandlerFunc {
	return requireIdentity(AdminIDHeader, adminIDKey)
}

func requireIdentity(header, key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.GetHeader(header))
		if err != nil || id == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "missing or invalid " + header + " header",
				},
				"correlation_id": GetCorrelationID(c),
			})
			return
		}
		c.Set(key, id)
		c.Next()
	}
}

// SellerID returns the authenticated seller, or uuid.Nil outside RequireSeller.
func SellerID(c *gin.Context) uuid.UUID {
	return identity(c, sellerIDKey)
}

// AdminID returns the authenticated admin, or uuid.Nil outside RequireAdmin.
func AdminID(c *gin.Context) uuid.UUID {
	return identity(c, adminIDKey)
}

func identity(c *gin.Context, key string) uuid.UUID {
	if v, ok := c.Get(key); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}
