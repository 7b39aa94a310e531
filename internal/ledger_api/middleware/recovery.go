package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Recovery turns a panic into a 500 carrying the usual error envelope. Any
// transaction the handler had open is rolled back by ExecuteTx before the
// panic reaches this point.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			correlationID := GetCorrelationID(c)
			attrs := []any{
				"error", r,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				CorrelationIDKey, correlationID,
				"stack", string(debug.Stack()),
			}
			if id := SellerID(c); id != uuid.Nil {
				attrs = append(attrs, "seller_id", id.String())
			}
			if id := AdminID(c); id != uuid.Nil {
				attrs = append(attrs, "admin_id", id.String())
			}
			logger.Error("Panic recovered", attrs...)

			body := gin.H{"error": gin.H{
				"code":    "INTERNAL_SERVER_ERROR",
				"message": "An internal server error occurred",
			}}
			if correlationID != "" {
				body["correlation_id"] = correlationID
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, body)
		}()

		c.Next()
	}
}
