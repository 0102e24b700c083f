package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// RateLimit builds an IP-keyed limiter from a rate expression such as
// "100-M" or "10-S". An invalid expression disables limiting.
func RateLimit(rate string) gin.HandlerFunc {
	parsed, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return func(c *gin.Context) { c.Next() }
	}
	return mgin.NewMiddleware(limiter.New(memory.NewStore(), parsed))
}
