package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/alignhq/align/pkg/metrics"
	redisclient "github.com/alignhq/align/pkg/store/redis"
	"github.com/alignhq/align/pkg/tenantctx"
)

// PerTenantRateLimit applies a fixed one-minute window per tenant, backed by
// redis. Used on the exec-only whitelist endpoints (30/min/tenant by
// default). Rate limiting is a collaborator of the evaluator, never part of
// it; a 429 here is distinct from an authorization denial.
func PerTenantRateLimit(rdb redis.UniversalClient, scope string, perMinute int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rdb == nil || perMinute <= 0 {
			c.Next()
			return
		}

		identity, ok := tenantctx.From(c.Request.Context())
		if !ok || identity.TenantID == nil {
			c.Next()
			return
		}

		window := time.Now().Unix() / 60
		key := redisclient.Key("ratelimit", scope, identity.TenantID.String(), strconv.FormatInt(window, 10))

		count, err := rdb.Incr(c.Request.Context(), key).Result()
		if err != nil {
			// Redis being down must not block admin actions.
			c.Next()
			return
		}
		if count == 1 {
			rdb.Expire(c.Request.Context(), key, 2*time.Minute)
		}

		if count > int64(perMinute) {
			metrics.RateLimited.WithLabelValues(scope).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limited",
				"message": "too many requests for this organization, retry shortly",
			})
			return
		}

		c.Next()
	}
}
