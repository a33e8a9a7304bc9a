package handlers

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/alignhq/align/pkg/metrics"
	"github.com/alignhq/align/pkg/rbac"
	"github.com/alignhq/align/pkg/tenantctx"
)

const timeRFC3339Nano = time.RFC3339Nano

func parseLimit(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func parseOffset(value string) int {
	if value == "" {
		return 0
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return 0
	}
	return parsed
}

func formatTime(value *time.Time) *string {
	if value == nil {
		return nil
	}
	formatted := value.UTC().Format(timeRFC3339Nano)
	return &formatted
}

// identity pulls the established identity off the request, aborting with 401
// when none exists. Context absence is the fail-closed path.
func identity(c *gin.Context) (tenantctx.Identity, bool) {
	id, ok := tenantctx.From(c.Request.Context())
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "no identity established"})
		return tenantctx.Identity{}, false
	}
	return id, true
}

// respondDenied maps a denial to the wire. Tenant mismatches and visibility
// denials become 404 to avoid existence disclosure; everything else is a 403
// carrying the stable primary reason tag. The human-readable message stays
// generic; verbatim reasons render only through the explain surface.
func respondDenied(c *gin.Context, action rbac.Action, d rbac.Decision) {
	metrics.AuthzDecisions.WithLabelValues(string(action), "denied", string(d.Reason)).Inc()

	switch d.Reason {
	case rbac.ReasonTenantMismatch, rbac.ReasonVisibility:
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	default:
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "authorization_denied",
			"reason":  string(d.Reason),
			"message": "you are not allowed to perform this action",
		})
	}
}

func recordAllowed(action rbac.Action) {
	metrics.AuthzDecisions.WithLabelValues(string(action), "allowed", "").Inc()
}

// tenantScope is the repository tenant predicate: nil for superusers, who
// read across tenants; the home tenant for everyone else.
func tenantScope(actor tenantctx.Identity) *uuid.UUID {
	if actor.Superuser {
		return nil
	}
	return actor.TenantID
}

func parseOptionalUUID(c *gin.Context, field string, value *string) (*uuid.UUID, bool) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, true
	}
	parsed, err := uuid.Parse(*value)
	if err != nil {
		validationError(c, field, "must be a UUID")
		return nil, false
	}
	return &parsed, true
}

func uuidString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func fieldNames(updates map[string]interface{}) []string {
	names := make([]string, 0, len(updates))
	for name := range updates {
		if name == "updated_at" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// validationError reports a structural violation with field-level detail.
func validationError(c *gin.Context, field, detail string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "validation_error",
		"details": gin.H{field: detail},
	})
}
