package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/alignhq/align/pkg/store/postgres"
	"github.com/alignhq/align/pkg/tenantctx"
)

// TenantHeader is the explicit tenant override consulted when the token
// carries no tenant claim.
const TenantHeader = "X-Align-Tenant"

// legacyTenantFields are deprecated names for the tenant identifier still
// sent by old clients. They are rewritten to tenantId in place before
// handlers run.
var legacyTenantFields = []string{"orgId", "org_id", "organizationId"}

// TenantResolver finishes tenant resolution for identities whose token had
// no tenant claim: first the explicit header, then the subdomain slug. A
// superuser keeps a nil tenant. Any remaining unresolved identity is denied;
// guards never proceed unscoped.
func TenantResolver(orgs *postgres.OrganizationRepository, baseDomain string) gin.HandlerFunc {
	return func(c *gin.Context) {
		normalizeLegacyTenantFields(c)

		identity, ok := tenantctx.From(c.Request.Context())
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "no identity established"})
			return
		}

		if identity.TenantID != nil || identity.Superuser {
			c.Next()
			return
		}

		if header := strings.TrimSpace(c.GetHeader(TenantHeader)); header != "" {
			tenantID, err := uuid.Parse(header)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "invalid tenant header"})
				return
			}
			identity.TenantID = &tenantID
			c.Request = c.Request.WithContext(tenantctx.With(c.Request.Context(), identity))
			c.Next()
			return
		}

		if slug := subdomainSlug(c.Request.Host, baseDomain); slug != "" && orgs != nil {
			org, err := orgs.GetBySlug(c.Request.Context(), slug)
			if err == nil {
				identity.TenantID = &org.ID
				c.Request = c.Request.WithContext(tenantctx.With(c.Request.Context(), identity))
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "authorization_denied", "message": "tenant context could not be resolved"})
	}
}

// normalizeLegacyTenantFields rewrites deprecated tenant field names in the
// query string and JSON body to the canonical tenantId.
func normalizeLegacyTenantFields(c *gin.Context) {
	query := c.Request.URL.Query()
	if query.Get("tenantId") == "" {
		for _, legacy := range legacyTenantFields {
			if v := query.Get(legacy); v != "" {
				query.Set("tenantId", v)
				query.Del(legacy)
				c.Request.URL.RawQuery = query.Encode()
				break
			}
		}
	}

	if c.Request.Body == nil || !strings.HasPrefix(c.ContentType(), "application/json") {
		return
	}
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil || len(raw) == 0 {
		c.Request.Body = io.NopCloser(bytes.NewReader(raw))
		return
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil {
		c.Request.Body = io.NopCloser(bytes.NewReader(raw))
		return
	}

	changed := false
	if _, ok := body["tenantId"]; !ok {
		for _, legacy := range legacyTenantFields {
			if v, ok := body[legacy]; ok {
				body["tenantId"] = v
				delete(body, legacy)
				changed = true
				break
			}
		}
	}

	if changed {
		if rewritten, err := json.Marshal(body); err == nil {
			raw = rewritten
		}
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))
	c.Request.ContentLength = int64(len(raw))
	c.Request.Header.Set("Content-Length", strconv.Itoa(len(raw)))
}

func subdomainSlug(host, baseDomain string) string {
	if baseDomain == "" {
		return ""
	}
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	suffix := "." + baseDomain
	if !strings.HasSuffix(host, suffix) {
		return ""
	}
	slug := strings.TrimSuffix(host, suffix)
	if slug == "" || strings.Contains(slug, ".") {
		return ""
	}
	return slug
}
