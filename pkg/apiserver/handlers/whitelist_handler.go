package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/alignhq/align/pkg/audit"
	"github.com/alignhq/align/pkg/model"
	"github.com/alignhq/align/pkg/rbac"
	"github.com/alignhq/align/pkg/store/postgres"
	"github.com/alignhq/align/pkg/tenantctx"
)

// WhitelistHandler manages the tenant's exec-only whitelist: the user IDs
// exempt from the EXEC_ONLY restriction on published legacy content. The
// routes are rate limited per tenant by middleware.
type WhitelistHandler struct {
	db         *postgres.Store
	orgs       *postgres.OrganizationRepository
	authorizer *rbac.Authorizer
	recorder   *audit.Recorder
	logger     *zap.Logger
}

func NewWhitelistHandler(db *postgres.Store, authorizer *rbac.Authorizer, recorder *audit.Recorder, logger *zap.Logger) *WhitelistHandler {
	var gdb *gorm.DB
	if db != nil {
		gdb = db.DB()
	}
	return &WhitelistHandler{
		db:         db,
		orgs:       postgres.NewOrganizationRepository(gdb),
		authorizer: authorizer,
		recorder:   recorder,
		logger:     logger,
	}
}

type whitelistAddRequest struct {
	UserID string `json:"userId" binding:"required"`
}

func (h *WhitelistHandler) List(c *gin.Context) {
	_, org, ok := h.authorize(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"userIds": []string(org.ExecOnlyWhitelist)})
}

func (h *WhitelistHandler) Add(c *gin.Context) {
	actor, org, ok := h.authorize(c)
	if !ok {
		return
	}

	var req whitelistAddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "details": gin.H{"body": err.Error()}})
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		validationError(c, "userId", "must be a UUID")
		return
	}

	// The read-modify-write runs under a row lock so concurrent admins
	// cannot drop each other's entries.
	var updated []string
	err = h.db.DB().WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		fresh, err := lockOrganization(c.Request.Context(), tx, org.ID)
		if err != nil {
			return err
		}

		var changed bool
		updated, changed = appendWhitelist(fresh.ExecOnlyWhitelist, userID)
		if !changed {
			return nil
		}
		if err := postgres.NewOrganizationRepository(tx).UpdateWhitelist(c.Request.Context(), org.ID, updated); err != nil {
			return err
		}
		return h.recorder.Record(c.Request.Context(), tx, audit.Entry{
			ActorUserID:    actor.UserID,
			Action:         "whitelist.add",
			TargetType:     rbac.TargetTenant,
			TargetID:       org.ID,
			OrganizationID: org.ID,
			Metadata:       map[string]interface{}{"userId": userID.String()},
		})
	})
	if err != nil {
		h.fail(c, "add to whitelist", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"userIds": updated})
}

func (h *WhitelistHandler) Remove(c *gin.Context) {
	actor, org, ok := h.authorize(c)
	if !ok {
		return
	}

	userID, err := uuid.Parse(c.Param("userID"))
	if err != nil {
		validationError(c, "userID", "must be a UUID")
		return
	}

	var updated []string
	err = h.db.DB().WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		fresh, err := lockOrganization(c.Request.Context(), tx, org.ID)
		if err != nil {
			return err
		}

		var changed bool
		updated, changed = removeWhitelist(fresh.ExecOnlyWhitelist, userID)
		if !changed {
			return nil
		}
		if err := postgres.NewOrganizationRepository(tx).UpdateWhitelist(c.Request.Context(), org.ID, updated); err != nil {
			return err
		}
		return h.recorder.Record(c.Request.Context(), tx, audit.Entry{
			ActorUserID:    actor.UserID,
			Action:         "whitelist.remove",
			TargetType:     rbac.TargetTenant,
			TargetID:       org.ID,
			OrganizationID: org.ID,
			Metadata:       map[string]interface{}{"userId": userID.String()},
		})
	})
	if err != nil {
		h.fail(c, "remove from whitelist", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"userIds": updated})
}

// authorize gates every whitelist route on manage_whitelist, which the RBAC
// matrix grants to tenant owners and admins only.
func (h *WhitelistHandler) authorize(c *gin.Context) (tenantctx.Identity, *model.Organization, bool) {
	actor, ok := identity(c)
	if !ok {
		return tenantctx.Identity{}, nil, false
	}
	if actor.TenantID == nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "authorization_denied", "reason": string(rbac.ReasonSuperuserReadonly), "message": "you are not allowed to perform this action"})
		return tenantctx.Identity{}, nil, false
	}
	tenantID := *actor.TenantID

	decision, err := h.authorizer.CanPerform(c.Request.Context(), actor, rbac.ActionManageWhitelist, rbac.TenantResource(tenantID), nil)
	if err != nil {
		h.fail(c, "evaluate manage_whitelist", err)
		return tenantctx.Identity{}, nil, false
	}
	if !decision.Allowed {
		respondDenied(c, rbac.ActionManageWhitelist, decision)
		return tenantctx.Identity{}, nil, false
	}
	recordAllowed(rbac.ActionManageWhitelist)

	org, err := h.orgs.GetByID(c.Request.Context(), tenantID)
	if err != nil {
		h.fail(c, "load organization", err)
		return tenantctx.Identity{}, nil, false
	}
	return actor, org, true
}

func (h *WhitelistHandler) fail(c *gin.Context, what string, err error) {
	h.logger.Error("whitelist handler: "+what, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
}

// lockOrganization re-reads the organization row under FOR UPDATE so the
// whitelist mutation works on the latest array, not the one loaded during
// authorization.
func lockOrganization(ctx context.Context, tx *gorm.DB, orgID uuid.UUID) (*model.Organization, error) {
	var org model.Organization
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&org, "id = ?", orgID).Error
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func appendWhitelist(current []string, userID uuid.UUID) ([]string, bool) {
	id := userID.String()
	out := append([]string(nil), current...)
	for _, entry := range out {
		if entry == id {
			return out, false
		}
	}
	return append(out, id), true
}

func removeWhitelist(current []string, userID uuid.UUID) ([]string, bool) {
	id := userID.String()
	out := make([]string, 0, len(current))
	changed := false
	for _, entry := range current {
		if entry == id {
			changed = true
			continue
		}
		out = append(out, entry)
	}
	return out, changed
}
