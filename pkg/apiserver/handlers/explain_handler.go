package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/alignhq/align/pkg/model"
	"github.com/alignhq/align/pkg/rbac"
	"github.com/alignhq/align/pkg/store/postgres"
)

// ExplainHandler backs the developer-facing "why can't I" tooling. It
// re-evaluates a decision and, only for users whose tenant has the
// rbacInspector flag enabled for them, projects the full reason set.
// Without the flag callers see a bare allowed/denied. Cross-tenant
// resources answer 404 before any reasoning is computed.
type ExplainHandler struct {
	objectives *postgres.ObjectiveRepository
	keyResults *postgres.KeyResultRepository
	authorizer *rbac.Authorizer
	logger     *zap.Logger
}

func NewExplainHandler(db *postgres.Store, authorizer *rbac.Authorizer, logger *zap.Logger) *ExplainHandler {
	var gdb *gorm.DB
	if db != nil {
		gdb = db.DB()
	}
	return &ExplainHandler{
		objectives: postgres.NewObjectiveRepository(gdb),
		keyResults: postgres.NewKeyResultRepository(gdb),
		authorizer: authorizer,
		logger:     logger,
	}
}

type explainRequest struct {
	Action       string `json:"action" binding:"required"`
	ResourceType string `json:"resourceType" binding:"required"`
	ResourceID   string `json:"resourceId" binding:"required"`
}

func (h *ExplainHandler) Explain(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}

	var req explainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "details": gin.H{"body": err.Error()}})
		return
	}

	action := rbac.Action(req.Action)
	resourceID, err := uuid.Parse(req.ResourceID)
	if err != nil {
		validationError(c, "resourceId", "must be a UUID")
		return
	}

	var resource rbac.Resource
	var cycle *model.Cycle
	switch req.ResourceType {
	case rbac.TargetObjective:
		objective, err := h.objectives.GetByID(c.Request.Context(), resourceID, tenantScope(actor))
		if err != nil {
			h.notFoundOrFail(c, err)
			return
		}
		resource = rbac.ObjectiveResource(objective)
		cycle = objective.Cycle
	case rbac.TargetKeyResult:
		kr, err := h.keyResults.GetByID(c.Request.Context(), resourceID, tenantScope(actor))
		if err != nil {
			h.notFoundOrFail(c, err)
			return
		}
		resource = rbac.KeyResultResource(kr)
		cycle = kr.Cycle
	default:
		validationError(c, "resourceType", "must be objective or key_result")
		return
	}

	decision, err := h.authorizer.CanPerform(c.Request.Context(), actor, action, resource, cycle)
	if err != nil {
		h.logger.Error("explain handler: evaluate", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	// A tenant the caller cannot act in must stay indistinguishable from a
	// missing resource.
	if decision.Reason == rbac.ReasonTenantMismatch {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}

	org, err := h.authorizer.Store().GetOrganization(c.Request.Context(), resource.TenantID)
	if err != nil {
		h.logger.Error("explain handler: load organization", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	inspector := h.authorizer.InspectorEnabled(c.Request.Context(), actor, org)
	explanation := rbac.Explain(inspector, action, decision)
	if explanation == nil {
		c.JSON(http.StatusOK, gin.H{"allowed": decision.Allowed})
		return
	}

	c.JSON(http.StatusOK, gin.H{"allowed": decision.Allowed, "explanation": explanation})
}

func (h *ExplainHandler) notFoundOrFail(c *gin.Context, err error) {
	if err == gorm.ErrRecordNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	h.logger.Error("explain handler: load resource", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
}
