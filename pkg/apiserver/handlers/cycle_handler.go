package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/alignhq/align/pkg/audit"
	"github.com/alignhq/align/pkg/model"
	"github.com/alignhq/align/pkg/rbac"
	"github.com/alignhq/align/pkg/store/postgres"
)

type CycleHandler struct {
	db         *postgres.Store
	cycles     *postgres.CycleRepository
	authorizer *rbac.Authorizer
	recorder   *audit.Recorder
	logger     *zap.Logger
}

func NewCycleHandler(db *postgres.Store, authorizer *rbac.Authorizer, recorder *audit.Recorder, logger *zap.Logger) *CycleHandler {
	var gdb *gorm.DB
	if db != nil {
		gdb = db.DB()
	}
	return &CycleHandler{
		db:         db,
		cycles:     postgres.NewCycleRepository(gdb),
		authorizer: authorizer,
		recorder:   recorder,
		logger:     logger,
	}
}

type cycleCreateRequest struct {
	Name     string    `json:"name" binding:"required"`
	StartsAt time.Time `json:"startsAt" binding:"required"`
	EndsAt   time.Time `json:"endsAt" binding:"required"`
}

type cycleStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type cycleResponse struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenantId"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	StartsAt  string `json:"startsAt"`
	EndsAt    string `json:"endsAt"`
	CreatedAt string `json:"createdAt"`
}

func (h *CycleHandler) Create(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	if actor.TenantID == nil {
		// Superusers do not administer tenant cycles.
		c.JSON(http.StatusForbidden, gin.H{"error": "authorization_denied", "reason": string(rbac.ReasonSuperuserReadonly), "message": "you are not allowed to perform this action"})
		return
	}
	tenantID := *actor.TenantID

	var req cycleCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "details": gin.H{"body": err.Error()}})
		return
	}
	if !req.StartsAt.Before(req.EndsAt) {
		validationError(c, "startsAt", "must be strictly before endsAt")
		return
	}

	decision, err := h.authorizer.CanPerform(c.Request.Context(), actor, rbac.ActionManageCycles, rbac.TenantResource(tenantID), nil)
	if err != nil {
		h.fail(c, "evaluate manage_cycles", err)
		return
	}
	if !decision.Allowed {
		respondDenied(c, rbac.ActionManageCycles, decision)
		return
	}
	recordAllowed(rbac.ActionManageCycles)

	cycle := &model.Cycle{
		ID:       uuid.New(),
		TenantID: tenantID,
		Name:     req.Name,
		Status:   model.CycleDraft,
		StartsAt: req.StartsAt,
		EndsAt:   req.EndsAt,
	}

	err = h.db.DB().WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(cycle).Error; err != nil {
			return err
		}
		return h.recorder.Record(c.Request.Context(), tx, audit.Entry{
			ActorUserID:    actor.UserID,
			Action:         "cycle.create",
			TargetType:     rbac.TargetCycle,
			TargetID:       cycle.ID,
			OrganizationID: tenantID,
			Metadata:       map[string]interface{}{"name": cycle.Name},
		})
	})
	if err != nil {
		h.fail(c, "create cycle", err)
		return
	}

	c.JSON(http.StatusCreated, mapCycle(cycle))
}

func (h *CycleHandler) List(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}

	var tenantID uuid.UUID
	if actor.TenantID != nil {
		tenantID = *actor.TenantID
	} else {
		parsed, err := uuid.Parse(c.Query("tenantId"))
		if err != nil {
			validationError(c, "tenantId", "required for platform superusers")
			return
		}
		tenantID = parsed
	}

	cycles, err := h.cycles.List(c.Request.Context(), tenantID)
	if err != nil {
		h.fail(c, "list cycles", err)
		return
	}

	response := make([]cycleResponse, 0, len(cycles))
	for i := range cycles {
		response = append(response, mapCycle(&cycles[i]))
	}
	c.JSON(http.StatusOK, gin.H{"cycles": response})
}

// UpdateStatus advances the cycle lifecycle. Transitions are one-directional
// and restricted to tenant owners and admins; a LOCKED or ARCHIVED cycle
// locks all content scoped to it.
func (h *CycleHandler) UpdateStatus(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	if actor.TenantID == nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "authorization_denied", "reason": string(rbac.ReasonSuperuserReadonly), "message": "you are not allowed to perform this action"})
		return
	}
	tenantID := *actor.TenantID

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		validationError(c, "id", "must be a UUID")
		return
	}

	var req cycleStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "details": gin.H{"body": err.Error()}})
		return
	}
	next := model.CycleStatus(req.Status)
	if !model.IsValidCycleStatus(next) {
		validationError(c, "status", "unknown cycle status")
		return
	}

	cycle, err := h.cycles.GetByID(c.Request.Context(), id, tenantID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		h.fail(c, "load cycle", err)
		return
	}

	if !cycle.Status.CanTransitionTo(next) {
		validationError(c, "status", "invalid transition from "+string(cycle.Status))
		return
	}

	decision, err := h.authorizer.CanPerform(c.Request.Context(), actor, rbac.ActionManageCycles, rbac.TenantResource(tenantID), nil)
	if err != nil {
		h.fail(c, "evaluate manage_cycles", err)
		return
	}
	if !decision.Allowed {
		respondDenied(c, rbac.ActionManageCycles, decision)
		return
	}
	recordAllowed(rbac.ActionManageCycles)

	err = h.db.DB().WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := postgres.NewCycleRepository(tx).UpdateStatus(c.Request.Context(), cycle.ID, next); err != nil {
			return err
		}
		return h.recorder.Record(c.Request.Context(), tx, audit.Entry{
			ActorUserID:    actor.UserID,
			Action:         "cycle.status",
			TargetType:     rbac.TargetCycle,
			TargetID:       cycle.ID,
			OrganizationID: tenantID,
			Metadata:       map[string]interface{}{"from": string(cycle.Status), "to": string(next)},
		})
	})
	if err != nil {
		h.fail(c, "update cycle status", err)
		return
	}

	cycle.Status = next
	c.JSON(http.StatusOK, mapCycle(cycle))
}

func (h *CycleHandler) fail(c *gin.Context, what string, err error) {
	h.logger.Error("cycle handler: "+what, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
}

func mapCycle(cycle *model.Cycle) cycleResponse {
	return cycleResponse{
		ID:        cycle.ID.String(),
		TenantID:  cycle.TenantID.String(),
		Name:      cycle.Name,
		Status:    string(cycle.Status),
		StartsAt:  cycle.StartsAt.UTC().Format(timeRFC3339Nano),
		EndsAt:    cycle.EndsAt.UTC().Format(timeRFC3339Nano),
		CreatedAt: cycle.CreatedAt.UTC().Format(timeRFC3339Nano),
	}
}
