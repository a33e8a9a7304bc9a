package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/alignhq/align/pkg/audit"
	"github.com/alignhq/align/pkg/metrics"
	"github.com/alignhq/align/pkg/model"
	"github.com/alignhq/align/pkg/rbac"
	"github.com/alignhq/align/pkg/store/postgres"
	"github.com/alignhq/align/pkg/tenantctx"
)

type KeyResultHandler struct {
	db         *postgres.Store
	keyResults *postgres.KeyResultRepository
	cycles     *postgres.CycleRepository
	authorizer *rbac.Authorizer
	recorder   *audit.Recorder
	logger     *zap.Logger
}

func NewKeyResultHandler(db *postgres.Store, authorizer *rbac.Authorizer, recorder *audit.Recorder, logger *zap.Logger) *KeyResultHandler {
	var gdb *gorm.DB
	if db != nil {
		gdb = db.DB()
	}
	return &KeyResultHandler{
		db:         db,
		keyResults: postgres.NewKeyResultRepository(gdb),
		cycles:     postgres.NewCycleRepository(gdb),
		authorizer: authorizer,
		recorder:   recorder,
		logger:     logger,
	}
}

type keyResultCreateRequest struct {
	Title       string  `json:"title" binding:"required"`
	Unit        string  `json:"unit"`
	StartValue  float64 `json:"startValue"`
	TargetValue float64 `json:"targetValue"`
	WorkspaceID *string `json:"workspaceId"`
	TeamID      *string `json:"teamId"`
	CycleID     *string `json:"cycleId"`
	OwnerID     *string `json:"ownerId"`
	Visibility  string  `json:"visibilityLevel"`
}

type keyResultUpdateRequest struct {
	Title       *string  `json:"title"`
	Unit        *string  `json:"unit"`
	TargetValue *float64 `json:"targetValue"`
	Status      *string  `json:"status"`
	Visibility  *string  `json:"visibilityLevel"`
}

type keyResultResponse struct {
	ID           string         `json:"id"`
	TenantID     string         `json:"tenantId"`
	WorkspaceID  *string        `json:"workspaceId,omitempty"`
	TeamID       *string        `json:"teamId,omitempty"`
	CycleID      *string        `json:"cycleId,omitempty"`
	OwnerID      string         `json:"ownerId"`
	Title        string         `json:"title"`
	Unit         string         `json:"unit,omitempty"`
	StartValue   float64        `json:"startValue"`
	TargetValue  float64        `json:"targetValue"`
	CurrentValue float64        `json:"currentValue"`
	Status       string         `json:"status"`
	ProgressPct  float64        `json:"progressPct"`
	IsPublished  bool           `json:"isPublished"`
	Visibility   string         `json:"visibilityLevel"`
	Lock         rbac.LockState `json:"lock"`
	CreatedAt    string         `json:"createdAt"`
	UpdatedAt    string         `json:"updatedAt"`
}

func (h *KeyResultHandler) Create(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}

	var req keyResultCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "details": gin.H{"body": err.Error()}})
		return
	}

	visibility := model.VisibilityPublicTenant
	if req.Visibility != "" {
		visibility = model.VisibilityLevel(req.Visibility)
		if !visibility.Assignable() {
			validationError(c, "visibilityLevel", "legacy or unknown visibility levels cannot be assigned")
			return
		}
	}

	var tenantID uuid.UUID
	if actor.TenantID != nil {
		tenantID = *actor.TenantID
	} else {
		v := strings.TrimSpace(c.Query("tenantId"))
		parsed, err := uuid.Parse(v)
		if err != nil {
			validationError(c, "tenantId", "required for platform superusers")
			return
		}
		tenantID = parsed
	}

	ownerID := actor.UserID
	if req.OwnerID != nil {
		parsed, err := uuid.Parse(*req.OwnerID)
		if err != nil {
			validationError(c, "ownerId", "must be a UUID")
			return
		}
		ownerID = parsed
	}

	workspaceID, ok := parseOptionalUUID(c, "workspaceId", req.WorkspaceID)
	if !ok {
		return
	}
	teamID, ok := parseOptionalUUID(c, "teamId", req.TeamID)
	if !ok {
		return
	}

	var cycle *model.Cycle
	var cycleID *uuid.UUID
	if req.CycleID != nil {
		parsed, err := uuid.Parse(*req.CycleID)
		if err != nil {
			validationError(c, "cycleId", "must be a UUID")
			return
		}
		loaded, err := h.cycles.GetByID(c.Request.Context(), parsed, tenantID)
		if err != nil {
			validationError(c, "cycleId", "cycle not found in this organization")
			return
		}
		cycle = loaded
		cycleID = &parsed
	}

	resource := rbac.Resource{
		Type:        rbac.TargetKeyResult,
		TenantID:    tenantID,
		OwnerID:     ownerID,
		WorkspaceID: workspaceID,
		TeamID:      teamID,
		Visibility:  visibility,
	}

	decision, err := h.authorizer.CanPerform(c.Request.Context(), actor, rbac.ActionCreate, resource, cycle)
	if err != nil {
		h.fail(c, "evaluate create", err)
		return
	}
	if !decision.Allowed {
		respondDenied(c, rbac.ActionCreate, decision)
		return
	}
	recordAllowed(rbac.ActionCreate)

	kr := &model.KeyResult{
		ID:          uuid.New(),
		TenantID:    tenantID,
		WorkspaceID: workspaceID,
		TeamID:      teamID,
		CycleID:     cycleID,
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(req.Title),
		Unit:        req.Unit,
		StartValue:  req.StartValue,
		TargetValue: req.TargetValue,
		Status:      model.StatusOnTrack,
		Visibility:  visibility,
	}

	err = h.db.DB().WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(kr).Error; err != nil {
			return err
		}
		return h.recorder.Record(c.Request.Context(), tx, audit.Entry{
			ActorUserID:    actor.UserID,
			Action:         "key_result.create",
			TargetType:     rbac.TargetKeyResult,
			TargetID:       kr.ID,
			OrganizationID: tenantID,
			Metadata:       map[string]interface{}{"title": kr.Title},
		})
	})
	if err != nil {
		h.fail(c, "create key result", err)
		return
	}

	kr.Cycle = cycle
	c.JSON(http.StatusCreated, mapKeyResult(kr))
}

func (h *KeyResultHandler) Get(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}

	kr, ok := h.load(c, actor)
	if !ok {
		return
	}

	decision, err := h.authorizer.CanPerform(c.Request.Context(), actor, rbac.ActionView, rbac.KeyResultResource(kr), kr.Cycle)
	if err != nil {
		h.fail(c, "evaluate view", err)
		return
	}
	if !decision.Allowed {
		respondDenied(c, rbac.ActionView, decision)
		return
	}
	recordAllowed(rbac.ActionView)

	c.JSON(http.StatusOK, mapKeyResult(kr))
}

func (h *KeyResultHandler) List(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}

	var tenantID uuid.UUID
	if actor.TenantID != nil {
		tenantID = *actor.TenantID
	} else {
		parsed, err := uuid.Parse(strings.TrimSpace(c.Query("tenantId")))
		if err != nil {
			validationError(c, "tenantId", "required for platform superusers")
			return
		}
		tenantID = parsed
	}

	var cycleID *uuid.UUID
	if v := strings.TrimSpace(c.Query("cycle_id")); v != "" {
		parsed, err := uuid.Parse(v)
		if err != nil {
			validationError(c, "cycle_id", "must be a UUID")
			return
		}
		cycleID = &parsed
	}

	limit := parseLimit(c.Query("limit"), 20)
	offset := parseOffset(c.Query("offset"))

	krs, _, err := h.keyResults.List(c.Request.Context(), tenantID, cycleID, limit, offset)
	if err != nil {
		h.fail(c, "list key results", err)
		return
	}

	org, err := h.authorizer.Store().GetOrganization(c.Request.Context(), tenantID)
	if err != nil {
		h.fail(c, "load organization", err)
		return
	}

	visible := make([]keyResultResponse, 0, len(krs))
	for i := range krs {
		decision, err := h.authorizer.CanPerformWithOrg(c.Request.Context(), actor, rbac.ActionView, rbac.KeyResultResource(&krs[i]), krs[i].Cycle, org)
		if err != nil {
			h.fail(c, "evaluate view", err)
			return
		}
		if decision.Allowed {
			visible = append(visible, mapKeyResult(&krs[i]))
		}
	}

	c.JSON(http.StatusOK, gin.H{"keyResults": visible, "total": len(visible)})
}

func (h *KeyResultHandler) Update(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}

	kr, ok := h.load(c, actor)
	if !ok {
		return
	}

	var req keyResultUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "details": gin.H{"body": err.Error()}})
		return
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			validationError(c, "title", "must not be empty")
			return
		}
		updates["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Unit != nil {
		updates["unit"] = *req.Unit
	}
	if req.TargetValue != nil {
		updates["target_value"] = *req.TargetValue
	}
	if req.Status != nil {
		status := model.OKRStatus(*req.Status)
		if !model.IsValidOKRStatus(status) {
			validationError(c, "status", "unknown status")
			return
		}
		updates["status"] = status
	}
	if req.Visibility != nil {
		visibility := model.VisibilityLevel(*req.Visibility)
		if !visibility.Assignable() {
			validationError(c, "visibilityLevel", "legacy or unknown visibility levels cannot be assigned")
			return
		}
		updates["visibility"] = visibility
	}

	decision, err := h.authorizer.CanPerform(c.Request.Context(), actor, rbac.ActionEdit, rbac.KeyResultResource(kr), kr.Cycle)
	if err != nil {
		h.fail(c, "evaluate edit", err)
		return
	}
	if !decision.Allowed {
		respondDenied(c, rbac.ActionEdit, decision)
		return
	}
	recordAllowed(rbac.ActionEdit)

	err = h.db.DB().WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := postgres.NewKeyResultRepository(tx).Update(c.Request.Context(), kr.ID, updates); err != nil {
			return err
		}
		return h.recorder.Record(c.Request.Context(), tx, audit.Entry{
			ActorUserID:    actor.UserID,
			Action:         "key_result.update",
			TargetType:     rbac.TargetKeyResult,
			TargetID:       kr.ID,
			OrganizationID: kr.TenantID,
			Metadata:       map[string]interface{}{"fields": fieldNames(updates)},
		})
	})
	if err != nil {
		h.fail(c, "update key result", err)
		return
	}

	updated, ok := h.load(c, actor)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, mapKeyResult(updated))
}

// Delete refuses while initiatives reference the key result; the warning is
// user-facing and carries a distinct code.
func (h *KeyResultHandler) Delete(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}

	kr, ok := h.load(c, actor)
	if !ok {
		return
	}

	decision, err := h.authorizer.CanPerform(c.Request.Context(), actor, rbac.ActionDelete, rbac.KeyResultResource(kr), kr.Cycle)
	if err != nil {
		h.fail(c, "evaluate delete", err)
		return
	}
	if !decision.Allowed {
		respondDenied(c, rbac.ActionDelete, decision)
		return
	}
	recordAllowed(rbac.ActionDelete)

	count, err := h.keyResults.InitiativeCount(c.Request.Context(), kr.ID)
	if err != nil {
		h.fail(c, "count initiatives", err)
		return
	}
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{
			"error":   "has_initiatives",
			"message": "this key result has linked initiatives; unlink or complete them before deleting",
		})
		return
	}

	err = h.db.DB().WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := postgres.NewKeyResultRepository(tx).Delete(c.Request.Context(), kr.ID); err != nil {
			return err
		}
		return h.recorder.Record(c.Request.Context(), tx, audit.Entry{
			ActorUserID:    actor.UserID,
			Action:         "key_result.delete",
			TargetType:     rbac.TargetKeyResult,
			TargetID:       kr.ID,
			OrganizationID: kr.TenantID,
		})
	})
	if err != nil {
		h.fail(c, "delete key result", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *KeyResultHandler) Publish(c *gin.Context) {
	h.setPublished(c, true, rbac.ActionPublish, "key_result.publish")
}

func (h *KeyResultHandler) Unpublish(c *gin.Context) {
	h.setPublished(c, false, rbac.ActionUnpublish, "key_result.unpublish")
}

func (h *KeyResultHandler) setPublished(c *gin.Context, published bool, action rbac.Action, auditAction string) {
	actor, ok := identity(c)
	if !ok {
		return
	}

	kr, ok := h.load(c, actor)
	if !ok {
		return
	}

	decision, err := h.authorizer.CanPerform(c.Request.Context(), actor, action, rbac.KeyResultResource(kr), kr.Cycle)
	if err != nil {
		h.fail(c, "evaluate publish", err)
		return
	}
	if !decision.Allowed {
		respondDenied(c, action, decision)
		return
	}
	recordAllowed(action)

	err = h.db.DB().WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := postgres.NewKeyResultRepository(tx).SetPublished(c.Request.Context(), kr.ID, published); err != nil {
			return err
		}
		return h.recorder.Record(c.Request.Context(), tx, audit.Entry{
			ActorUserID:    actor.UserID,
			Action:         auditAction,
			TargetType:     rbac.TargetKeyResult,
			TargetID:       kr.ID,
			OrganizationID: kr.TenantID,
			Metadata:       map[string]interface{}{"isPublished": published},
		})
	})
	if err != nil {
		h.fail(c, "set published", err)
		return
	}

	metrics.PublishTransitions.WithLabelValues(kr.TenantID.String(), rbac.TargetKeyResult, string(action)).Inc()
	c.JSON(http.StatusOK, gin.H{"id": kr.ID.String(), "isPublished": published})
}

// CheckIn records a new current value, rederives the key result's progress
// and rolls the change up into every linked objective.
func (h *KeyResultHandler) CheckIn(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}

	kr, ok := h.load(c, actor)
	if !ok {
		return
	}

	var req checkInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "details": gin.H{"body": err.Error()}})
		return
	}
	if req.CurrentValue == nil && req.Status == nil {
		validationError(c, "body", "nothing to check in")
		return
	}

	decision, err := h.authorizer.CanPerform(c.Request.Context(), actor, rbac.ActionCheckIn, rbac.KeyResultResource(kr), kr.Cycle)
	if err != nil {
		h.fail(c, "evaluate check_in", err)
		return
	}
	if !decision.Allowed {
		respondDenied(c, rbac.ActionCheckIn, decision)
		return
	}
	recordAllowed(rbac.ActionCheckIn)

	updates := map[string]interface{}{}
	if req.CurrentValue != nil {
		kr.CurrentValue = *req.CurrentValue
		updates["current_value"] = *req.CurrentValue
		updates["progress_pct"] = kr.Progress()
	}
	if req.Status != nil {
		status := model.OKRStatus(*req.Status)
		if !model.IsValidOKRStatus(status) {
			validationError(c, "status", "unknown status")
			return
		}
		updates["status"] = status
	}

	err = h.db.DB().WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		repo := postgres.NewKeyResultRepository(tx)
		if err := repo.Update(c.Request.Context(), kr.ID, updates); err != nil {
			return err
		}

		objectiveIDs, err := repo.ObjectivesForKeyResult(c.Request.Context(), kr.ID)
		if err != nil {
			return err
		}
		objectives := postgres.NewObjectiveRepository(tx)
		for _, objectiveID := range objectiveIDs {
			links, err := repo.LinksForObjective(c.Request.Context(), objectiveID)
			if err != nil {
				return err
			}
			progress := model.RollupProgress(links)
			if err := objectives.Update(c.Request.Context(), objectiveID, map[string]interface{}{"progress_pct": progress}); err != nil {
				return err
			}
		}

		return h.recorder.Record(c.Request.Context(), tx, audit.Entry{
			ActorUserID:    actor.UserID,
			Action:         "key_result.check_in",
			TargetType:     rbac.TargetKeyResult,
			TargetID:       kr.ID,
			OrganizationID: kr.TenantID,
			Metadata:       map[string]interface{}{"comment": req.Comment},
		})
	})
	if err != nil {
		h.fail(c, "check in key result", err)
		return
	}

	updated, ok := h.load(c, actor)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, mapKeyResult(updated))
}

func (h *KeyResultHandler) load(c *gin.Context, actor tenantctx.Identity) (*model.KeyResult, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		validationError(c, "id", "must be a UUID")
		return nil, false
	}

	kr, err := h.keyResults.GetByID(c.Request.Context(), id, tenantScope(actor))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return nil, false
		}
		h.fail(c, "load key result", err)
		return nil, false
	}
	return kr, true
}

func (h *KeyResultHandler) fail(c *gin.Context, what string, err error) {
	h.logger.Error("key result handler: "+what, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
}

func mapKeyResult(kr *model.KeyResult) keyResultResponse {
	return keyResultResponse{
		ID:           kr.ID.String(),
		TenantID:     kr.TenantID.String(),
		WorkspaceID:  uuidString(kr.WorkspaceID),
		TeamID:       uuidString(kr.TeamID),
		CycleID:      uuidString(kr.CycleID),
		OwnerID:      kr.OwnerID.String(),
		Title:        kr.Title,
		Unit:         kr.Unit,
		StartValue:   kr.StartValue,
		TargetValue:  kr.TargetValue,
		CurrentValue: kr.CurrentValue,
		Status:       string(kr.Status),
		ProgressPct:  kr.ProgressPct,
		IsPublished:  kr.IsPublished,
		Visibility:   string(kr.Visibility),
		Lock:         rbac.Lock(kr.IsPublished, kr.Cycle),
		CreatedAt:    kr.CreatedAt.UTC().Format(timeRFC3339Nano),
		UpdatedAt:    kr.UpdatedAt.UTC().Format(timeRFC3339Nano),
	}
}
