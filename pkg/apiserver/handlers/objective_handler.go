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

type ObjectiveHandler struct {
	db         *postgres.Store
	objectives *postgres.ObjectiveRepository
	keyResults *postgres.KeyResultRepository
	cycles     *postgres.CycleRepository
	orgs       *postgres.OrganizationRepository
	authorizer *rbac.Authorizer
	recorder   *audit.Recorder
	logger     *zap.Logger
	maxWeight  float64
}

func NewObjectiveHandler(db *postgres.Store, authorizer *rbac.Authorizer, recorder *audit.Recorder, logger *zap.Logger, maxWeight float64) *ObjectiveHandler {
	var gdb *gorm.DB
	if db != nil {
		gdb = db.DB()
	}
	return &ObjectiveHandler{
		db:         db,
		objectives: postgres.NewObjectiveRepository(gdb),
		keyResults: postgres.NewKeyResultRepository(gdb),
		cycles:     postgres.NewCycleRepository(gdb),
		orgs:       postgres.NewOrganizationRepository(gdb),
		authorizer: authorizer,
		recorder:   recorder,
		logger:     logger,
		maxWeight:  maxWeight,
	}
}

type objectiveCreateRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description"`
	WorkspaceID *string `json:"workspaceId"`
	TeamID      *string `json:"teamId"`
	CycleID     *string `json:"cycleId"`
	OwnerID     *string `json:"ownerId"`
	Visibility  string  `json:"visibilityLevel"`
}

type objectiveUpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Visibility  *string `json:"visibilityLevel"`
}

type checkInRequest struct {
	ProgressPct  *float64 `json:"progressPct"`
	CurrentValue *float64 `json:"currentValue"`
	Status       *string  `json:"status"`
	Comment      string   `json:"comment"`
}

type linkRequest struct {
	Weight float64 `json:"weight"`
}

type objectiveResponse struct {
	ID          string         `json:"id"`
	TenantID    string         `json:"tenantId"`
	WorkspaceID *string        `json:"workspaceId,omitempty"`
	TeamID      *string        `json:"teamId,omitempty"`
	CycleID     *string        `json:"cycleId,omitempty"`
	OwnerID     string         `json:"ownerId"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Status      string         `json:"status"`
	ProgressPct float64        `json:"progressPct"`
	IsPublished bool           `json:"isPublished"`
	Visibility  string         `json:"visibilityLevel"`
	Lock        rbac.LockState `json:"lock"`
	CreatedAt   string         `json:"createdAt"`
	UpdatedAt   string         `json:"updatedAt"`
}

func (h *ObjectiveHandler) Create(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}

	var req objectiveCreateRequest
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

	tenantID, ok := h.actingTenant(c, actor)
	if !ok {
		return
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
		Type:        rbac.TargetObjective,
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

	objective := &model.Objective{
		ID:          uuid.New(),
		TenantID:    tenantID,
		WorkspaceID: workspaceID,
		TeamID:      teamID,
		CycleID:     cycleID,
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Status:      model.StatusOnTrack,
		Visibility:  visibility,
	}

	err = h.db.DB().WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(objective).Error; err != nil {
			return err
		}
		return h.recorder.Record(c.Request.Context(), tx, audit.Entry{
			ActorUserID:    actor.UserID,
			Action:         "objective.create",
			TargetType:     rbac.TargetObjective,
			TargetID:       objective.ID,
			OrganizationID: tenantID,
			Metadata:       map[string]interface{}{"title": objective.Title},
		})
	})
	if err != nil {
		h.fail(c, "create objective", err)
		return
	}

	objective.Cycle = cycle
	c.JSON(http.StatusCreated, mapObjective(objective))
}

func (h *ObjectiveHandler) Get(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}

	objective, cycle, ok := h.load(c, actor)
	if !ok {
		return
	}

	decision, err := h.authorizer.CanPerform(c.Request.Context(), actor, rbac.ActionView, rbac.ObjectiveResource(objective), cycle)
	if err != nil {
		h.fail(c, "evaluate view", err)
		return
	}
	if !decision.Allowed {
		respondDenied(c, rbac.ActionView, decision)
		return
	}
	recordAllowed(rbac.ActionView)

	c.JSON(http.StatusOK, mapObjective(objective))
}

func (h *ObjectiveHandler) List(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}

	tenantID, ok := h.actingTenant(c, actor)
	if !ok {
		return
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

	objectives, _, err := h.objectives.List(c.Request.Context(), tenantID, cycleID, limit, offset)
	if err != nil {
		h.fail(c, "list objectives", err)
		return
	}

	org, err := h.authorizer.Store().GetOrganization(c.Request.Context(), tenantID)
	if err != nil {
		h.fail(c, "load organization", err)
		return
	}

	// Never return a resource the viewer cannot see.
	visible := make([]objectiveResponse, 0, len(objectives))
	for i := range objectives {
		decision, err := h.authorizer.CanPerformWithOrg(c.Request.Context(), actor, rbac.ActionView, rbac.ObjectiveResource(&objectives[i]), objectives[i].Cycle, org)
		if err != nil {
			h.fail(c, "evaluate view", err)
			return
		}
		if decision.Allowed {
			visible = append(visible, mapObjective(&objectives[i]))
		}
	}

	c.JSON(http.StatusOK, gin.H{"objectives": visible, "total": len(visible)})
}

func (h *ObjectiveHandler) Update(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}

	objective, cycle, ok := h.load(c, actor)
	if !ok {
		return
	}

	var req objectiveUpdateRequest
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
	if req.Description != nil {
		updates["description"] = *req.Description
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

	decision, err := h.authorizer.CanPerform(c.Request.Context(), actor, rbac.ActionEdit, rbac.ObjectiveResource(objective), cycle)
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
		if err := postgres.NewObjectiveRepository(tx).Update(c.Request.Context(), objective.ID, updates); err != nil {
			return err
		}
		return h.recorder.Record(c.Request.Context(), tx, audit.Entry{
			ActorUserID:    actor.UserID,
			Action:         "objective.update",
			TargetType:     rbac.TargetObjective,
			TargetID:       objective.ID,
			OrganizationID: objective.TenantID,
			Metadata:       map[string]interface{}{"fields": fieldNames(updates)},
		})
	})
	if err != nil {
		h.fail(c, "update objective", err)
		return
	}

	updated, _, ok := h.load(c, actor)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, mapObjective(updated))
}

func (h *ObjectiveHandler) Delete(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}

	objective, cycle, ok := h.load(c, actor)
	if !ok {
		return
	}

	decision, err := h.authorizer.CanPerform(c.Request.Context(), actor, rbac.ActionDelete, rbac.ObjectiveResource(objective), cycle)
	if err != nil {
		h.fail(c, "evaluate delete", err)
		return
	}
	if !decision.Allowed {
		respondDenied(c, rbac.ActionDelete, decision)
		return
	}
	recordAllowed(rbac.ActionDelete)

	err = h.db.DB().WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := postgres.NewObjectiveRepository(tx).Delete(c.Request.Context(), objective.ID); err != nil {
			return err
		}
		return h.recorder.Record(c.Request.Context(), tx, audit.Entry{
			ActorUserID:    actor.UserID,
			Action:         "objective.delete",
			TargetType:     rbac.TargetObjective,
			TargetID:       objective.ID,
			OrganizationID: objective.TenantID,
		})
	})
	if err != nil {
		h.fail(c, "delete objective", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// Publish flips isPublished on. One transaction covers the flip and its
// audit entry.
func (h *ObjectiveHandler) Publish(c *gin.Context) {
	h.setPublished(c, true, rbac.ActionPublish, "objective.publish")
}

// Unpublish is restricted to tenant owners and admins by the RBAC matrix.
func (h *ObjectiveHandler) Unpublish(c *gin.Context) {
	h.setPublished(c, false, rbac.ActionUnpublish, "objective.unpublish")
}

func (h *ObjectiveHandler) setPublished(c *gin.Context, published bool, action rbac.Action, auditAction string) {
	actor, ok := identity(c)
	if !ok {
		return
	}

	objective, cycle, ok := h.load(c, actor)
	if !ok {
		return
	}

	decision, err := h.authorizer.CanPerform(c.Request.Context(), actor, action, rbac.ObjectiveResource(objective), cycle)
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
		if err := postgres.NewObjectiveRepository(tx).SetPublished(c.Request.Context(), objective.ID, published); err != nil {
			return err
		}
		return h.recorder.Record(c.Request.Context(), tx, audit.Entry{
			ActorUserID:    actor.UserID,
			Action:         auditAction,
			TargetType:     rbac.TargetObjective,
			TargetID:       objective.ID,
			OrganizationID: objective.TenantID,
			Metadata:       map[string]interface{}{"isPublished": published},
		})
	})
	if err != nil {
		h.fail(c, "set published", err)
		return
	}

	metrics.PublishTransitions.WithLabelValues(objective.TenantID.String(), rbac.TargetObjective, string(action)).Inc()
	c.JSON(http.StatusOK, gin.H{"id": objective.ID.String(), "isPublished": published})
}

func (h *ObjectiveHandler) CheckIn(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}

	objective, cycle, ok := h.load(c, actor)
	if !ok {
		return
	}

	var req checkInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "details": gin.H{"body": err.Error()}})
		return
	}

	updates := map[string]interface{}{}
	if req.ProgressPct != nil {
		if *req.ProgressPct < 0 || *req.ProgressPct > 100 {
			validationError(c, "progressPct", "must be within [0, 100]")
			return
		}
		updates["progress_pct"] = *req.ProgressPct
	}
	if req.Status != nil {
		status := model.OKRStatus(*req.Status)
		if !model.IsValidOKRStatus(status) {
			validationError(c, "status", "unknown status")
			return
		}
		updates["status"] = status
	}
	if len(updates) == 0 {
		validationError(c, "body", "nothing to check in")
		return
	}

	decision, err := h.authorizer.CanPerform(c.Request.Context(), actor, rbac.ActionCheckIn, rbac.ObjectiveResource(objective), cycle)
	if err != nil {
		h.fail(c, "evaluate check_in", err)
		return
	}
	if !decision.Allowed {
		respondDenied(c, rbac.ActionCheckIn, decision)
		return
	}
	recordAllowed(rbac.ActionCheckIn)

	err = h.db.DB().WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := postgres.NewObjectiveRepository(tx).Update(c.Request.Context(), objective.ID, updates); err != nil {
			return err
		}
		return h.recorder.Record(c.Request.Context(), tx, audit.Entry{
			ActorUserID:    actor.UserID,
			Action:         "objective.check_in",
			TargetType:     rbac.TargetObjective,
			TargetID:       objective.ID,
			OrganizationID: objective.TenantID,
			Metadata:       map[string]interface{}{"comment": req.Comment},
		})
	})
	if err != nil {
		h.fail(c, "check in objective", err)
		return
	}

	updated, _, ok := h.load(c, actor)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, mapObjective(updated))
}

// Link attaches a key result with a roll-up weight and recomputes the
// objective's progress from its weighted links.
func (h *ObjectiveHandler) Link(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}

	objective, cycle, ok := h.load(c, actor)
	if !ok {
		return
	}

	krID, err := uuid.Parse(c.Param("krID"))
	if err != nil {
		validationError(c, "krID", "must be a UUID")
		return
	}

	var req linkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "details": gin.H{"body": err.Error()}})
		return
	}
	if req.Weight < 0 || req.Weight > h.maxWeight {
		validationError(c, "weight", "must be within [0, "+trimFloat(h.maxWeight)+"]")
		return
	}

	scope := tenantScope(actor)
	if _, err := h.keyResults.GetByID(c.Request.Context(), krID, scope); err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		h.fail(c, "load key result", err)
		return
	}

	decision, err := h.authorizer.CanPerform(c.Request.Context(), actor, rbac.ActionEdit, rbac.ObjectiveResource(objective), cycle)
	if err != nil {
		h.fail(c, "evaluate link", err)
		return
	}
	if !decision.Allowed {
		respondDenied(c, rbac.ActionEdit, decision)
		return
	}
	recordAllowed(rbac.ActionEdit)

	err = h.db.DB().WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		repo := postgres.NewKeyResultRepository(tx)
		if err := repo.Link(c.Request.Context(), objective.ID, krID, req.Weight); err != nil {
			return err
		}
		links, err := repo.LinksForObjective(c.Request.Context(), objective.ID)
		if err != nil {
			return err
		}
		progress := model.RollupProgress(links)
		if err := postgres.NewObjectiveRepository(tx).Update(c.Request.Context(), objective.ID, map[string]interface{}{"progress_pct": progress}); err != nil {
			return err
		}
		return h.recorder.Record(c.Request.Context(), tx, audit.Entry{
			ActorUserID:    actor.UserID,
			Action:         "objective.link_key_result",
			TargetType:     rbac.TargetObjective,
			TargetID:       objective.ID,
			OrganizationID: objective.TenantID,
			Metadata:       map[string]interface{}{"keyResultId": krID.String(), "weight": req.Weight},
		})
	})
	if err != nil {
		h.fail(c, "link key result", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "linked"})
}

// load fetches the objective scoped to the actor's tenant. Missing rows and
// rows in foreign tenants both answer 404.
func (h *ObjectiveHandler) load(c *gin.Context, actor tenantctx.Identity) (*model.Objective, *model.Cycle, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		validationError(c, "id", "must be a UUID")
		return nil, nil, false
	}

	objective, err := h.objectives.GetByID(c.Request.Context(), id, tenantScope(actor))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return nil, nil, false
		}
		h.fail(c, "load objective", err)
		return nil, nil, false
	}
	return objective, objective.Cycle, true
}

func (h *ObjectiveHandler) actingTenant(c *gin.Context, actor tenantctx.Identity) (uuid.UUID, bool) {
	if actor.TenantID != nil {
		return *actor.TenantID, true
	}
	// Superusers must name the tenant they are inspecting.
	v := strings.TrimSpace(c.Query("tenantId"))
	if v == "" {
		validationError(c, "tenantId", "required for platform superusers")
		return uuid.Nil, false
	}
	parsed, err := uuid.Parse(v)
	if err != nil {
		validationError(c, "tenantId", "must be a UUID")
		return uuid.Nil, false
	}
	return parsed, true
}

func (h *ObjectiveHandler) fail(c *gin.Context, what string, err error) {
	h.logger.Error("objective handler: "+what, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
}

func mapObjective(o *model.Objective) objectiveResponse {
	return objectiveResponse{
		ID:          o.ID.String(),
		TenantID:    o.TenantID.String(),
		WorkspaceID: uuidString(o.WorkspaceID),
		TeamID:      uuidString(o.TeamID),
		CycleID:     uuidString(o.CycleID),
		OwnerID:     o.OwnerID.String(),
		Title:       o.Title,
		Description: o.Description,
		Status:      string(o.Status),
		ProgressPct: o.ProgressPct,
		IsPublished: o.IsPublished,
		Visibility:  string(o.Visibility),
		Lock:        rbac.Lock(o.IsPublished, o.Cycle),
		CreatedAt:   o.CreatedAt.UTC().Format(timeRFC3339Nano),
		UpdatedAt:   o.UpdatedAt.UTC().Format(timeRFC3339Nano),
	}
}
