package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/alignhq/align/pkg/audit"
	"github.com/alignhq/align/pkg/model"
	"github.com/alignhq/align/pkg/rbac"
	"github.com/alignhq/align/pkg/store/postgres"
	"github.com/alignhq/align/pkg/tenantctx"
)

// InitiativeHandler manages the work items hanging off a key result. An
// initiative carries no visibility or publish state of its own; every check
// evaluates against the parent key result, whose lock and visibility it
// inherits.
type InitiativeHandler struct {
	db          *postgres.Store
	initiatives *postgres.InitiativeRepository
	keyResults  *postgres.KeyResultRepository
	authorizer  *rbac.Authorizer
	recorder    *audit.Recorder
	logger      *zap.Logger
}

func NewInitiativeHandler(db *postgres.Store, authorizer *rbac.Authorizer, recorder *audit.Recorder, logger *zap.Logger) *InitiativeHandler {
	var gdb *gorm.DB
	if db != nil {
		gdb = db.DB()
	}
	return &InitiativeHandler{
		db:          db,
		initiatives: postgres.NewInitiativeRepository(gdb),
		keyResults:  postgres.NewKeyResultRepository(gdb),
		authorizer:  authorizer,
		recorder:    recorder,
		logger:      logger,
	}
}

type initiativeCreateRequest struct {
	Title   string  `json:"title" binding:"required"`
	OwnerID *string `json:"ownerId"`
}

type initiativeUpdateRequest struct {
	Title  *string `json:"title"`
	Status *string `json:"status"`
}

type initiativeResponse struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenantId"`
	KeyResultID string `json:"keyResultId"`
	OwnerID     string `json:"ownerId"`
	Title       string `json:"title"`
	Status      string `json:"status"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

func (h *InitiativeHandler) Create(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}

	kr, ok := h.loadKeyResult(c, actor, c.Param("id"))
	if !ok {
		return
	}

	var req initiativeCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "details": gin.H{"body": err.Error()}})
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

	decision, err := h.authorizer.CanPerform(c.Request.Context(), actor, rbac.ActionEdit, rbac.KeyResultResource(kr), kr.Cycle)
	if err != nil {
		h.fail(c, "evaluate create", err)
		return
	}
	if !decision.Allowed {
		respondDenied(c, rbac.ActionEdit, decision)
		return
	}
	recordAllowed(rbac.ActionEdit)

	initiative := &model.Initiative{
		ID:          uuid.New(),
		TenantID:    kr.TenantID,
		KeyResultID: kr.ID,
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(req.Title),
		Status:      model.StatusOnTrack,
	}

	err = h.db.DB().WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(initiative).Error; err != nil {
			return err
		}
		return h.recorder.Record(c.Request.Context(), tx, audit.Entry{
			ActorUserID:    actor.UserID,
			Action:         "initiative.create",
			TargetType:     "initiative",
			TargetID:       initiative.ID,
			OrganizationID: kr.TenantID,
			Metadata:       map[string]interface{}{"keyResultId": kr.ID.String(), "title": initiative.Title},
		})
	})
	if err != nil {
		h.fail(c, "create initiative", err)
		return
	}

	c.JSON(http.StatusCreated, mapInitiative(initiative))
}

// List returns a key result's initiatives. Seeing them requires seeing the
// key result itself; there is no finer filter below that.
func (h *InitiativeHandler) List(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}

	kr, ok := h.loadKeyResult(c, actor, c.Param("id"))
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

	initiatives, err := h.initiatives.ListForKeyResult(c.Request.Context(), kr.ID)
	if err != nil {
		h.fail(c, "list initiatives", err)
		return
	}

	response := make([]initiativeResponse, 0, len(initiatives))
	for i := range initiatives {
		response = append(response, mapInitiative(&initiatives[i]))
	}
	c.JSON(http.StatusOK, gin.H{"initiatives": response})
}

func (h *InitiativeHandler) Update(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}

	initiative, kr, ok := h.load(c, actor)
	if !ok {
		return
	}

	var req initiativeUpdateRequest
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
	if req.Status != nil {
		status := model.OKRStatus(*req.Status)
		if !model.IsValidOKRStatus(status) {
			validationError(c, "status", "unknown status")
			return
		}
		updates["status"] = status
	}
	if len(updates) == 0 {
		validationError(c, "body", "nothing to update")
		return
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
		if err := postgres.NewInitiativeRepository(tx).Update(c.Request.Context(), initiative.ID, updates); err != nil {
			return err
		}
		return h.recorder.Record(c.Request.Context(), tx, audit.Entry{
			ActorUserID:    actor.UserID,
			Action:         "initiative.update",
			TargetType:     "initiative",
			TargetID:       initiative.ID,
			OrganizationID: initiative.TenantID,
			Metadata:       map[string]interface{}{"fields": fieldNames(updates)},
		})
	})
	if err != nil {
		h.fail(c, "update initiative", err)
		return
	}

	updated, _, ok := h.load(c, actor)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, mapInitiative(updated))
}

func (h *InitiativeHandler) Delete(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}

	initiative, kr, ok := h.load(c, actor)
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

	err = h.db.DB().WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := postgres.NewInitiativeRepository(tx).Delete(c.Request.Context(), initiative.ID); err != nil {
			return err
		}
		return h.recorder.Record(c.Request.Context(), tx, audit.Entry{
			ActorUserID:    actor.UserID,
			Action:         "initiative.delete",
			TargetType:     "initiative",
			TargetID:       initiative.ID,
			OrganizationID: initiative.TenantID,
		})
	})
	if err != nil {
		h.fail(c, "delete initiative", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (h *InitiativeHandler) load(c *gin.Context, actor tenantctx.Identity) (*model.Initiative, *model.KeyResult, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		validationError(c, "id", "must be a UUID")
		return nil, nil, false
	}

	initiative, err := h.initiatives.GetByID(c.Request.Context(), id, tenantScope(actor))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return nil, nil, false
		}
		h.fail(c, "load initiative", err)
		return nil, nil, false
	}

	kr, err := h.keyResults.GetByID(c.Request.Context(), initiative.KeyResultID, tenantScope(actor))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return nil, nil, false
		}
		h.fail(c, "load key result", err)
		return nil, nil, false
	}
	return initiative, kr, true
}

func (h *InitiativeHandler) loadKeyResult(c *gin.Context, actor tenantctx.Identity, raw string) (*model.KeyResult, bool) {
	id, err := uuid.Parse(raw)
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

func (h *InitiativeHandler) fail(c *gin.Context, what string, err error) {
	h.logger.Error("initiative handler: "+what, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
}

func mapInitiative(initiative *model.Initiative) initiativeResponse {
	return initiativeResponse{
		ID:          initiative.ID.String(),
		TenantID:    initiative.TenantID.String(),
		KeyResultID: initiative.KeyResultID.String(),
		OwnerID:     initiative.OwnerID.String(),
		Title:       initiative.Title,
		Status:      string(initiative.Status),
		CreatedAt:   initiative.CreatedAt.UTC().Format(timeRFC3339Nano),
		UpdatedAt:   initiative.UpdatedAt.UTC().Format(timeRFC3339Nano),
	}
}
