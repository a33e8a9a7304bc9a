package rbac

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/alignhq/align/pkg/model"
	"github.com/alignhq/align/pkg/tenantctx"
)

// Store reads role assignments, tenant policy and the structural membership
// facts the pure decision functions consume. All reads happen at decision
// time with no cross-read snapshot guarantee; requests are short-lived and
// the race is accepted.
type Store struct {
	db         *gorm.DB
	chainDepth int
}

func NewStore(db *gorm.DB, chainDepth int) *Store {
	if chainDepth <= 0 {
		chainDepth = 10
	}
	return &Store{db: db, chainDepth: chainDepth}
}

// GetEffectiveRoles unions the user's assignments at the tenant scope and,
// when given, the workspace and team scopes. A tenant-scoped role is
// effective for any workspace- or team-scoped evaluation within that tenant.
// Zero assignments is not an error; it yields an empty set and the evaluator
// produces the denial.
func (s *Store) GetEffectiveRoles(ctx context.Context, userID, tenantID uuid.UUID, workspaceID, teamID *uuid.UUID) (RoleSet, error) {
	query := s.db.WithContext(ctx).Model(&model.RoleAssignment{}).
		Where("user_id = ? AND tenant_id = ?", userID, tenantID)

	scope := s.db.Where("scope_type = ? AND scope_id = ?", model.ScopeTenant, tenantID)
	if workspaceID != nil {
		scope = scope.Or("scope_type = ? AND scope_id = ?", model.ScopeWorkspace, *workspaceID)
	}
	if teamID != nil {
		scope = scope.Or("scope_type = ? AND scope_id = ?", model.ScopeTeam, *teamID)
	}

	var assignments []model.RoleAssignment
	if err := query.Where(scope).Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("load role assignments: %w", err)
	}

	set := make(RoleSet, len(assignments))
	for _, a := range assignments {
		set[a.Role.Canonical()] = struct{}{}
	}
	return set, nil
}

// GetOrganization loads the tenant row carrying policy, whitelist and
// feature flags.
func (s *Store) GetOrganization(ctx context.Context, tenantID uuid.UUID) (*model.Organization, error) {
	var org model.Organization
	if err := s.db.WithContext(ctx).First(&org, "id = ?", tenantID).Error; err != nil {
		return nil, fmt.Errorf("load organization: %w", err)
	}
	return &org, nil
}

// LoadViewerFacts gathers the membership facts for one (viewer, resource)
// pair so Classify can stay pure.
func (s *Store) LoadViewerFacts(ctx context.Context, viewer tenantctx.Identity, org *model.Organization, res Resource) (ViewerFacts, error) {
	facts := ViewerFacts{
		InExecWhitelist: org.Whitelisted(viewer.UserID),
	}

	if res.ID != uuid.Nil {
		var count int64
		err := s.db.WithContext(ctx).Model(&model.AccessGrant{}).
			Where("resource_type = ? AND resource_id = ? AND user_id = ?", res.Type, res.ID, viewer.UserID).
			Count(&count).Error
		if err != nil {
			return facts, fmt.Errorf("load access grants: %w", err)
		}
		facts.HasAccessGrant = count > 0
	}

	if res.WorkspaceID != nil {
		member, err := s.hasScopedAssignment(ctx, viewer.UserID, model.ScopeWorkspace, *res.WorkspaceID)
		if err != nil {
			return facts, err
		}
		facts.InWorkspace = member
	}
	if res.TeamID != nil {
		member, err := s.hasScopedAssignment(ctx, viewer.UserID, model.ScopeTeam, *res.TeamID)
		if err != nil {
			return facts, err
		}
		facts.InTeam = member
	}

	if res.Visibility == model.VisibilityManagerChain {
		inChain, err := s.inManagerChain(ctx, viewer.UserID, res.OwnerID)
		if err != nil {
			return facts, err
		}
		facts.InManagerChain = inChain
	}

	return facts, nil
}

func (s *Store) hasScopedAssignment(ctx context.Context, userID uuid.UUID, scopeType model.ScopeType, scopeID uuid.UUID) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.RoleAssignment{}).
		Where("user_id = ? AND scope_type = ? AND scope_id = ?", userID, scopeType, scopeID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("load scoped assignments: %w", err)
	}
	return count > 0, nil
}

// inManagerChain walks the owner's manager ancestry looking for the viewer,
// bounded by chainDepth to survive cyclic data.
func (s *Store) inManagerChain(ctx context.Context, viewerID, ownerID uuid.UUID) (bool, error) {
	current := ownerID
	for i := 0; i < s.chainDepth; i++ {
		var user model.User
		if err := s.db.WithContext(ctx).Select("id", "manager_id").First(&user, "id = ?", current).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return false, nil
			}
			return false, fmt.Errorf("walk manager chain: %w", err)
		}
		if user.ManagerID == nil {
			return false, nil
		}
		if *user.ManagerID == viewerID {
			return true, nil
		}
		current = *user.ManagerID
	}
	return false, nil
}
