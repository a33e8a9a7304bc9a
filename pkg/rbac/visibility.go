package rbac

import (
	"github.com/alignhq/align/pkg/model"
	"github.com/alignhq/align/pkg/tenantctx"
)

// Verdict is the classifier's output. Private and ExecOnly mark which
// visibility rule blocked the viewer, feeding the explain surface.
type Verdict struct {
	Visible  bool
	Private  bool
	ExecOnly bool
}

// Classify decides whether the viewer may see the resource, independent of
// edit rights. Pure over its inputs. Ownership opens every level except
// published EXEC_ONLY, where whitelist membership (or the admin policy) is
// the only way in.
func Classify(user tenantctx.Identity, roles RoleSet, facts ViewerFacts, res Resource, policy TenantPolicy) Verdict {
	if user.Superuser {
		return Verdict{Visible: true}
	}
	owner := user.UserID == res.OwnerID

	switch res.Visibility {
	case model.VisibilityPublicTenant:
		return Verdict{Visible: owner || len(roles) > 0}

	case model.VisibilityPrivate:
		if owner || facts.HasAccessGrant || roles.TenantAdmin() {
			return Verdict{Visible: true}
		}
		return Verdict{Private: true}

	case model.VisibilityExecOnly:
		// Unpublished exec-only rows behave like PRIVATE; the strict
		// whitelist rule applies once published and exempts nobody,
		// the owner included.
		if !res.Published {
			if owner || facts.HasAccessGrant || roles.TenantAdmin() {
				return Verdict{Visible: true}
			}
			return Verdict{Private: true}
		}
		if facts.InExecWhitelist {
			return Verdict{Visible: true}
		}
		if roles.TenantAdmin() && policy.AllowTenantAdminExecVisibility {
			return Verdict{Visible: true}
		}
		return Verdict{ExecOnly: true}

	case model.VisibilityWorkspaceOnly:
		visible := owner || facts.InWorkspace || roles.TenantAdmin()
		return Verdict{Visible: visible, Private: !visible}

	case model.VisibilityTeamOnly:
		visible := owner || facts.InTeam || roles.TenantAdmin()
		return Verdict{Visible: visible, Private: !visible}

	case model.VisibilityManagerChain:
		visible := owner || facts.InManagerChain || roles.TenantAdmin()
		return Verdict{Visible: visible, Private: !visible}

	default:
		// Unknown level: fail closed.
		return Verdict{Private: true}
	}
}

// visibilityApplies lists the actions that require the resource to be
// visible to the actor. A user cannot edit, delete, publish or check in on
// what they cannot see.
func visibilityApplies(action Action) bool {
	switch action {
	case ActionView, ActionEdit, ActionDelete, ActionCheckIn, ActionPublish, ActionUnpublish:
		return true
	default:
		return false
	}
}
