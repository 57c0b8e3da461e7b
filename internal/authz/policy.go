package authz

import (
	"github.com/gradhub/thesis-api/internal/models"
	appErrors "github.com/gradhub/thesis-api/pkg/errors"
)

// Action is a workflow operation subject to authorization.
type Action string

const (
	ActionThesisView          Action = "thesis.view"
	ActionThesisEdit          Action = "thesis.edit"
	ActionThesisDelete        Action = "thesis.delete"
	ActionThesisRotateSecret  Action = "thesis.rotate_password"
	ActionThesisClose         Action = "thesis.close"
	ActionThesisManageMembers Action = "thesis.manage_members"

	ActionRequestCreate   Action = "request.create"
	ActionRequestDecide   Action = "request.decide"
	ActionRequestWithdraw Action = "request.withdraw"

	ActionTaskCreate        Action = "task.create"
	ActionTaskEdit          Action = "task.edit"
	ActionTaskDelete        Action = "task.delete"
	ActionSubmissionCreate  Action = "submission.create"
	ActionSubmissionReview  Action = "submission.review"
	ActionAppointmentCreate Action = "appointment.create"
	ActionAppointmentDecide Action = "appointment.decide"
	ActionAppointmentDelete Action = "appointment.delete"
)

// Facts carries the relationship and state facts a decision depends on.
// Services load them from the repositories before consulting the policy, so
// every handler shares one authorization path instead of re-deriving the
// role/relationship checks inline.
type Facts struct {
	IsMember      bool
	IsCreator     bool
	IsSupervisor  bool
	IsAssigner    bool
	IsAddressee   bool
	ThesisStatus  models.ThesisStatus
	HasSupervisor bool
}

// Can returns nil when the actor role with the given facts may perform the
// action, and a typed Forbidden/Conflict error otherwise.
func Can(role models.UserRole, action Action, f Facts) error {
	if role == models.RoleAdmin {
		return adminCan(action, f)
	}

	switch action {
	case ActionThesisView:
		if f.IsMember || f.IsSupervisor {
			return nil
		}

	case ActionThesisEdit, ActionThesisRotateSecret:
		// Creator-student, current supervisor, or admin; any status.
		if f.IsCreator || f.IsSupervisor {
			return nil
		}

	case ActionThesisDelete:
		if role != models.RoleStudent || !f.IsCreator {
			break
		}
		return deletableState(f)

	case ActionThesisClose:
		if role == models.RoleFaculty && f.IsSupervisor {
			return nil
		}

	case ActionThesisManageMembers:
		if role == models.RoleStudent && f.IsCreator {
			return nil
		}

	case ActionRequestCreate:
		if role != models.RoleStudent || !f.IsMember {
			break
		}
		if f.HasSupervisor {
			return appErrors.ErrSupervisorAssigned
		}
		if f.ThesisStatus != models.ThesisStatusPendingSupervisor {
			return appErrors.Clone(appErrors.ErrConflict, "thesis is not awaiting a supervisor")
		}
		return nil

	case ActionRequestDecide:
		if role == models.RoleFaculty && f.IsAddressee {
			return nil
		}

	case ActionRequestWithdraw:
		if role == models.RoleStudent && f.IsCreator {
			return nil
		}

	case ActionTaskCreate, ActionTaskEdit:
		if role != models.RoleFaculty || !f.IsSupervisor {
			break
		}
		if f.ThesisStatus == models.ThesisStatusInactive {
			return appErrors.ErrThesisClosed
		}
		return nil

	case ActionTaskDelete, ActionSubmissionReview:
		if role == models.RoleFaculty && f.IsAssigner {
			return nil
		}

	case ActionSubmissionCreate:
		if role == models.RoleStudent && f.IsMember {
			return nil
		}

	case ActionAppointmentCreate:
		if role != models.RoleStudent || !f.IsMember {
			break
		}
		if f.ThesisStatus != models.ThesisStatusActive || !f.HasSupervisor {
			return appErrors.Clone(appErrors.ErrForbidden, "thesis must be active with a supervisor to request an appointment")
		}
		return nil

	case ActionAppointmentDecide:
		if role == models.RoleFaculty && f.IsSupervisor {
			return nil
		}

	case ActionAppointmentDelete:
		if f.IsMember || f.IsSupervisor {
			return nil
		}
	}

	return appErrors.ErrForbidden
}

func adminCan(action Action, f Facts) error {
	switch action {
	case ActionThesisDelete:
		return deletableState(f)
	case ActionThesisClose, ActionRequestDecide, ActionRequestCreate,
		ActionTaskCreate, ActionTaskEdit, ActionTaskDelete,
		ActionSubmissionCreate, ActionSubmissionReview,
		ActionAppointmentCreate, ActionAppointmentDecide:
		// Admins administer records but never act inside the supervision
		// workflow itself.
		return appErrors.ErrForbidden
	default:
		return nil
	}
}

// deletableState enforces that a thesis is only removable before a supervisor
// was ever assigned, regardless of caller role.
func deletableState(f Facts) error {
	if f.HasSupervisor {
		return appErrors.ErrSupervisorAssigned
	}
	if f.ThesisStatus != models.ThesisStatusPendingSupervisor {
		return appErrors.Clone(appErrors.ErrConflict, "only theses awaiting a supervisor can be deleted")
	}
	return nil
}
