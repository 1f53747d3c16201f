// Package access holds the panel's permission policy. Every view and
// mutation goes through Authorize; there are no role comparisons elsewhere.
package access

import (
	"context"
	"fmt"

	"arenapanel/internal/models"
)

type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
	// ActionAssignRole covers granting or changing a user's role.
	ActionAssignRole Action = "assign_role"
)

// Actions lists every action in the capability table.
var Actions = []Action{ActionView, ActionCreate, ActionEdit, ActionDelete, ActionAssignRole}

type Reason string

const (
	ReasonUnauthenticated       Reason = "unauthenticated"
	ReasonInsufficientRole      Reason = "insufficient_role"
	ReasonSelfDeletionForbidden Reason = "self_deletion_forbidden"
)

// DeniedError is returned by Authorize when an action is not permitted.
type DeniedError struct {
	Reason Reason
	Role   models.Role
	Action Action
}

func (e *DeniedError) Error() string {
	switch e.Reason {
	case ReasonUnauthenticated:
		return "login required"
	case ReasonSelfDeletionForbidden:
		return "you cannot delete your own account"
	default:
		role := string(e.Role)
		if role == "" {
			role = "user"
		}
		return fmt.Sprintf("role %s may not %s", role, e.Action)
	}
}

var capabilities = map[models.Role]map[Action]bool{
	models.RoleAdmin: {
		ActionView:   true,
		ActionCreate: true,
		ActionEdit:   true,
	},
	models.RoleSuperadmin: {
		ActionView:       true,
		ActionCreate:     true,
		ActionEdit:       true,
		ActionDelete:     true,
		ActionAssignRole: true,
	},
}

// Session is the authenticated actor behind a request. The zero value is a
// guest.
type Session struct {
	ID            string      `json:"-"`
	UserID        int64       `json:"user_id"`
	Role          models.Role `json:"role"`
	Authenticated bool        `json:"authenticated"`
}

// Guest is the unauthenticated session.
var Guest = Session{}

// Authorize applies the capability table. A nil result means permitted.
// Self-deletion is refused before anything else is considered.
func Authorize(session Session, action Action, isSelf bool) error {
	if action == ActionDelete && isSelf {
		return &DeniedError{Reason: ReasonSelfDeletionForbidden, Role: session.Role, Action: action}
	}
	if !session.Authenticated {
		return &DeniedError{Reason: ReasonUnauthenticated, Role: session.Role, Action: action}
	}
	if !capabilities[session.Role][action] {
		return &DeniedError{Reason: ReasonInsufficientRole, Role: session.Role, Action: action}
	}
	return nil
}

// Can is Authorize as a predicate.
func Can(session Session, action Action) bool {
	return Authorize(session, action, false) == nil
}

// Permissions reports, for every action, whether the session may perform it.
func Permissions(session Session) map[Action]bool {
	perms := make(map[Action]bool, len(Actions))
	for _, a := range Actions {
		perms[a] = Can(session, a)
	}
	return perms
}

type sessionKey struct{}

// WithSession attaches the session to ctx for transport layers. Services take
// the session as an explicit argument instead of reading it from ctx.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext returns the attached session or Guest.
func FromContext(ctx context.Context) Session {
	if s, ok := ctx.Value(sessionKey{}).(Session); ok {
		return s
	}
	return Guest
}
