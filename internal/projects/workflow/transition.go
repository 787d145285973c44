// Package workflow holds the review state machine. It is the only place
// that decides whether a project's status may change.
package workflow

import (
	"github.com/samber/lo"

	"github.com/cutroom/cutroom-backend/internal/projects/domain"
)

// table maps a participant role and a current status to the statuses that
// role may move the project to.
var table = map[domain.Role]map[domain.Status][]domain.Status{
	domain.RoleEditor: {
		domain.StatusDraft:            {domain.StatusInReview},
		domain.StatusChangesRequested: {domain.StatusInReview},
	},
	domain.RoleYoutuber: {
		domain.StatusInReview: {domain.StatusApproved, domain.StatusChangesRequested},
	},
}

// Transition validates a status change requested by a participant acting
// in role. It returns the new status, or an invalid_transition error.
func Transition(role domain.Role, from, to domain.Status) (domain.Status, error) {
	if lo.Contains(table[role][from], to) {
		return to, nil
	}
	return "", domain.InvalidTransition(from, to, role)
}

// AllowedTargets lists the statuses role may move a project in from to.
func AllowedTargets(role domain.Role, from domain.Status) []domain.Status {
	return append([]domain.Status{}, table[role][from]...)
}
