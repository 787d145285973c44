// Package access decides who may do what to a project. Evaluate is a pure
// function of its inputs and never touches storage.
package access

import (
	"fmt"

	"github.com/cutroom/cutroom-backend/internal/projects/domain"
	"github.com/cutroom/cutroom-backend/internal/projects/workflow"
)

// ActionKind names an operation a participant can request.
type ActionKind string

const (
	ActionRead             ActionKind = "read"
	ActionEditMetadata     ActionKind = "edit_metadata"
	ActionTransitionStatus ActionKind = "transition_status"
	ActionAppendFeedback   ActionKind = "append_feedback"
	ActionDelete           ActionKind = "delete"
)

// Action is a requested operation; To is only meaningful for transitions.
type Action struct {
	Kind ActionKind
	To   domain.Status
}

func Read() Action           { return Action{Kind: ActionRead} }
func EditMetadata() Action   { return Action{Kind: ActionEditMetadata} }
func AppendFeedback() Action { return Action{Kind: ActionAppendFeedback} }
func Delete() Action         { return Action{Kind: ActionDelete} }

func TransitionStatus(to domain.Status) Action {
	return Action{Kind: ActionTransitionStatus, To: to}
}

// Evaluate returns nil when actorID may perform action on p, and a
// *domain.Error describing the denial otherwise.
func Evaluate(actorID string, p *domain.Project, action Action) error {
	role, participant := p.RoleOf(actorID)
	if !participant {
		return domain.E(domain.KindNotParticipant, "", "actor is neither owner nor assignee")
	}

	switch action.Kind {
	case ActionRead, ActionEditMetadata, ActionAppendFeedback:
		return nil
	case ActionDelete:
		if role != domain.RoleYoutuber {
			return domain.E(domain.KindOwnerOnly, "", "only the owner can delete a project")
		}
		return nil
	case ActionTransitionStatus:
		_, err := workflow.Transition(role, p.Status, action.To)
		return err
	}
	return domain.E(domain.KindValidation, "", fmt.Sprintf("unknown action %q", action.Kind))
}
