package http

import (
	"context"
	"time"

	"github.com/cutroom/cutroom-backend/internal/projects/domain"
	"github.com/cutroom/cutroom-backend/internal/projects/notify"
	"github.com/cutroom/cutroom-backend/internal/projects/service"
)

// Projects is the subset of the project service the handlers call.
type Projects interface {
	CreateProject(ctx context.Context, ownerID string, in service.CreateInput) (*domain.Project, error)
	GetProject(ctx context.Context, actorID, id string) (*domain.Project, error)
	ListProjects(ctx context.Context, actorID string, q domain.ListQuery) ([]*domain.Project, error)
	UpdateMetadata(ctx context.Context, actorID, id string, patch service.MetadataPatch) (*domain.Project, error)
	ChangeStatus(ctx context.Context, actorID, id string, change service.StatusChange) (*domain.Project, error)
	AddFeedback(ctx context.Context, actorID, id, message string) (*domain.Project, error)
	DeleteProject(ctx context.Context, actorID, id string) error
}

// Handler bundles the dependencies for projects HTTP endpoints.
type Handler struct {
	projects  Projects
	events    notify.Subscriber
	keepAlive time.Duration
}

// New builds the handler. events may be nil, in which case the event
// stream answers 503.
func New(projects Projects, events notify.Subscriber) *Handler {
	return &Handler{projects: projects, events: events, keepAlive: 15 * time.Second}
}

type feedbackReq struct {
	Message string `json:"message"`
}

// projectView adds the caller's next legal statuses to the snapshot.
type projectView struct {
	*domain.Project
	AllowedTransitions []domain.Status `json:"allowed_transitions"`
}
