package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/cutroom/cutroom-backend/internal/logging"
	"github.com/cutroom/cutroom-backend/internal/metrics"
	"github.com/cutroom/cutroom-backend/internal/projects/access"
	"github.com/cutroom/cutroom-backend/internal/projects/domain"
	"github.com/cutroom/cutroom-backend/internal/projects/feedback"
	"github.com/cutroom/cutroom-backend/internal/projects/notify"
	"github.com/cutroom/cutroom-backend/internal/projects/repository"
)

const maxIDAttempts = 5

// UserDirectory resolves the role a user registered with. It returns a
// not_found error when the user has no profile.
type UserDirectory interface {
	RoleOf(ctx context.Context, userID string) (domain.Role, error)
}

// Dependencies wires a ProjectService. Only Repo is required.
type Dependencies struct {
	Repo      repository.Repository
	Publisher notify.Publisher
	Users     UserDirectory
	Metrics   *metrics.Metrics
	Now       func() time.Time
	NewID     func() (string, error)
}

// ProjectService runs every project operation through the access check and
// the transition table, stores the result conditionally on the version it
// read, and publishes the new snapshot.
type ProjectService struct {
	repo      repository.Repository
	publisher notify.Publisher
	users     UserDirectory
	metrics   *metrics.Metrics
	now       func() time.Time
	newID     func() (string, error)
	validate  *validator.Validate
}

func NewProjectService(d Dependencies) *ProjectService {
	s := &ProjectService{
		repo:      d.Repo,
		publisher: d.Publisher,
		users:     d.Users,
		metrics:   d.Metrics,
		now:       d.Now,
		newID:     d.NewID,
		validate:  newValidator(),
	}
	if s.publisher == nil {
		s.publisher = notify.NoopPublisher{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = func() (string, error) { return domain.NewPublicID(domain.ProjectIDPrefix) }
	}
	return s
}

// CreateProject stores a new draft owned by ownerID.
func (s *ProjectService) CreateProject(ctx context.Context, ownerID string, in CreateInput) (p *domain.Project, err error) {
	const op = "project.create"
	defer s.observe(ctx, op, &err)

	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, domain.Validation(op, "owner_id", "is required")
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.MediaURL = strings.TrimSpace(in.MediaURL)
	in.ThumbnailURL = strings.TrimSpace(in.ThumbnailURL)
	in.AssigneeID = strings.TrimSpace(in.AssigneeID)
	in.Tags = domain.NormalizeTags(in.Tags)
	if err := s.validate.StructCtx(ctx, in); err != nil {
		return nil, toDomain(op, err)
	}
	if in.AssigneeID == ownerID {
		return nil, domain.Validation(op, "assignee_id", "assignee must differ from owner")
	}
	if err := s.checkOwnerRole(ctx, op, ownerID); err != nil {
		return nil, err
	}
	if in.AssigneeID != "" {
		if err := s.checkEditor(ctx, op, in.AssigneeID); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	p = &domain.Project{
		Title:        in.Title,
		Description:  in.Description,
		OwnerID:      ownerID,
		AssigneeID:   in.AssigneeID,
		MediaURL:     in.MediaURL,
		ThumbnailURL: in.ThumbnailURL,
		Tags:         in.Tags,
		Status:       domain.StatusDraft,
		Metadata:     in.Metadata,
		Feedback:     []domain.Feedback{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	for i := 0; i < maxIDAttempts; i++ {
		id, err := s.newID()
		if err != nil {
			return nil, domain.Wrap(domain.KindUpstream, op, err)
		}
		p.ID = id
		err = s.repo.Insert(ctx, p)
		if err == nil {
			logging.New(ctx).Infof(op, "project %s created by %s", p.ID, ownerID)
			s.publish(ctx, notify.EventUpdate, p)
			return p, nil
		}
		// public id collision → retry
		if errors.Is(err, repository.ErrDuplicateID) {
			continue
		}
		return nil, domain.WithOp(op, err)
	}
	return nil, domain.E(domain.KindConflict, op, "failed to generate unique project id")
}

// GetProject returns the project when actorID participates in it.
func (s *ProjectService) GetProject(ctx context.Context, actorID, id string) (p *domain.Project, err error) {
	const op = "project.get"
	defer s.observe(ctx, op, &err)

	return s.authorized(ctx, op, actorID, id, access.Read())
}

// ListProjects returns the projects actorID owns or is assigned to,
// newest first.
func (s *ProjectService) ListProjects(ctx context.Context, actorID string, q domain.ListQuery) (out []*domain.Project, err error) {
	const op = "project.list"
	defer s.observe(ctx, op, &err)

	if q.Status != "" && !q.Status.Valid() {
		return nil, domain.Validation(op, "status", "unknown status")
	}
	if q.Limit < 0 {
		return nil, domain.Validation(op, "limit", "must not be negative")
	}
	out, err = s.repo.QueryByParticipant(ctx, actorID, q)
	if err != nil {
		return nil, domain.WithOp(op, err)
	}
	return out, nil
}

// UpdateMetadata applies a partial update. Either participant may edit the
// descriptive fields; only the owner may change the assignee.
func (s *ProjectService) UpdateMetadata(ctx context.Context, actorID, id string, patch MetadataPatch) (p *domain.Project, err error) {
	const op = "project.update_metadata"
	defer s.observe(ctx, op, &err)

	cur, err := s.authorized(ctx, op, actorID, id, access.EditMetadata())
	if err != nil {
		return nil, err
	}
	if err := checkVersion(op, cur, patch.ExpectedVersion); err != nil {
		return nil, err
	}

	next := cur.Clone()
	if err := s.applyPatch(ctx, op, actorID, next, patch); err != nil {
		return nil, err
	}
	if !changed(cur, next) {
		return cur, nil
	}
	next.Touch(s.now())

	if err := s.repo.Put(ctx, next, cur.Version); err != nil {
		return nil, domain.WithOp(op, err)
	}
	s.publish(ctx, notify.EventUpdate, next)
	return next, nil
}

// ChangeStatus moves the project through the review workflow. A non-empty
// message is appended as feedback in the same write.
func (s *ProjectService) ChangeStatus(ctx context.Context, actorID, id string, change StatusChange) (p *domain.Project, err error) {
	const op = "project.change_status"
	defer s.observe(ctx, op, &err)

	if !change.To.Valid() {
		return nil, domain.Validation(op, "to", "unknown status")
	}
	cur, err := s.authorized(ctx, op, actorID, id, access.Read())
	if err != nil {
		return nil, err
	}
	if err := checkVersion(op, cur, change.ExpectedVersion); err != nil {
		return nil, err
	}
	if err := access.Evaluate(actorID, cur, access.TransitionStatus(change.To)); err != nil {
		return nil, domain.WithOp(op, err)
	}
	if change.To == domain.StatusInReview && !cur.MediaReady() {
		return nil, domain.Validation(op, "thumbnail_url", "media and thumbnail are required before review")
	}

	now := s.now()
	next := cur.Clone()
	if strings.TrimSpace(change.Message) != "" {
		next, _, err = feedback.Append(next, actorID, change.Message, now)
		if err != nil {
			return nil, domain.WithOp(op, err)
		}
	}
	next.Status = change.To
	next.Touch(now)

	if err := s.repo.Put(ctx, next, cur.Version); err != nil {
		return nil, domain.WithOp(op, err)
	}
	logging.New(ctx).Infof(op, "project %s moved %s -> %s by %s", id, cur.Status, next.Status, actorID)
	s.publish(ctx, notify.EventUpdate, next)
	return next, nil
}

// AddFeedback appends a note from actorID to the project's history.
func (s *ProjectService) AddFeedback(ctx context.Context, actorID, id, message string) (p *domain.Project, err error) {
	const op = "project.add_feedback"
	defer s.observe(ctx, op, &err)

	cur, err := s.authorized(ctx, op, actorID, id, access.AppendFeedback())
	if err != nil {
		return nil, err
	}
	next, _, err := feedback.Append(cur, actorID, message, s.now())
	if err != nil {
		return nil, domain.WithOp(op, err)
	}
	if err := s.repo.Put(ctx, next, cur.Version); err != nil {
		return nil, domain.WithOp(op, err)
	}
	s.publish(ctx, notify.EventUpdate, next)
	return next, nil
}

// DeleteProject removes the project. Only the owner may delete, in any
// status.
func (s *ProjectService) DeleteProject(ctx context.Context, actorID, id string) (err error) {
	const op = "project.delete"
	defer s.observe(ctx, op, &err)

	cur, err := s.authorized(ctx, op, actorID, id, access.Delete())
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id, cur.Version); err != nil {
		return domain.WithOp(op, err)
	}
	logging.New(ctx).Infof(op, "project %s deleted by %s", id, actorID)
	s.publishDeleted(ctx, id)
	return nil
}

// StatusCounts reports how many projects sit in each status.
func (s *ProjectService) StatusCounts(ctx context.Context) (map[domain.Status]int, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	s.metrics.SetStatusCounts(counts)
	return counts, nil
}

func (s *ProjectService) authorized(ctx context.Context, op, actorID, id string, action access.Action) (*domain.Project, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, domain.WithOp(op, err)
	}
	if err := access.Evaluate(actorID, p, action); err != nil {
		return nil, domain.WithOp(op, err)
	}
	return p, nil
}

func (s *ProjectService) applyPatch(ctx context.Context, op, actorID string, next *domain.Project, patch MetadataPatch) error {
	if patch.Title.Set {
		v := strings.TrimSpace(patch.Title.Value)
		if v == "" {
			return domain.Validation(op, "title", "must not be empty")
		}
		next.Title = v
	}
	if patch.Description.Set {
		v := strings.TrimSpace(patch.Description.Value)
		if v == "" {
			return domain.Validation(op, "description", "must not be empty")
		}
		next.Description = v
	}
	if patch.MediaURL.Set {
		v := strings.TrimSpace(patch.MediaURL.Value)
		if err := s.validate.Var(v, "required,url"); err != nil {
			return domain.Validation(op, "media_url", "must be a valid URL")
		}
		next.MediaURL = v
	}
	if patch.ThumbnailURL.Set {
		v := strings.TrimSpace(patch.ThumbnailURL.Value)
		if err := s.validate.Var(v, "omitempty,url"); err != nil {
			return domain.Validation(op, "thumbnail_url", "must be a valid URL")
		}
		next.ThumbnailURL = v
	}
	if patch.Tags.Set {
		next.Tags = domain.NormalizeTags(patch.Tags.Value)
		if next.Tags == nil {
			next.Tags = []string{}
		}
	}
	if patch.Metadata.Set {
		if md := patch.Metadata.Value; md != nil {
			if err := s.validate.StructCtx(ctx, md); err != nil {
				return toDomain(op, err)
			}
			cp := *md
			next.Metadata = &cp
		} else {
			next.Metadata = nil
		}
	}
	if patch.AssigneeID.Set {
		return s.reassign(ctx, op, actorID, next, strings.TrimSpace(patch.AssigneeID.Value))
	}
	return nil
}

func (s *ProjectService) reassign(ctx context.Context, op, actorID string, next *domain.Project, assignee string) error {
	if assignee == next.AssigneeID {
		return nil
	}
	if actorID != next.OwnerID {
		return domain.E(domain.KindOwnerOnly, op, "only the owner can change the assignee")
	}
	if next.Status == domain.StatusApproved {
		return domain.Validation(op, "assignee_id", "approved projects cannot be reassigned")
	}
	if assignee == next.OwnerID {
		return domain.Validation(op, "assignee_id", "assignee must differ from owner")
	}
	if assignee != "" {
		if err := s.checkEditor(ctx, op, assignee); err != nil {
			return err
		}
	}
	next.AssigneeID = assignee
	return nil
}

func (s *ProjectService) checkOwnerRole(ctx context.Context, op, ownerID string) error {
	if s.users == nil {
		return nil
	}
	role, err := s.users.RoleOf(ctx, ownerID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		// profile not synced yet
		return nil
	case err != nil:
		return domain.Wrap(domain.KindUpstream, op, err)
	case role != domain.RoleYoutuber:
		return domain.Validation(op, "owner_id", "only youtubers can create projects")
	}
	return nil
}

func (s *ProjectService) checkEditor(ctx context.Context, op, userID string) error {
	if s.users == nil {
		return nil
	}
	role, err := s.users.RoleOf(ctx, userID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return domain.Validation(op, "assignee_id", "unknown user")
	case err != nil:
		return domain.Wrap(domain.KindUpstream, op, err)
	case role != domain.RoleEditor:
		return domain.Validation(op, "assignee_id", "assignee must be an editor")
	}
	return nil
}

func checkVersion(op string, p *domain.Project, expected *int64) error {
	if expected == nil || *expected == p.Version {
		return nil
	}
	return domain.E(domain.KindConflict, op, "project has changed since it was read")
}

func changed(a, b *domain.Project) bool {
	if a.Title != b.Title || a.Description != b.Description ||
		a.MediaURL != b.MediaURL || a.ThumbnailURL != b.ThumbnailURL ||
		a.AssigneeID != b.AssigneeID {
		return true
	}
	if len(a.Tags) != len(b.Tags) {
		return true
	}
	for i := range a.Tags {
		if a.Tags[i] != b.Tags[i] {
			return true
		}
	}
	switch {
	case a.Metadata == nil && b.Metadata == nil:
		return false
	case a.Metadata == nil || b.Metadata == nil:
		return true
	}
	return *a.Metadata != *b.Metadata
}

func (s *ProjectService) publish(ctx context.Context, typ notify.EventType, p *domain.Project) {
	ev := notify.Event{Type: typ, ProjectID: p.ID, Project: p.Clone(), At: s.now().UTC()}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.metrics.NotifyFailed()
		logging.New(ctx).Error("project.publish", err)
	}
}

func (s *ProjectService) publishDeleted(ctx context.Context, id string) {
	ev := notify.Event{Type: notify.EventDeleted, ProjectID: id, At: s.now().UTC()}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.metrics.NotifyFailed()
		logging.New(ctx).Error("project.publish", err)
	}
}

func (s *ProjectService) observe(ctx context.Context, op string, err *error) {
	s.metrics.ObserveOperation(op, *err)
	if *err != nil && domain.KindOf(*err) == "" {
		logging.New(ctx).Error(op, *err)
	}
}
