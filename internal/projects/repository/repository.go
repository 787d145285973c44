package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/cutroom/cutroom-backend/internal/projects/domain"
)

// ErrDuplicateID is returned by Insert when the public ID is taken. The
// service retries with a fresh ID.
var ErrDuplicateID = errors.New("project id already exists")

// Repository persists projects. Writes are conditional on the version the
// caller read; a mismatch returns a conflict error and changes nothing.
type Repository interface {
	Get(ctx context.Context, id string) (*domain.Project, error)
	// Insert stores a new project at version 1.
	Insert(ctx context.Context, p *domain.Project) error
	// Put replaces the stored project when its version equals
	// expectedVersion, and advances p.Version on success.
	Put(ctx context.Context, p *domain.Project, expectedVersion int64) error
	QueryByParticipant(ctx context.Context, userID string, q domain.ListQuery) ([]*domain.Project, error)
	ProjectIDsByParticipant(ctx context.Context, userID string) ([]string, error)
	Delete(ctx context.Context, id string, expectedVersion int64) error
	CountByStatus(ctx context.Context) (map[domain.Status]int, error)
}

func notFound(op, id string) error {
	return &domain.Error{Kind: domain.KindNotFound, Op: op, Detail: "project not found", Fields: map[string]string{"id": id}}
}

func staleVersion(op, id string, expected, actual int64) error {
	return &domain.Error{
		Kind:   domain.KindConflict,
		Op:     op,
		Detail: "project was modified concurrently",
		Fields: map[string]string{
			"id":       id,
			"expected": fmt.Sprint(expected),
			"actual":   fmt.Sprint(actual),
		},
	}
}

// lostRace reports a write that lost to a concurrent one between read and
// commit.
func lostRace(op, id string) error {
	return &domain.Error{
		Kind:   domain.KindConflict,
		Op:     op,
		Detail: "project was modified concurrently",
		Fields: map[string]string{"id": id},
	}
}

// checkHistory rejects writes that would drop entries from the feedback
// history already stored.
func checkHistory(op string, stored int, next []domain.Feedback) error {
	if len(next) < stored {
		return domain.Validation(op, "feedback", "feedback history is append-only")
	}
	return nil
}

// upstream tags a store failure that carries no kind as UpstreamFailure.
// Errors that already have a kind only get op attached.
func upstream(op string, err error) error {
	if err == nil || errors.Is(err, ErrDuplicateID) {
		return err
	}
	var derr *domain.Error
	if errors.As(err, &derr) {
		return domain.WithOp(op, err)
	}
	return domain.Wrap(domain.KindUpstream, op, err)
}
