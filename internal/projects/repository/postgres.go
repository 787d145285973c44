package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cutroom/cutroom-backend/internal/projects/domain"
)

const projectColumns = `
p.id, p.title, p.description, p.owner_id, coalesce(p.assignee_id, ''),
p.media_url, p.thumbnail_url, p.tags, p.status, p.metadata,
p.version, p.created_at, p.updated_at`

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresRepository stores projects in Postgres. Feedback entries and the
// participant index live in their own tables and are written in the same
// transaction as the project row.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*domain.Project, error) {
	row := r.pool.QueryRow(ctx, `select `+projectColumns+` from projects p where p.id = $1`, id)
	p, err := scanProject(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound("projects.get", id)
	}
	if err != nil {
		return nil, upstream("projects.get", fmt.Errorf("failed to get project: %w", err))
	}

	fb, err := loadFeedback(ctx, r.pool, []string{id})
	if err != nil {
		return nil, upstream("projects.get", err)
	}
	p.Feedback = fb[id]
	return p, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, p *domain.Project) error {
	md, err := metadataParam(p.Metadata)
	if err != nil {
		return classifyWriteError("projects.insert", err)
	}

	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
insert into projects (
  id, title, description, owner_id, assignee_id,
  media_url, thumbnail_url, tags, status, metadata,
  version, created_at, updated_at
)
values ($1, $2, $3, $4, nullif($5, ''), $6, $7, $8, $9, nullif($10, '')::jsonb, 1, $11, $12)
`, p.ID, p.Title, p.Description, p.OwnerID, p.AssigneeID,
			p.MediaURL, p.ThumbnailURL, tagsParam(p.Tags), string(p.Status), md,
			p.CreatedAt, p.UpdatedAt)
		if err != nil {
			return err
		}
		if err := insertFeedback(ctx, tx, p.ID, 0, p.Feedback); err != nil {
			return err
		}
		return replaceParticipants(ctx, tx, p)
	})
	if err != nil {
		return classifyWriteError("projects.insert", err)
	}
	p.Version = 1
	return nil
}

func (r *PostgresRepository) Put(ctx context.Context, p *domain.Project, expectedVersion int64) error {
	md, err := metadataParam(p.Metadata)
	if err != nil {
		return classifyWriteError("projects.put", err)
	}

	var next int64
	err = pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
update projects
set title = $3,
    description = $4,
    assignee_id = nullif($5, ''),
    media_url = $6,
    thumbnail_url = $7,
    tags = $8,
    status = $9,
    metadata = nullif($10, '')::jsonb,
    updated_at = $11,
    version = version + 1
where id = $1 and version = $2
returning version
`, p.ID, expectedVersion, p.Title, p.Description, p.AssigneeID,
			p.MediaURL, p.ThumbnailURL, tagsParam(p.Tags), string(p.Status), md,
			p.UpdatedAt).Scan(&next)
		if errors.Is(err, pgx.ErrNoRows) {
			return r.missOrStale(ctx, tx, "projects.put", p.ID, expectedVersion)
		}
		if err != nil {
			return err
		}

		var stored int
		if err := tx.QueryRow(ctx, `select count(*) from project_feedback where project_id = $1`, p.ID).Scan(&stored); err != nil {
			return err
		}
		if err := checkHistory("projects.put", stored, p.Feedback); err != nil {
			return err
		}
		if err := insertFeedback(ctx, tx, p.ID, stored, p.Feedback[stored:]); err != nil {
			return err
		}
		return replaceParticipants(ctx, tx, p)
	})
	if err != nil {
		return classifyWriteError("projects.put", err)
	}
	p.Version = next
	return nil
}

func (r *PostgresRepository) QueryByParticipant(ctx context.Context, userID string, q domain.ListQuery) ([]*domain.Project, error) {
	var limit any
	if q.Limit > 0 {
		limit = q.Limit
	}

	rows, err := r.pool.Query(ctx, `
select `+projectColumns+`
from projects p
join project_participants pp on pp.project_id = p.id
where pp.user_id = $1
  and ($2 = '' or p.status = $2)
order by p.created_at desc, p.id desc
limit $3
`, userID, string(q.Status), limit)
	if err != nil {
		return nil, upstream("projects.query", fmt.Errorf("failed to list projects: %w", err))
	}
	defer rows.Close()

	out := make([]*domain.Project, 0, 16)
	ids := make([]string, 0, 16)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, upstream("projects.query", fmt.Errorf("failed to scan project: %w", err))
		}
		out = append(out, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, upstream("projects.query", fmt.Errorf("failed to list projects: %w", err))
	}
	if len(ids) == 0 {
		return out, nil
	}

	fb, err := loadFeedback(ctx, r.pool, ids)
	if err != nil {
		return nil, upstream("projects.query", err)
	}
	for _, p := range out {
		p.Feedback = fb[p.ID]
	}
	return out, nil
}

func (r *PostgresRepository) ProjectIDsByParticipant(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
select p.id
from projects p
join project_participants pp on pp.project_id = p.id
where pp.user_id = $1
order by p.created_at desc, p.id desc
`, userID)
	if err != nil {
		return nil, upstream("projects.participant_ids", fmt.Errorf("failed to list project ids: %w", err))
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, upstream("projects.participant_ids", fmt.Errorf("failed to list project ids: %w", err))
	}
	return ids, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string, expectedVersion int64) error {
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `delete from projects where id = $1 and version = $2`, id, expectedVersion)
		if err != nil {
			return fmt.Errorf("failed to delete project: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return r.missOrStale(ctx, tx, "projects.delete", id, expectedVersion)
		}
		return nil
	})
	return upstream("projects.delete", err)
}

func (r *PostgresRepository) CountByStatus(ctx context.Context) (map[domain.Status]int, error) {
	rows, err := r.pool.Query(ctx, `select status, count(*) from projects group by status`)
	if err != nil {
		return nil, upstream("projects.count", fmt.Errorf("failed to count projects: %w", err))
	}
	defer rows.Close()

	out := make(map[domain.Status]int, len(domain.AllStatuses))
	for _, s := range domain.AllStatuses {
		out[s] = 0
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, upstream("projects.count", fmt.Errorf("failed to count projects: %w", err))
		}
		out[domain.Status(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, upstream("projects.count", err)
	}
	return out, nil
}

// missOrStale explains why a conditional write matched no row.
func (r *PostgresRepository) missOrStale(ctx context.Context, tx pgx.Tx, op, id string, expected int64) error {
	var actual int64
	err := tx.QueryRow(ctx, `select version from projects where id = $1`, id).Scan(&actual)
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound(op, id)
	}
	if err != nil {
		return err
	}
	return staleVersion(op, id, expected, actual)
}

func insertFeedback(ctx context.Context, tx pgx.Tx, projectID string, firstSeq int, entries []domain.Feedback) error {
	if len(entries) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for i, f := range entries {
		batch.Queue(`
insert into project_feedback (project_id, seq, id, author_id, message, created_at)
values ($1, $2, $3, $4, $5, $6)
on conflict (project_id, seq) do nothing
`, projectID, firstSeq+i, f.ID, f.AuthorID, f.Message, f.Timestamp)
	}
	return tx.SendBatch(ctx, batch).Close()
}

func replaceParticipants(ctx context.Context, tx pgx.Tx, p *domain.Project) error {
	if _, err := tx.Exec(ctx, `delete from project_participants where project_id = $1`, p.ID); err != nil {
		return err
	}
	for _, uid := range p.Participants() {
		role, _ := p.RoleOf(uid)
		if _, err := tx.Exec(ctx, `
insert into project_participants (project_id, user_id, role)
values ($1, $2, $3)
`, p.ID, uid, string(role)); err != nil {
			return err
		}
	}
	return nil
}

func loadFeedback(ctx context.Context, q querier, ids []string) (map[string][]domain.Feedback, error) {
	rows, err := q.Query(ctx, `
select project_id, id, author_id, message, created_at
from project_feedback
where project_id = any($1)
order by project_id, seq
`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load feedback: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.Feedback, len(ids))
	for rows.Next() {
		var pid string
		var f domain.Feedback
		if err := rows.Scan(&pid, &f.ID, &f.AuthorID, &f.Message, &f.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		f.Timestamp = f.Timestamp.UTC()
		out[pid] = append(out[pid], f)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner) (*domain.Project, error) {
	var p domain.Project
	var status string
	var metadata []byte
	err := row.Scan(
		&p.ID, &p.Title, &p.Description, &p.OwnerID, &p.AssigneeID,
		&p.MediaURL, &p.ThumbnailURL, &p.Tags, &status, &metadata,
		&p.Version, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Status = domain.Status(status)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if len(metadata) > 0 {
		var md domain.MediaMetadata
		if err := json.Unmarshal(metadata, &md); err != nil {
			return nil, fmt.Errorf("failed to decode metadata: %w", err)
		}
		p.Metadata = &md
	}
	return &p, nil
}

func metadataParam(md *domain.MediaMetadata) (string, error) {
	if md == nil {
		return "", nil
	}
	b, err := json.Marshal(md)
	if err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}
	return string(b), nil
}

// tagsParam keeps the column non-null; pgx encodes a nil slice as NULL.
func tagsParam(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func classifyWriteError(op string, err error) error {
	var derr *domain.Error
	if errors.As(err, &derr) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			if pgErr.ConstraintName == "projects_pkey" {
				return ErrDuplicateID
			}
		case "23514":
			return domain.Validation(op, pgErr.ConstraintName, pgErr.Message)
		}
	}
	return domain.Wrap(domain.KindUpstream, op, err)
}
