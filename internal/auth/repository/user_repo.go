package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/cutroom/cutroom-backend/internal/auth/domain"
	projects "github.com/cutroom/cutroom-backend/internal/projects/domain"
)

const userColumns = `firebase_uid, email, display_name, photo_url, bio, role, created_at, updated_at, last_login_at`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var user domain.User
	var role string
	var lastLoginAt sql.NullTime

	err := row.Scan(
		&user.FirebaseUID,
		&user.Email,
		&user.DisplayName,
		&user.PhotoURL,
		&user.Bio,
		&role,
		&user.CreatedAt,
		&user.UpdatedAt,
		&lastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	user.Role = projects.Role(role)
	if lastLoginAt.Valid {
		t := lastLoginAt.Time
		user.LastLoginAt = &t
	}
	return &user, nil
}

// GetByFirebaseUID retrieves a user by their Firebase UID
func (r *UserRepository) GetByFirebaseUID(ctx context.Context, uid string) (*domain.User, error) {
	const op = "user.get"
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE firebase_uid = $1`, uid)

	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, projects.E(projects.KindNotFound, op, "user "+uid)
	}
	if err != nil {
		return nil, projects.Wrap(projects.KindUpstream, op, err)
	}
	return user, nil
}

// Create inserts a new user. A second insert for the same UID is a conflict.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	const op = "user.create"
	query := `
		INSERT INTO users (firebase_uid, email, display_name, photo_url, bio, role, last_login_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		user.FirebaseUID,
		user.Email,
		user.DisplayName,
		user.PhotoURL,
		user.Bio,
		string(user.Role),
		user.LastLoginAt,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code {
			case "23505":
				return projects.E(projects.KindConflict, op, "user "+user.FirebaseUID+" already exists")
			case "23514":
				return projects.Validation(op, "role", "must be youtuber or editor")
			}
		}
		return projects.Wrap(projects.KindUpstream, op, err)
	}
	return nil
}

// Update writes the editable profile fields and the email.
func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	const op = "user.update"
	query := `
		UPDATE users
		SET email = $2, display_name = $3, photo_url = $4, bio = $5, updated_at = NOW()
		WHERE firebase_uid = $1
		RETURNING updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		user.FirebaseUID,
		user.Email,
		user.DisplayName,
		user.PhotoURL,
		user.Bio,
	).Scan(&user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return projects.E(projects.KindNotFound, op, "user "+user.FirebaseUID)
	}
	if err != nil {
		return projects.Wrap(projects.KindUpstream, op, err)
	}
	return nil
}

// TouchLogin updates the last login timestamp
func (r *UserRepository) TouchLogin(ctx context.Context, uid string) error {
	const op = "user.touch_login"
	result, err := r.db.ExecContext(ctx, `UPDATE users SET last_login_at = NOW() WHERE firebase_uid = $1`, uid)
	if err != nil {
		return projects.Wrap(projects.KindUpstream, op, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return projects.Wrap(projects.KindUpstream, op, err)
	}
	if rowsAffected == 0 {
		return projects.E(projects.KindNotFound, op, "user "+uid)
	}
	return nil
}

// RoleOf returns the registered role of uid.
func (r *UserRepository) RoleOf(ctx context.Context, uid string) (projects.Role, error) {
	const op = "user.role"
	var role string
	err := r.db.QueryRowContext(ctx, `SELECT role FROM users WHERE firebase_uid = $1`, uid).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", projects.E(projects.KindNotFound, op, "user "+uid)
	}
	if err != nil {
		return "", projects.Wrap(projects.KindUpstream, op, err)
	}
	return projects.Role(role), nil
}
