package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cutroom/cutroom-backend/internal/auth/domain"
	projects "github.com/cutroom/cutroom-backend/internal/projects/domain"
)

func newMock(t *testing.T) (*UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewUserRepository(db), mock
}

var userCols = []string{"firebase_uid", "email", "display_name", "photo_url", "bio", "role", "created_at", "updated_at", "last_login_at"}

func TestGetByFirebaseUID(t *testing.T) {
	repo, mock := newMock(t)
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE firebase_uid = $1`)).
		WithArgs("yt-1").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("yt-1", "creator@example.com", "Creator", "", "makes videos", "youtuber", created, created, nil))

	u, err := repo.GetByFirebaseUID(context.Background(), "yt-1")
	require.NoError(t, err)
	assert.Equal(t, projects.RoleYoutuber, u.Role)
	assert.Equal(t, "makes videos", u.Bio)
	assert.Nil(t, u.LastLoginAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByFirebaseUID_NotFound(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE firebase_uid = $1`)).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(userCols))

	_, err := repo.GetByFirebaseUID(context.Background(), "ghost")
	assert.True(t, errors.Is(err, projects.ErrNotFound))
}

func TestCreate(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	u := &domain.User{FirebaseUID: "ed-1", Email: "ed@example.com", DisplayName: "Ed", Role: projects.RoleEditor}

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
		WithArgs("ed-1", "ed@example.com", "Ed", "", "", "editor", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	require.NoError(t, repo.Create(context.Background(), u))
	assert.Equal(t, now, u.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_Duplicate(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_pkey"})

	err := repo.Create(context.Background(), &domain.User{FirebaseUID: "ed-1", Role: projects.RoleEditor})
	assert.True(t, errors.Is(err, projects.ErrConflict))
}

func TestCreate_DriverFailureIsUpstream(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
		WillReturnError(errors.New("connection reset"))

	err := repo.Create(context.Background(), &domain.User{FirebaseUID: "ed-1", Role: projects.RoleEditor})
	assert.Equal(t, projects.KindUpstream, projects.KindOf(err))
}

func TestUpdate_NotFound(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE users`)).
		WithArgs("ghost", "", "", "", "").
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}))

	err := repo.Update(context.Background(), &domain.User{FirebaseUID: "ghost"})
	assert.True(t, errors.Is(err, projects.ErrNotFound))
}

func TestTouchLogin(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET last_login_at = NOW()`)).
		WithArgs("yt-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET last_login_at = NOW()`)).
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.TouchLogin(context.Background(), "yt-1"))
	err := repo.TouchLogin(context.Background(), "ghost")
	assert.True(t, errors.Is(err, projects.ErrNotFound))
}

func TestRoleOf(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT role FROM users`)).
		WithArgs("ed-1").
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("editor"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT role FROM users`)).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"role"}))

	role, err := repo.RoleOf(context.Background(), "ed-1")
	require.NoError(t, err)
	assert.Equal(t, projects.RoleEditor, role)

	_, err = repo.RoleOf(context.Background(), "ghost")
	assert.True(t, errors.Is(err, projects.ErrNotFound))
}
