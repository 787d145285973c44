package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cutroom/cutroom-backend/internal/auth"
	"github.com/cutroom/cutroom-backend/internal/auth/domain"
	"github.com/cutroom/cutroom-backend/internal/auth/middleware"
	projects "github.com/cutroom/cutroom-backend/internal/projects/domain"
)

type fakeProfiles struct {
	lastSync   domain.SyncRequest
	lastUpdate domain.UpdateRequest
	users      map[string]*domain.User
}

func (f *fakeProfiles) SyncUser(_ context.Context, req domain.SyncRequest) (*domain.User, error) {
	f.lastSync = req
	if !req.Role.Valid() {
		return nil, projects.Validation("user.sync", "role", "must be youtuber or editor")
	}
	u := &domain.User{FirebaseUID: req.FirebaseUID, Email: req.Email, Role: req.Role}
	f.users[req.FirebaseUID] = u
	return u, nil
}

func (f *fakeProfiles) GetProfile(_ context.Context, uid string) (*domain.Profile, error) {
	u, ok := f.users[uid]
	if !ok {
		return nil, projects.E(projects.KindNotFound, "user.get", uid)
	}
	return &domain.Profile{User: *u, ProjectIDs: []string{"prj_a"}}, nil
}

func (f *fakeProfiles) UpdateProfile(_ context.Context, uid string, req domain.UpdateRequest) (*domain.User, error) {
	f.lastUpdate = req
	u, ok := f.users[uid]
	if !ok {
		return nil, projects.E(projects.KindNotFound, "user.update", uid)
	}
	if req.Bio != nil {
		u.Bio = *req.Bio
	}
	return u, nil
}

func (f *fakeProfiles) GetUser(_ context.Context, uid string) (*domain.PublicUser, error) {
	u, ok := f.users[uid]
	if !ok {
		return nil, projects.E(projects.KindNotFound, "user.get", uid)
	}
	pub := u.Public()
	return &pub, nil
}

func setup() (*gin.Engine, *fakeProfiles) {
	gin.SetMode(gin.TestMode)
	f := &fakeProfiles{users: map[string]*domain.User{}}
	r := gin.New()
	g := r.Group("/api/v1/users", middleware.Authenticate(auth.HeaderVerifier{}))
	New(f).Register(g)
	return r, f
}

func do(r *gin.Engine, method, path, cred, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if cred != "" {
		req.Header.Set("Authorization", "Bearer "+cred)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSyncThenMe(t *testing.T) {
	r, f := setup()

	w := do(r, http.MethodPost, "/api/v1/users/sync", "yt-1:creator@example.com", `{"role":"youtuber","email":"other@example.com"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "creator@example.com", f.lastSync.Email)
	assert.Equal(t, "yt-1", f.lastSync.FirebaseUID)

	w = do(r, http.MethodGet, "/api/v1/users/me", "yt-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		OK   bool           `json:"ok"`
		User domain.Profile `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.OK)
	assert.Equal(t, []string{"prj_a"}, body.User.ProjectIDs)
}

func TestSync_EmailFallsBackToBody(t *testing.T) {
	r, f := setup()
	w := do(r, http.MethodPost, "/api/v1/users/sync", "ed-1", `{"role":"editor","email":"ed@example.com"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ed@example.com", f.lastSync.Email)
}

func TestSync_Errors(t *testing.T) {
	r, _ := setup()

	w := do(r, http.MethodPost, "/api/v1/users/sync", "ed-1", `{"role":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/v1/users/sync", "ed-1", `{"role":"admin"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"validation_error"`)

	w = do(r, http.MethodPost, "/api/v1/users/sync", "", `{"role":"editor"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMe_NotSynced(t *testing.T) {
	r, _ := setup()
	w := do(r, http.MethodGet, "/api/v1/users/me", "ghost", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateProfile(t *testing.T) {
	r, f := setup()
	do(r, http.MethodPost, "/api/v1/users/sync", "ed-1", `{"role":"editor"}`)

	w := do(r, http.MethodPut, "/api/v1/users/me", "ed-1", `{"bio":"motion graphics"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, f.lastUpdate.DisplayName)
	assert.Contains(t, w.Body.String(), "motion graphics")

	w = do(r, http.MethodPut, "/api/v1/users/me", "ed-1", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetUser_HidesPrivateFields(t *testing.T) {
	r, _ := setup()
	do(r, http.MethodPost, "/api/v1/users/sync", "ed-1:ed@example.com", `{"role":"editor"}`)

	w := do(r, http.MethodGet, "/api/v1/users/ed-1", "yt-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "ed@example.com")
	assert.Contains(t, w.Body.String(), `"role":"editor"`)
}
