package bootstrap

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"github.com/rs/zerolog/log"

	"github.com/cutroom/cutroom-backend/config"
	"github.com/cutroom/cutroom-backend/internal/auth"
	authrepo "github.com/cutroom/cutroom-backend/internal/auth/repository"
	authsvc "github.com/cutroom/cutroom-backend/internal/auth/service"
	"github.com/cutroom/cutroom-backend/internal/metrics"
	"github.com/cutroom/cutroom-backend/internal/projects/notify"
	"github.com/cutroom/cutroom-backend/internal/projects/service"
	"github.com/cutroom/cutroom-backend/internal/storage/blob"
)

// Services is the wired application core shared by the API and the worker.
type Services struct {
	Projects *service.ProjectService
	Users    *authsvc.AuthService
	// Events is nil when Redis is not configured.
	Events notify.Subscriber
}

func BuildServices(stores *Stores, cfg *config.Config, m *metrics.Metrics) *Services {
	repo := stores.ProjectRepository(cfg)
	users := authsvc.NewAuthService(authrepo.NewUserRepository(stores.Users), repo)

	deps := service.Dependencies{
		Repo:    repo,
		Users:   users,
		Metrics: m,
	}
	out := &Services{Users: users}
	if stores.Redis != nil {
		n := notify.NewRedisNotifier(stores.Redis)
		deps.Publisher = n
		out.Events = n
	} else {
		log.Warn().Msg("REDIS_URL not set; project events are disabled")
	}
	out.Projects = service.NewProjectService(deps)
	return out
}

// FirebaseApp initializes Firebase only when a component needs it.
func FirebaseApp(ctx context.Context, cfg *config.Config) (*firebase.App, error) {
	if !cfg.UsesFirebase() {
		return nil, nil
	}
	return auth.InitializeFirebase(ctx, &cfg.Firebase)
}

// BuildVerifier returns the credential verifier selected by AUTH_MODE.
func BuildVerifier(ctx context.Context, cfg *config.Config, app *firebase.App) (auth.Verifier, error) {
	switch cfg.Auth.Mode {
	case config.AuthModeHeader:
		log.Warn().Msg("AUTH_MODE=header: bearer credentials are trusted as user IDs")
		return auth.HeaderVerifier{}, nil
	case config.AuthModeFirebase:
		return auth.NewFirebaseVerifier(ctx, app)
	}
	return nil, fmt.Errorf("unknown AUTH_MODE %q", cfg.Auth.Mode)
}

// BuildBlobStore returns the media store selected by STORAGE_BACKEND.
func BuildBlobStore(ctx context.Context, cfg *config.Config, app *firebase.App) (blob.Store, error) {
	switch cfg.Storage.Backend {
	case config.StorageS3:
		return blob.NewS3Store(ctx, &cfg.Storage)
	case config.StorageFirebase:
		return blob.NewFirebaseStore(ctx, app, cfg.Firebase.StorageBucket, cfg.Storage.PublicBaseURL)
	}
	return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.Storage.Backend)
}
