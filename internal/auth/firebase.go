package auth

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/cutroom/cutroom-backend/config"
	"github.com/cutroom/cutroom-backend/internal/projects/domain"
)

// InitializeFirebase initializes the Firebase Admin SDK. The returned app
// serves both token verification and the storage bucket.
func InitializeFirebase(ctx context.Context, cfg *config.FirebaseConfig) (*firebase.App, error) {
	if cfg.CredentialsPath == "" {
		return nil, fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required")
	}

	opt := option.WithCredentialsFile(cfg.CredentialsPath)
	app, err := firebase.NewApp(ctx, &firebase.Config{StorageBucket: cfg.StorageBucket}, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}
	return app, nil
}

type tokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseVerifier checks Firebase ID tokens.
type FirebaseVerifier struct {
	tokens tokenVerifier
}

func NewFirebaseVerifier(ctx context.Context, app *firebase.App) (*FirebaseVerifier, error) {
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get Auth client: %w", err)
	}
	return &FirebaseVerifier{tokens: client}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, credential string) (Identity, error) {
	tok, err := v.tokens.VerifyIDToken(ctx, credential)
	if err != nil {
		return Identity{}, domain.Wrap(domain.KindInvalidCredential, "auth.verify", err)
	}
	id := Identity{Subject: tok.UID}
	if email, ok := tok.Claims["email"].(string); ok {
		id.Email = email
	}
	return id, nil
}
