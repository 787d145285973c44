package auth

import (
	"context"
	"strings"

	"github.com/cutroom/cutroom-backend/internal/projects/domain"
)

// HeaderVerifier trusts the credential as "uid" or "uid:email". Use this
// ONLY for local development; config refuses it in production.
type HeaderVerifier struct{}

func (HeaderVerifier) Verify(_ context.Context, credential string) (Identity, error) {
	uid, email, _ := strings.Cut(strings.TrimSpace(credential), ":")
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return Identity{}, domain.E(domain.KindInvalidCredential, "auth.verify", "empty subject")
	}
	return Identity{Subject: uid, Email: strings.TrimSpace(email)}, nil
}
