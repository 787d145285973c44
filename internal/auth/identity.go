package auth

import "context"

// Identity is the verified subject behind a request credential.
type Identity struct {
	Subject string
	Email   string
}

// Verifier turns a bearer credential into an Identity. Failures are
// reported as invalid_credential errors.
type Verifier interface {
	Verify(ctx context.Context, credential string) (Identity, error)
}
