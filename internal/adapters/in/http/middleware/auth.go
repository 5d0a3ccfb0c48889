// internal/adapters/in/http/middleware/auth.go
package middleware

import (
	"context"

	fbauth "firebase.google.com/go/v4/auth"
)

// FirebaseAuthClient is an alias of the Firebase auth client.
type FirebaseAuthClient = fbauth.Client

// TokenVerifier verifies a Firebase ID token. *FirebaseAuthClient satisfies it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

var _ TokenVerifier = (*FirebaseAuthClient)(nil)

// context keys are a private type to avoid collisions (SA1029)
type ctxKey struct{ name string }

var (
	ctxKeyUID   = ctxKey{name: "uid"}
	ctxKeyEmail = ctxKey{name: "email"}
)

// WithUID returns ctx carrying uid as the authenticated user.
func WithUID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, ctxKeyUID, uid)
}
