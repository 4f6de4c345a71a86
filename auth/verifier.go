package auth

import (
	"context"
	"fmt"

	"todoshi/internal/domain"
)

// Identity is the verified subject of a bearer credential
type Identity struct {
	UserID string
}

// Verifier checks an opaque bearer credential. Both the HTTP middleware and
// the websocket handshake go through it.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

type UserProvider interface {
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
}

// JWTVerifier accepts HS256 access tokens issued by GenerateAccessToken whose
// token version still matches the user record (logout bumps it).
type JWTVerifier struct {
	users UserProvider
}

func NewJWTVerifier(users UserProvider) *JWTVerifier {
	return &JWTVerifier{users: users}
}

func (v *JWTVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	claims, err := VerifyJWT(token)
	if err != nil {
		return nil, err
	}

	user, err := v.users.GetUserByID(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown subject", ErrInvalidToken)
	}

	if user.TokenVersion != claims.TokenVersion {
		return nil, fmt.Errorf("%w: revoked", ErrInvalidToken)
	}

	return &Identity{UserID: user.ID}, nil
}
