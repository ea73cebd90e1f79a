// Package auth resolves staff credentials into principals.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/restaurant-ops/backend/internal/model"
)

// Principal is the resolved identity behind a verified credential.
type Principal struct {
	UserID    string
	Role      string // role claim carried in the token; informational only
	ExpiresAt time.Time
}

// UserLookup confirms that an identity still maps to a live account.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// Resolver verifies signed staff tokens. It is stateless; when a UserLookup
// is supplied it additionally requires the account to exist and be active.
type Resolver struct {
	secret []byte
	users  UserLookup
}

// NewResolver creates a Resolver. users may be nil to skip the account check.
func NewResolver(secret []byte, users UserLookup) *Resolver {
	return &Resolver{secret: secret, users: users}
}

// staffClaims mirrors the token layout issued by the account service. Older
// tokens carry the identity under "id" instead of "userId".
type staffClaims struct {
	UserID   string `json:"userId,omitempty"`
	LegacyID string `json:"id,omitempty"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Resolve verifies the credential's signature and expiry and returns the
// principal behind it. All failures wrap model.ErrUnauthenticated.
func (r *Resolver) Resolve(ctx context.Context, credential string) (Principal, error) {
	if credential == "" {
		return Principal{}, fmt.Errorf("%w: authentication token required", model.ErrUnauthenticated)
	}

	claims := &staffClaims{}
	token, err := jwt.ParseWithClaims(credential, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return r.secret, nil
	})
	if err != nil || !token.Valid {
		return Principal{}, fmt.Errorf("%w: token is not valid", model.ErrUnauthenticated)
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.LegacyID
	}
	if userID == "" {
		return Principal{}, fmt.Errorf("%w: token carries no identity", model.ErrUnauthenticated)
	}

	if r.users != nil {
		user, err := r.users.GetByID(ctx, userID)
		if err != nil {
			return Principal{}, fmt.Errorf("%w: token is not valid", model.ErrUnauthenticated)
		}
		if !user.IsActive {
			return Principal{}, fmt.Errorf("%w: account is deactivated", model.ErrUnauthenticated)
		}
	}

	principal := Principal{UserID: userID, Role: claims.Role}
	if claims.ExpiresAt != nil {
		principal.ExpiresAt = claims.ExpiresAt.Time
	}
	return principal, nil
}
