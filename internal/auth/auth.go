// Package auth verifies bearer tokens and applies the role rules for catalog
// management, cart access and purchase.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/fairyhunter13/cart-checkout-service/internal/apperr"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Identity is the caller resolved from a verified token.
type Identity struct {
	Email  string
	Role   string
	CartID string
}

// Claims is the JWT payload.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	Cart  string `json:"cart,omitempty"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 tokens.
type Tokens struct {
	secret []byte
	now    func() time.Time
}

func NewTokens(secret string) *Tokens {
	return &Tokens{secret: []byte(secret), now: time.Now}
}

// Issue signs a token for id that expires after ttl.
func (t *Tokens) Issue(id Identity, ttl time.Duration) (string, error) {
	now := t.now()
	claims := Claims{
		Email: id.Email,
		Role:  id.Role,
		Cart:  id.CartID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses raw and returns the identity it carries.
func (t *Tokens) Verify(raw string) (Identity, error) {
	var claims Claims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) { return t.secret, nil })
	if err != nil {
		var verr *jwt.ValidationError
		if errors.As(err, &verr) && verr.Errors&jwt.ValidationErrorExpired != 0 {
			return Identity{}, apperr.Unauthorized("token expired")
		}
		return Identity{}, apperr.Unauthorized("invalid token")
	}
	id := Identity{Email: strings.TrimSpace(claims.Email), Role: claims.Role, CartID: claims.Cart}
	if id.Email == "" {
		return Identity{}, apperr.Unauthorized("token has no email")
	}
	if id.Role != RoleUser && id.Role != RoleAdmin {
		return Identity{}, apperr.Unauthorized("token has unknown role")
	}
	return id, nil
}

// FromRequest verifies the bearer token of r. ok is false when no
// Authorization header was sent.
func (t *Tokens) FromRequest(r *http.Request) (id Identity, ok bool, err error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return Identity{}, false, nil
	}
	scheme, raw, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
		return Identity{}, true, apperr.Unauthorized("malformed authorization header")
	}
	id, err = t.Verify(strings.TrimSpace(raw))
	return id, true, err
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
