package oidc

import (
	"context"
	"errors"
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/keisuke70/tasklazy/internal/models"
)

// ErrMissingSubject is returned for tokens without a sub claim
var ErrMissingSubject = errors.New("token missing subject claim")

// TokenVerifier turns a bearer token into verified claims
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*models.JWTClaims, error)
}

// Verifier verifies RS/ES signed identity tokens against one issuer
type Verifier struct {
	keys    KeyProvider
	issuer  string
	jwksURL string
}

// NewVerifier creates a verifier. An empty jwksURL falls back to the
// issuer's well-known location.
func NewVerifier(keys KeyProvider, issuer, jwksURL string) *Verifier {
	if jwksURL == "" {
		jwksURL = DefaultJWKSURL(issuer)
	}
	return &Verifier{keys: keys, issuer: issuer, jwksURL: jwksURL}
}

// DefaultJWKSURL derives the conventional JWKS location from an issuer URL
func DefaultJWKSURL(issuer string) string {
	if len(issuer) > 0 && issuer[len(issuer)-1] == '/' {
		return issuer + ".well-known/jwks.json"
	}
	return issuer + "/.well-known/jwks.json"
}

// Verify checks the signature, expiry and issuer of tokenString
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*models.JWTClaims, error) {
	keys, err := v.keys.GetJWKS(ctx, v.jwksURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get JWKS: %w", err)
	}

	token, err := jwt.Parse([]byte(tokenString),
		jwt.WithKeySet(keys),
		jwt.WithValidate(true),
		jwt.WithIssuer(v.issuer),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse/verify token: %w", err)
	}

	if token.Subject() == "" {
		return nil, ErrMissingSubject
	}

	claims := &models.JWTClaims{
		Sub: token.Subject(),
		Iss: token.Issuer(),
		Exp: token.Expiration().Unix(),
	}
	if email, ok := token.Get("email"); ok {
		if s, ok := email.(string); ok {
			claims.Email = s
		}
	}
	if name, ok := token.Get("name"); ok {
		if s, ok := name.(string); ok {
			claims.Name = s
		}
	}
	return claims, nil
}

var _ TokenVerifier = (*Verifier)(nil)
