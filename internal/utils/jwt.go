package utils // package utils provides helpers for password hashing and token signing

import (
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
	"github.com/google/uuid"
)

// ErrInvalidToken is returned by Verify for any token that fails parsing,
// signature or algorithm checks.
var ErrInvalidToken = errors.New("invalid token")

// TokenIssuer signs claim sets into compact JWS strings.  The secret and
// algorithm are fixed at construction and shared by every request;
// changing either invalidates all previously issued tokens.
type TokenIssuer struct {
	method jwt.SigningMethod
	secret []byte
}

// NewTokenIssuer builds an issuer for an HMAC algorithm (HS256, HS384 or
// HS512).  An empty secret or an unsupported algorithm is rejected so the
// process fails at startup rather than on the first login.
func NewTokenIssuer(secret, alg string) (*TokenIssuer, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	if alg == "" {
		alg = jwt.SigningMethodHS256.Alg()
	}
	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported jwt algorithm %q", alg)
	}
	return &TokenIssuer{method: method, secret: []byte(secret)}, nil
}

// Algorithm returns the configured signing algorithm name.
func (i *TokenIssuer) Algorithm() string { return i.method.Alg() }

// Issue signs the given claims.  No exp claim is added: tokens stay valid
// until their store row is deleted.  A random jti and the issue time are
// added when absent so two tokens for the same subject never collide.
func (i *TokenIssuer) Issue(claims map[string]any) (string, error) {
	mc := jwt.MapClaims{}
	maps.Copy(mc, claims)
	if _, ok := mc["jti"]; !ok {
		mc["jti"] = uuid.NewString()
	}
	if _, ok := mc["iat"]; !ok {
		mc["iat"] = time.Now().UTC().Unix()
	}
	t := jwt.NewWithClaims(i.method, mc)
	signed, err := t.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and algorithm of raw and returns its claims.
func (i *TokenIssuer) Verify(raw string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{i.method.Alg()}))
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
