package auth

import (
	"crypto/rsa"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Default token lifetimes.
const (
	DefaultAccessTTL  = 30 * time.Minute
	DefaultRefreshTTL = 24 * time.Hour
)

// Claims are the JWT claims carried by access and refresh tokens.
// The subject is the user's email. Kind travels in a private "type" claim
// so a refresh token can never pass as an access token or vice versa.
type Claims struct {
	jwt.RegisteredClaims
	Kind TokenKind `json:"type"`
}

// TokenConfig configures token issuance.
type TokenConfig struct {
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenService issues and verifies RS256-signed tokens.
//
// A service built without a private key can verify but not issue, which lets
// verification be delegated to a process that never sees the signing key.
type TokenService struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	cfg        TokenConfig
	now        func() time.Time
}

// NewTokenService creates a token service.
// privateKey may be nil for a verify-only service; publicKey is required.
// Zero TTLs fall back to DefaultAccessTTL and DefaultRefreshTTL.
func NewTokenService(privateKey *rsa.PrivateKey, publicKey *rsa.PublicKey, cfg TokenConfig) (*TokenService, error) {
	if publicKey == nil {
		if privateKey == nil {
			return nil, fmt.Errorf("token service needs a public key")
		}
		publicKey = &privateKey.PublicKey
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	return &TokenService{
		privateKey: privateKey,
		publicKey:  publicKey,
		cfg:        cfg,
		now:        time.Now,
	}, nil
}

// LoadKeyPair reads a PEM-encoded RSA private key and public key from disk.
// An empty privatePath yields a nil private key (verify-only).
func LoadKeyPair(privatePath, publicPath string) (*rsa.PrivateKey, *rsa.PublicKey, error) {
	var privateKey *rsa.PrivateKey
	if privatePath != "" {
		data, err := os.ReadFile(privatePath)
		if err != nil {
			return nil, nil, fmt.Errorf("reading private key: %w", err)
		}
		privateKey, err = jwt.ParseRSAPrivateKeyFromPEM(data)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing private key: %w", err)
		}
	}

	data, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, nil, fmt.Errorf("reading public key: %w", err)
	}
	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(data)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing public key: %w", err)
	}

	if privateKey != nil && !privateKey.PublicKey.Equal(publicKey) {
		return nil, nil, fmt.Errorf("public key does not match private key")
	}
	return privateKey, publicKey, nil
}

// Issue creates a token of the given kind with the configured lifetime.
func (s *TokenService) Issue(subject string, kind TokenKind) (string, error) {
	ttl := s.cfg.AccessTTL
	if kind == TokenRefresh {
		ttl = s.cfg.RefreshTTL
	}
	return s.IssueWithTTL(subject, kind, ttl)
}

// IssueWithTTL creates a token that expires ttl from now.
// The ttl is used as given: zero or negative produces an already expired token.
func (s *TokenService) IssueWithTTL(subject string, kind TokenKind, ttl time.Duration) (string, error) {
	if s.privateKey == nil {
		return "", ErrSigningKeyMissing
	}
	if subject == "" {
		return "", fmt.Errorf("issuing %s token: empty subject", kind)
	}
	if !kind.Valid() {
		return "", fmt.Errorf("issuing token: unknown kind %q", kind)
	}

	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		Kind: kind,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.privateKey)
	if err != nil {
		return "", fmt.Errorf("signing %s token: %w", kind, err)
	}
	return signed, nil
}

// Verify checks signature, expiry, issuer and kind, and returns the claims.
// Every failure wraps ErrTokenInvalid.
func (s *TokenService) Verify(tokenString string, expected TokenKind) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(_ *jwt.Token) (any, error) {
		return s.publicKey, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}
	if claims.Kind != expected {
		return nil, fmt.Errorf("%w: expected %s token, got %q", ErrTokenInvalid, expected, claims.Kind)
	}
	return claims, nil
}

// AccessTTL returns the configured access token lifetime.
func (s *TokenService) AccessTTL() time.Duration {
	return s.cfg.AccessTTL
}
