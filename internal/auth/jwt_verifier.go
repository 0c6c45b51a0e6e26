package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"foldershare/internal/domain"
	"foldershare/internal/domain/models"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// JWKSVerifier implements JWTVerifier against an identity provider's JWKS endpoint.
type JWKSVerifier struct {
	keyfunc    jwt.Keyfunc
	algorithms []string
	cancel     context.CancelFunc
	logger     *slog.Logger
}

// Allowed signing algorithms, fixed per verifier to prevent algorithm
// confusion. Shared secrets are only accepted by the static verifier.
var (
	jwksAlgorithms   = []string{"RS256", "ES256"}
	staticAlgorithms = []string{"HS256"}
)

// NewJWTVerifier creates a verifier that fetches public keys from jwksURL.
// keyfunc caches the key set and refreshes it in the background.
func NewJWTVerifier(jwksURL string, logger *slog.Logger) (*JWKSVerifier, error) {
	if jwksURL == "" {
		return nil, errors.New("JWKS URL cannot be empty")
	}

	ctx, cancel := context.WithCancel(context.Background())
	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create JWKS client: %w", err)
	}

	logger.Info("JWT verifier initialized", "jwks_url", jwksURL)

	return &JWKSVerifier{
		keyfunc:    jwks.Keyfunc,
		algorithms: jwksAlgorithms,
		cancel:     cancel,
		logger:     logger,
	}, nil
}

// NewStaticVerifier verifies HS256 tokens with a fixed key function, for
// local development and tests
func NewStaticVerifier(fn jwt.Keyfunc, logger *slog.Logger) *JWKSVerifier {
	return &JWKSVerifier{keyfunc: fn, algorithms: staticAlgorithms, cancel: func() {}, logger: logger}
}

// VerifyToken validates a JWT token and extracts its claims.
// Every failure is domain.ErrUnauthorized.
func (v *JWKSVerifier) VerifyToken(tokenString string) (*models.AuthClaims, error) {
	claims := &models.AuthClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, v.keyfunc,
		jwt.WithValidMethods(v.algorithms),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		v.logger.Debug("token parse failed", "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	if !token.Valid {
		return nil, domain.ErrUnauthorized
	}

	// Validate user ID exists (sub claim)
	if claims.Subject == "" {
		v.logger.Debug("token missing subject claim")
		return nil, domain.ErrUnauthorized
	}

	return claims, nil
}

// Close stops the background JWKS refresh
func (v *JWKSVerifier) Close() error {
	v.cancel()
	v.logger.Info("JWT verifier closed")
	return nil
}
