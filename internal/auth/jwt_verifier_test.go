package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"io"
	"log/slog"
	"testing"
	"time"

	"foldershare/internal/domain"
	"foldershare/internal/domain/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims *models.AuthClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func claimsFor(sub string, expires time.Time) *models.AuthClaims {
	return &models.AuthClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Email: sub + "@example.com",
	}
}

func TestStaticVerifier_VerifyToken(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	verifier := NewStaticVerifier(func(*jwt.Token) (interface{}, error) { return testSecret, nil }, logger)
	defer verifier.Close()

	future := time.Now().Add(time.Hour)

	tests := []struct {
		name    string
		token   string
		wantSub string
	}{
		{"valid", sign(t, jwt.SigningMethodHS256, testSecret, claimsFor("user-1", future)), "user-1"},
		{"expired", sign(t, jwt.SigningMethodHS256, testSecret, claimsFor("user-1", time.Now().Add(-time.Hour))), ""},
		{"missing subject", sign(t, jwt.SigningMethodHS256, testSecret, claimsFor("", future)), ""},
		{"wrong key", sign(t, jwt.SigningMethodHS256, []byte("other"), claimsFor("user-1", future)), ""},
		{"disallowed algorithm", sign(t, jwt.SigningMethodHS512, testSecret, claimsFor("user-1", future)), ""},
		{"unsigned", sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, claimsFor("user-1", future)), ""},
		{"garbage", "not.a.token", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := verifier.VerifyToken(tt.token)
			if tt.wantSub == "" {
				assert.ErrorIs(t, err, domain.ErrUnauthorized)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSub, claims.GetUserID())
			assert.Equal(t, "user-1@example.com", claims.Email)
		})
	}
}

func TestJWKSVerifier_RejectsSharedSecretTokens(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	// The key function would hand out the secret; the algorithm list must
	// refuse HS256 before it gets that far
	verifier := &JWKSVerifier{
		keyfunc: func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); ok {
				return testSecret, nil
			}
			return &key.PublicKey, nil
		},
		algorithms: jwksAlgorithms,
		cancel:     func() {},
		logger:     logger,
	}

	future := time.Now().Add(time.Hour)

	claims, err := verifier.VerifyToken(sign(t, jwt.SigningMethodRS256, key, claimsFor("user-1", future)))
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.GetUserID())

	_, err = verifier.VerifyToken(sign(t, jwt.SigningMethodHS256, testSecret, claimsFor("user-1", future)))
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestNewJWTVerifier_RequiresURL(t *testing.T) {
	_, err := NewJWTVerifier("", slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}
