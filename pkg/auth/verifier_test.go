package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func signHS256(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return tok
}

func TestVerifier_HS256(t *testing.T) {
	v := NewVerifier(testSecret, nil)

	t.Run("valid token", func(t *testing.T) {
		tok := signHS256(t, jwt.MapClaims{
			"sub":   "u1",
			"email": "a@campus.edu",
			"exp":   time.Now().Add(time.Hour).Unix(),
			"user_metadata": map[string]interface{}{
				"full_name":      "Asha Rao",
				"email_verified": true,
			},
		})

		claims, err := v.Verify(tok)
		require.NoError(t, err)
		assert.Equal(t, "u1", claims.Subject)
		assert.Equal(t, "a@campus.edu", claims.Email)
		assert.Equal(t, "Asha Rao", claims.DisplayName)
		assert.True(t, claims.EmailVerified)
	})

	t.Run("expired token", func(t *testing.T) {
		tok := signHS256(t, jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(-time.Minute).Unix()})
		_, err := v.Verify(tok)
		assert.Error(t, err)
	})

	t.Run("missing exp", func(t *testing.T) {
		tok := signHS256(t, jwt.MapClaims{"sub": "u1"})
		_, err := v.Verify(tok)
		assert.Error(t, err)
	})

	t.Run("missing subject", func(t *testing.T) {
		tok := signHS256(t, jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()})
		_, err := v.Verify(tok)
		assert.Error(t, err)
	})

	t.Run("wrong secret", func(t *testing.T) {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "u1", "exp": time.Now().Add(time.Hour).Unix(),
		}).SignedString([]byte("another-secret"))
		require.NoError(t, err)
		_, err = v.Verify(tok)
		assert.Error(t, err)
	})

	t.Run("no secret configured", func(t *testing.T) {
		tok := signHS256(t, jwt.MapClaims{"sub": "u1", "exp": time.Now().Add(time.Hour).Unix()})
		_, err := NewVerifier("", nil).Verify(tok)
		assert.ErrorIs(t, err, ErrNoVerificationKey)
	})
}

func TestVerifier_RS256(t *testing.T) {
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"keys": []map[string]string{{
				"kid": "k1",
				"kty": "RSA",
				"alg": "RS256",
				"use": "sig",
				"n":   base64.RawURLEncoding.EncodeToString(priv.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(priv.E)).Bytes()),
			}},
		})
	}))
	defer srv.Close()

	v := NewVerifier("", NewKeySet(srv.URL))

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"sub": "u2",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	token.Header["kid"] = "k1"
	signed, err := token.SignedString(priv)
	require.NoError(t, err)

	claims, err := v.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, "u2", claims.Subject)

	_, err = v.Verify(signed)
	require.NoError(t, err)
	assert.Equal(t, 1, hits, "keys are cached between verifications")
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer abc"))
	assert.Equal(t, "", BearerToken("Basic abc"))
	assert.Equal(t, "", BearerToken("Bearer "))
	assert.Equal(t, "", BearerToken(""))
}
