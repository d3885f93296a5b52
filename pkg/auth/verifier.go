package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoVerificationKey = errors.New("auth: HS256 token received but SUPABASE_JWT_SECRET is not configured")

// Claims is the subset of an access token the session layer relies on.
type Claims struct {
	Subject       string
	Email         string
	DisplayName   string
	EmailVerified bool
}

// Verifier validates provider-issued access tokens. HS256 tokens are checked
// against the project secret, RS256 tokens against the published key set.
type Verifier struct {
	secret []byte
	keys   *KeySet
	parser *jwt.Parser
}

func NewVerifier(secret string, keys *KeySet) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		keys:   keys,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{"HS256", "RS256"}),
			jwt.WithExpirationRequired(),
		),
	}
}

func (v *Verifier) keyFunc(token *jwt.Token) (interface{}, error) {
	switch token.Method.(type) {
	case *jwt.SigningMethodHMAC:
		if len(v.secret) == 0 {
			return nil, ErrNoVerificationKey
		}
		return v.secret, nil
	case *jwt.SigningMethodRSA:
		if v.keys == nil {
			return nil, errors.New("auth: RS256 token received but no key set configured")
		}
		return v.keys.KeyFunc(token)
	}
	return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
}

func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	token, err := v.parser.Parse(tokenString, v.keyFunc)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("auth: invalid token")
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("auth: invalid claims")
	}

	sub, _ := mc["sub"].(string)
	if sub == "" {
		return nil, errors.New("auth: token has no subject")
	}

	claims := &Claims{Subject: sub}
	claims.Email, _ = mc["email"].(string)

	if meta, ok := mc["user_metadata"].(map[string]interface{}); ok {
		for _, key := range []string{"name", "full_name", "display_name"} {
			if name, ok := meta[key].(string); ok && strings.TrimSpace(name) != "" {
				claims.DisplayName = name
				break
			}
		}
		if verified, ok := meta["email_verified"].(bool); ok {
			claims.EmailVerified = verified
		}
	}
	return claims, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
