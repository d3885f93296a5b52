package supabase

import (
	"bytes"
	"campus-marketplace-backend/internal/domain"
	"campus-marketplace-backend/pkg/apperror"
	"campus-marketplace-backend/pkg/logger"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// IdentityProvider talks to the Supabase auth (GoTrue) REST API.
type IdentityProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

var _ domain.IdentityProvider = (*IdentityProvider)(nil)

// NewIdentityProvider builds a client for the project at baseURL. A nil
// client gets a default one with a 10 second timeout.
func NewIdentityProvider(baseURL, apiKey string, client *http.Client) *IdentityProvider {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &IdentityProvider{
		baseURL: strings.TrimRight(baseURL, "/") + "/auth/v1",
		apiKey:  apiKey,
		client:  client,
	}
}

type gotrueUser struct {
	ID               string                 `json:"id"`
	Email            string                 `json:"email"`
	EmailConfirmedAt *time.Time             `json:"email_confirmed_at"`
	ConfirmedAt      *time.Time             `json:"confirmed_at"`
	UserMetadata     map[string]interface{} `json:"user_metadata"`
}

type gotrueSession struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	ExpiresIn    int        `json:"expires_in"`
	User         gotrueUser `json:"user"`
}

type gotrueError struct {
	Code             interface{} `json:"code"`
	ErrorCode        string      `json:"error_code"`
	Msg              string      `json:"msg"`
	Message          string      `json:"message"`
	Error            string      `json:"error"`
	ErrorDescription string      `json:"error_description"`
}

func (e gotrueError) message() string {
	for _, m := range []string{e.Msg, e.Message, e.ErrorDescription, e.Error} {
		if m != "" {
			return m
		}
	}
	return ""
}

func (u gotrueUser) identity() domain.Identity {
	id := domain.Identity{
		ID:            u.ID,
		Email:         u.Email,
		EmailVerified: u.EmailConfirmedAt != nil || u.ConfirmedAt != nil,
	}
	for _, key := range []string{"name", "full_name", "display_name"} {
		if v, ok := u.UserMetadata[key].(string); ok && v != "" {
			id.DisplayName = v
			break
		}
	}
	return id
}

func (s gotrueSession) toDomain() *domain.AuthSession {
	return &domain.AuthSession{
		Identity:     s.User.identity(),
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresIn:    s.ExpiresIn,
	}
}

func (p *IdentityProvider) SignUp(ctx context.Context, email, password, displayName string) (*domain.AuthSession, error) {
	body := map[string]interface{}{
		"email":    email,
		"password": password,
		"data": map[string]string{
			"name": displayName,
		},
	}

	raw, err := p.do(ctx, "/signup", "", body)
	if err != nil {
		return nil, err
	}

	// With email confirmation on, GoTrue answers with the bare user
	var sess gotrueSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, apperror.New(http.StatusBadGateway, "Unexpected identity provider response", err)
	}
	if sess.AccessToken == "" {
		var u gotrueUser
		if err := json.Unmarshal(raw, &u); err != nil {
			return nil, apperror.New(http.StatusBadGateway, "Unexpected identity provider response", err)
		}
		sess.User = u
	}
	if sess.User.ID == "" {
		return nil, apperror.New(http.StatusBadGateway, "Identity provider returned no user", nil)
	}
	return sess.toDomain(), nil
}

func (p *IdentityProvider) SignIn(ctx context.Context, email, password string) (*domain.AuthSession, error) {
	return p.token(ctx, "password", map[string]interface{}{
		"email":    email,
		"password": password,
	})
}

func (p *IdentityProvider) SignInWithIDToken(ctx context.Context, provider, idToken string) (*domain.AuthSession, error) {
	if provider == "" {
		provider = "google"
	}
	return p.token(ctx, "id_token", map[string]interface{}{
		"provider": provider,
		"id_token": idToken,
	})
}

func (p *IdentityProvider) ResendVerification(ctx context.Context, email string) error {
	_, err := p.do(ctx, "/resend", "", map[string]interface{}{
		"type":  "signup",
		"email": email,
	})
	return err
}

// SignOut revokes the refresh tokens behind accessToken.
func (p *IdentityProvider) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	_, err := p.do(ctx, "/logout", accessToken, nil)
	return err
}

func (p *IdentityProvider) token(ctx context.Context, grant string, body map[string]interface{}) (*domain.AuthSession, error) {
	raw, err := p.do(ctx, "/token?grant_type="+grant, "", body)
	if err != nil {
		return nil, err
	}

	var sess gotrueSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, apperror.New(http.StatusBadGateway, "Unexpected identity provider response", err)
	}
	if sess.AccessToken == "" || sess.User.ID == "" {
		return nil, apperror.New(http.StatusBadGateway, "Identity provider returned no session", nil)
	}
	return sess.toDomain(), nil
}

func (p *IdentityProvider) do(ctx context.Context, path, bearer string, body interface{}) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, apperror.Internal(err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, reader)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", p.apiKey)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		logger.Log.Error("Identity provider request failed", "path", path, "error", err)
		return nil, apperror.Identity(http.StatusServiceUnavailable, apperror.KindProviderUnavailable,
			"Authentication service is unavailable", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperror.Identity(http.StatusServiceUnavailable, apperror.KindProviderUnavailable,
			"Authentication service is unavailable", err)
	}

	if resp.StatusCode >= 400 {
		var errResp gotrueError
		_ = json.Unmarshal(raw, &errResp)
		logger.Log.Warn("Identity provider rejected request",
			"path", path,
			"status", resp.StatusCode,
			"error_code", errResp.ErrorCode,
			"message", errResp.message(),
		)
		return nil, mapError(resp.StatusCode, errResp)
	}
	return raw, nil
}

// mapError turns a GoTrue failure into an error kind the client can branch on.
func mapError(status int, e gotrueError) error {
	msg := strings.ToLower(e.message())
	cause := fmt.Errorf("gotrue %d: %s", status, e.message())

	switch {
	case e.ErrorCode == "email_not_confirmed" || strings.Contains(msg, "email not confirmed"):
		return apperror.Identity(http.StatusForbidden, apperror.KindUnverifiedEmail,
			"Please verify your email before signing in", cause)
	case e.ErrorCode == "user_already_exists" || e.ErrorCode == "email_exists" ||
		strings.Contains(msg, "already registered"):
		return apperror.Identity(http.StatusConflict, apperror.KindEmailInUse,
			"An account with this email already exists", cause)
	case e.ErrorCode == "invalid_credentials" || e.Error == "invalid_grant" ||
		strings.Contains(msg, "invalid login credentials"):
		return apperror.Identity(http.StatusUnauthorized, apperror.KindInvalidCredentials,
			"Wrong password or account not found", cause)
	case status == http.StatusTooManyRequests || e.ErrorCode == "over_email_send_rate_limit":
		return apperror.New(http.StatusTooManyRequests, "Too many requests, please try again later", cause)
	case status >= 500:
		return apperror.Identity(http.StatusServiceUnavailable, apperror.KindProviderUnavailable,
			"Authentication service is unavailable", cause)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperror.Identity(http.StatusUnauthorized, apperror.KindInvalidCredentials,
			"Authentication failed", cause)
	default:
		if e.message() != "" {
			return apperror.New(http.StatusBadRequest, e.message(), cause)
		}
		return apperror.New(http.StatusBadRequest, "Authentication request rejected", cause)
	}
}

