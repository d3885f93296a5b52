package usecase

import (
	"campus-marketplace-backend/internal/domain"
	"campus-marketplace-backend/pkg/apperror"
	"campus-marketplace-backend/pkg/logger"
	"campus-marketplace-backend/pkg/security"
	"context"
	"net/http"
	"time"
)

// signOutTimeout bounds the provider call made after the session is
// already cleared locally.
const signOutTimeout = 3 * time.Second

type authUsecase struct {
	provider domain.IdentityProvider
	profiles domain.ProfileRepository
	guard    domain.LoginGuard
	audit    *security.SecurityLogger
	now      func() time.Time
}

func NewAuthUsecase(provider domain.IdentityProvider, profiles domain.ProfileRepository, guard domain.LoginGuard, audit *security.SecurityLogger) domain.AuthUsecase {
	if audit == nil {
		audit = security.NopLogger()
	}
	return &authUsecase{
		provider: provider,
		profiles: profiles,
		guard:    guard,
		audit:    audit,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Register creates the identity and its profile, then signs the session in
// with the new user. Sellers start unapproved.
func (u *authUsecase) Register(ctx context.Context, sess domain.Session, req domain.RegisterRequest, meta domain.ClientMeta) (*domain.AuthResult, error) {
	role := req.Role
	if role == "" {
		role = domain.RoleBuyer
	}
	if !role.Selectable() {
		return nil, apperror.BadRequest("Role must be buyer or seller")
	}

	auth, err := u.provider.SignUp(ctx, req.Email, req.Password, req.Name)
	if err != nil {
		return nil, err
	}

	profile := domain.NewProfile(req.Name, req.Email, role, req.Campus, u.now())
	if err := u.profiles.Set(ctx, auth.Identity.ID, profile); err != nil {
		logger.Log.Error("Failed to create profile after sign-up", "user_id", auth.Identity.ID, "error", err)
		return nil, err
	}

	user := profile.ToUser(auth.Identity.ID)
	if err := sess.Adopt(ctx, user); err != nil {
		return nil, err
	}

	u.audit.LogUserCreated(ctx, user.ID, user.Email, string(user.Role))
	u.audit.LogRoleTransition(ctx, user.ID, "", string(user.Role), "register")

	identity := auth.Identity
	return &domain.AuthResult{
		User:        &user,
		AccessToken: auth.AccessToken,
		Identity:    &identity,
	}, nil
}

// Login signs in with email and password. Unverified identities are refused
// even when the provider lets them through.
func (u *authUsecase) Login(ctx context.Context, sess domain.Session, req domain.LoginRequest, meta domain.ClientMeta) (*domain.AuthResult, error) {
	if u.guard != nil {
		blocked, err := u.guard.IsBlocked(ctx, req.Email, meta.IP)
		if err != nil {
			logger.Log.Warn("Login guard unavailable", "error", err)
		}
		if blocked {
			u.audit.LogLoginBlocked(ctx, req.Email, requestMeta(meta))
			return nil, apperror.TooManyRequests("Too many failed login attempts. Please try again later.")
		}
	}

	auth, err := u.provider.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		if apperror.IsKind(err, apperror.KindInvalidCredentials) {
			u.recordFailure(ctx, req.Email, meta, "invalid_credentials")
		}
		return nil, err
	}

	if !auth.Identity.EmailVerified {
		return nil, apperror.Identity(http.StatusForbidden, apperror.KindUnverifiedEmail,
			"Please verify your email before continuing.", nil)
	}

	profile, err := u.profiles.Get(ctx, auth.Identity.ID)
	if err != nil {
		return nil, apperror.Unavailable("Profile store is unavailable", err)
	}
	if profile == nil {
		return nil, apperror.Identity(http.StatusNotFound, apperror.KindProfileNotFound,
			"User profile not found. Please re-register.", nil)
	}

	user := profile.ToUser(auth.Identity.ID)
	if err := sess.Adopt(ctx, user); err != nil {
		return nil, err
	}

	if u.guard != nil {
		if err := u.guard.Clear(ctx, req.Email, meta.IP); err != nil {
			logger.Log.Warn("Failed to clear login attempts", "error", err)
		}
	}
	u.audit.LogLoginSuccess(ctx, user.ID, requestMeta(meta), "password")

	identity := auth.Identity
	return &domain.AuthResult{
		User:        &user,
		AccessToken: auth.AccessToken,
		Identity:    &identity,
	}, nil
}

func (u *authUsecase) recordFailure(ctx context.Context, email string, meta domain.ClientMeta, reason string) {
	if u.guard == nil {
		u.audit.LogLoginFailed(ctx, email, requestMeta(meta), reason)
		return
	}
	if _, err := u.guard.RecordFailure(ctx, email, meta, reason); err != nil {
		logger.Log.Warn("Failed to record login failure", "error", err)
	}
}

// FederatedLogin signs in with a provider ID token. An identity without a
// profile is reported as new and the session is left untouched: the client
// has to pick a role first.
func (u *authUsecase) FederatedLogin(ctx context.Context, sess domain.Session, req domain.FederatedLoginRequest, meta domain.ClientMeta) (*domain.AuthResult, error) {
	auth, err := u.provider.SignInWithIDToken(ctx, req.Provider, req.IDToken)
	if err != nil {
		return nil, err
	}

	identity := auth.Identity
	if identity.DisplayName == "" {
		identity.DisplayName = "Google User"
	}

	profile, err := u.profiles.Get(ctx, identity.ID)
	if err != nil {
		return nil, apperror.Unavailable("Profile store is unavailable", err)
	}
	if profile == nil {
		return &domain.AuthResult{
			AccessToken: auth.AccessToken,
			NewUser:     true,
			Identity:    &identity,
		}, nil
	}

	user := profile.ToUser(identity.ID)
	if err := sess.Adopt(ctx, user); err != nil {
		return nil, err
	}
	u.audit.LogLoginSuccess(ctx, user.ID, requestMeta(meta), "google")

	return &domain.AuthResult{
		User:        &user,
		AccessToken: auth.AccessToken,
		Identity:    &identity,
	}, nil
}

func (u *authUsecase) ResendVerification(ctx context.Context, email string) error {
	return u.provider.ResendVerification(ctx, email)
}

// Logout clears the session first so a slow or failing provider cannot keep
// the user signed in locally.
func (u *authUsecase) Logout(ctx context.Context, sess domain.Session, accessToken string, meta domain.ClientMeta) {
	var userID string
	if cur := sess.CurrentUser(); cur != nil {
		userID = cur.ID
	}
	sess.Logout(ctx)

	signOutCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), signOutTimeout)
	defer cancel()
	if err := u.provider.SignOut(signOutCtx, accessToken); err != nil {
		logger.Log.Warn("Provider sign-out failed", "user_id", userID, "error", err)
	}

	if userID != "" {
		u.audit.LogLogout(ctx, userID, requestMeta(meta))
	}
}

func (u *authUsecase) Me(ctx context.Context, sess domain.Session) (*domain.User, error) {
	user := sess.CurrentUser()
	if user == nil {
		return nil, notSignedIn()
	}
	return user, nil
}

// Refresh refetches the profile so admin changes (role, approval) show up
// without signing in again.
func (u *authUsecase) Refresh(ctx context.Context, sess domain.Session) (*domain.User, error) {
	if err := sess.Refresh(ctx); err != nil {
		return nil, err
	}
	return u.Me(ctx, sess)
}
