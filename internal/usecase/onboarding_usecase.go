package usecase

import (
	"campus-marketplace-backend/internal/domain"
	"campus-marketplace-backend/internal/session"
	"campus-marketplace-backend/pkg/apperror"
	"campus-marketplace-backend/pkg/security"
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

// dashboards is where each role lands once nothing blocks it.
var dashboards = map[domain.Role]string{
	domain.RoleBuyer:  "/buyer-dashboard",
	domain.RoleSeller: "/seller-dashboard",
	domain.RoleAdmin:  "/admin",
}

type onboardingUsecase struct {
	profiles domain.ProfileRepository
	audit    *security.SecurityLogger
	now      func() time.Time
}

func NewOnboardingUsecase(profiles domain.ProfileRepository, audit *security.SecurityLogger) domain.OnboardingUsecase {
	if audit == nil {
		audit = security.NopLogger()
	}
	return &onboardingUsecase{
		profiles: profiles,
		audit:    audit,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SelectRole creates the profile for a federated identity that has none.
func (u *onboardingUsecase) SelectRole(ctx context.Context, sess domain.Session, role domain.Role) (*domain.User, error) {
	identity := sess.Identity()
	if identity == nil {
		return nil, notSignedIn()
	}
	if sess.CurrentUser() != nil {
		return nil, apperror.Conflict("Role has already been selected")
	}
	if !role.Selectable() {
		return nil, apperror.BadRequest("Role must be buyer or seller")
	}

	existing, err := u.profiles.Get(ctx, identity.ID)
	if err != nil {
		return nil, apperror.Unavailable("Profile store is unavailable", err)
	}
	if existing != nil {
		return nil, apperror.Conflict("Role has already been selected")
	}

	name := identity.DisplayName
	if strings.TrimSpace(name) == "" {
		name = "Google User"
	}
	profile := domain.NewProfile(name, identity.Email, role, "", u.now())
	if err := u.profiles.Set(ctx, identity.ID, profile); err != nil {
		return nil, err
	}

	user := profile.ToUser(identity.ID)
	if err := sess.Adopt(ctx, user); err != nil {
		return nil, err
	}
	u.audit.LogUserCreated(ctx, user.ID, user.Email, string(role))
	u.audit.LogRoleTransition(ctx, user.ID, "", string(role), "select_role")
	return &user, nil
}

func (u *onboardingUsecase) CompleteProfile(ctx context.Context, sess domain.Session, req domain.CompleteProfileRequest) (*domain.User, error) {
	current := sess.CurrentUser()
	if current == nil {
		return nil, notSignedIn()
	}

	name := strings.TrimSpace(req.Name)
	phone := strings.TrimSpace(req.Phone)
	city := strings.TrimSpace(req.City)
	campus := strings.TrimSpace(req.Campus)
	complete := true
	update := domain.ProfileUpdate{
		Name:            &name,
		Phone:           &phone,
		City:            &city,
		Campus:          &campus,
		ProfileComplete: &complete,
	}

	if err := u.profiles.Update(ctx, current.ID, update); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperror.Identity(http.StatusNotFound, apperror.KindProfileNotFound, "Profile not found", err)
		}
		return nil, err
	}

	user := update.Apply(*current)
	if err := sess.Adopt(ctx, user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (u *onboardingUsecase) Status(ctx context.Context, sess domain.Session) domain.OnboardingStatus {
	user := sess.CurrentUser()
	if user == nil {
		if sess.Identity() != nil {
			return domain.OnboardingStatus{SignedIn: true, NeedsRole: true, NextPath: session.PathSelectRole}
		}
		return domain.OnboardingStatus{NextPath: session.PathLogin}
	}

	status := domain.OnboardingStatus{
		SignedIn:        true,
		ProfileComplete: user.ProfileComplete,
		Approved:        user.Approved,
		Role:            user.Role,
	}
	switch {
	case !user.ProfileComplete:
		status.NextPath = session.PathCompleteProfile
	case user.Role == domain.RoleSeller && !user.Approved:
		status.NextPath = session.PathWaitingApproval
	default:
		status.NextPath = dashboards[user.Role]
	}
	return status
}

// Authorize runs the route gate for path against the session's user.
func (u *onboardingUsecase) Authorize(ctx context.Context, sess domain.Session, path string) domain.RouteDecision {
	d := session.AuthorizePath(sess.CurrentUser(), path)
	return domain.RouteDecision{
		Path:     path,
		Decision: d.String(),
		Redirect: d.Redirect(),
		Allowed:  d == session.Allow,
	}
}
