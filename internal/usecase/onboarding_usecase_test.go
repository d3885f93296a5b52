package usecase_test

import (
	"campus-marketplace-backend/internal/domain"
	"campus-marketplace-backend/internal/usecase"
	"campus-marketplace-backend/pkg/apperror"
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestOnboardingFlow(t *testing.T) {
	ctx := context.Background()
	profiles := new(MockProfileRepo)
	uc := usecase.NewOnboardingUsecase(profiles, nil)
	sess := newSession(t, profiles)

	// Nothing signed in yet
	status := uc.Status(ctx, sess)
	assert.False(t, status.SignedIn)
	assert.Equal(t, "/login", status.NextPath)

	_, err := uc.SelectRole(ctx, sess, domain.RoleSeller)
	assert.True(t, apperror.IsKind(err, apperror.KindNotAuthenticated))

	// A federated identity with no profile arrives
	profiles.On("Get", mock.Anything, "g1").Return(nil, nil)
	sess.Publish(ctx, &domain.Identity{ID: "g1", Email: "g@campus.edu", DisplayName: "Gia"})
	require.Nil(t, sess.CurrentUser())

	status = uc.Status(ctx, sess)
	assert.True(t, status.NeedsRole)
	assert.Equal(t, "/select-role", status.NextPath)

	profiles.On("Set", mock.Anything, "g1", mock.MatchedBy(func(p domain.Profile) bool {
		return p.Name == "Gia" && p.Role == domain.RoleSeller && !p.Approved && !p.ProfileComplete
	})).Return(nil).Once()

	user, err := uc.SelectRole(ctx, sess, domain.RoleSeller)
	require.NoError(t, err)
	assert.Equal(t, "g1", user.ID)
	assert.Equal(t, domain.RoleSeller, sess.CurrentUser().Role)

	decision := uc.Authorize(ctx, sess, "/seller-dashboard")
	assert.False(t, decision.Allowed)
	assert.Equal(t, "redirect_complete_profile", decision.Decision)
	assert.Equal(t, "/complete-profile", decision.Redirect)

	profiles.On("Update", mock.Anything, "g1", mock.MatchedBy(func(u domain.ProfileUpdate) bool {
		return u.ProfileComplete != nil && *u.ProfileComplete && *u.Campus == "North"
	})).Return(nil).Once()

	user, err = uc.CompleteProfile(ctx, sess, domain.CompleteProfileRequest{
		Name: "Gia", Phone: "9876543210", City: "Pune", Campus: " North ",
	})
	require.NoError(t, err)
	assert.True(t, user.ProfileComplete)
	assert.Equal(t, "North", user.Campus)

	decision = uc.Authorize(ctx, sess, "/seller-dashboard")
	assert.Equal(t, "redirect_pending_approval", decision.Decision)
	assert.Equal(t, "/waiting-approval", uc.Status(ctx, sess).NextPath)

	// Buyers' areas redirect the seller home
	decision = uc.Authorize(ctx, sess, "/checkout")
	assert.Equal(t, "redirect_home", decision.Decision)

	// Public pages are always open
	assert.True(t, uc.Authorize(ctx, sess, "/products").Allowed)

	_, err = uc.SelectRole(ctx, sess, domain.RoleBuyer)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusConflict, appErr.Code)
}

func TestSelectRoleRejectsAdmin(t *testing.T) {
	ctx := context.Background()
	profiles := new(MockProfileRepo)
	profiles.On("Get", mock.Anything, "g1").Return(nil, nil)
	uc := usecase.NewOnboardingUsecase(profiles, nil)
	sess := newSession(t, profiles)
	sess.Publish(ctx, &domain.Identity{ID: "g1"})

	_, err := uc.SelectRole(ctx, sess, domain.RoleAdmin)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusBadRequest, appErr.Code)
}

func TestCompleteProfileMissingRecord(t *testing.T) {
	ctx := context.Background()
	profiles := new(MockProfileRepo)
	uc := usecase.NewOnboardingUsecase(profiles, nil)
	sess := signedIn(t, profiles, buyer("u1", "North"))

	profiles.On("Update", mock.Anything, "u1", mock.Anything).Return(domain.ErrNotFound)
	_, err := uc.CompleteProfile(ctx, sess, domain.CompleteProfileRequest{Name: "A", Phone: "1", City: "C", Campus: "D"})
	assert.True(t, apperror.IsKind(err, apperror.KindProfileNotFound))
}

func TestStatusForApprovedBuyer(t *testing.T) {
	profiles := new(MockProfileRepo)
	uc := usecase.NewOnboardingUsecase(profiles, nil)
	sess := signedIn(t, profiles, buyer("u1", "North"))

	status := uc.Status(context.Background(), sess)
	assert.Equal(t, "/buyer-dashboard", status.NextPath)
	assert.Equal(t, domain.RoleBuyer, status.Role)
}
