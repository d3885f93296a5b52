package usecase_test

import (
	"campus-marketplace-backend/internal/domain"
	"campus-marketplace-backend/internal/usecase"
	"campus-marketplace-backend/pkg/apperror"
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestAuditListEvents(t *testing.T) {
	ctx := context.Background()

	t.Run("normalizes severities and paging", func(t *testing.T) {
		repo := new(MockAuditRepo)
		uc := usecase.NewAuditUsecase(repo)

		repo.On("ListEvents", ctx, mock.MatchedBy(func(f domain.AuditEventFilter) bool {
			return f.Page == 1 && f.PageSize == 20 &&
				len(f.Severities) == 2 && f.Severities[0] == "HIGH" && f.Severities[1] == "WARN"
		})).Return([]domain.AuditEvent{{ID: 7, EventType: "csrf_violation", Severity: "HIGH"}}, int64(1), nil)

		result, err := uc.ListEvents(ctx, domain.AuditEventFilter{Severities: []string{"high", " warn "}})
		require.NoError(t, err)
		assert.Equal(t, int64(1), result.Total)
		assert.Equal(t, int64(7), result.Data[0].ID)
	})

	t.Run("rejects inverted range", func(t *testing.T) {
		repo := new(MockAuditRepo)
		uc := usecase.NewAuditUsecase(repo)
		now := time.Now()
		earlier := now.Add(-time.Hour)

		_, err := uc.ListEvents(ctx, domain.AuditEventFilter{Since: &now, Until: &earlier})
		assertCode(t, err, http.StatusBadRequest)
		repo.AssertNotCalled(t, "ListEvents", mock.Anything, mock.Anything)
	})

	t.Run("rejects unknown severity and event type", func(t *testing.T) {
		uc := usecase.NewAuditUsecase(new(MockAuditRepo))

		_, err := uc.ListEvents(ctx, domain.AuditEventFilter{Severities: []string{"loud"}})
		assertCode(t, err, http.StatusBadRequest)

		_, err = uc.ListEvents(ctx, domain.AuditEventFilter{EventTypes: []string{"password_changed"}})
		assertCode(t, err, http.StatusBadRequest)
	})

	t.Run("repository failure", func(t *testing.T) {
		repo := new(MockAuditRepo)
		uc := usecase.NewAuditUsecase(repo)
		repo.On("ListEvents", ctx, mock.Anything).Return([]domain.AuditEvent(nil), int64(0), errors.New("boom"))

		_, err := uc.ListEvents(ctx, domain.AuditEventFilter{EventTypes: []string{"login_failed"}})
		assertCode(t, err, http.StatusInternalServerError)
	})
}

func TestAuditSummary(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults to one day", func(t *testing.T) {
		repo := new(MockAuditRepo)
		uc := usecase.NewAuditUsecase(repo)

		before := time.Now().UTC()
		repo.On("Summarize", ctx, mock.MatchedBy(func(since time.Time) bool {
			d := before.Sub(since)
			return d > 23*time.Hour && d < 25*time.Hour
		})).Return(&domain.AuditSummary{Total: 3}, nil)

		summary, err := uc.Summary(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(3), summary.Total)
	})

	t.Run("window too large", func(t *testing.T) {
		uc := usecase.NewAuditUsecase(new(MockAuditRepo))
		_, err := uc.Summary(ctx, 365*24*time.Hour)
		assertCode(t, err, http.StatusBadRequest)
	})
}

func assertCode(t *testing.T, err error, code int) {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
}
