package usecase_test

import (
	"campus-marketplace-backend/internal/domain"
	"campus-marketplace-backend/internal/session"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) SignUp(ctx context.Context, email, password, displayName string) (*domain.AuthSession, error) {
	args := m.Called(ctx, email, password, displayName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuthSession), args.Error(1)
}

func (m *MockIdentityProvider) SignIn(ctx context.Context, email, password string) (*domain.AuthSession, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuthSession), args.Error(1)
}

func (m *MockIdentityProvider) SignInWithIDToken(ctx context.Context, provider, idToken string) (*domain.AuthSession, error) {
	args := m.Called(ctx, provider, idToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuthSession), args.Error(1)
}

func (m *MockIdentityProvider) ResendVerification(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *MockIdentityProvider) SignOut(ctx context.Context, accessToken string) error {
	return m.Called(ctx, accessToken).Error(0)
}

type MockProfileRepo struct {
	mock.Mock
}

func (m *MockProfileRepo) Get(ctx context.Context, id string) (*domain.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *MockProfileRepo) Set(ctx context.Context, id string, profile domain.Profile) error {
	return m.Called(ctx, id, profile).Error(0)
}

func (m *MockProfileRepo) Update(ctx context.Context, id string, update domain.ProfileUpdate) error {
	return m.Called(ctx, id, update).Error(0)
}

func (m *MockProfileRepo) Remove(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockLoginGuard struct {
	mock.Mock
}

func (m *MockLoginGuard) IsBlocked(ctx context.Context, email, ip string) (bool, error) {
	args := m.Called(ctx, email, ip)
	return args.Bool(0), args.Error(1)
}

func (m *MockLoginGuard) RecordFailure(ctx context.Context, email string, meta domain.ClientMeta, reason string) (bool, error) {
	args := m.Called(ctx, email, meta, reason)
	return args.Bool(0), args.Error(1)
}

func (m *MockLoginGuard) Clear(ctx context.Context, email, ip string) error {
	return m.Called(ctx, email, ip).Error(0)
}

type MockProductRepo struct {
	mock.Mock
}

func (m *MockProductRepo) Create(ctx context.Context, p *domain.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockProductRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockProductRepo) GetByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *MockProductRepo) List(ctx context.Context, f domain.ProductFilter) ([]domain.Product, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.Product), args.Get(1).(int64), args.Error(2)
}

func (m *MockProductRepo) Update(ctx context.Context, p *domain.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockProductRepo) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type MockOrderRepo struct {
	mock.Mock
}

func (m *MockOrderRepo) Create(ctx context.Context, o *domain.Order) error {
	return m.Called(ctx, o).Error(0)
}

func (m *MockOrderRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderRepo) ListByBuyer(ctx context.Context, buyerID string, page, pageSize int) ([]domain.Order, int64, error) {
	args := m.Called(ctx, buyerID, page, pageSize)
	return args.Get(0).([]domain.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepo) ListBySeller(ctx context.Context, sellerID string, page, pageSize int) ([]domain.Order, int64, error) {
	args := m.Called(ctx, sellerID, page, pageSize)
	return args.Get(0).([]domain.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepo) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

type MockAdminRepo struct {
	mock.Mock
}

func (m *MockAdminRepo) CountUsersByRole(ctx context.Context) (domain.UsersByRole, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.UsersByRole), args.Error(1)
}

func (m *MockAdminRepo) CountPendingSellers(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAdminRepo) CountProducts(ctx context.Context) (int64, int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

func (m *MockAdminRepo) CountOrdersByStatus(ctx context.Context) (domain.OrdersByStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.OrdersByStatus), args.Error(1)
}

func (m *MockAdminRepo) ListUsers(ctx context.Context, f domain.UserFilter) ([]domain.AdminUser, int64, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]domain.AdminUser), args.Get(1).(int64), args.Error(2)
}

func (m *MockAdminRepo) GetUser(ctx context.Context, id string) (*domain.AdminUser, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AdminUser), args.Error(1)
}

type MockAuditRepo struct {
	mock.Mock
}

func (m *MockAuditRepo) ListEvents(ctx context.Context, f domain.AuditEventFilter) ([]domain.AuditEvent, int64, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]domain.AuditEvent), args.Get(1).(int64), args.Error(2)
}

func (m *MockAuditRepo) Summarize(ctx context.Context, since time.Time) (*domain.AuditSummary, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuditSummary), args.Error(1)
}

type MockImageStore struct {
	mock.Mock
}

func (m *MockImageStore) Upload(ctx context.Context, productID, filename string, data []byte) (string, error) {
	args := m.Called(ctx, productID, filename, data)
	return args.String(0), args.Error(1)
}

func newSession(t *testing.T, profiles domain.ProfileRepository) *session.Session {
	t.Helper()
	s := session.New(context.Background(), session.NewID(), session.NewMemoryKV(0), profiles)
	t.Cleanup(s.Close)
	return s
}

func signedIn(t *testing.T, profiles domain.ProfileRepository, user domain.User) *session.Session {
	t.Helper()
	s := newSession(t, profiles)
	require.NoError(t, s.Adopt(context.Background(), user))
	return s
}

func buyer(id, campus string) domain.User {
	return domain.User{
		ID:              id,
		Name:            "Buyer " + id,
		Email:           id + "@campus.edu",
		Role:            domain.RoleBuyer,
		Campus:          campus,
		ProfileComplete: true,
		Approved:        true,
		CreatedAt:       time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func seller(id, campus string, approved bool) domain.User {
	u := buyer(id, campus)
	u.Name = "Seller " + id
	u.Role = domain.RoleSeller
	u.Approved = approved
	return u
}

func product(id, sellerID string, price float64, campus string) *domain.Product {
	return &domain.Product{
		ID:           id,
		SellerID:     sellerID,
		Title:        "Item " + id,
		Price:        price,
		SellerCampus: campus,
		Status:       domain.ProductAvailable,
	}
}
