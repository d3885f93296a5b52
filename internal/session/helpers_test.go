package session

import (
	"context"
	"errors"
	"time"

	"campus-marketplace-backend/internal/domain"

	"github.com/stretchr/testify/mock"
)

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

// failingKV reads from an inner store but refuses every write.
type failingKV struct {
	inner KV
}

var errStoreDown = errors.New("store down")

func (f failingKV) Get(ctx context.Context, key string) ([]byte, error) { return f.inner.Get(ctx, key) }
func (f failingKV) Set(context.Context, string, []byte) error          { return errStoreDown }
func (f failingKV) Delete(context.Context, string) error               { return errStoreDown }

func testUser(id string, role domain.Role) domain.User {
	return domain.User{
		ID:              id,
		Name:            "User " + id,
		Email:           id + "@campus.edu",
		Role:            role,
		Campus:          "North Campus",
		ProfileComplete: true,
		Approved:        true,
		CreatedAt:       time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func testProfile(role domain.Role) *domain.Profile {
	p := domain.NewProfile("Fetched", "fetched@campus.edu", role, "South Campus",
		time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	p.ProfileComplete = true
	return &p
}

func testProduct(id string, price float64, campus string) domain.Product {
	return domain.Product{
		ID:           id,
		SellerID:     "seller-1",
		Title:        "Item " + id,
		Price:        price,
		SellerCampus: campus,
		Status:       domain.ProductAvailable,
	}
}
