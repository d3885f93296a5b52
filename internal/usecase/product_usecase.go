package usecase

import (
	"campus-marketplace-backend/internal/domain"
	"campus-marketplace-backend/pkg/apperror"
	"campus-marketplace-backend/pkg/logger"
	"context"
	"errors"
	"strings"
	"time"
)

type productUsecase struct {
	repo   domain.ProductRepository
	images domain.ImageStore
	now    func() time.Time
}

// NewProductUsecase wires the catalogue. images may be nil, in which case
// listings without a photo are still accepted.
func NewProductUsecase(repo domain.ProductRepository, images domain.ImageStore) domain.ProductUsecase {
	return &productUsecase{
		repo:   repo,
		images: images,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// List shows available products unless the filter asks for another status.
func (u *productUsecase) List(ctx context.Context, filter domain.ProductFilter) (*domain.PaginatedResult[domain.Product], error) {
	filter.Page, filter.PageSize = domain.NormalizePage(filter.Page, filter.PageSize)
	if filter.Status == "" {
		filter.Status = domain.ProductAvailable
	}
	if filter.MinPrice != nil && filter.MaxPrice != nil && *filter.MinPrice > *filter.MaxPrice {
		return nil, apperror.BadRequest("minPrice cannot exceed maxPrice")
	}

	products, total, err := u.repo.List(ctx, filter)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return domain.NewPaginatedResult(products, total, filter.Page, filter.PageSize), nil
}

func (u *productUsecase) Get(ctx context.Context, id string) (*domain.Product, error) {
	p, err := u.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperror.NotFound("Product not found")
		}
		return nil, apperror.Internal(err)
	}
	return p, nil
}

func (u *productUsecase) ListMine(ctx context.Context, sess domain.Session, page, pageSize int) (*domain.PaginatedResult[domain.Product], error) {
	user, err := requireApprovedSeller(sess)
	if err != nil {
		return nil, err
	}
	page, pageSize = domain.NormalizePage(page, pageSize)

	// Sellers see their sold listings too
	products, total, err := u.repo.List(ctx, domain.ProductFilter{SellerID: user.ID, Page: page, PageSize: pageSize})
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return domain.NewPaginatedResult(products, total, page, pageSize), nil
}

func (u *productUsecase) Create(ctx context.Context, sess domain.Session, req domain.ProductRequest, image *domain.ImageUpload) (*domain.Product, error) {
	user, err := requireApprovedSeller(sess)
	if err != nil {
		return nil, err
	}
	if image != nil && u.images == nil {
		return nil, apperror.BadRequest("Image uploads are disabled")
	}

	now := u.now()
	p := &domain.Product{
		SellerID:     user.ID,
		SellerName:   user.Name,
		SellerCampus: user.Campus,
		SellerPhone:  user.Phone,
		Title:        strings.TrimSpace(req.Title),
		Description:  strings.TrimSpace(req.Description),
		Price:        req.Price,
		Category:     req.Category,
		Type:         req.Type,
		Tags:         normalizeTags(req.Tags),
		Status:       domain.ProductAvailable,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := u.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	if image != nil {
		url, err := u.images.Upload(ctx, p.ID, image.Filename, image.Data)
		if err != nil {
			if delErr := u.repo.Delete(ctx, p.ID); delErr != nil {
				logger.Log.Error("Failed to roll back product after image upload error", "product_id", p.ID, "error", delErr)
			}
			return nil, err
		}
		p.ImageURL = url
		if err := u.repo.Update(ctx, p); err != nil {
			return nil, apperror.Internal(err)
		}
	}

	logger.Log.Info("Product listed", "product_id", p.ID, "seller_id", user.ID)
	return p, nil
}

func (u *productUsecase) Update(ctx context.Context, sess domain.Session, id string, req domain.ProductRequest, image *domain.ImageUpload) (*domain.Product, error) {
	p, err := u.owned(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if image != nil && u.images == nil {
		return nil, apperror.BadRequest("Image uploads are disabled")
	}

	p.Title = strings.TrimSpace(req.Title)
	p.Description = strings.TrimSpace(req.Description)
	p.Price = req.Price
	p.Category = req.Category
	p.Type = req.Type
	p.Tags = normalizeTags(req.Tags)
	p.UpdatedAt = u.now()

	if image != nil {
		url, err := u.images.Upload(ctx, p.ID, image.Filename, image.Data)
		if err != nil {
			return nil, err
		}
		p.ImageURL = url
	}

	if err := u.repo.Update(ctx, p); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperror.NotFound("Product not found")
		}
		return nil, err
	}
	return p, nil
}

func (u *productUsecase) Delete(ctx context.Context, sess domain.Session, id string) error {
	p, err := u.owned(ctx, sess, id)
	if err != nil {
		return err
	}
	if err := u.repo.Delete(ctx, p.ID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return apperror.NotFound("Product not found")
		}
		return err
	}
	return nil
}

// owned loads the product and checks the caller is its seller or an admin.
func (u *productUsecase) owned(ctx context.Context, sess domain.Session, id string) (*domain.Product, error) {
	user := sess.CurrentUser()
	if user == nil {
		return nil, notSignedIn()
	}
	p, err := u.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.SellerID != user.ID && user.Role != domain.RoleAdmin {
		return nil, apperror.Forbidden("You can only manage your own listings")
	}
	return p, nil
}

func requireApprovedSeller(sess domain.Session) (*domain.User, error) {
	user := sess.CurrentUser()
	if user == nil {
		return nil, notSignedIn()
	}
	if user.Role != domain.RoleSeller {
		return nil, apperror.Forbidden("Only sellers can manage listings")
	}
	if !user.Approved {
		return nil, apperror.Forbidden("Your seller account is awaiting approval")
	}
	return user, nil
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
