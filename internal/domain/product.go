package domain

import (
	"context"
	"errors"
	"time"
)

// Common domain errors
var ErrNotFound = errors.New("resource not found")

type ProductCategory string

const (
	CategoryBooks       ProductCategory = "Books"
	CategoryElectronics ProductCategory = "Electronics"
	CategoryApparel     ProductCategory = "Apparel"
	CategoryStationery  ProductCategory = "Stationery"
	CategoryOther       ProductCategory = "Other"
)

// ListingType says whether a product is sold outright or rented out.
type ListingType string

const (
	ListingSell ListingType = "sell"
	ListingRent ListingType = "rent"
)

type ProductStatus string

const (
	ProductAvailable ProductStatus = "Available"
	ProductSold      ProductStatus = "Sold"
)

type Product struct {
	ID           string          `json:"id"`
	SellerID     string          `json:"sellerId"`
	SellerName   string          `json:"sellerName"`
	SellerCampus string          `json:"sellerCampus"`
	SellerPhone  string          `json:"sellerPhone,omitempty"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Price        float64         `json:"price"`
	Category     ProductCategory `json:"category"`
	Type         ListingType     `json:"type"`
	ImageURL     string          `json:"imageUrl,omitempty"`
	Tags         []string        `json:"tags"`
	Status       ProductStatus   `json:"status"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// ProductFilter narrows the catalogue listing. Zero values mean "any".
type ProductFilter struct {
	Search   string
	Category ProductCategory
	Type     ListingType
	Campus   string
	SellerID string
	Status   ProductStatus
	MinPrice *float64
	MaxPrice *float64
	Page     int
	PageSize int
}

type ProductRequest struct {
	Title       string          `json:"title" form:"title" binding:"required,min=3,max=120,no_emoji"`
	Description string          `json:"description" form:"description" binding:"max=2000"`
	Price       float64         `json:"price" form:"price" binding:"gte=0,lte=1000000"`
	Category    ProductCategory `json:"category" form:"category" binding:"required,oneof=Books Electronics Apparel Stationery Other"`
	Type        ListingType     `json:"type" form:"type" binding:"required,oneof=sell rent"`
	Tags        []string        `json:"tags" form:"tags" binding:"max=10,dive,min=1,max=30"`
}

// ImageUpload is a listing photo received with a create or update request.
type ImageUpload struct {
	Filename string
	Data     []byte
}

// ImageStore persists listing photos and returns their public URL.
type ImageStore interface {
	Upload(ctx context.Context, productID, filename string, data []byte) (string, error)
}

type ProductRepository interface {
	Create(ctx context.Context, product *Product) error
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	List(ctx context.Context, filter ProductFilter) ([]Product, int64, error)
	Update(ctx context.Context, product *Product) error
	Delete(ctx context.Context, id string) error
}

type ProductUsecase interface {
	List(ctx context.Context, filter ProductFilter) (*PaginatedResult[Product], error)
	Get(ctx context.Context, id string) (*Product, error)
	ListMine(ctx context.Context, sess Session, page, pageSize int) (*PaginatedResult[Product], error)
	Create(ctx context.Context, sess Session, req ProductRequest, image *ImageUpload) (*Product, error)
	Update(ctx context.Context, sess Session, id string, req ProductRequest, image *ImageUpload) (*Product, error)
	Delete(ctx context.Context, sess Session, id string) error
}

// PaginatedResult for list responses
type PaginatedResult[T any] struct {
	Data       []T   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalPages int   `json:"totalPages"`
}

func NewPaginatedResult[T any](data []T, total int64, page, pageSize int) *PaginatedResult[T] {
	if data == nil {
		data = []T{}
	}
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return &PaginatedResult[T]{
		Data:       data,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

// NormalizePage clamps paging parameters to sane bounds.
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
