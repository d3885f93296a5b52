package v1

import (
	"campus-marketplace-backend/internal/delivery/http/response"
	"campus-marketplace-backend/internal/domain"
	"campus-marketplace-backend/pkg/apperror"
	"campus-marketplace-backend/pkg/security"
	"campus-marketplace-backend/pkg/security/antivirus"
	"campus-marketplace-backend/pkg/storage"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const maxImageBytes = storage.MaxImageBytes

type ProductHandler struct {
	productUC domain.ProductUsecase
	scanner   antivirus.Scanner
	audit     *security.SecurityLogger
}

// NewProductHandler mounts the catalogue. Browsing is public; listing
// management needs a signed-in user and the usecase checks ownership.
func NewProductHandler(public *gin.RouterGroup, members *gin.RouterGroup, productUC domain.ProductUsecase, uploadLimit gin.HandlerFunc, scanner antivirus.Scanner, audit *security.SecurityLogger) {
	if scanner == nil {
		scanner = antivirus.Nop{}
	}
	if audit == nil {
		audit = security.NopLogger()
	}
	handler := &ProductHandler{productUC: productUC, scanner: scanner, audit: audit}

	public.GET("/products", handler.List)
	public.GET("/products/:id", handler.Get)

	members.GET("/products/mine", handler.ListMine)
	members.POST("/products", uploadLimit, handler.Create)
	members.PUT("/products/:id", uploadLimit, handler.Update)
	members.DELETE("/products/:id", handler.Delete)
}

// List godoc
// @Summary      Browse the catalogue
// @Description  Only available products are listed unless status is given.
// @Tags         products
// @Produce      json
// @Param        search    query     string  false  "Matches title, description and tags"
// @Param        category  query     string  false  "Books, Electronics, Apparel, Stationery, Other"
// @Param        type      query     string  false  "sell or rent"
// @Param        campus    query     string  false  "Seller campus"
// @Param        sellerId  query     string  false  "Seller"
// @Param        minPrice  query     number  false  "Lowest price"
// @Param        maxPrice  query     number  false  "Highest price"
// @Param        page      query     int     false  "Page number"
// @Param        pageSize  query     int     false  "Items per page"
// @Success      200       {object}  response.Response
// @Router       /products [get]
func (h *ProductHandler) List(c *gin.Context) {
	page, pageSize := pageParams(c)
	filter := domain.ProductFilter{
		Search:   strings.TrimSpace(c.Query("search")),
		Category: domain.ProductCategory(c.Query("category")),
		Type:     domain.ListingType(c.Query("type")),
		Campus:   c.Query("campus"),
		SellerID: c.Query("sellerId"),
		Status:   domain.ProductStatus(c.Query("status")),
		Page:     page,
		PageSize: pageSize,
	}

	var err error
	if filter.MinPrice, err = priceParam(c, "minPrice"); err != nil {
		c.Error(err)
		return
	}
	if filter.MaxPrice, err = priceParam(c, "maxPrice"); err != nil {
		c.Error(err)
		return
	}

	result, err := h.productUC.List(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Products", result)
}

func priceParam(c *gin.Context, name string) (*float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return nil, apperror.BadRequest(name + " must be a non-negative number")
	}
	return &v, nil
}

// Get godoc
// @Summary      One product
// @Tags         products
// @Produce      json
// @Param        id   path      string  true  "Product id"
// @Success      200  {object}  response.Response{data=domain.Product}
// @Failure      404  {object}  response.Response
// @Router       /products/{id} [get]
func (h *ProductHandler) Get(c *gin.Context) {
	p, err := h.productUC.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Product", p)
}

// ListMine godoc
// @Summary      The seller's own listings, sold ones included
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /products/mine [get]
func (h *ProductHandler) ListMine(c *gin.Context) {
	sess, ok := sessionOf(c)
	if !ok {
		return
	}
	page, pageSize := pageParams(c)
	result, err := h.productUC.ListMine(c.Request.Context(), sess, page, pageSize)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Your listings", result)
}

// Create godoc
// @Summary      List a product
// @Description  Multipart form with an optional image file, or a JSON body without one.
// @Tags         products
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        title        formData  string  true   "Title"
// @Param        description  formData  string  false  "Description"
// @Param        price        formData  number  true   "Price"
// @Param        category     formData  string  true   "Category"
// @Param        type         formData  string  true   "sell or rent"
// @Param        tags         formData  []string false "Tags"
// @Param        image        formData  file    false  "Photo (jpg, png, gif, webp)"
// @Success      201  {object}  response.Response{data=domain.Product}
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /products [post]
func (h *ProductHandler) Create(c *gin.Context) {
	var req domain.ProductRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}
	image, err := h.readImage(c)
	if err != nil {
		c.Error(err)
		return
	}
	sess, ok := sessionOf(c)
	if !ok {
		return
	}

	p, err := h.productUC.Create(c.Request.Context(), sess, req, image)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusCreated, "Product listed", p)
}

// Update godoc
// @Summary      Edit a listing
// @Tags         products
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Product id"
// @Success      200  {object}  response.Response{data=domain.Product}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /products/{id} [put]
func (h *ProductHandler) Update(c *gin.Context) {
	var req domain.ProductRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}
	image, err := h.readImage(c)
	if err != nil {
		c.Error(err)
		return
	}
	sess, ok := sessionOf(c)
	if !ok {
		return
	}

	p, err := h.productUC.Update(c.Request.Context(), sess, c.Param("id"), req, image)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Product updated", p)
}

// Delete godoc
// @Summary      Remove a listing
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Product id"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /products/{id} [delete]
func (h *ProductHandler) Delete(c *gin.Context) {
	sess, ok := sessionOf(c)
	if !ok {
		return
	}
	if err := h.productUC.Delete(c.Request.Context(), sess, c.Param("id")); err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Product deleted", nil)
}

// readImage returns the validated and scanned "image" form file, or nil when the
// request has none.
func (h *ProductHandler) readImage(c *gin.Context) (*domain.ImageUpload, error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return nil, nil
	}
	fh, err := c.FormFile("image")
	if err != nil {
		if err == http.ErrMissingFile {
			return nil, nil
		}
		return nil, apperror.BadRequest("Invalid image upload")
	}
	if fh.Size > maxImageBytes {
		return nil, apperror.BadRequest("Image must be 8MB or smaller")
	}

	f, err := fh.Open()
	if err != nil {
		return nil, apperror.Internal(err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImageBytes+1))
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if len(data) > maxImageBytes {
		return nil, apperror.BadRequest("Image must be 8MB or smaller")
	}

	if result := security.ValidateImage(fh.Filename, data); !result.Valid {
		return nil, apperror.BadRequest("Invalid image: " + result.Error)
	}

	if v := h.scanner.Scan(c.Request.Context(), fh.Filename, data); v.Infected {
		meta := clientMeta(c)
		h.audit.LogUploadRejected(c.Request.Context(), c.GetString(string(domain.KeyUserID)),
			security.RequestMeta{IP: meta.IP, UserAgent: meta.UserAgent, RequestID: meta.RequestID}, v.Scanner, v.Threat)
		if v.Err != nil {
			return nil, apperror.Unavailable("Image could not be scanned, try again later", v.Err)
		}
		return nil, apperror.New(http.StatusUnprocessableEntity, "Image was rejected by the malware scanner", nil)
	}
	return &domain.ImageUpload{Filename: fh.Filename, Data: data}, nil
}
