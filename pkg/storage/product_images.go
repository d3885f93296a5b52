package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"campus-marketplace-backend/pkg/apperror"
	"campus-marketplace-backend/pkg/security"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// MaxImageBytes caps listing photo uploads before decoding.
const MaxImageBytes = 8 << 20

// ObjectPutter is the part of *s3.Client the uploader needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ProductImages validates, downscales and uploads listing photos.
type ProductImages struct {
	client ObjectPutter
	cfg    S3Config
	maxPx  int
}

func NewProductImages(client ObjectPutter, cfg S3Config, maxPx int) *ProductImages {
	return &ProductImages{client: client, cfg: cfg, maxPx: maxPx}
}

// Upload stores the photo under products/<productID>/ and returns its URL.
func (p *ProductImages) Upload(ctx context.Context, productID, filename string, data []byte) (string, error) {
	if len(data) > MaxImageBytes {
		return "", apperror.BadRequest("Image must be 8MB or smaller")
	}

	check := security.ValidateImage(filename, data)
	if !check.Valid {
		return "", apperror.BadRequest("Invalid image: " + check.Error)
	}

	body, err := Downscale(data, p.maxPx)
	if err != nil {
		return "", apperror.BadRequest("Image could not be processed")
	}

	key := fmt.Sprintf("products/%s/%s.jpg", productID, uuid.NewString())

	putCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	_, err = p.client.PutObject(putCtx, &s3.PutObjectInput{
		Bucket:       aws.String(p.cfg.Bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String("image/jpeg"),
		CacheControl: aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return "", apperror.Unavailable("Image storage is unavailable", fmt.Errorf("put object %s: %w", key, err))
	}
	return p.cfg.ObjectURL(key), nil
}
