package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

const (
	// MaxImageBytes caps a single listing image upload.
	MaxImageBytes = 5 * 1024 * 1024

	listingImagePrefix      = "listing-images"
	defaultPublicURLFormat  = "https://%s.s3.%s.amazonaws.com"
	cacheControlImmutable   = "public, max-age=31536000"
	errorMessageLoadConfig  = "load aws config"
	errorMessagePutObject   = "put listing image"
	errorMessageDeleteImage = "delete listing image"

	logEventImageStored  = "listing_image_stored"
	logEventImageDeleted = "listing_image_deleted"
)

var (
	ErrMissingBucket        = errors.New("object storage bucket is required")
	ErrEmptyImage           = errors.New("image is empty")
	ErrImageTooLarge        = errors.New("image exceeds 5MB")
	ErrUnsupportedImageType = errors.New("image type must be jpeg, png, webp or gif")
	ErrMissingObjectKey     = errors.New("object key is required")

	allowedImageTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif"}
)

// Config describes the bucket and credentials used for listing images.
type Config struct {
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	PublicBaseURL   string
}

// Enabled reports whether a bucket is configured.
func (config Config) Enabled() bool {
	return strings.TrimSpace(config.Bucket) != ""
}

// StoredImage describes an uploaded object.
type StoredImage struct {
	Key         string
	URL         string
	ContentType string
	Size        int64
}

// ImageStore persists listing images.
type ImageStore interface {
	PutListingImage(ctx context.Context, ownerID string, listingID string, contents []byte) (StoredImage, error)
	DeleteImage(ctx context.Context, key string) error
}

// ObjectClient is the subset of the S3 API used by S3ImageStore.
type ObjectClient interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, optionFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, optionFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3ImageStore stores listing images in an S3-compatible bucket.
type S3ImageStore struct {
	client        ObjectClient
	bucket        string
	publicBaseURL string
	logger        *zap.Logger
	now           func() time.Time
}

// NewS3ImageStore builds an S3 client from static credentials and an optional custom endpoint.
func NewS3ImageStore(ctx context.Context, config Config, logger *zap.Logger) (*S3ImageStore, error) {
	if !config.Enabled() {
		return nil, ErrMissingBucket
	}
	loadOptions := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(config.Region),
	}
	if config.AccessKeyID != "" || config.SecretAccessKey != "" {
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKeyID, config.SecretAccessKey, ""),
		))
	}
	awsConfig, loadErr := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if loadErr != nil {
		return nil, fmt.Errorf("%s: %w", errorMessageLoadConfig, loadErr)
	}

	endpoint := strings.TrimSpace(config.Endpoint)
	client := s3.NewFromConfig(awsConfig, func(options *s3.Options) {
		if endpoint != "" {
			options.BaseEndpoint = aws.String(endpoint)
			options.UsePathStyle = true
		}
	})

	publicBaseURL := strings.TrimSpace(config.PublicBaseURL)
	if publicBaseURL == "" {
		if endpoint != "" {
			publicBaseURL = strings.TrimRight(endpoint, "/") + "/" + config.Bucket
		} else {
			publicBaseURL = fmt.Sprintf(defaultPublicURLFormat, config.Bucket, config.Region)
		}
	}
	return NewS3ImageStoreWithClient(client, config.Bucket, publicBaseURL, logger), nil
}

// NewS3ImageStoreWithClient wires a store around an existing client.
func NewS3ImageStoreWithClient(client ObjectClient, bucket string, publicBaseURL string, logger *zap.Logger) *S3ImageStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &S3ImageStore{
		client:        client,
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        logger,
		now:           time.Now,
	}
}

// DetectImageType validates the payload and returns its MIME type and file extension.
func DetectImageType(contents []byte) (string, string, error) {
	if len(contents) == 0 {
		return "", "", ErrEmptyImage
	}
	if len(contents) > MaxImageBytes {
		return "", "", ErrImageTooLarge
	}
	detected := mimetype.Detect(contents)
	if !mimetype.EqualsAny(detected.String(), allowedImageTypes...) {
		return "", "", ErrUnsupportedImageType
	}
	return detected.String(), detected.Extension(), nil
}

// ListingImageKey builds the object key for a listing image uploaded at the given time.
func ListingImageKey(ownerID string, listingID string, uploadedAt time.Time, extension string) string {
	return fmt.Sprintf("%s/%s/%s/%d%s", listingImagePrefix, ownerID, listingID, uploadedAt.UnixMilli(), extension)
}

// PutListingImage validates and uploads the image, returning its key and public URL.
func (store *S3ImageStore) PutListingImage(ctx context.Context, ownerID string, listingID string, contents []byte) (StoredImage, error) {
	contentType, extension, detectErr := DetectImageType(contents)
	if detectErr != nil {
		return StoredImage{}, detectErr
	}
	objectKey := ListingImageKey(ownerID, listingID, store.now().UTC(), extension)

	_, putErr := store.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(store.bucket),
		Key:           aws.String(objectKey),
		Body:          bytes.NewReader(contents),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(contents))),
		CacheControl:  aws.String(cacheControlImmutable),
	})
	if putErr != nil {
		return StoredImage{}, fmt.Errorf("%s %s: %w", errorMessagePutObject, objectKey, putErr)
	}

	store.logger.Info(logEventImageStored, zap.String("key", objectKey), zap.Int("bytes", len(contents)))
	return StoredImage{
		Key:         objectKey,
		URL:         store.publicBaseURL + "/" + objectKey,
		ContentType: contentType,
		Size:        int64(len(contents)),
	}, nil
}

// DeleteImage removes a previously stored object.
func (store *S3ImageStore) DeleteImage(ctx context.Context, key string) error {
	trimmedKey := strings.TrimSpace(key)
	if trimmedKey == "" {
		return ErrMissingObjectKey
	}
	_, deleteErr := store.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(store.bucket),
		Key:    aws.String(trimmedKey),
	})
	if deleteErr != nil {
		return fmt.Errorf("%s %s: %w", errorMessageDeleteImage, trimmedKey, deleteErr)
	}
	store.logger.Info(logEventImageDeleted, zap.String("key", trimmedKey))
	return nil
}
