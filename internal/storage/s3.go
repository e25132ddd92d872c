package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"inmobiliaria-portal/internal/config"
	"inmobiliaria-portal/internal/logger"
)

// S3Backend stores images in an S3-compatible bucket behind a custom
// endpoint and serves permanent public URLs.
type S3Backend struct {
	client        *s3.Client
	bucket        string
	publicBaseURL string
}

// NewS3Backend builds the client with static credentials against the
// configured endpoint
func NewS3Backend(cfg *config.S3Config) (*S3Backend, error) {
	region := cfg.Region
	if region == "" {
		region = "auto"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	return &S3Backend{
		client:        client,
		bucket:        cfg.Bucket,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}, nil
}

// Kind identifies the backend
func (b *S3Backend) Kind() string {
	return "s3"
}

// Save uploads the blob under a per-property prefix. Upserts are
// disabled: a name collision is a hard failure, never an overwrite.
func (b *S3Backend) Save(ctx context.Context, propertyID int64, up Upload) (string, error) {
	if !IsImage(up.ContentType) {
		return "", ErrNotImage
	}

	key := fmt.Sprintf("properties/%d/%s", propertyID, objectName(propertyID, up.Filename))

	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(up.Data),
		ContentType: aws.String(up.ContentType),
		IfNoneMatch: aws.String("*"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image to bucket: %w", err)
	}

	url := fmt.Sprintf("%s/%s", b.publicBaseURL, key)
	logger.Log.Debugf("Storage: uploaded %s (%d bytes)", key, len(up.Data))
	return url, nil
}

// List returns public URLs for every object under the properties
// prefix
func (b *S3Backend) List(ctx context.Context) ([]string, error) {
	var urls []string

	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String("properties/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list bucket objects: %w", err)
		}
		for _, obj := range page.Contents {
			if obj.Key != nil {
				urls = append(urls, fmt.Sprintf("%s/%s", b.publicBaseURL, *obj.Key))
			}
		}
	}
	return urls, nil
}

// Delete extracts the object key from the public URL shape and removes
// the object
func (b *S3Backend) Delete(ctx context.Context, publicURL string) error {
	key, ok := b.keyFromURL(publicURL)
	if !ok {
		return fmt.Errorf("url %q does not belong to this bucket", publicURL)
	}

	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

// keyFromURL reverses the URL derivation done in Save
func (b *S3Backend) keyFromURL(publicURL string) (string, bool) {
	prefix := b.publicBaseURL + "/"
	if !strings.HasPrefix(publicURL, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(publicURL, prefix)
	if key == "" {
		return "", false
	}
	return key, true
}
