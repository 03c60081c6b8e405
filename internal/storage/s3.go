package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vea-labs/docpipe/internal/domain"
)

// S3ClientConfig holds configuration for S3Client
type S3ClientConfig struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UsePathStyle    bool
}

// S3Client is the document store backed by S3-compatible object storage
// (e.g., RustFS, MinIO). Source files are never deleted by the pipeline;
// the processed flag lives in object metadata.
type S3Client struct {
	client *s3.Client
	bucket string
}

// NewS3Client creates a new S3Client with the given configuration
func NewS3Client(ctx context.Context, cfg S3ClientConfig) (*S3Client, error) {
	// Create custom resolver for S3-compatible endpoints
	customResolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			if cfg.Endpoint != "" {
				return aws.Endpoint{
					URL:               cfg.Endpoint,
					HostnameImmutable: true,
				}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		},
	)

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
		config.WithEndpointResolverWithOptions(customResolver),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Path-style addressing for S3-compatible services
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3Client{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

// List enumerates source files under the given prefix, including each
// object's user metadata so callers can partition processed/unprocessed.
func (c *S3Client) List(ctx context.Context, prefix string) ([]domain.SourceFile, error) {
	var files []domain.SourceFile

	paginator := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}

		for _, obj := range page.Contents {
			name := aws.ToString(obj.Key)

			head, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{
				Bucket: aws.String(c.bucket),
				Key:    aws.String(name),
			})
			if err != nil {
				return nil, fmt.Errorf("failed to head object %q: %w", name, err)
			}

			files = append(files, domain.SourceFile{
				Name:         name,
				Size:         aws.ToInt64(obj.Size),
				ContentType:  aws.ToString(head.ContentType),
				LastModified: aws.ToTime(obj.LastModified),
				Metadata:     head.Metadata,
			})
		}
	}

	return files, nil
}

// Upload writes an object with the given content type. Existing objects are
// overwritten.
func (c *S3Client) Upload(ctx context.Context, name string, data []byte, contentType string) error {
	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(name),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to put object %q: %w", name, err)
	}
	return nil
}

// Download fetches an object's full byte stream into the local file at path.
func (c *S3Client) Download(ctx context.Context, name, path string) error {
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		return fmt.Errorf("failed to get object %q: %w", name, err)
	}
	defer out.Body.Close()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create local file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, out.Body); err != nil {
		return fmt.Errorf("failed to write object %q to disk: %w", name, err)
	}

	return nil
}

// GetMetadata returns an object's user metadata plus standard attributes.
func (c *S3Client) GetMetadata(ctx context.Context, name string) (map[string]string, error) {
	head, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to head object %q: %w", name, err)
	}

	meta := make(map[string]string, len(head.Metadata)+3)
	for k, v := range head.Metadata {
		meta[k] = v
	}
	meta["content_type"] = aws.ToString(head.ContentType)
	meta["file_size"] = fmt.Sprintf("%d", aws.ToInt64(head.ContentLength))
	meta["upload_date"] = aws.ToTime(head.LastModified).UTC().Format(time.RFC3339)

	return meta, nil
}

// UpdateMetadata merges the given entries into an object's user metadata.
// S3 metadata is immutable in place, so the object is copied onto itself
// with a replaced metadata set.
func (c *S3Client) UpdateMetadata(ctx context.Context, name string, updates map[string]string) error {
	head, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		return fmt.Errorf("failed to head object %q: %w", name, err)
	}

	merged := make(map[string]string, len(head.Metadata)+len(updates))
	for k, v := range head.Metadata {
		merged[k] = v
	}
	for k, v := range updates {
		merged[k] = v
	}

	// CopySource must be URL-encoded or keys with spaces fail the copy.
	_, err = c.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:            aws.String(c.bucket),
		Key:               aws.String(name),
		CopySource:        aws.String(c.bucket + "/" + url.PathEscape(name)),
		ContentType:       head.ContentType,
		Metadata:          merged,
		MetadataDirective: "REPLACE",
	})
	if err != nil {
		return fmt.Errorf("failed to update metadata for %q: %w", name, err)
	}

	return nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (c *S3Client) EnsureBucket(ctx context.Context) error {
	_, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.bucket),
	})
	if err == nil {
		return nil // Bucket exists
	}

	_, err = c.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(c.bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}

	return nil
}
