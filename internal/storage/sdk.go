package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// SDKConfig holds configuration for SDK
type SDKConfig struct {
	Region   string
	Endpoint string // Optional custom endpoint (MinIO, LocalStack, ...)
}

// SDK implements Storage with the AWS SDK, talking to S3 directly instead
// of through the aws CLI. Credentials come from the default provider chain
type SDK struct {
	client *s3.Client
	region string
}

// NewSDK creates an SDK-backed Storage
func NewSDK(ctx context.Context, cfg SDKConfig) (*SDK, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &SDK{client: client, region: awsCfg.Region}, nil
}

// BucketExists issues a HeadBucket; any failure means missing or inaccessible
func (s *SDK) BucketExists(ctx context.Context, bucket string) (bool, error) {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	})
	return err == nil, nil
}

// CreateBucket creates the bucket in the configured region. Object ownership
// is left with the writer so that per-object public-read ACLs are honoured
func (s *SDK) CreateBucket(ctx context.Context, bucket string) error {
	input := &s3.CreateBucketInput{
		Bucket:          aws.String(bucket),
		ObjectOwnership: types.ObjectOwnershipObjectWriter,
	}
	// us-east-1 rejects an explicit location constraint
	if s.region != "" && s.region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(s.region),
		}
	}

	if _, err := s.client.CreateBucket(ctx, input); err != nil {
		return fmt.Errorf("s3 create bucket %s failed: %w", bucket, err)
	}
	return nil
}

// ObjectExists issues a HeadObject for key
func (s *SDK) ObjectExists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}

	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return false, nil
	}
	return false, fmt.Errorf("s3 head %s failed: %w", key, err)
}

// Upload puts a local file at key
func (s *SDK) Upload(ctx context.Context, bucket, localPath, key string, opts UploadOptions) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   f,
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if opts.PublicRead {
		input.ACL = types.ObjectCannedACLPublicRead
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("s3 put %s failed: %w", key, err)
	}
	return nil
}

// Download writes the object at key to localPath
func (s *SDK) Download(ctx context.Context, bucket, key, localPath string) error {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 get %s failed: %w", key, err)
	}
	defer func() { _ = result.Body.Close() }()

	f, err := os.Create(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, result.Body); err != nil {
		return fmt.Errorf("s3 get %s failed: %w", key, err)
	}
	return f.Sync()
}
