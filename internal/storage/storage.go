// Package storage gives access to the bucket backing a chart repository
package storage

import "context"

// UploadOptions controls how an object is written
type UploadOptions struct {
	ContentType string // empty leaves the client default
	PublicRead  bool
}

// Storage is the subset of object storage operations a repository needs
type Storage interface {
	// BucketExists reports whether the bucket exists and is accessible
	BucketExists(ctx context.Context, bucket string) (bool, error)

	// CreateBucket creates the bucket
	CreateBucket(ctx context.Context, bucket string) error

	// ObjectExists reports whether an object exists at key
	ObjectExists(ctx context.Context, bucket, key string) (bool, error)

	// Upload writes a local file to key
	Upload(ctx context.Context, bucket, localPath, key string, opts UploadOptions) error

	// Download copies the object at key to a local file
	Download(ctx context.Context, bucket, key, localPath string) error
}
