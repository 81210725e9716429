package storage

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/ralt/chartrepo/internal/runner"
	"github.com/sirupsen/logrus"
)

// CLI implements Storage by shelling out to the aws CLI. Credentials and
// region come from the CLI's own configuration
type CLI struct {
	bin    string
	runner runner.Runner
}

// NewCLI creates a Storage using the aws binary at bin
func NewCLI(bin string, r runner.Runner) *CLI {
	if bin == "" {
		bin = "aws"
	}
	return &CLI{bin: bin, runner: r}
}

func s3URI(bucket, key string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, key)
}

// BucketExists lists the bucket root; any failure means missing or inaccessible
func (c *CLI) BucketExists(ctx context.Context, bucket string) (bool, error) {
	if err := c.runner.Run(ctx, c.bin, "s3", "ls", "s3://"+bucket); err != nil {
		logrus.Debugf("Bucket %s not accessible: %v", bucket, err)
		return false, nil
	}
	return true, nil
}

// CreateBucket creates the bucket with aws s3 mb
func (c *CLI) CreateBucket(ctx context.Context, bucket string) error {
	if err := c.runner.Run(ctx, c.bin, "s3", "mb", "s3://"+bucket); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}
	return nil
}

// ObjectExists lists key as a prefix and looks for an exact name match, so
// that charts/foo.tgz is not reported for charts/foo.tgz.prov
func (c *CLI) ObjectExists(ctx context.Context, bucket, key string) (bool, error) {
	out, err := c.runner.Output(ctx, c.bin, "s3", "ls", s3URI(bucket, key))
	if err != nil {
		if notListed(err) {
			logrus.Debugf("No object at %s: %v", s3URI(bucket, key), err)
			return false, nil
		}
		return false, fmt.Errorf("failed to check %s: %w", s3URI(bucket, key), err)
	}

	name := path.Base(key)
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		// 2024-01-02 15:04:05       1234 foo-0.1.0.tgz
		if line == name || strings.HasSuffix(line, " "+name) {
			return true, nil
		}
	}
	return false, nil
}

// notListed reports whether a failed aws s3 ls only means there is nothing to
// list: exit status 1 with nothing on stderr, or a missing bucket. Access and
// network errors also exit non-zero but print the service error
func notListed(err error) bool {
	var cmdErr *runner.CommandError
	if !errors.As(err, &cmdErr) {
		return false
	}
	return cmdErr.Stderr == "" || strings.Contains(cmdErr.Stderr, "NoSuchBucket")
}

// Upload copies a local file to key
func (c *CLI) Upload(ctx context.Context, bucket, localPath, key string, opts UploadOptions) error {
	args := []string{"s3", "cp", localPath, s3URI(bucket, key)}
	if opts.ContentType != "" {
		args = append(args, "--content-type", opts.ContentType)
	}
	if opts.PublicRead {
		args = append(args, "--acl", "public-read")
	}

	if err := c.runner.Run(ctx, c.bin, args...); err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

// Download copies the object at key to localPath
func (c *CLI) Download(ctx context.Context, bucket, key, localPath string) error {
	if err := c.runner.Run(ctx, c.bin, "s3", "cp", s3URI(bucket, key), localPath); err != nil {
		return fmt.Errorf("failed to download %s: %w", key, err)
	}
	return nil
}
