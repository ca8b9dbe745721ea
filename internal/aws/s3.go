package aws

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// DumpUploader publishes dump files under a bucket prefix.
type DumpUploader struct {
	client Client
	bucket string
	prefix string
}

// NewDumpUploader creates a new dump uploader.
func NewDumpUploader(client Client, bucket, prefix string) *DumpUploader {
	return &DumpUploader{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Key is the object key for a local file.
func (u *DumpUploader) Key(localPath string) string {
	return path.Join(u.prefix, filepath.Base(localPath))
}

// Upload verifies credentials once, then uploads each file and returns their
// s3:// URIs in order.
func (u *DumpUploader) Upload(ctx context.Context, files ...string) ([]string, error) {
	if err := u.check(ctx); err != nil {
		return nil, err
	}
	uris := make([]string, 0, len(files))
	for _, f := range files {
		key := u.Key(f)
		if err := u.client.PutFile(ctx, u.bucket, key, f); err != nil {
			return uris, fmt.Errorf("uploading %s: %w", filepath.Base(f), err)
		}
		uris = append(uris, fmt.Sprintf("s3://%s/%s", u.bucket, key))
	}
	return uris, nil
}

// Prune removes every object under the uploader's prefix and returns the
// number removed. An empty prefix would mean the whole bucket and is refused.
func (u *DumpUploader) Prune(ctx context.Context) (int, error) {
	if u.prefix == "" {
		return 0, fmt.Errorf("refusing to prune an empty prefix")
	}
	if err := u.check(ctx); err != nil {
		return 0, err
	}
	n, err := u.client.DeletePrefix(ctx, u.bucket, u.prefix+"/")
	if err != nil {
		return n, fmt.Errorf("pruning s3://%s/%s: %w", u.bucket, u.prefix, err)
	}
	return n, nil
}

func (u *DumpUploader) check(ctx context.Context) error {
	if u.bucket == "" {
		return fmt.Errorf("no S3 bucket configured")
	}
	if _, err := u.client.VerifyCredentials(ctx); err != nil {
		return fmt.Errorf("verifying AWS credentials: %w", err)
	}
	return nil
}
