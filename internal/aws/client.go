package aws

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// SDKClient implements Client with STS and S3 from the AWS SDK v2.
type SDKClient struct {
	sts *sts.Client
	s3  *s3.Client
}

// NewSDKClient loads the shared AWS config. Empty profile or region fall back
// to the SDK's environment and file defaults.
func NewSDKClient(ctx context.Context, profile, region string) (*SDKClient, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &SDKClient{sts: sts.NewFromConfig(cfg), s3: s3.NewFromConfig(cfg)}, nil
}

func (c *SDKClient) VerifyCredentials(ctx context.Context) (*CallerIdentity, error) {
	out, err := c.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("getting caller identity: %w", err)
	}
	return &CallerIdentity{
		Account: aws.ToString(out.Account),
		ARN:     aws.ToString(out.Arn),
		UserID:  aws.ToString(out.UserId),
	}, nil
}

// PutFile streams a local file to bucket/key.
func (c *SDKClient) PutFile(ctx context.Context, bucket, key, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", localPath, err)
	}
	defer f.Close()

	_, err = c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(ContentType(localPath)),
	})
	if err != nil {
		return fmt.Errorf("putting s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

// DeletePrefix removes every object under prefix, one listing page per
// batch delete, and returns how many objects were removed. Objects S3
// refuses to delete are reported as an error after the remaining pages run.
func (c *SDKClient) DeletePrefix(ctx context.Context, bucket, prefix string) (int, error) {
	pages := s3.NewListObjectsV2Paginator(c.s3, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})

	deleted, failed := 0, 0
	var firstFailure string
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return deleted, fmt.Errorf("listing s3://%s/%s: %w", bucket, prefix, err)
		}
		if len(page.Contents) == 0 {
			continue
		}
		ids := make([]s3types.ObjectIdentifier, len(page.Contents))
		for i, obj := range page.Contents {
			ids[i] = s3types.ObjectIdentifier{Key: obj.Key}
		}
		out, err := c.s3.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(bucket),
			Delete: &s3types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return deleted, fmt.Errorf("deleting under s3://%s/%s: %w", bucket, prefix, err)
		}
		deleted += len(ids) - len(out.Errors)
		for _, e := range out.Errors {
			if failed == 0 {
				firstFailure = fmt.Sprintf("%s: %s", aws.ToString(e.Key), aws.ToString(e.Message))
			}
			failed++
		}
	}
	if failed > 0 {
		return deleted, fmt.Errorf("%d objects under s3://%s/%s not deleted (first: %s)", failed, bucket, prefix, firstFailure)
	}
	return deleted, nil
}

// ContentType picks the upload content type from the file extension.
func ContentType(name string) string {
	switch filepath.Ext(name) {
	case ".sql":
		return "application/sql"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
