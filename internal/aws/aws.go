// Package aws wraps the AWS services used to publish database dumps.
package aws

import "context"

// Client defines the AWS operations needed to publish dumps.
type Client interface {
	VerifyCredentials(ctx context.Context) (*CallerIdentity, error)
	PutFile(ctx context.Context, bucket, key, localPath string) error
	DeletePrefix(ctx context.Context, bucket, prefix string) (int, error)
}

// CallerIdentity holds AWS STS caller identity information.
type CallerIdentity struct {
	Account string
	ARN     string
	UserID  string
}
