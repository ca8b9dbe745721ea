package config

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	vault "github.com/hashicorp/vault/api"
)

var secretPattern = regexp.MustCompile(`^\$\{(ENV|VAULT|AWS_SM):([^}]+)\}$`)

func (c *Config) resolveSecrets() error {
	var err error
	c.Database.Password, err = ResolveValue(c.Database.Password)
	if err != nil {
		return fmt.Errorf("database password: %w", err)
	}
	c.Mirror.URI, err = ResolveValue(c.Mirror.URI)
	if err != nil {
		return fmt.Errorf("mirror uri: %w", err)
	}
	c.Sentiment.APIKey, err = ResolveValue(c.Sentiment.APIKey)
	if err != nil {
		return fmt.Errorf("sentiment api key: %w", err)
	}
	return nil
}

// ResolveValue resolves a ${PROVIDER:ref} secret reference. Plain values pass
// through unchanged.
func ResolveValue(val string) (string, error) {
	matches := secretPattern.FindStringSubmatch(strings.TrimSpace(val))
	if matches == nil {
		return val, nil
	}

	ref := matches[2]
	switch matches[1] {
	case "ENV":
		v := os.Getenv(ref)
		if v == "" {
			return "", fmt.Errorf("environment variable %s not set", ref)
		}
		return v, nil
	case "VAULT":
		return resolveVault(ref)
	case "AWS_SM":
		return resolveAWSSecretsManager(context.Background(), ref)
	default:
		return "", fmt.Errorf("unknown secrets provider: %s", matches[1])
	}
}

// resolveVault reads path#key from Vault, unwrapping KV v2 payloads.
func resolveVault(ref string) (string, error) {
	path, key, ok := strings.Cut(ref, "#")
	if !ok || path == "" || key == "" {
		return "", fmt.Errorf("invalid Vault reference %q: expected format path#key", ref)
	}

	addr := os.Getenv("VAULT_ADDR")
	if addr == "" {
		return "", fmt.Errorf("VAULT_ADDR environment variable not set")
	}
	token := os.Getenv("VAULT_TOKEN")
	if token == "" {
		return "", fmt.Errorf("VAULT_TOKEN environment variable not set")
	}

	cfg := vault.DefaultConfig()
	cfg.Address = addr
	client, err := vault.NewClient(cfg)
	if err != nil {
		return "", fmt.Errorf("creating Vault client: %w", err)
	}
	client.SetToken(token)

	secret, err := client.Logical().Read(path)
	if err != nil {
		return "", fmt.Errorf("reading Vault secret at %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("no secret found at %s", path)
	}

	data := secret.Data
	if inner, ok := data["data"].(map[string]interface{}); ok {
		data = inner
	}
	str, ok := data[key].(string)
	if !ok {
		return "", fmt.Errorf("key %q missing or not a string in Vault secret at %s", key, path)
	}
	return str, nil
}

func resolveAWSSecretsManager(ctx context.Context, name string) (string, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return "", fmt.Errorf("loading AWS config: %w", err)
	}

	out, err := secretsmanager.NewFromConfig(cfg).GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		return "", fmt.Errorf("getting secret %q: %w", name, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %q has no string value", name)
	}
	return *out.SecretString, nil
}
