package awsx

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// GatewayCredentials is the JSON shape of the service's credentials secret:
// the payment gateway key pair, the webhook secret and the JWT signing key.
// Fields left empty in the secret keep their env-provided values.
type GatewayCredentials struct {
	KeyID         string `json:"RAZORPAY_KEY_ID"`
	KeySecret     string `json:"RAZORPAY_KEY_SECRET"`
	WebhookSecret string `json:"RAZORPAY_WEBHOOK_SECRET"`
	JWTSecret     string `json:"JWT_SECRET"`
}

// SecretsClient reads service secrets from AWS Secrets Manager. Values are
// cached for the process lifetime; rotation takes effect on restart.
type SecretsClient struct {
	client *secretsmanager.Client
	cache  map[string]string
	mu     sync.RWMutex
}

func NewSecretsClient(cfg sdkaws.Config) *SecretsClient {
	return &SecretsClient{
		client: secretsmanager.NewFromConfig(cfg),
		cache:  make(map[string]string),
	}
}

// GetGatewayCredentials fetches and decodes the named credentials secret.
func (s *SecretsClient) GetGatewayCredentials(ctx context.Context, name string) (*GatewayCredentials, error) {
	raw, err := s.getSecret(ctx, name)
	if err != nil {
		return nil, err
	}

	var creds GatewayCredentials
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		return nil, fmt.Errorf("secret %s is not valid credentials JSON: %w", name, err)
	}
	return &creds, nil
}

func (s *SecretsClient) getSecret(ctx context.Context, name string) (string, error) {
	s.mu.RLock()
	if v, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return v, nil
	}
	s.mu.RUnlock()

	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: &name})
	if err != nil {
		return "", fmt.Errorf("failed to get secret %s: %w", name, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", name)
	}

	s.mu.Lock()
	s.cache[name] = *out.SecretString
	s.mu.Unlock()

	return *out.SecretString, nil
}
