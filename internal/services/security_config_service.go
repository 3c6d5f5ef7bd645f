package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/BradenHooton/adminguard/internal/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretFetcher returns the raw JSON blob stored under a secret id
type SecretFetcher interface {
	GetSecret(ctx context.Context, secretID string) ([]byte, error)
}

// CallGuard runs an outbound API call under the API limiter
type CallGuard interface {
	Do(ctx context.Context, apiCall string, fn func(ctx context.Context) error) error
}

type secretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretsManagerFetcher reads secrets from AWS Secrets Manager
type SecretsManagerFetcher struct {
	client secretsManagerAPI
	guard  CallGuard
	apiKey string
}

// NewSecretsManagerFetcher creates a fetcher using the default AWS credential chain.
// guard may be nil; apiCall names the call in the limiter's policy table.
func NewSecretsManagerFetcher(ctx context.Context, region string, guard CallGuard, apiCall string) (*SecretsManagerFetcher, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return newSecretsManagerFetcher(secretsmanager.NewFromConfig(cfg), guard, apiCall), nil
}

func newSecretsManagerFetcher(client secretsManagerAPI, guard CallGuard, apiCall string) *SecretsManagerFetcher {
	return &SecretsManagerFetcher{client: client, guard: guard, apiKey: apiCall}
}

func (f *SecretsManagerFetcher) GetSecret(ctx context.Context, secretID string) ([]byte, error) {
	var out *secretsmanager.GetSecretValueOutput
	call := func(ctx context.Context) error {
		var err error
		out, err = f.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
			SecretId: aws.String(secretID),
		})
		return err
	}

	var err error
	if f.guard != nil {
		err = f.guard.Do(ctx, f.apiKey, call)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get secret value: %w", err)
	}

	switch {
	case out.SecretString != nil:
		return []byte(*out.SecretString), nil
	case len(out.SecretBinary) > 0:
		return out.SecretBinary, nil
	default:
		return nil, fmt.Errorf("secret %s has no value", secretID)
	}
}

// FileSecretFetcher reads the secret from a local JSON file; the secret id is ignored.
// Intended for development only.
type FileSecretFetcher struct {
	Path string
}

func (f FileSecretFetcher) GetSecret(ctx context.Context, _ string) ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read security config file: %w", err)
	}
	return data, nil
}

// SecurityConfigService loads the gateway SecurityConfig once per process.
// Only a successful load is cached; a failed fetch is retried on the next call.
type SecurityConfigService struct {
	fetcher  SecretFetcher
	secretID string
	logger   *slog.Logger

	mu     sync.Mutex
	cached *models.SecurityConfig
}

// NewSecurityConfigService creates a new SecurityConfigService
func NewSecurityConfigService(fetcher SecretFetcher, secretID string, logger *slog.Logger) *SecurityConfigService {
	return &SecurityConfigService{
		fetcher:  fetcher,
		secretID: secretID,
		logger:   logger,
	}
}

// GetConfig returns the cached configuration, fetching it on first use.
// Any fetch or parse failure is reported as models.ErrConfigUnavailable.
func (s *SecurityConfigService) GetConfig(ctx context.Context) (*models.SecurityConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil {
		return s.cached, nil
	}

	raw, err := s.fetcher.GetSecret(ctx, s.secretID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to fetch security config",
			slog.String("secret_id", s.secretID),
			slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", models.ErrConfigUnavailable, err)
	}

	var cfg models.SecurityConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		s.logger.ErrorContext(ctx, "failed to parse security config",
			slog.String("secret_id", s.secretID),
			slog.Any("error", err))
		return nil, fmt.Errorf("%w: invalid JSON", models.ErrConfigUnavailable)
	}

	if err := cfg.Validate(); err != nil {
		s.logger.ErrorContext(ctx, "security config rejected",
			slog.String("secret_id", s.secretID),
			slog.Any("error", err))
		return nil, fmt.Errorf("%w: %v", models.ErrConfigUnavailable, err)
	}

	s.logger.InfoContext(ctx, "security config loaded",
		slog.Bool("mfa_enabled", cfg.MFAEnabled),
		slog.Int("allowed_ip_entries", len(cfg.AllowedIPs)),
		slog.Int("max_login_attempts", cfg.MaxLoginAttempts),
		slog.Int("session_timeout_minutes", cfg.SessionTimeoutMinutes))

	s.cached = &cfg
	return s.cached, nil
}
