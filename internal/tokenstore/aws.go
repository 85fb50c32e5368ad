package tokenstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// roleSessionName identifies vaultkeys in CloudTrail when a role is assumed.
const roleSessionName = "vaultkeys"

// SecretsManagerAPI is the subset of the Secrets Manager client used here.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// ParameterStoreAPI is the subset of the SSM client used here.
type ParameterStoreAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// AWSOptions configures the AWS clients built on first use.
type AWSOptions struct {
	Region   string
	Endpoint string // LocalStack or testing
	Profile  string

	// Static credentials, mainly for LocalStack. Both must be set.
	AccessKeyID     string
	SecretAccessKey string

	// RoleARN is assumed through STS before reading the token.
	RoleARN    string
	ExternalID string
}

// AWSSecretsManager reads the token from a Secrets Manager secret. When Field
// is set the secret string is parsed as JSON and that field is used.
type AWSSecretsManager struct {
	SecretID string
	Field    string
	Options  AWSOptions
	Client   SecretsManagerAPI
}

func (s *AWSSecretsManager) Name() string { return "aws-sm" }

func (s *AWSSecretsManager) Token(ctx context.Context) (string, error) {
	client := s.Client
	if client == nil {
		cfg, err := loadAWSConfig(ctx, s.Options)
		if err != nil {
			return "", err
		}
		var clientOpts []func(*secretsmanager.Options)
		if s.Options.Endpoint != "" {
			endpoint := s.Options.Endpoint
			clientOpts = append(clientOpts, func(o *secretsmanager.Options) {
				o.BaseEndpoint = &endpoint
			})
		}
		client = secretsmanager.NewFromConfig(cfg, clientOpts...)
	}

	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(s.SecretID),
	})
	if err != nil {
		return "", fmt.Errorf("failed to read secret %s: %w", s.SecretID, err)
	}
	if out.SecretString == nil || *out.SecretString == "" {
		return "", ErrNoToken
	}
	return extractField(*out.SecretString, s.Field)
}

// AWSParameterStore reads the token from an SSM parameter, decrypting
// SecureString values.
type AWSParameterStore struct {
	Parameter string
	Options   AWSOptions
	Client    ParameterStoreAPI
}

func (p *AWSParameterStore) Name() string { return "aws-ssm" }

func (p *AWSParameterStore) Token(ctx context.Context) (string, error) {
	client := p.Client
	if client == nil {
		cfg, err := loadAWSConfig(ctx, p.Options)
		if err != nil {
			return "", err
		}
		var clientOpts []func(*ssm.Options)
		if p.Options.Endpoint != "" {
			endpoint := p.Options.Endpoint
			clientOpts = append(clientOpts, func(o *ssm.Options) {
				o.BaseEndpoint = &endpoint
			})
		}
		client = ssm.NewFromConfig(cfg, clientOpts...)
	}

	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(p.Parameter),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("failed to read parameter %s: %w", p.Parameter, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil || *out.Parameter.Value == "" {
		return "", ErrNoToken
	}
	return strings.TrimSpace(*out.Parameter.Value), nil
}

func loadAWSConfig(ctx context.Context, opts AWSOptions) (aws.Config, error) {
	var configOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		configOpts = append(configOpts, config.WithRegion(opts.Region))
	}
	if opts.Profile != "" {
		configOpts = append(configOpts, config.WithSharedConfigProfile(opts.Profile))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		configOpts = append(configOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if opts.RoleARN != "" {
		provider := stscreds.NewAssumeRoleProvider(sts.NewFromConfig(cfg), opts.RoleARN, func(o *stscreds.AssumeRoleOptions) {
			o.RoleSessionName = roleSessionName
			if opts.ExternalID != "" {
				o.ExternalID = aws.String(opts.ExternalID)
			}
		})
		cfg.Credentials = aws.NewCredentialsCache(provider)
	}
	return cfg, nil
}

func extractField(secret, field string) (string, error) {
	if field == "" {
		return strings.TrimSpace(secret), nil
	}
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(secret), &data); err != nil {
		return "", fmt.Errorf("secret is not a JSON object, cannot read field %q", field)
	}
	v, ok := data[field].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("field %q not found in secret", field)
	}
	return v, nil
}
