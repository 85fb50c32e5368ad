package tokenstore

import (
	"context"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/impersonate"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// GCPSecretManagerAPI is the subset of the Secret Manager client used here.
type GCPSecretManagerAPI interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error)
}

// GCPOptions configures the Secret Manager client built on first use. With
// neither field set, Application Default Credentials apply.
type GCPOptions struct {
	CredentialsFile    string
	ImpersonateAccount string
}

// GCPSecretManager reads the token from a Secret Manager secret version.
// Resource is a full version name: projects/<p>/secrets/<s>/versions/<v>.
type GCPSecretManager struct {
	Resource string
	Field    string
	Options  GCPOptions
	Client   GCPSecretManagerAPI
}

func (s *GCPSecretManager) Name() string { return "gcp-sm" }

func (s *GCPSecretManager) Token(ctx context.Context) (string, error) {
	client := s.Client
	if client == nil {
		c, err := newGCPClient(ctx, s.Options)
		if err != nil {
			return "", err
		}
		defer func() { _ = c.Close() }()
		client = gcpClient{c}
	}

	out, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: s.Resource})
	if err != nil {
		switch status.Code(err) {
		case codes.NotFound:
			return "", fmt.Errorf("secret %s not found", s.Resource)
		case codes.PermissionDenied:
			return "", fmt.Errorf("access to secret %s denied (needs secretmanager.versions.access): %w", s.Resource, err)
		}
		return "", fmt.Errorf("failed to read secret %s: %w", s.Resource, err)
	}
	if out.GetPayload() == nil || len(out.GetPayload().GetData()) == 0 {
		return "", ErrNoToken
	}
	return extractField(string(out.GetPayload().GetData()), s.Field)
}

// gcpClient drops the call options from the generated client's signature.
type gcpClient struct {
	c *secretmanager.Client
}

func (g gcpClient) AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	return g.c.AccessSecretVersion(ctx, req)
}

func newGCPClient(ctx context.Context, opts GCPOptions) (*secretmanager.Client, error) {
	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	if opts.ImpersonateAccount != "" {
		ts, err := impersonate.CredentialsTokenSource(ctx, impersonate.CredentialsConfig{
			TargetPrincipal: opts.ImpersonateAccount,
			Scopes:          []string{"https://www.googleapis.com/auth/cloud-platform"},
		}, clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create impersonated credentials: %w", err)
		}
		clientOpts = []option.ClientOption{option.WithTokenSource(ts)}
	}

	client, err := secretmanager.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCP Secret Manager client: %w", err)
	}
	return client, nil
}

// gcpSecretName normalizes projects/<p>/secrets/<s>[/versions/<v>] to a
// version resource name, defaulting the version to latest.
func gcpSecretName(ref string) (string, error) {
	parts := strings.Split(ref, "/")
	valid := (len(parts) == 4 || len(parts) == 6) &&
		parts[0] == "projects" && parts[1] != "" &&
		parts[2] == "secrets" && parts[3] != ""
	if len(parts) == 6 {
		valid = valid && parts[4] == "versions" && parts[5] != ""
	}
	if !valid {
		return "", fmt.Errorf("gcp-sm token source must look like projects/<project>/secrets/<secret>[/versions/<version>], got %q", ref)
	}
	if len(parts) == 4 {
		return ref + "/versions/latest", nil
	}
	return ref, nil
}
