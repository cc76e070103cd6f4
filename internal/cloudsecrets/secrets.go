// Package cloudsecrets fetches adapter credentials from GCP Secret Manager
// and mirrors session logs to Cloud Logging, for deployments that would
// rather not hold API keys in a local .env file.
package cloudsecrets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"google.golang.org/api/option"
)

// SecretFetcher retrieves adapter credentials (API keys, signing keys) by
// name, from wherever the deployment stores them.
type SecretFetcher interface {
	FetchSecret(ctx context.Context, secretPath string) (string, error)
	Close() error
}

// SecretManagerClient wraps the GCP Secret Manager client.
type SecretManagerClient struct {
	client    *secretmanager.Client
	projectID string
}

// NewSecretManagerClient creates a Secret Manager client, resolving the
// project ID from the environment or (failing that) the GCP metadata
// server, so it works both locally (with GOOGLE_CLOUD_PROJECT set) and on
// a GCP-hosted runner.
func NewSecretManagerClient(ctx context.Context, opts ...option.ClientOption) (*SecretManagerClient, error) {
	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("cloudsecrets: new client: %w", err)
	}

	projectID, err := getProjectID(ctx)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cloudsecrets: resolve project id: %w", err)
	}

	return &SecretManagerClient{client: client, projectID: projectID}, nil
}

func getProjectID(ctx context.Context) (string, error) {
	for _, key := range []string{"GOOGLE_CLOUD_PROJECT", "GCP_PROJECT", "GCLOUD_PROJECT"} {
		if v := os.Getenv(key); v != "" {
			return v, nil
		}
	}
	return getProjectIDFromMetadata(ctx)
}

func getProjectIDFromMetadata(ctx context.Context) (string, error) {
	const metadataURL = "http://metadata.google.internal/computeMetadata/v1/project/project-id"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, metadataURL, nil)
	if err != nil {
		return "", fmt.Errorf("build metadata request: %w", err)
	}
	req.Header.Set("Metadata-Flavor", "Google")

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("query metadata server: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("metadata server returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read metadata response: %w", err)
	}
	projectID := strings.TrimSpace(string(body))
	if projectID == "" {
		return "", fmt.Errorf("empty project id from metadata server")
	}
	return projectID, nil
}

// FetchSecret retrieves a secret's latest version. secretPath may be a
// bare secret name (resolved against the client's project) or a full
// "projects/.../secrets/.../versions/..." resource name.
func (c *SecretManagerClient) FetchSecret(ctx context.Context, secretPath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	result, err := c.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: c.normalizeSecretPath(secretPath),
	})
	if err != nil {
		return "", fmt.Errorf("cloudsecrets: access secret version: %w", err)
	}
	return string(result.Payload.Data), nil
}

func (c *SecretManagerClient) normalizeSecretPath(secretPath string) string {
	if strings.HasPrefix(secretPath, "projects/") && strings.Contains(secretPath, "/versions/") {
		return secretPath
	}
	if strings.HasPrefix(secretPath, "projects/") && strings.Contains(secretPath, "/secrets/") {
		return secretPath + "/versions/latest"
	}
	secretName := path.Base(secretPath)
	return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", c.projectID, secretName)
}

// Close releases the underlying gRPC connection.
func (c *SecretManagerClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

var _ SecretFetcher = (*SecretManagerClient)(nil)
