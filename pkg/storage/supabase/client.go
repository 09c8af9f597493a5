package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/archivobordado/bordado-backend/pkg/config"
	pkgerrors "github.com/archivobordado/bordado-backend/pkg/errors"
	"github.com/archivobordado/bordado-backend/pkg/logger"
)

const (
	pingTimeout                = 5 * time.Second
	errorBodyReadLimit   int64 = 2048
	downloadSizeLimit    int64 = 64 << 20
	defaultClientTimeout       = 30 * time.Second
)

// Client talks to the Supabase Storage HTTP API with the service role key.
type Client struct {
	httpClient *http.Client
	baseURL    string
	serviceKey string
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient builds the storage client and verifies connectivity.
func NewClient(ctx context.Context, cfg config.StorageConfig, logg *logger.Logger, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("storage url is required")
	}
	if strings.TrimSpace(cfg.ServiceKey) == "" {
		return nil, errors.New("storage service key is required")
	}

	client := &Client{
		httpClient: &http.Client{Timeout: defaultClientTimeout},
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.URL), "/"),
		serviceKey: strings.TrimSpace(cfg.ServiceKey),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if err := client.Ping(ctx); err != nil {
		return nil, fmt.Errorf("storage health check failed: %w", err)
	}

	if logg != nil {
		logg.Info(ctx, "supabase storage client initialized")
	}

	return client, nil
}

// Ping lists buckets to verify the service key and endpoint.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.httpClient == nil {
		return errors.New("storage client not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/storage/v1/bucket", nil)
	if err != nil {
		return err
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		if len(b) > 0 {
			return fmt.Errorf("storage bucket check failed: %s: %s", resp.Status, strings.TrimSpace(string(b)))
		}
		return fmt.Errorf("storage bucket check failed: %s", resp.Status)
	}

	return nil
}

// Upload writes an object, replacing any previous version at the same path.
func (c *Client) Upload(ctx context.Context, bucket, path, contentType string, data []byte) error {
	if err := c.validateObjectArgs(bucket, path); err != nil {
		return err
	}
	if len(data) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "upload data is empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.objectURL(bucket, path), bytes.NewReader(data))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build upload request")
	}
	c.authorize(req)
	req.Header.Set("x-upsert", "true")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute upload request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return c.statusError(resp, "upload failed")
	}

	return nil
}

// Download reads an object through the authenticated endpoint.
func (c *Client) Download(ctx context.Context, bucket, path string) ([]byte, error) {
	if err := c.validateObjectArgs(bucket, path); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.objectURL(bucket, path), nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build download request")
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute download request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "object not found")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp, "download failed")
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, downloadSizeLimit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read download body")
	}

	return data, nil
}

// Remove deletes objects from a bucket. Missing objects are not an error.
func (c *Client) Remove(ctx context.Context, bucket string, paths ...string) error {
	if strings.TrimSpace(bucket) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "bucket is required")
	}
	if len(paths) == 0 {
		return nil
	}

	payload, err := json.Marshal(map[string][]string{"prefixes": paths})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal remove request")
	}

	endpoint := fmt.Sprintf("%s/storage/v1/object/%s", c.baseURL, url.PathEscape(bucket))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build remove request")
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute remove request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return c.statusError(resp, "remove failed")
	}

	return nil
}

// PublicURL returns the unauthenticated URL for objects in public buckets.
func (c *Client) PublicURL(bucket, path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, url.PathEscape(bucket), escapePath(path))
}

func (c *Client) objectURL(bucket, path string) string {
	return fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, url.PathEscape(bucket), escapePath(path))
}

func (c *Client) validateObjectArgs(bucket, path string) error {
	if c == nil || c.httpClient == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "storage client not configured")
	}
	if strings.TrimSpace(bucket) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "bucket is required")
	}
	if strings.TrimSpace(path) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "object path is required")
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("apikey", c.serviceKey)
}

func (c *Client) statusError(resp *http.Response, msg string) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
	return pkgerrors.Wrap(
		pkgerrors.CodeDependency,
		fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(b))),
		msg,
	)
}

// escapePath escapes each segment but keeps the slashes that separate them.
func escapePath(path string) string {
	segments := strings.Split(strings.TrimLeft(path, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.Join(segments, "/")
}
