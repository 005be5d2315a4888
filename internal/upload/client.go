package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-logr/logr"
)

// ErrNotConfigured is returned when the endpoint or credentials are missing.
var ErrNotConfigured = errors.New("upload not configured: api endpoint and credentials are required")

const (
	// Source identifies this client to the remote API.
	Source = "github-action"

	defaultTimeout   = 5 * time.Minute
	defaultAttempts  = 3
	defaultBaseDelay = 2 * time.Second
)

// Credentials are sent as request headers.
type Credentials struct {
	APIKey    string
	SecretKey string
	TenantKey string
}

// Metadata fills the plain form fields.
type Metadata struct {
	DisplayName string
	BranchName  string
	RepoName    string
	JobID       string
}

// Request is one upload.
type Request struct {
	Payload CombinedScanRequest
	// SBOMPath is attached as sbomFile when set.
	SBOMPath string
	Meta     Metadata
}

// StatusError reports a non-2xx response. It is never retried.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upload status %d", e.StatusCode)
	}
	return fmt.Sprintf("upload status %d: %s", e.StatusCode, e.Body)
}

// Client posts the multipart report with a bounded, linear retry.
type Client struct {
	Endpoint  string
	Creds     Credentials
	HTTP      *http.Client
	Attempts  int
	BaseDelay time.Duration
	// Sleep waits between attempts; tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
	Log   logr.Logger
}

// NewClient returns a client with the default timeout and retry policy.
func NewClient(endpoint string, creds Credentials, log logr.Logger) *Client {
	return &Client{
		Endpoint:  endpoint,
		Creds:     creds,
		HTTP:      &http.Client{Timeout: defaultTimeout},
		Attempts:  defaultAttempts,
		BaseDelay: defaultBaseDelay,
		Sleep:     sleepCtx,
		Log:       log,
	}
}

// Configured reports whether the client has everything needed to upload.
func (c *Client) Configured() bool {
	return c.Endpoint != "" && c.Creds.APIKey != "" && c.Creds.SecretKey != ""
}

// Upload sends req. Retryable network errors are retried with a delay of
// BaseDelay × attempt; any other error is returned immediately.
func (c *Client) Upload(ctx context.Context, req Request) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	attempts := c.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = c.send(ctx, req)
		if err == nil {
			c.Log.Info("upload complete", "endpoint", c.Endpoint, "attempt", attempt)
			return nil
		}
		if !Retryable(err) || attempt == attempts {
			break
		}
		delay := c.BaseDelay * time.Duration(attempt)
		c.Log.Info("upload attempt failed, retrying", "attempt", attempt, "delay", delay.String(), "error", err.Error())
		if serr := c.Sleep(ctx, delay); serr != nil {
			return serr
		}
	}
	return fmt.Errorf("upload to %s: %w", c.Endpoint, err)
}

func (c *Client) send(ctx context.Context, req Request) error {
	body, contentType, err := buildBody(req)
	if err != nil {
		return err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, body)
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("x-api-key", c.Creds.APIKey)
	httpReq.Header.Set("x-secret-key", c.Creds.SecretKey)
	if c.Creds.TenantKey != "" {
		httpReq.Header.Set("x-tenant-key", c.Creds.TenantKey)
	}

	httpClient := c.HTTP
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(msg))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func buildBody(req Request) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	combined, err := json.Marshal(req.Payload)
	if err != nil {
		return nil, "", fmt.Errorf("encode combinedScanRequest: %w", err)
	}
	fields := []struct{ name, value string }{
		{"combinedScanRequest", string(combined)},
		{"displayName", req.Meta.DisplayName},
		{"branchName", req.Meta.BranchName},
		{"repoName", req.Meta.RepoName},
		{"source", Source},
		{"jobId", req.Meta.JobID},
	}
	for _, f := range fields {
		if err := mw.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}

	if req.SBOMPath != "" {
		f, err := os.Open(req.SBOMPath)
		if err != nil {
			return nil, "", fmt.Errorf("open sbom: %w", err)
		}
		defer f.Close()
		part, err := mw.CreateFormFile("sbomFile", filepath.Base(req.SBOMPath))
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, f); err != nil {
			return nil, "", fmt.Errorf("read sbom: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

// Retryable reports whether err is a transient network failure: a timeout,
// an aborted or reset connection, or a DNS lookup that found no host.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var status *StatusError
	if errors.As(err, &status) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, syscall.ECONNABORTED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsNotFound || dnsErr.IsTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
