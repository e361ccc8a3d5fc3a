// Package remotefill fills the report template through a remote document
// service instead of in-process.
package remotefill

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Lllllllleong/incidentreportflow/internal/fields"
	"github.com/Lllllllleong/incidentreportflow/internal/pdfform"
)

var (
	ErrAuthentication = errors.New("remote fill service rejected credentials")
	ErrJobTimeout     = errors.New("remote fill job did not finish in time")
	ErrJobFailed      = errors.New("remote fill job failed")
)

const (
	DefaultPollInterval = 2 * time.Second
	DefaultTimeout      = 60 * time.Second
)

// Job states reported by the service.
const (
	StatusQueued  = "queued"
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// StatusError is a non-2xx response other than an authentication failure.
type StatusError struct {
	Op     string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.Status, e.Body)
}

type assetResponse struct {
	ID string `json:"id"`
}

type jobRequest struct {
	Template string            `json:"template"`
	Fields   map[string]string `json:"fields"`
}

type jobResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Client implements pdfform.FormFiller against the remote service.
type Client struct {
	baseURL      string
	token        string
	http         *http.Client
	resolver     *fields.Resolver
	pollInterval time.Duration
	timeout      time.Duration
	logger       *slog.Logger
}

var _ pdfform.FormFiller = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option { return func(cl *Client) { cl.http = c } }

// WithPolling sets the job poll interval and the overall job timeout.
func WithPolling(interval, timeout time.Duration) Option {
	return func(cl *Client) {
		cl.pollInterval = interval
		cl.timeout = timeout
	}
}

// WithResolver replaces the default checkbox token resolver.
func WithResolver(r *fields.Resolver) Option { return func(cl *Client) { cl.resolver = r } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(cl *Client) { cl.logger = l } }

// NewClient returns a client for the service rooted at baseURL.
func NewClient(baseURL, token string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid remote fill url %q", baseURL)
	}
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("%w: empty token", ErrAuthentication)
	}
	cl := &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		token:   token,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				DialContext:         (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
				MaxIdleConns:        10,
				IdleConnTimeout:     60 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		resolver:     fields.DefaultResolver(),
		pollInterval: DefaultPollInterval,
		timeout:      DefaultTimeout,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(cl)
	}
	if cl.logger == nil {
		cl.logger = slog.Default()
	}
	return cl, nil
}

// Fill uploads template, submits a fill job, waits for it and downloads the
// result. The returned document has appearance regeneration requested even if
// the service did not set it.
func (c *Client) Fill(ctx context.Context, template []byte, values fields.Values) (*pdfform.FilledDocument, error) {
	assetID, err := c.upload(ctx, template)
	if err != nil {
		return nil, err
	}
	jobID, err := c.submit(ctx, assetID, values.Strings(c.resolver))
	if err != nil {
		return nil, err
	}
	c.logger.Info("Remote fill job submitted.", "job", jobID, "fields", len(values))

	resultID, err := c.wait(ctx, jobID)
	if err != nil {
		return nil, err
	}
	data, err := c.download(ctx, resultID)
	if err != nil {
		return nil, err
	}
	return c.finish(data)
}

func (c *Client) upload(ctx context.Context, template []byte) (string, error) {
	var out assetResponse
	if err := c.do(ctx, "upload template", http.MethodPost, "/assets", "application/pdf", bytes.NewReader(template), &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", errors.New("upload template: response carried no asset id")
	}
	return out.ID, nil
}

func (c *Client) submit(ctx context.Context, assetID string, values map[string]string) (string, error) {
	body, err := json.Marshal(jobRequest{Template: assetID, Fields: values})
	if err != nil {
		return "", fmt.Errorf("failed to encode job: %w", err)
	}
	var out jobResponse
	if err := c.do(ctx, "submit job", http.MethodPost, "/jobs", "application/json", bytes.NewReader(body), &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", errors.New("submit job: response carried no job id")
	}
	return out.ID, nil
}

// wait polls the job until it settles. The loop is bounded by c.timeout.
func (c *Client) wait(ctx context.Context, jobID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		var job jobResponse
		err := c.do(ctx, "poll job", http.MethodGet, "/jobs/"+url.PathEscape(jobID), "", nil, &job)
		switch {
		case err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil:
			return "", fmt.Errorf("%w: job %s after %s", ErrJobTimeout, jobID, c.timeout)
		case err != nil:
			return "", err
		}

		switch job.Status {
		case StatusDone:
			if job.Result == "" {
				return "", fmt.Errorf("%w: job %s done without a result asset", ErrJobFailed, jobID)
			}
			return job.Result, nil
		case StatusFailed:
			return "", fmt.Errorf("%w: job %s: %s", ErrJobFailed, jobID, job.Error)
		}
		c.logger.Debug("Remote fill job pending.", "job", jobID, "status", job.Status)

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return "", fmt.Errorf("%w: job %s after %s", ErrJobTimeout, jobID, c.timeout)
			}
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) download(ctx context.Context, assetID string) ([]byte, error) {
	req, err := c.request(ctx, http.MethodGet, "/assets/"+url.PathEscape(assetID), "", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download result: %w", err)
	}
	defer resp.Body.Close()
	if err := checkResponse("download result", resp); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("download result: %w", err)
	}
	return data, nil
}

// finish makes sure the downloaded form asks viewers to regenerate appearances.
func (c *Client) finish(data []byte) (*pdfform.FilledDocument, error) {
	form, err := pdfform.Read(bytes.NewReader(data), c.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to read remote result: %w", err)
	}
	if form.NeedAppearances() {
		return pdfform.NewFilledDocument(data)
	}
	if err := form.RequestAppearanceRegeneration(); err != nil {
		return nil, fmt.Errorf("failed to request appearance regeneration: %w", err)
	}
	var buf bytes.Buffer
	if err := form.Write(&buf); err != nil {
		return nil, err
	}
	return pdfform.NewFilledDocument(buf.Bytes())
}

func (c *Client) request(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, op, method, path, contentType string, body io.Reader, out any) error {
	req, err := c.request(ctx, method, path, contentType, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	if err := checkResponse(op, resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: invalid response: %w", op, err)
	}
	return nil
}

func checkResponse(op string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: %s: status %d", ErrAuthentication, op, resp.StatusCode)
	}
	return &StatusError{Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}
