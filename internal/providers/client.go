package providers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/scrollkit/cardfeed/pkg/telemetry"
)

// maxBodyBytes bounds how much of an upstream response is read
const maxBodyBytes = 4 << 20

// HTTPClient issues GET requests against provider endpoints
type HTTPClient struct {
	client    *http.Client
	userAgent string
	logger    *zap.Logger
}

// NewHTTPClient creates a client whose requests time out after timeout
func NewHTTPClient(timeout time.Duration, userAgent string, logger *zap.Logger) *HTTPClient {
	return &HTTPClient{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		logger:    logger,
	}
}

// Get fetches endpoint with params appended to its query string and returns
// the body. Any status outside 2xx is an error.
func (c *HTTPClient) Get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	ctx, span := telemetry.StartSpan(ctx, "provider.http_get")
	var err error
	defer func() { telemetry.EndSpan(span, err) }()

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if len(params) > 0 {
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	span.SetAttributes(attribute.String("http.url", u.String()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", u.Host, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err = fmt.Errorf("non-2xx response from %s: %d", u.Host, resp.StatusCode)
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", u.Host, err)
	}

	c.logger.Debug("Provider request completed",
		zap.String("host", u.Host),
		zap.Int("bytes", len(body)))

	return body, nil
}
