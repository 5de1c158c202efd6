package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/jonwraymond/healthops/health"
)

// HTTPConfig configures the HTTP probe.
type HTTPConfig struct {
	// URL is the endpoint to request. Required.
	URL string

	// Method is the request method. Default: GET.
	Method string

	// Header is added to every request.
	Header http.Header

	// Client sends the requests. Default: a client bounded by health.DefaultTimeout.
	Client *http.Client
}

// NewHTTP creates a probe that requests an endpoint and fails on any status
// of 400 or above. The descriptor's type defaults to http service.
func NewHTTP(desc health.Descriptor, config HTTPConfig) (health.Dependency, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("%w: url", ErrMissingTarget)
	}
	if config.Method == "" {
		config.Method = http.MethodGet
	}
	if config.Client == nil {
		config.Client = &http.Client{Timeout: health.DefaultTimeout}
	}
	if desc.Type == "" {
		desc.Type = health.TypeHTTPService
	}

	return health.NewPingDependency(desc, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, config.Method, config.URL, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		for k, vs := range config.Header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}

		resp, err := config.Client.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

		if resp.StatusCode >= http.StatusBadRequest {
			return fmt.Errorf("%w: %s %s returned %d", ErrUnhealthyStatus, config.Method, config.URL, resp.StatusCode)
		}
		return nil
	})
}
