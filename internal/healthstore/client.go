package healthstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/blaisecz/vitalsim/internal/domain"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

const requestTimeout = 10 * time.Second

// Config holds health gateway client configuration.
type Config struct {
	BaseURL  string
	APIToken string
}

// HTTPClient talks to a health-data gateway over its JSON ingestion
// API. Transient failures (network errors, 5xx) are retried with a
// short exponential backoff inside the call; the executor's 30-minute
// retry policy sits above this and handles longer outages.
type HTTPClient struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
}

// NewHTTPClient creates a gateway client. Returns nil when no base URL
// is configured; callers fall back to the in-memory store.
func NewHTTPClient(cfg Config) *HTTPClient {
	if cfg.BaseURL == "" {
		return nil
	}
	return &HTTPClient{
		baseURL:  cfg.BaseURL,
		apiToken: cfg.APIToken,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

func (c *HTTPClient) RequestAuthorization(ctx context.Context) error {
	var out struct {
		Granted bool `json:"granted"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/authorize", nil, &out); err != nil {
		return err
	}
	if !out.Granted {
		return domain.ErrNotAuthorized
	}
	return nil
}

func (c *HTTPClient) WriteSleepSession(ctx context.Context, session *domain.SleepSession, mode domain.FidelityMode, meta Metadata) error {
	payload := struct {
		ID       string               `json:"id"`
		Session  *domain.SleepSession `json:"session"`
		Mode     domain.FidelityMode  `json:"mode"`
		Metadata Metadata             `json:"metadata"`
	}{uuid.New().String(), session, mode, meta}
	return c.do(ctx, http.MethodPost, "/v1/samples/sleep", payload, nil)
}

func (c *HTTPClient) WriteStepsDay(ctx context.Context, day *domain.StepsDay, meta Metadata) error {
	payload := struct {
		ID       string           `json:"id"`
		Day      *domain.StepsDay `json:"day"`
		Metadata Metadata         `json:"metadata"`
	}{uuid.New().String(), day, meta}
	return c.do(ctx, http.MethodPost, "/v1/samples/steps/day", payload, nil)
}

func (c *HTTPClient) WriteStepIncrement(ctx context.Context, inc domain.StepIncrement, meta Metadata) error {
	payload := struct {
		ID        string               `json:"id"`
		Increment domain.StepIncrement `json:"increment"`
		Metadata  Metadata             `json:"metadata"`
	}{uuid.New().String(), inc, meta}
	return c.do(ctx, http.MethodPost, "/v1/samples/steps", payload, nil)
}

func (c *HTTPClient) QuerySamples(ctx context.Context, t SampleType, start, end time.Time) ([]Sample, error) {
	path := fmt.Sprintf("/v1/samples?type=%s&start=%s&end=%s",
		url.QueryEscape(string(t)),
		url.QueryEscape(start.UTC().Format(time.RFC3339)),
		url.QueryEscape(end.UTC().Format(time.RFC3339)))
	var out struct {
		Samples []Sample `json:"samples"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Samples, nil
}

func (c *HTTPClient) DeleteSamples(ctx context.Context, t SampleType, pred Predicate) (int, error) {
	payload := struct {
		Type      SampleType `json:"type"`
		Predicate Predicate  `json:"predicate"`
	}{t, pred}
	var out struct {
		Deleted int `json:"deleted"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/samples/delete", payload, &out); err != nil {
		return 0, err
	}
	return out.Deleted, nil
}

// do sends one JSON request, retrying transient failures briefly.
func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	return backoff.Retry(func() error {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiToken != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiToken)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("send request: %w", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return backoff.Permanent(domain.ErrNotAuthorized)
		case resp.StatusCode >= 500:
			return fmt.Errorf("%w: gateway status %d", domain.ErrStoreWrite, resp.StatusCode)
		case resp.StatusCode >= 400:
			return backoff.Permanent(fmt.Errorf("gateway rejected request with status %d", resp.StatusCode))
		}

		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return backoff.Permanent(fmt.Errorf("decode response: %w", err))
			}
		}
		return nil
	}, policy)
}

var _ Store = (*HTTPClient)(nil)
