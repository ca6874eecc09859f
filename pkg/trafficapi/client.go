package trafficapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/footfall-dashboard/pkg/enums"
	pkgerrors "github.com/angelmondragon/footfall-dashboard/pkg/errors"
)

const (
	trafficPath                  = "traffic"
	defaultTimeout               = 10 * time.Second
	errorBodyReadLimit     int64 = 1024
	responseBodyReadLimit  int64 = 8 << 20
	locationIDMaxLength          = 256
	authorizationHeaderKey       = "Authorization"
)

// Observer receives per-call latency, e.g. metrics.RefreshMetrics.
type Observer interface {
	ObserveUpstream(endpoint string, status int, elapsed time.Duration)
}

// Client talks to the traffic aggregation API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	observer   Observer
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

// WithToken sends the value as a bearer token on every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 && c.httpClient != nil {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithObserver records call latency on the supplied observer.
func WithObserver(observer Observer) Option {
	return func(c *Client) {
		c.observer = observer
	}
}

// NewClient builds an aggregation API client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("traffic api base url is required")
	}

	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultTimeout}
	}

	return client, nil
}

// ListLocations returns the options for a location kind from /{kind}.
func (c *Client) ListLocations(ctx context.Context, kind enums.LocationKind) ([]Location, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "traffic api client not configured")
	}
	if !kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid location kind").
			WithDetails(map[string]any{"kind": string(kind)})
	}

	var payload []struct {
		ID   Label  `json:"id"`
		Name string `json:"name"`
	}
	if err := c.get(ctx, string(kind), nil, &payload); err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, pkgerrors.New(pkgerrors.CodeMalformed, "location listing is not an array").
			WithDetails(map[string]any{"kind": string(kind)})
	}

	locations := make([]Location, 0, len(payload))
	for _, entry := range payload {
		id := entry.ID.String()
		if id == "" {
			continue
		}
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			name = id
		}
		locations = append(locations, Location{ID: id, Name: name})
	}
	return locations, nil
}

// Traffic fetches the aggregated counts and demographics for the query.
func (c *Client) Traffic(ctx context.Context, q TrafficQuery) (*TrafficResponse, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "traffic api client not configured")
	}
	values, err := q.Values()
	if err != nil {
		return nil, err
	}

	var resp TrafficResponse
	if err := c.get(ctx, trafficPath, values, &resp); err != nil {
		return nil, err
	}
	if err := resp.Validate(); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Ping checks the API is reachable using the cheapest listing endpoint.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.ListLocations(ctx, enums.LocationKindGlobal)
	return err
}

// Values renders the query string. The location parameter is omitted when no identifier is selected.
func (q TrafficQuery) Values() (url.Values, error) {
	if q.From.IsZero() || q.To.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from and to are required")
	}
	if q.To.Before(q.From) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "to must not be before from")
	}

	values := url.Values{}
	values.Set("from", q.From.Format(calendarDateLayout))
	values.Set("to", q.To.Format(calendarDateLayout))

	id := strings.TrimSpace(q.LocationID)
	if id == "" {
		return values, nil
	}
	if !q.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "location kind required with location id")
	}
	if len(id) > locationIDMaxLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "location id too long")
	}
	values.Set(q.Kind.QueryParam(), id)
	return values, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, dest any) error {
	endpoint := "/" + strings.TrimLeft(path, "/")
	target := c.buildURL(path)
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build upstream request")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set(authorizationHeaderKey, "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(endpoint, 0, start)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute upstream request").
			WithDetails(map[string]any{"endpoint": endpoint})
	}
	defer func() { _ = resp.Body.Close() }()
	c.observe(endpoint, resp.StatusCode, start)

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "upstream request failed").
			WithDetails(map[string]any{"endpoint": endpoint, "status": resp.StatusCode})
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, responseBodyReadLimit)).Decode(dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeMalformed, err, "decode upstream response").
			WithDetails(map[string]any{"endpoint": endpoint})
	}
	return nil
}

func (c *Client) observe(endpoint string, status int, start time.Time) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveUpstream(endpoint, status, time.Since(start))
}

func (c *Client) buildURL(path string) string {
	return fmt.Sprintf("%s/%s", c.baseURL, strings.TrimLeft(path, "/"))
}
