package storefront

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

	"github.com/gorilla/schema"
)

const (
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 64 << 10
)

var queryEncoder = schema.NewEncoder()

// Client calls the catalog HTTP API.
type Client struct {
	base   *url.URL
	http   *http.Client
	apiKey string
	obs    *observer
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	cfg := &clientConfig{timeout: defaultTimeout}
	for _, o := range opts {
		o.apply(cfg)
	}

	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("storefront: invalid base url %q", baseURL)
	}

	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.timeout}
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	return &Client{base: base, http: hc, apiKey: cfg.apiKey, obs: obs}, nil
}

// Browse fetches one page of products matching q.
func (c *Client) Browse(ctx context.Context, q Query) (Page, error) {
	start := time.Now()
	values := url.Values{}
	if err := queryEncoder.Encode(q, values); err != nil {
		return Page{}, fmt.Errorf("storefront: encode query: %w", err)
	}

	var p Page
	err := c.do(ctx, http.MethodGet, "/products", values, nil, &p)
	c.obs.observe("browse", start, err)
	if err != nil {
		return Page{}, err
	}
	if p.Products == nil {
		p.Products = []Product{}
	}
	return p, nil
}

// Suggest returns up to limit products whose title matches text.
func (c *Client) Suggest(ctx context.Context, text string, limit int) ([]Product, error) {
	start := time.Now()
	values := url.Values{}
	values.Set("q", text)
	values.Set("limit", fmt.Sprint(limit))

	var p Page
	err := c.do(ctx, http.MethodGet, "/products", values, nil, &p)
	c.obs.observe("suggest", start, err)
	if err != nil {
		return nil, err
	}
	if len(p.Products) > limit {
		p.Products = p.Products[:limit]
	}
	return p.Products, nil
}

// Product fetches a product by id.
func (c *Client) Product(ctx context.Context, id string) (Product, error) {
	start := time.Now()
	var p Product
	err := c.do(ctx, http.MethodGet, "/products/"+id, nil, nil, &p)
	c.obs.observe("get", start, err)
	return p, err
}

// Create stores a new product and returns it with its assigned id.
func (c *Client) Create(ctx context.Context, p Product) (Product, error) {
	start := time.Now()
	var out Product
	err := c.do(ctx, http.MethodPost, "/products", nil, p, &out)
	c.obs.observe("create", start, err)
	return out, err
}

// Update applies a partial update and returns the stored product.
func (c *Client) Update(ctx context.Context, id string, patch Patch) (Product, error) {
	start := time.Now()
	var out Product
	err := c.do(ctx, http.MethodPatch, "/products/"+id, nil, patch, &out)
	c.obs.observe("update", start, err)
	return out, err
}

// Filters fetches the filter options.
func (c *Client) Filters(ctx context.Context) (Filters, error) {
	start := time.Now()
	var f Filters
	err := c.do(ctx, http.MethodGet, "/filters", nil, nil, &f)
	c.obs.observe("filters", start, err)
	return f, err
}

// Suggestions returns a suggestion controller fetching through this client.
func (c *Client) Suggestions(opts ...ControllerOption) *Controller {
	return NewController(c, append([]ControllerOption{withObserver(c.obs)}, opts...)...)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := *c.base
	u.Path += path
	u.RawQuery = query.Encode()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("storefront: encode body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("storefront: new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("storefront: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("storefront: decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var body struct {
		Code    string       `json:"code"`
		Message string       `json:"message"`
		Errors  []FieldError `json:"errors"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{Status: resp.StatusCode}
	if err := json.Unmarshal(data, &body); err != nil {
		apiErr.Message = strings.TrimSpace(string(data))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	apiErr.Code = body.Code
	apiErr.Message = body.Message
	apiErr.Fields = body.Errors
	return apiErr
}

// IsAPIError reports whether err carries an API response error and returns it.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
