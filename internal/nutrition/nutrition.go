package nutrition

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"smoothie-orders/internal/config"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

var (
	// ErrNotFound is returned when the API has no entry for the key.
	ErrNotFound = errors.New("fruit not found")
	// ErrUnexpectedShape is returned when the body is neither an object nor an array starting with one.
	ErrUnexpectedShape = errors.New("unexpected response shape")
)

// StatusError reports a non-200, non-404 response.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("nutrition api error: status %d", e.Code)
}

// Row is one flattened field of a nutrition record.
type Row struct {
	Field string
	Value string
}

// Facts is the nutrition record returned for a lookup key.
type Facts struct {
	Key  string
	Rows []Row
}

// Value returns the value of field, or "" when absent.
func (f *Facts) Value(field string) string {
	for _, r := range f.Rows {
		if r.Field == field {
			return r.Value
		}
	}
	return ""
}

// Client is an interface for a nutrition API client.
type Client interface {
	Lookup(ctx context.Context, key string) (*Facts, error)
}

// httpClient is the concrete implementation of the nutrition API client.
type httpClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a new nutrition API client from the configured host, timeout and rate.
func NewClient(cfg *config.Config) Client {
	limit := rate.Inf
	if cfg.NutritionRPS > 0 {
		limit = rate.Limit(cfg.NutritionRPS)
	}
	timeout := cfg.NutritionTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &httpClient{
		baseURL:    strings.TrimRight(cfg.NutritionAPIURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// Lookup fetches GET {base}/api/fruit/{key}.
func (c *httpClient) Lookup(ctx context.Context, key string) (*Facts, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrNotFound
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/fruit/%s", c.baseURL, url.PathEscape(key))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, &StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	rows, err := ParseFacts(body)
	if err != nil {
		return nil, err
	}
	return &Facts{Key: key, Rows: rows}, nil
}

// ParseFacts accepts a JSON object, or an array whose first element is an object,
// and flattens it into rows in document order. Nested objects become dotted fields.
func ParseFacts(body []byte) ([]Row, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrUnexpectedShape
	}

	record := gjson.ParseBytes(body)
	if record.IsArray() {
		record = record.Get("0")
	}
	if !record.IsObject() {
		return nil, ErrUnexpectedShape
	}

	var rows []Row
	flatten("", record, &rows)
	return rows, nil
}

func flatten(prefix string, obj gjson.Result, rows *[]Row) {
	obj.ForEach(func(k, v gjson.Result) bool {
		field := k.String()
		if prefix != "" {
			field = prefix + "." + field
		}
		switch {
		case v.IsObject():
			flatten(field, v, rows)
		case v.IsArray():
			*rows = append(*rows, Row{Field: field, Value: v.Raw})
		default:
			*rows = append(*rows, Row{Field: field, Value: v.String()})
		}
		return true
	})
}
