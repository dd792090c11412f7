package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"cinegate/internal/domain"
)

// Client is a stateless read-through proxy to the upstream movie database.
// Responses are passed through verbatim; the API key never leaves the server.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// Discover lists titles of the given media type ("movie" or "tv").
func (c *Client) Discover(ctx context.Context, mediaType string, page int) (json.RawMessage, error) {
	if mediaType != "movie" && mediaType != "tv" {
		return nil, domain.NewValidationError("mediaType", "must be one of: movie, tv")
	}
	return c.get(ctx, fmt.Sprintf("/discover/%s", mediaType), page)
}

// Trending lists trending titles. Empty segments default to all/day, matching
// the upstream API.
func (c *Client) Trending(ctx context.Context, trendingType, timeWindow string, page int) (json.RawMessage, error) {
	if trendingType == "" {
		trendingType = "all"
	}
	if timeWindow == "" {
		timeWindow = "day"
	}
	switch trendingType {
	case "all", "movie", "tv":
	default:
		return nil, domain.NewValidationError("trendingType", "must be one of: all, movie, tv")
	}
	switch timeWindow {
	case "day", "week":
	default:
		return nil, domain.NewValidationError("timeWindow", "must be one of: day, week")
	}
	return c.get(ctx, fmt.Sprintf("/trending/%s/%s", trendingType, timeWindow), page)
}

// TVTopRated lists top rated TV series.
func (c *Client) TVTopRated(ctx context.Context, page int) (json.RawMessage, error) {
	return c.get(ctx, "/tv/top_rated", page)
}

func (c *Client) get(ctx context.Context, path string, page int) (json.RawMessage, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("build catalog url: %w", err)
	}
	q := u.Query()
	q.Set("api_key", c.apiKey)
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read catalog response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog upstream returned %d", resp.StatusCode)
	}
	return json.RawMessage(body), nil
}
