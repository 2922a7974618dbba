package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/pders01/reel/internal/config"
	"github.com/pders01/reel/internal/debuglog"
	"github.com/pders01/reel/internal/storage"
)

// Pager is the paginated half of the client, what feed controllers need.
type Pager interface {
	FetchPage(ctx context.Context, source Source, page int) (*Page, error)
}

// Client talks to a TMDB-compatible JSON API.
type Client struct {
	baseURL   string
	apiKey    string
	language  string
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker
	cache     *storage.Cache
	log       *debuglog.FieldLogger
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithCache enables the read-through details cache.
func WithCache(cache *storage.Cache) Option {
	return func(c *Client) { c.cache = cache }
}

// WithLimiter replaces the request rate limiter.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

func NewClient(cfg config.CatalogConfig, opts ...Option) *Client {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	c := &Client{
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		language:  cfg.Language,
		userAgent: cfg.UserAgent,
		client:    &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(limit, 1),
		log:       debuglog.WithFields(map[string]interface{}{"component": "catalog"}),
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "catalog",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warnf("circuit breaker %s: %v -> %v", name, from, to)
		},
		// Client errors are the caller's problem, not the service's health.
		IsSuccessful: func(err error) bool {
			var upstream *UpstreamError
			if errors.As(err, &upstream) {
				return upstream.Status < 500
			}
			return err == nil
		},
	})

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchPage requests one page of source. Pages are 1-based.
func (c *Client) FetchPage(ctx context.Context, source Source, page int) (*Page, error) {
	path, params, filter, err := source.endpoint()
	if err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("page", strconv.Itoa(page))

	var out Page
	if err := c.get(ctx, path, params, &out); err != nil {
		return nil, err
	}

	out.Fetched = len(out.Items)
	if filter != noFilter {
		kept := out.Items[:0]
		for _, it := range out.Items {
			if it.PosterPath != "" {
				kept = append(kept, it)
			}
		}
		out.Items = kept
		// Related titles stop at the first page left without artwork;
		// search keeps paging until total_pages.
		out.Final = filter == dropPosterlessAndStop && len(kept) == 0
	}

	c.log.With("source", string(source)).Debugf("page %d/%d: %d items", out.Page, out.TotalPages, len(out.Items))
	return &out, nil
}

// Search is FetchPage over the search source for text.
func (c *Client) Search(ctx context.Context, text string, page int) (*Page, error) {
	return c.FetchPage(ctx, SearchFor(text), page)
}

// Details fetches one title with its videos and credits. Cached copies are
// served while fresh, and stale ones are used when the network fails.
func (c *Client) Details(ctx context.Context, id int) (*Details, error) {
	key := strconv.Itoa(id)

	// Each attempt decodes into its own value; a failed decode may have
	// filled some fields already.
	if c.cache != nil {
		var cached Details
		if ok, _ := c.cache.Get(key, &cached); ok {
			return &cached, nil
		}
	}

	var d Details
	params := url.Values{"append_to_response": {"videos,credits"}}
	if err := c.get(ctx, "/movie/"+key, params, &d); err != nil {
		var netErr *NetworkError
		if c.cache != nil && errors.As(err, &netErr) {
			var stale Details
			if ok, _ := c.cache.GetStale(key, &stale); ok {
				c.log.Infof("serving stale details %d: %v", id, err)
				return &stale, nil
			}
		}
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Put(key, &d); err != nil {
			c.log.Warnf("caching details %d: %v", id, err)
		}
	}
	return &d, nil
}

// BreakerState exposes the circuit breaker state for the status bar.
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}

type statusBody struct {
	StatusMessage string `json:"status_message"`
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &NetworkError{Op: "rate limiter", Err: err}
	}

	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	if c.language != "" {
		params.Set("language", c.language)
	}
	endpoint := c.baseURL + path + "?" + params.Encode()

	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.do(ctx, endpoint, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &NetworkError{Op: "GET " + path, Err: err}
	}
	return err
}

func (c *Client) do(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return &NetworkError{Op: "GET " + req.URL.Path, Err: err}
	}
	defer resp.Body.Close()

	c.log.With("status", resp.StatusCode).Debugf("GET %s in %s", req.URL.Path, debuglog.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var sb statusBody
		_ = json.Unmarshal(body, &sb)
		return &UpstreamError{Status: resp.StatusCode, Message: sb.StatusMessage}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctx.Err() != nil {
			return &NetworkError{Op: "GET " + req.URL.Path, Err: ctx.Err()}
		}
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
