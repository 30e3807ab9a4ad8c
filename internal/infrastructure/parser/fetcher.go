package parser

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"NewsCrawler/internal/config"
	"NewsCrawler/internal/domain"
)

// Fetcher issues the page requests of one source: resty for timeouts and retries,
// a token bucket to stay polite with the portal.
type Fetcher struct {
	client  *resty.Client
	limiter *rate.Limiter
}

// NewFetcher builds a fetcher from HTTP settings. A nil httpClient uses resty's default transport.
func NewFetcher(cfg config.HTTPConfig, httpClient *http.Client) *Fetcher {
	var client *resty.Client
	if httpClient != nil {
		client = resty.NewWithClient(httpClient)
	} else {
		client = resty.New()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client.
		SetTimeout(timeout).
		SetRetryCount(cfg.Retries).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
		})
	if cfg.RetryWait > 0 {
		client.SetRetryWaitTime(cfg.RetryWait).SetRetryMaxWaitTime(4 * cfg.RetryWait)
	}
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Fetcher{
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Get downloads rawURL with query appended. Every failure, including timeouts and
// non-2xx answers, comes back as *domain.FetchError.
func (f *Fetcher) Get(ctx context.Context, source, rawURL string, query url.Values) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, &domain.FetchError{Source: source, URL: rawURL, Err: err}
	}

	req := f.client.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}

	resp, err := req.Get(rawURL)
	if err != nil {
		return nil, &domain.FetchError{Source: source, URL: rawURL, Err: err}
	}

	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return nil, &domain.FetchError{Source: source, URL: resp.Request.URL, StatusCode: resp.StatusCode()}
	}

	return resp.Body(), nil
}
