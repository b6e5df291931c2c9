// Package forum implements the resilient client for the forum-backed
// catalog API: page listing, filter discovery, and topic detail enrichment.
//
// Rate limiting (429) and server faults (5xx) are retried with bounded
// exponential backoff and jitter; everything else fails immediately as a
// terminal request error. The client is stateless across invocations.
package forum

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/blueprintstore/blueprintstore-server/internal/domain"
	"github.com/blueprintstore/blueprintstore-server/internal/errors"
	"github.com/blueprintstore/blueprintstore-server/internal/ratelimit"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "BlueprintStore/1.0"

	// Outbound budget against the forum: 2 rps with a small burst, keyed
	// by host so mirrors get their own bucket.
	defaultRPS   = 2.0
	defaultBurst = 4
)

// Options configures the forum client.
type Options struct {
	// BaseURL is the catalog API root, e.g. "https://forum.example.org/api".
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	Retry     RetryPolicy

	// RateLimit caps outbound requests per second per forum host; Burst
	// allows short spikes. Zero values take the defaults.
	RateLimit float64
	Burst     int
}

// Client fetches catalog pages from the forum backend.
type Client struct {
	http    *http.Client
	limiter *ratelimit.KeyedRateLimiter
	logger  *slog.Logger
	base    *url.URL
	agent   string
	retry   RetryPolicy
	sleep   sleepFunc
}

// New creates a forum client. A malformed base URL is a terminal
// configuration failure, not something retries can fix.
func New(opts Options, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, errors.Requestf("malformed forum base URL %q", opts.BaseURL)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	agent := opts.UserAgent
	if agent == "" {
		agent = defaultUserAgent
	}
	rps := opts.RateLimit
	if rps <= 0 {
		rps = defaultRPS
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = defaultBurst
	}

	return &Client{
		http:    &http.Client{Timeout: timeout},
		limiter: ratelimit.New(rps, burst),
		logger:  logger,
		base:    base,
		agent:   agent,
		retry:   opts.Retry.normalize(),
		sleep:   sleepContext,
	}, nil
}

// FetchPage retrieves one catalog page. The backend reports exhaustion via
// has_more.
func (c *Client) FetchPage(ctx context.Context, q PageQuery) (*domain.PageResult, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(q.Page))
	if q.Sort.Valid() {
		params.Set("sort", string(q.Sort))
	}
	if q.Bucket != "" {
		params.Set("bucket", q.Bucket)
	}
	if q.Query != "" {
		params.Set("q_title", q.Query)
	}

	var env pageEnvelope
	if err := c.getJSON(ctx, c.endpoint("blueprints", params), &env); err != nil {
		return nil, err
	}
	if env.Error != "" {
		return nil, errors.Requestf("backend error: %s", env.Error)
	}

	result := &domain.PageResult{
		Items:   make([]domain.Blueprint, 0, len(env.Items)),
		HasMore: env.HasMore,
	}
	for i := range env.Items {
		result.Items = append(result.Items, env.Items[i].toDomain())
	}
	return result, nil
}

// FetchFilters retrieves the advisory list of known buckets for the filter
// UI. Callers treat failure as non-fatal and degrade to classifier-only
// buckets.
func (c *Client) FetchFilters(ctx context.Context) ([]string, error) {
	var env filtersEnvelope
	if err := c.getJSON(ctx, c.endpoint("filters", nil), &env); err != nil {
		return nil, err
	}
	if env.Error != "" {
		return nil, errors.Requestf("backend error: %s", env.Error)
	}
	return env.Tags, nil
}

// FetchTopic retrieves and enriches one topic: the cooked first post becomes
// a plain-text excerpt and a markdown description, and blueprint import
// links are extracted and counted.
func (c *Client) FetchTopic(ctx context.Context, topicID int64) (*TopicDetail, error) {
	var env topicEnvelope
	if err := c.getJSON(ctx, c.endpoint(fmt.Sprintf("topic/%d", topicID), nil), &env); err != nil {
		return nil, err
	}
	if env.Error != "" {
		return nil, errors.Requestf("backend error: %s", env.Error)
	}

	links := extractImportLinks(env.CookedHTML)
	detail := &TopicDetail{
		ID:          env.ID,
		Slug:        env.Slug,
		Title:       env.Title,
		Author:      env.Author,
		Likes:       env.Likes,
		Views:       env.Views,
		Replies:     env.Replies,
		Tags:        env.Tags,
		CreatedAt:   parseTime(env.CreatedAt),
		UpdatedAt:   parseTime(env.UpdatedAt),
		Excerpt:     stripHTML(env.CookedHTML),
		Description: htmlToMarkdown(env.CookedHTML),
		ImportCount: len(links),
	}
	if len(links) > 0 {
		detail.ImportURL = links[0]
	}
	return detail, nil
}

func (c *Client) endpoint(path string, params url.Values) string {
	u := *c.base
	u.Path, _ = url.JoinPath(u.Path, path)
	if params != nil {
		u.RawQuery = params.Encode()
	}
	return u.String()
}

// getJSON performs one logical GET with retries on transient faults. The
// wait before attempt k grows geometrically and is capped; exhausting the
// attempt budget surfaces the last transient error.
func (c *Client) getJSON(ctx context.Context, rawURL string, dst any) error {
	var lastErr error
	for attempt := 0; attempt < c.retry.Attempts; attempt++ {
		if attempt > 0 {
			delay := c.retry.Delay(attempt - 1)
			c.logger.Debug("retrying forum request",
				"url", rawURL,
				"attempt", attempt,
				"delay", delay,
			)
			if err := c.sleep(ctx, delay); err != nil {
				return err
			}
		}

		retryable, err := c.getJSONOnce(ctx, rawURL, dst)
		if err == nil {
			return nil
		}
		if !retryable {
			return err
		}
		lastErr = err
	}
	return lastErr
}

// getJSONOnce performs a single attempt. The bool result reports whether the
// failure is transient and worth retrying.
func (c *Client) getJSONOnce(ctx context.Context, rawURL string, dst any) (bool, error) {
	if err := c.limiter.Wait(ctx, c.base.Host); err != nil {
		return false, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return false, errors.Requestf("create request for %q", rawURL).WithCause(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.agent)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		// Connection-level failures are worth one more try.
		return true, errors.ErrTransient.WithCause(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return true, errors.ErrTransient.WithCause(err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return true, errors.Transientf("status %d from forum", resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return false, errors.Requestf("unexpected status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return false, errors.Requestf("parse forum response").WithCause(err)
	}
	return false, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
