package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/valyala/fasthttp"

	"keyword-enricher/pkg/batch"
	"keyword-enricher/pkg/logger"
)

// ClientConfig carries everything a Client needs besides its pacing objects
type ClientConfig struct {
	BaseURL      string
	Login        string
	Password     string
	LocationCode int
	LanguageCode string
	Connection   ConnectionConfig
}

// Client calls DataForSEO live keyword endpoints
type Client struct {
	baseURL      string
	authHeader   string
	locationCode int
	languageCode string
	connManager  *ConnectionManager
	limiter      *RateLimiter
	retrier      *Retrier
	parser       *ResponseParser
	observer     Observer
	log          *logger.SecurityLogger

	// Metrics
	totalRequests  uint64
	failedRequests uint64
}

// NewClient creates a client bound to one run's limiter and retrier
func NewClient(cfg ClientConfig, limiter *RateLimiter, retrier *Retrier) *Client {
	if limiter == nil {
		limiter = NewRateLimiter(DefaultRateLimitConfig(), nil)
	}
	if retrier == nil {
		retrier = NewRetrier(DefaultRetryConfig(), nil)
	}

	credentials := base64.StdEncoding.EncodeToString([]byte(cfg.Login + ":" + cfg.Password))
	sl := logger.NewSecurityLogger(logger.GetLogger().WithField("component", "api_client"))

	c := &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		authHeader:   "Basic " + credentials,
		locationCode: cfg.LocationCode,
		languageCode: cfg.LanguageCode,
		connManager:  NewConnectionManager(cfg.Connection),
		limiter:      limiter,
		retrier:      retrier,
		parser:       NewResponseParser(),
		observer:     nopObserver{},
		log:          sl,
	}

	sl.SafeDebug("API client created", map[string]interface{}{
		"login":        cfg.Login,
		"base_url":     c.baseURL,
		"max_attempts": retrier.MaxAttempts(),
	})
	return c
}

// SetObserver routes per-attempt outcomes to o
func (c *Client) SetObserver(o Observer) {
	if o == nil {
		o = nopObserver{}
	}
	c.observer = o
}

// Localize returns a view of c that targets another market. The view shares
// the connection pool, limiter and retrier; zero arguments keep c's values.
func (c *Client) Localize(locationCode int, languageCode string) Poster {
	view := &Client{
		baseURL:      c.baseURL,
		authHeader:   c.authHeader,
		locationCode: c.locationCode,
		languageCode: c.languageCode,
		connManager:  c.connManager,
		limiter:      c.limiter,
		retrier:      c.retrier,
		parser:       c.parser,
		observer:     c.observer,
		log:          c.log,
	}
	if locationCode > 0 {
		view.locationCode = locationCode
	}
	if languageCode != "" {
		view.languageCode = languageCode
	}
	return view
}

// searchVolumeTask is the request body element shared by both endpoint families
type searchVolumeTask struct {
	Keywords     []string `json:"keywords"`
	LocationCode int      `json:"location_code,omitempty"`
	LanguageCode string   `json:"language_code,omitempty"`
}

// Post sends one batch to endpoint. Each attempt waits on the rate limiter;
// transient failures are retried and the last one is returned when attempts run out.
func (c *Client) Post(ctx context.Context, endpoint Endpoint, b batch.Batch) (Payload, error) {
	if b.Len() == 0 {
		return nil, fmt.Errorf("batch %d has no keywords", b.Index)
	}
	if endpoint.Limit > 0 && b.Len() > endpoint.Limit {
		return nil, &FatalAPIError{
			Endpoint: endpoint.Name,
			Message:  fmt.Sprintf("batch %d has %d keywords, endpoint limit is %d", b.Index, b.Len(), endpoint.Limit),
		}
	}

	body, err := c.buildBody(endpoint, b)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	var payload Payload
	c.retrier.OnRetry(func(int, error) { c.observer.ObserveRetry(endpoint.Name) })
	err = c.retrier.Do(ctx, func(attempt int) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		p, err := c.doPost(endpoint, body)
		if err != nil {
			c.log.SafeDebug("Attempt failed", map[string]interface{}{
				"endpoint": endpoint.Name,
				"batch":    b.Index,
				"attempt":  attempt,
				"error":    err.Error(),
			})
			return err
		}
		payload = p
		return nil
	})

	if err != nil {
		atomic.AddUint64(&c.failedRequests, 1)
		return nil, err
	}
	return payload, nil
}

func (c *Client) buildBody(endpoint Endpoint, b batch.Batch) ([]byte, error) {
	task := searchVolumeTask{
		Keywords:     b.Keywords,
		LocationCode: c.locationCode,
	}
	if endpoint.SendsLanguage {
		task.LanguageCode = c.languageCode
	}
	return json.Marshal([]searchVolumeTask{task})
}

func (c *Client) doPost(endpoint Endpoint, body []byte) (Payload, error) {
	atomic.AddUint64(&c.totalRequests, 1)
	start := time.Now()

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.baseURL + endpoint.Path)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", c.authHeader)
	req.SetBody(body)

	err := c.connManager.GetFastHTTPClient().DoTimeout(req, resp, c.connManager.RequestTimeout())
	if err != nil {
		c.observer.ObserveRequest(endpoint.Name, "transport_error", time.Since(start))
		msg := "request failed"
		if errors.Is(err, fasthttp.ErrTimeout) {
			msg = "request timed out"
		}
		return nil, &TransientAPIError{Endpoint: endpoint.Name, Message: msg, Err: err}
	}

	status := resp.StatusCode()
	if status != fasthttp.StatusOK {
		sev := ClassifyHTTPStatus(status)
		c.observer.ObserveRequest(endpoint.Name, "http_"+sev.String(), time.Since(start))
		return nil, newStatusError(sev, endpoint.Name, status, 0, snippet(resp.Body()), nil)
	}

	// resp is released on return, parse works on a copy
	payload, err := c.parser.Parse(endpoint, append([]byte(nil), resp.Body()...))
	if err != nil {
		c.observer.ObserveRequest(endpoint.Name, "api_"+NewErrorClassifier().Classify(err).String(), time.Since(start))
		return nil, err
	}

	c.observer.ObserveRequest(endpoint.Name, "ok", time.Since(start))
	return payload, nil
}

// Stats returns the number of HTTP attempts and failed Post calls so far
func (c *Client) Stats() (total, failed uint64) {
	return atomic.LoadUint64(&c.totalRequests), atomic.LoadUint64(&c.failedRequests)
}

// Close releases idle connections
func (c *Client) Close() {
	c.connManager.Close()
}
