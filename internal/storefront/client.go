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

	"warimas-orderflow/internal/logger"
	"warimas-orderflow/internal/metrics"
	"warimas-orderflow/internal/utils"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("warimas-orderflow/internal/storefront")

const (
	defaultTimeout     = 10 * time.Second
	defaultMaxFailures = 5
	defaultOpenFor     = 30 * time.Second
	maxBodyBytes       = 1 << 20
)

type Config struct {
	BaseURL string
	Timeout time.Duration

	// RPS caps outbound calls across all callers. Zero means unlimited.
	RPS   float64
	Burst int

	// MaxFailures consecutive transient failures open the breaker for
	// OpenFor.
	MaxFailures uint32
	OpenFor     time.Duration

	HTTPClient *http.Client
}

// Client talks to the storefront backend on behalf of the caller found in
// the request context. It implements cart.Remote, checkout.Remote and
// order.Gateway.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[[]byte]
	stats      metrics.Calls
}

func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid storefront base url %q", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limit, burst := rate.Inf, cfg.Burst
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
		if burst <= 0 {
			burst = max(1, int(cfg.RPS))
		}
	}

	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultMaxFailures
	}
	openFor := cfg.OpenFor
	if openFor <= 0 {
		openFor = defaultOpenFor
	}

	c := &Client{
		baseURL:    base,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, burst),
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "storefront",
		MaxRequests: 1,
		Timeout:     openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.L().Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// 4xx answers mean the backend is healthy.
		IsSuccessful: func(err error) bool {
			return err == nil || !IsTransient(err)
		},
	})
	return c, nil
}

func (c *Client) Stats() metrics.CallsSnapshot {
	return c.stats.Snapshot()
}

func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

// do sends one JSON call. A nil out discards the response body.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	ctx, span := tracer.Start(ctx, "storefront."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		),
	)
	defer span.End()

	log := logger.FromCtx(ctx).With(
		zap.String("method", op),
		zap.String("path", path),
	)

	timer := metrics.StartTimer()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.send(ctx, method, path, in)
	})
	rejected := errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
	c.stats.Observe(timer.Duration(), err, rejected)

	if rejected {
		err = fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if IsTransient(err) {
			log.Warn("storefront call failed", zap.Error(err))
		} else {
			log.Debug("storefront call refused", zap.Error(err))
		}
		return err
	}

	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return ErrEmptyResponse
	}
	if err := json.Unmarshal(body, out); err != nil {
		log.Error("failed to decode storefront response", zap.Error(err))
		return fmt.Errorf("decode storefront %s response: %w", op, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, in any) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token := utils.GetAccessTokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if reqID := logger.RequestIDFrom(ctx); reqID != "" {
		req.Header.Set("X-Request-ID", reqID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", ErrUnavailable, err)
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("%w: over %d bytes", ErrResponseTooLarge, maxBodyBytes)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}
	return body, nil
}

func errorMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		if eb.Message != "" {
			return eb.Message
		}
		if eb.Error != "" {
			return eb.Error
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
