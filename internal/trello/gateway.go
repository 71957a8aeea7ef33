// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package trello

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	xglog "github.com/ManuGH/boardlink/internal/log"
	"github.com/ManuGH/boardlink/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the fixed Trello API host.
const DefaultBaseURL = "https://api.trello.com"

const (
	defaultTimeout        = 30 * time.Second
	defaultRateLimit      = 10
	defaultRateLimitBurst = 20
	defaultMaxBodyBytes   = 8 << 20
	defaultUserAgent      = "boardlink"
	apiVersionPrefix      = "/1/"
)

// Executor issues one classified request. *Gateway implements it; tests
// substitute fakes.
type Executor interface {
	Execute(ctx context.Context, spec RequestSpec, creds Credentials) (json.RawMessage, error)
}

// Options configures the gateway.
type Options struct {
	BaseURL        string
	Timeout        time.Duration
	RateLimit      rate.Limit
	RateLimitBurst int
	UserAgent      string
	MaxBodyBytes   int64
	// Transport overrides the default transport (tests, proxies).
	Transport http.RoundTripper
}

// Gateway turns RequestSpecs into exactly one HTTP call each and classifies
// the outcome. It never retries; retry is owned by the host.
type Gateway struct {
	base      string
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
	maxBody   int64
}

// NewGateway creates a gateway with normalised options.
func NewGateway(opts Options) *Gateway {
	nopts := normalizeOptions(opts)

	transport := nopts.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   20,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   5 * time.Second,
			ResponseHeaderTimeout: nopts.Timeout,
		}
	}

	return &Gateway{
		base: nopts.BaseURL,
		http: &http.Client{
			Timeout:   nopts.Timeout,
			Transport: transport,
		},
		limiter:   rate.NewLimiter(nopts.RateLimit, nopts.RateLimitBurst),
		userAgent: nopts.UserAgent,
		maxBody:   nopts.MaxBodyBytes,
	}
}

func normalizeOptions(opts Options) Options {
	opts.BaseURL = strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = rate.Limit(defaultRateLimit)
	}
	if opts.RateLimitBurst <= 0 {
		opts.RateLimitBurst = defaultRateLimitBurst
	}
	if strings.TrimSpace(opts.UserAgent) == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	return opts
}

// Execute performs the call described by spec with creds attached.
func (g *Gateway) Execute(ctx context.Context, spec RequestSpec, creds Credentials) (json.RawMessage, error) {
	method := spec.method()
	route := spec.route()

	ctx, span := telemetry.Tracer("boardlink.trello").Start(ctx, "trello.request", trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(telemetry.UpstreamAttributes(method, route)...)
	defer span.End()

	logger := xglog.WithComponentFromContext(ctx, "trello")
	start := time.Now()

	payload, status, err := g.do(ctx, spec, method, creds)
	if e, ok := AsError(err); ok && e.Operation == "" {
		e.Operation = route
	}
	duration := time.Since(start)

	recordRequestMetrics(method, route, status, duration, err)
	if status > 0 {
		span.SetAttributes(attribute.Int(telemetry.HTTPStatusCodeKey, status))
	}

	if err != nil {
		kind := KindOf(err)
		span.RecordError(err)
		span.SetAttributes(telemetry.ErrorAttributes(kind.String())...)
		span.SetStatus(codes.Error, kind.String())
		logger.Warn().
			Err(err).
			Str(xglog.FieldEvent, "trello.request_failed").
			Str(xglog.FieldHTTPMethod, method).
			Str(xglog.FieldRoute, route).
			Int(xglog.FieldStatus, status).
			Str(xglog.FieldErrorKind, kind.String()).
			Int64(xglog.FieldDurationMS, duration.Milliseconds()).
			Msg("trello request failed")
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	logger.Debug().
		Str(xglog.FieldEvent, "trello.request").
		Str(xglog.FieldHTTPMethod, method).
		Str(xglog.FieldRoute, route).
		Int(xglog.FieldStatus, status).
		Int64(xglog.FieldDurationMS, duration.Milliseconds()).
		Msg("trello request completed")
	return payload, nil
}

func (g *Gateway) do(ctx context.Context, spec RequestSpec, method string, creds Credentials) (json.RawMessage, int, error) {
	if g.limiter != nil {
		waitStart := time.Now()
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, 0, ClassifyTransport(err)
		}
		rateLimitWait.Observe(time.Since(waitStart).Seconds())
	}

	var body io.Reader
	if spec.Body != nil {
		buf, err := json.Marshal(spec.Body)
		if err != nil {
			return nil, 0, &Error{
				Kind:    KindRejected,
				Message: "The request could not be encoded.",
				Err:     err,
			}
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.buildURL(spec), body)
	if err != nil {
		return nil, 0, ClassifyTransport(err)
	}
	g.applyHeaders(req, creds, spec.Body != nil)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, 0, ClassifyTransport(err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, g.maxBody+1))
	if err != nil {
		return nil, resp.StatusCode, ClassifyTransport(err)
	}
	if int64(len(raw)) > g.maxBody {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode, &Error{
			Kind:    KindRetryable,
			Message: msgRetryablePrefix + fmt.Sprintf("response body exceeds %d bytes", g.maxBody),
			Status:  resp.StatusCode,
		}
	}

	if !spec.ExpectJSON && resp.StatusCode >= http.StatusOK && resp.StatusCode <= 299 {
		wrapped, err := json.Marshal(string(raw))
		if err != nil {
			return nil, resp.StatusCode, Retryable(msgRetryablePrefix+"unreadable response", err)
		}
		return wrapped, resp.StatusCode, nil
	}

	payload, err := Classify(resp.StatusCode, raw)
	return payload, resp.StatusCode, err
}

func (g *Gateway) buildURL(spec RequestSpec) string {
	path := strings.TrimLeft(spec.Path, "/")
	rawQuery := ""
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path, rawQuery = path[:i], path[i+1:]
	}
	if q := spec.encodedQuery(); q != "" {
		if rawQuery != "" {
			rawQuery += "&"
		}
		rawQuery += q
	}
	u := g.base + apiVersionPrefix + path
	if rawQuery != "" {
		u += "?" + rawQuery
	}
	return u
}

func (g *Gateway) applyHeaders(req *http.Request, creds Credentials, hasBody bool) {
	req.Header.Set("Accept", "application/json")
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth := creds.authorization(); auth != "" {
		req.Header.Set("Authorization", auth)
	}
}
