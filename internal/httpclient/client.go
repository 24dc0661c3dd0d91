// Package httpclient is the instrumented HTTP client shared by the REST and
// subgraph price sources. Every request is traced, counted and timed per
// source.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/httptrace/otelhttptrace"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultDialKeepAlive   = 10 * time.Second
	defaultRequestTimeout  = 10 * time.Second
	defaultMaxConnsPerHost = 5
	defaultIdleConnTimeout = 2 * time.Minute
	defaultMaxBodyBytes    = 2 << 20

	instrumentationName = "github.com/fd1az/dex-arbitrage-engine/internal/httpclient"
	metricRequests      = "dexarb_source_http_requests_total"
	metricDuration      = "dexarb_source_http_request_duration_seconds"
)

// ErrBodyTooLarge is returned when a response exceeds the configured limit.
var ErrBodyTooLarge = errors.New("response body too large")

// Client builds requests against one upstream.
type Client interface {
	NewRequest(opts ...RequestOption) Request
}

// Request is a single-use request builder.
type Request interface {
	SetHeader(key, value string) Request
	SetHeaders(headers map[string]string) Request
	SetQueryParam(key, value string) Request
	SetJSON(body any) Request
	Get(ctx context.Context, path string) (*Response, error)
	Post(ctx context.Context, path string) (*Response, error)
}

// Response is a fully read response.
type Response struct {
	StatusCode int
	Header     http.Header
	Duration   time.Duration
	body       []byte
}

// Body returns the raw response body.
func (r *Response) Body() []byte { return r.body }

// IsError reports a status of 400 or above.
func (r *Response) IsError() bool { return r.StatusCode >= 400 }

// Label is an extra metric attribute.
type Label struct {
	Key   string
	Value string
}

func NewLabel(key, value string) Label { return Label{Key: key, Value: value} }

// ResponseErrorHandler turns a completed response into an error, or nil.
type ResponseErrorHandler func(statusCode int, body []byte) error

type options struct {
	providerName   string
	baseURL        string
	headers        map[string]string
	requestTimeout time.Duration
	transport      http.RoundTripper
	meterProvider  metric.MeterProvider
	maxBodyBytes   int64
}

// ClientOption configures a client.
type ClientOption func(*options)

// WithProviderName names the upstream in spans and metrics.
func WithProviderName(name string) ClientOption {
	return func(o *options) { o.providerName = name }
}

// WithBaseURL is prefixed to relative request paths.
func WithBaseURL(u string) ClientOption {
	return func(o *options) { o.baseURL = u }
}

// WithHeaders are sent on every request.
func WithHeaders(h map[string]string) ClientOption {
	return func(o *options) { o.headers = h }
}

func WithRequestTimeout(d time.Duration) ClientOption {
	return func(o *options) { o.requestTimeout = d }
}

// WithTransport replaces the pooled default transport.
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(o *options) { o.transport = rt }
}

func WithMeterProvider(mp metric.MeterProvider) ClientOption {
	return func(o *options) { o.meterProvider = mp }
}

// WithMaxBodyBytes caps how much of a response is read.
func WithMaxBodyBytes(n int64) ClientOption {
	return func(o *options) { o.maxBodyBytes = n }
}

type requestOptions struct {
	errorHandler ResponseErrorHandler
	labels       []Label
}

// RequestOption configures a single request.
type RequestOption func(*requestOptions)

func WithResponseErrorHandler(h ResponseErrorHandler) RequestOption {
	return func(o *requestOptions) { o.errorHandler = h }
}

func WithLabels(labels ...Label) RequestOption {
	return func(o *requestOptions) { o.labels = append(o.labels, labels...) }
}

// InstrumentedClient implements Client.
type InstrumentedClient struct {
	http     *http.Client
	opts     options
	tracer   trace.Tracer
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// New creates a client with an otelhttp-wrapped transport.
func New(opts ...ClientOption) (*InstrumentedClient, error) {
	o := options{
		providerName:   "default",
		requestTimeout: defaultRequestTimeout,
		maxBodyBytes:   defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(&o)
	}

	transport := o.transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			DialContext:     (&net.Dialer{KeepAlive: defaultDialKeepAlive}).DialContext,
			MaxConnsPerHost: defaultMaxConnsPerHost,
			IdleConnTimeout: defaultIdleConnTimeout,
		}
	}

	mp := o.meterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(instrumentationName)

	requests, err := meter.Int64Counter(metricRequests,
		metric.WithDescription("Requests sent to price sources"))
	if err != nil {
		return nil, fmt.Errorf("requests counter: %w", err)
	}
	duration, err := meter.Float64Histogram(metricDuration,
		metric.WithDescription("Price source request latency"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("duration histogram: %w", err)
	}

	return &InstrumentedClient{
		http: &http.Client{
			Timeout: o.requestTimeout,
			Transport: otelhttp.NewTransport(transport,
				otelhttp.WithClientTrace(func(ctx context.Context) *httptrace.ClientTrace {
					return otelhttptrace.NewClientTrace(ctx)
				})),
		},
		opts:     o,
		tracer:   otel.Tracer(instrumentationName),
		requests: requests,
		duration: duration,
	}, nil
}

// NewRequest starts a request carrying the client's default headers.
func (c *InstrumentedClient) NewRequest(opts ...RequestOption) Request {
	var ro requestOptions
	for _, opt := range opts {
		opt(&ro)
	}

	headers := make(map[string]string, len(c.opts.headers))
	for k, v := range c.opts.headers {
		headers[k] = v
	}
	return &request{client: c, opts: ro, headers: headers, query: url.Values{}}
}

type request struct {
	client  *InstrumentedClient
	opts    requestOptions
	headers map[string]string
	query   url.Values
	body    any
}

func (r *request) SetHeader(key, value string) Request {
	r.headers[key] = value
	return r
}

func (r *request) SetHeaders(headers map[string]string) Request {
	for k, v := range headers {
		r.headers[k] = v
	}
	return r
}

// SetQueryParam sets an escaped query parameter.
func (r *request) SetQueryParam(key, value string) Request {
	r.query.Set(key, value)
	return r
}

// SetJSON sends body JSON-encoded. []byte and string are sent as is.
func (r *request) SetJSON(body any) Request {
	r.body = body
	return r
}

func (r *request) Get(ctx context.Context, path string) (*Response, error) {
	return r.do(ctx, http.MethodGet, path)
}

func (r *request) Post(ctx context.Context, path string) (*Response, error) {
	return r.do(ctx, http.MethodPost, path)
}

func (r *request) url(path string) string {
	u := path
	if base := r.client.opts.baseURL; base != "" && !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		u = strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
	}
	if len(r.query) == 0 {
		return u
	}
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + r.query.Encode()
}

func (r *request) encodeBody() (io.Reader, error) {
	switch b := r.body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return bytes.NewReader(b), nil
	case string:
		return strings.NewReader(b), nil
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		if _, ok := r.headers["Content-Type"]; !ok {
			r.headers["Content-Type"] = "application/json"
		}
		return bytes.NewReader(raw), nil
	}
}

func (r *request) do(ctx context.Context, method, path string) (*Response, error) {
	c := r.client
	// Query strings may carry API keys, so only the path is traced.
	ctx, span := c.tracer.Start(ctx, "source.http "+method, trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("source", c.opts.providerName),
	))
	defer span.End()

	start := time.Now()
	resp, err := r.send(ctx, method, path)
	elapsed := time.Since(start)

	status := 0
	if resp != nil {
		status = resp.StatusCode
		resp.Duration = elapsed
		span.SetAttributes(attribute.Int("http.status_code", status))
	}
	if err == nil && r.opts.errorHandler != nil {
		err = r.opts.errorHandler(status, resp.body)
	}
	r.record(ctx, method, status, err, elapsed)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return resp, err
	}
	return resp, nil
}

func (r *request) send(ctx context.Context, method, path string) (*Response, error) {
	body, err := r.encodeBody()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, r.url(path), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	httpResp, err := r.client.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	limit := r.client.opts.maxBodyBytes
	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	resp := &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, body: raw}
	if int64(len(raw)) > limit {
		resp.body = raw[:limit]
		return resp, fmt.Errorf("%w: over %d bytes", ErrBodyTooLarge, limit)
	}
	return resp, nil
}

func (r *request) record(ctx context.Context, method string, status int, err error, elapsed time.Duration) {
	outcome := "ok"
	switch {
	case errors.Is(err, context.DeadlineExceeded) || isTimeout(err):
		outcome = "timeout"
	case errors.Is(err, context.Canceled):
		outcome = "cancelled"
	case err != nil:
		outcome = "error"
	}

	attrs := []attribute.KeyValue{
		attribute.String("source", r.client.opts.providerName),
		attribute.String("method", method),
		attribute.String("status_class", statusClass(status)),
		attribute.String("outcome", outcome),
	}
	for _, l := range r.opts.labels {
		attrs = append(attrs, attribute.String(l.Key, l.Value))
	}
	set := metric.WithAttributes(attrs...)
	r.client.requests.Add(ctx, 1, set)
	r.client.duration.Record(ctx, elapsed.Seconds(), set)
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func statusClass(status int) string {
	if status == 0 {
		return "none"
	}
	return fmt.Sprintf("%dxx", status/100)
}
