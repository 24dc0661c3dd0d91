// Package ethereum provides Ethereum blockchain infrastructure adapters.
package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/dex-arbitrage-engine/business/blockchain/domain"
	"github.com/fd1az/dex-arbitrage-engine/internal/apperror"
	"github.com/fd1az/dex-arbitrage-engine/internal/circuitbreaker"
	"github.com/fd1az/dex-arbitrage-engine/internal/config"
	"github.com/fd1az/dex-arbitrage-engine/internal/logger"
)

const (
	tracerName = "github.com/fd1az/dex-arbitrage-engine/business/blockchain/infra/ethereum"
	meterName  = "github.com/fd1az/dex-arbitrage-engine/business/blockchain/infra/ethereum"
)

// SubscriberConfig holds configuration for the Ethereum subscriber.
type SubscriberConfig struct {
	WSURL          string        // WebSocket endpoint (primary)
	HTTPURL        string        // HTTP endpoint (fallback)
	PollInterval   time.Duration // Polling interval for HTTP fallback
	InitialBackoff time.Duration // First WS reconnect delay
	MaxBackoff     time.Duration // Reconnect delay cap
	BufferSize     int           // Block channel buffer size
}

// DefaultSubscriberConfig returns the subscriber config for eth.
func DefaultSubscriberConfig(eth config.EthereumConfig) SubscriberConfig {
	cfg := SubscriberConfig{
		WSURL:          eth.WebSocketURL,
		HTTPURL:        eth.HTTPURL,
		PollInterval:   12 * time.Second, // ~1 block time
		InitialBackoff: eth.InitialBackoff,
		MaxBackoff:     eth.MaxBackoff,
		BufferSize:     16,
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff
	}
	return cfg
}

// HeadSource is the slice of an RPC client the subscriber needs.
type HeadSource interface {
	SubscribeNewHead(ctx context.Context, ch chan<- *types.Header) (ethereum.Subscription, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
}

// HeadDialFunc opens a HeadSource for an RPC URL.
type HeadDialFunc func(ctx context.Context, rawURL string) (HeadSource, error)

func dialHeadSource(ctx context.Context, rawURL string) (HeadSource, error) {
	c, err := ethclient.DialContext(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return c, nil
}

type subscriberMetrics struct {
	blocksReceived   metric.Int64Counter
	subscribeErrors  metric.Int64Counter
	connectionState  metric.Int64Gauge
	httpFallbackUsed metric.Int64Counter
}

// Subscriber streams new heads over WebSocket and falls back to HTTP
// polling while the socket is down.
type Subscriber struct {
	config SubscriberConfig
	logger logger.LoggerInterface
	dial   HeadDialFunc

	state      domain.ConnectionState
	stateMu    sync.RWMutex
	lastBlock  atomic.Uint64
	reconnects atomic.Int32
	started    atomic.Bool

	httpClient HeadSource
	httpCB     *circuitbreaker.CircuitBreaker[*types.Header]

	tracer  trace.Tracer
	metrics *subscriberMetrics
}

// SubscriberOption configures a Subscriber.
type SubscriberOption func(*Subscriber)

// WithHeadDialer overrides how RPC clients are opened.
func WithHeadDialer(dial HeadDialFunc) SubscriberOption {
	return func(s *Subscriber) { s.dial = dial }
}

// NewSubscriber creates a new Ethereum block subscriber.
func NewSubscriber(cfg SubscriberConfig, log logger.LoggerInterface, opts ...SubscriberOption) (*Subscriber, error) {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 16
	}
	s := &Subscriber{
		config: cfg,
		logger: log,
		dial:   dialHeadSource,
		state:  domain.StateDisconnected,
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	httpCfg := circuitbreaker.DefaultConfig("eth-http")
	httpCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		s.logger.Info(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	s.httpCB = circuitbreaker.New[*types.Header](httpCfg)

	return s, nil
}

func (s *Subscriber) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &subscriberMetrics{}

	s.metrics.blocksReceived, err = meter.Int64Counter(
		"eth_blocks_received_total",
		metric.WithDescription("Total Ethereum blocks received"),
		metric.WithUnit("{block}"),
	)
	if err != nil {
		return err
	}

	s.metrics.subscribeErrors, err = meter.Int64Counter(
		"eth_subscribe_errors_total",
		metric.WithDescription("Total Ethereum subscription errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	s.metrics.connectionState, err = meter.Int64Gauge(
		"eth_connection_state",
		metric.WithDescription("Ethereum connection state (0=disconnected, 1=connecting, 2=connected, 3=reconnecting, 4=polling)"),
		metric.WithUnit("{state}"),
	)
	if err != nil {
		return err
	}

	s.metrics.httpFallbackUsed, err = meter.Int64Counter(
		"eth_http_fallback_total",
		metric.WithDescription("Times HTTP fallback was used"),
		metric.WithUnit("{fallback}"),
	)
	return err
}

// Subscribe starts the feed. It may be called once per Subscriber.
func (s *Subscriber) Subscribe(ctx context.Context) (<-chan domain.Block, error) {
	if s.config.WSURL == "" && s.config.HTTPURL == "" {
		return nil, apperror.New(apperror.CodeEthereumConnectionFailed,
			apperror.WithContext("no ethereum endpoint configured"))
	}
	if !s.started.CompareAndSwap(false, true) {
		return nil, apperror.New(apperror.CodeEthereumSubscribeFailed,
			apperror.WithContext("subscriber already running"))
	}

	out := make(chan domain.Block, s.config.BufferSize)
	go s.run(ctx, out)
	return out, nil
}

func (s *Subscriber) run(ctx context.Context, out chan<- domain.Block) {
	defer close(out)
	defer s.setState(domain.StateDisconnected)

	backoff := s.config.InitialBackoff
	for ctx.Err() == nil {
		if s.config.WSURL != "" {
			s.setState(domain.StateConnecting)
			connected, err := s.streamWS(ctx, out)
			if ctx.Err() != nil {
				return
			}
			if connected {
				backoff = s.config.InitialBackoff
			}
			s.reconnects.Add(1)
			s.metrics.subscribeErrors.Add(ctx, 1)
			s.logger.Warn(ctx, "ws head subscription ended", "error", err, "retry_in", backoff)
		}

		if s.config.HTTPURL != "" {
			// Without a websocket endpoint polling is the only feed.
			window := backoff
			if s.config.WSURL == "" {
				window = 0
			}
			s.setState(domain.StatePolling)
			s.metrics.httpFallbackUsed.Add(ctx, 1)
			s.pollFor(ctx, out, window)
		} else {
			s.setState(domain.StateReconnecting)
			if !sleepCtx(ctx, backoff) {
				return
			}
		}

		backoff *= 2
		if backoff > s.config.MaxBackoff {
			backoff = s.config.MaxBackoff
		}
	}
}

// streamWS forwards heads until the subscription fails. connected reports
// whether the subscription was established.
func (s *Subscriber) streamWS(ctx context.Context, out chan<- domain.Block) (connected bool, err error) {
	client, err := s.dial(ctx, s.config.WSURL)
	if err != nil {
		return false, fmt.Errorf("dial ws: %w", err)
	}
	if c, ok := client.(interface{ Close() }); ok {
		defer c.Close()
	}

	headers := make(chan *types.Header, s.config.BufferSize)
	sub, err := client.SubscribeNewHead(ctx, headers)
	if err != nil {
		return false, fmt.Errorf("subscribe new head: %w", err)
	}
	defer sub.Unsubscribe()

	s.setState(domain.StateConnected)
	s.logger.Info(ctx, "subscribed to new heads via ws")

	for {
		select {
		case <-ctx.Done():
			return true, ctx.Err()
		case err := <-sub.Err():
			if err == nil {
				err = errors.New("subscription closed")
			}
			return true, err
		case header := <-headers:
			if header != nil {
				s.emit(ctx, out, header, false)
			}
		}
	}
}

// pollFor polls the latest head every PollInterval for window, or until ctx
// ends when window is zero.
func (s *Subscriber) pollFor(ctx context.Context, out chan<- domain.Block, window time.Duration) {
	if window > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, window)
		defer cancel()
	}

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		s.pollLatest(ctx, out)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Subscriber) pollLatest(ctx context.Context, out chan<- domain.Block) {
	ctx, span := s.tracer.Start(ctx, "eth.poll.block")
	defer span.End()

	if s.httpClient == nil {
		client, err := s.dial(ctx, s.config.HTTPURL)
		if err != nil {
			span.RecordError(err)
			s.logger.Error(ctx, "http dial failed", "error", err)
			return
		}
		s.httpClient = client
	}

	header, err := s.httpCB.Execute(func() (*types.Header, error) {
		return s.httpClient.HeaderByNumber(ctx, nil)
	})
	if err != nil {
		if ctx.Err() == nil {
			span.RecordError(err)
			s.metrics.subscribeErrors.Add(ctx, 1)
			s.logger.Error(ctx, "http poll failed", "error", err)
		}
		return
	}
	s.emit(ctx, out, header, true)
}

// emit converts header and hands it to out without blocking. Heads at or
// below the last seen number are dropped.
func (s *Subscriber) emit(ctx context.Context, out chan<- domain.Block, header *types.Header, fromHTTP bool) {
	if header.Number == nil {
		return
	}
	number := header.Number.Uint64()
	if number <= s.lastBlock.Load() {
		return
	}
	s.lastBlock.Store(number)

	block := domain.Block{
		Number:    number,
		Hash:      header.Hash(),
		Timestamp: time.Unix(int64(header.Time), 0),
		BaseFee:   header.BaseFee,
	}

	select {
	case out <- block:
		s.metrics.blocksReceived.Add(ctx, 1,
			metric.WithAttributes(attribute.Bool("from_http", fromHTTP)))
		s.logger.Debug(ctx, "block received", "number", number, "from_http", fromHTTP)
	default:
		s.logger.Warn(ctx, "block dropped, buffer full", "number", number)
	}
}

// State returns the current connection state.
func (s *Subscriber) State() domain.ConnectionState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// LastBlock returns the number of the last emitted head.
func (s *Subscriber) LastBlock() uint64 {
	return s.lastBlock.Load()
}

// Reconnects returns how many times the websocket feed was lost.
func (s *Subscriber) Reconnects() int {
	return int(s.reconnects.Load())
}

func (s *Subscriber) setState(state domain.ConnectionState) {
	s.stateMu.Lock()
	s.state = state
	s.stateMu.Unlock()

	s.metrics.connectionState.Record(context.Background(), state.Value())
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
