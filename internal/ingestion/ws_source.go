package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"tick-feature-lab/internal/domain"
)

// WSConfig configures WebSocket source behavior.
type WSConfig struct {
	// ReconnectDelay is initial delay before reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay is maximum delay between reconnect attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// Buffer is the tick channel capacity; sends block when full.
	Buffer int
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		Buffer:            10000,
	}
}

// wsTick is the wire format of one tick message.
type wsTick struct {
	Symbol      string  `json:"symbol"`
	TimestampNs int64   `json:"ts_ns"`
	Price       float64 `json:"price"`
	Size        float64 `json:"size"`
}

// WSSource streams ticks from a WebSocket feed using gorilla/websocket.
// Dropped connections are re-dialed with exponential backoff; malformed
// messages are logged and skipped. Sends block when the buffer is full
// so no tick is ever dropped.
type WSSource struct {
	endpoint string
	config   WSConfig
	log      zerolog.Logger

	conn   *websocket.Conn
	connMu sync.Mutex
	closed atomic.Bool

	ch   chan domain.Tick
	done chan struct{}
	wg   sync.WaitGroup

	errMu sync.Mutex
	err   error
}

// NewWSSource creates a WebSocket tick source and connects to the
// endpoint.
func NewWSSource(ctx context.Context, endpoint string, config *WSConfig, log zerolog.Logger) (*WSSource, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = DefaultWSConfig().Buffer
	}

	s := &WSSource{
		endpoint: endpoint,
		config:   cfg,
		log:      log.With().Str("endpoint", endpoint).Logger(),
		ch:       make(chan domain.Tick, cfg.Buffer),
		done:     make(chan struct{}),
	}

	if err := s.connect(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

var _ TickSource = (*WSSource)(nil)

// connect establishes the WebSocket connection.
func (s *WSSource) connect(ctx context.Context) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}

	s.conn = conn
	return nil
}

// Subscribe starts the reader and ping goroutines and returns the tick
// channel. The channel closes when the source is closed or the stream
// context ends.
func (s *WSSource) Subscribe(ctx context.Context) (<-chan domain.Tick, error) {
	if s.closed.Load() {
		return nil, fmt.Errorf("source closed")
	}

	s.wg.Add(2)
	go s.readLoop(ctx)
	go s.pingLoop()

	return s.ch, nil
}

// Err returns the error that terminated the stream, or nil.
func (s *WSSource) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Close shuts the source down and closes the tick channel.
func (s *WSSource) Close() error {
	if s.closed.Swap(true) {
		return nil // Already closed
	}

	close(s.done)

	s.connMu.Lock()
	if s.conn != nil {
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		s.conn.Close()
	}
	s.connMu.Unlock()

	s.wg.Wait()
	close(s.ch)
	return nil
}

// readLoop reads messages, parses ticks, and re-dials on connection
// errors with exponential backoff.
func (s *WSSource) readLoop(ctx context.Context) {
	defer s.wg.Done()

	reconnectDelay := s.config.ReconnectDelay

	for !s.closed.Load() {
		select {
		case <-ctx.Done():
			s.setErr(ctx.Err())
			return
		case <-s.done:
			return
		default:
		}

		s.connMu.Lock()
		conn := s.conn
		s.connMu.Unlock()

		if conn == nil {
			if err := s.connect(ctx); err != nil {
				s.log.Warn().Err(err).Dur("backoff", reconnectDelay).Msg("reconnect failed")
				select {
				case <-s.done:
					return
				case <-ctx.Done():
					s.setErr(ctx.Err())
					return
				case <-time.After(reconnectDelay):
				}
				reconnectDelay *= 2
				if reconnectDelay > s.config.MaxReconnectDelay {
					reconnectDelay = s.config.MaxReconnectDelay
				}
			}
			continue
		}

		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		_, message, err := conn.ReadMessage()
		if err != nil {
			if s.closed.Load() {
				return
			}
			s.log.Warn().Err(err).Msg("read failed, reconnecting")
			s.connMu.Lock()
			s.conn.Close()
			s.conn = nil
			s.connMu.Unlock()
			continue
		}

		// Reset delay on successful read
		reconnectDelay = s.config.ReconnectDelay

		var wt wsTick
		if err := json.Unmarshal(message, &wt); err != nil || wt.Symbol == "" {
			s.log.Warn().Str("message", string(message)).Msg("skipping malformed tick")
			continue
		}

		tick := domain.Tick{
			Symbol:      wt.Symbol,
			TimestampNs: wt.TimestampNs,
			Price:       wt.Price,
			Size:        wt.Size,
		}

		// Block until we can send - never drop ticks
		select {
		case s.ch <- tick:
		case <-s.done:
			return
		case <-ctx.Done():
			s.setErr(ctx.Err())
			return
		}
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (s *WSSource) pingLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.connMu.Lock()
			if s.conn != nil {
				s.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
				if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					// Connection might be dead, reader will handle reconnect
				}
			}
			s.connMu.Unlock()
		}
	}
}

func (s *WSSource) setErr(err error) {
	s.errMu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.errMu.Unlock()
}
