package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tc.com/price-attestor/pkg/logging"
	"tc.com/price-attestor/pkg/metrics"
	"tc.com/price-attestor/pkg/samples"
)

const (
	streamFeedName = "websocket"

	initialReconnectBackoff = 1 * time.Second
	maxReconnectBackoff     = 30 * time.Second
	streamPingInterval      = 30 * time.Second
	streamPongTimeout       = 60 * time.Second
)

// subscribeMessage is sent after connecting to select the symbols streamed.
type subscribeMessage struct {
	Action  string   `json:"action"`
	Symbols []string `json:"symbols,omitempty"`
}

// streamAck is the ingestor's reply to a subscription request.
type streamAck struct {
	Action string `json:"action"`
}

// Stream keeps a WebSocket subscription to the ingestor's sample stream,
// reconnecting with capped exponential backoff and jitter. Incoming samples
// go straight into the store.
type Stream struct {
	url     string
	symbols []string
	store   *samples.Store
	logger  *logging.Logger

	conn    *websocket.Conn
	mu      sync.RWMutex
	backoff time.Duration

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

var _ Feed = (*Stream)(nil)

// NewStream creates the WebSocket sample feed. symbols limits the
// subscription; empty means everything the ingestor serves.
func NewStream(url string, symbols []string, store *samples.Store, logger *logging.Logger) (*Stream, error) {
	if url == "" {
		return nil, ErrMissingURL
	}
	if store == nil {
		return nil, ErrMissingStore
	}
	if logger == nil {
		logger = logging.NewNoopLogger()
	}

	return &Stream{
		url:     url,
		symbols: symbols,
		store:   store,
		logger:  logger,
		backoff: initialReconnectBackoff,
		done:    make(chan struct{}),
	}, nil
}

// Name identifies the feed in logs and metrics.
func (s *Stream) Name() string {
	return streamFeedName
}

// Start begins the connection loop.
func (s *Stream) Start(ctx context.Context) error {
	s.logger.Info("Starting sample stream", "url", s.url, "symbols", len(s.symbols))
	s.wg.Add(1)
	go s.loop(ctx)
	return nil
}

// Stop closes the connection and waits for the loop to exit.
func (s *Stream) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
	s.closeConn()
	s.wg.Wait()
}

// loop maintains the connection, reconnecting after failures.
func (s *Stream) loop(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		default:
			if err := s.connect(ctx); err != nil {
				s.logger.Error("Sample stream connect failed", "url", s.url, "error", err.Error())
				metrics.RecordFeedConnected(streamFeedName, false)

				// Jitter spreads reconnects when several instances
				// lose the same ingestor at once.
				wait := s.backoff + time.Duration(rand.Int63n(int64(s.backoff)/2+1))
				select {
				case <-ctx.Done():
					return
				case <-s.done:
					return
				case <-time.After(wait):
					s.backoff *= 2
					if s.backoff > maxReconnectBackoff {
						s.backoff = maxReconnectBackoff
					}
					continue
				}
			}

			s.backoff = initialReconnectBackoff
			metrics.RecordFeedConnected(streamFeedName, true)

			if err := s.readLoop(ctx); err != nil {
				s.logger.Warn("Sample stream read ended", "error", err.Error())
			}
			metrics.RecordFeedConnected(streamFeedName, false)
		}
	}
}

// connect dials the ingestor and sends the subscription request.
func (s *Stream) connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	sub := subscribeMessage{Action: "subscribe", Symbols: s.symbols}
	if err := conn.WriteJSON(sub); err != nil {
		_ = conn.Close()
		return fmt.Errorf("send subscribe: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	s.logger.Info("Sample stream connected", "url", s.url)
	return nil
}

// readLoop consumes the connection until it fails or the feed stops. The
// connection is torn down on exit so the reader goroutine always unblocks.
func (s *Stream) readLoop(ctx context.Context) error {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()

	if conn == nil {
		return fmt.Errorf("no connection")
	}
	defer s.closeConn()

	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(streamPongTimeout))
		return nil
	})
	_ = conn.SetReadDeadline(time.Now().Add(streamPongTimeout))

	pingTicker := time.NewTicker(streamPingInterval)
	defer pingTicker.Stop()

	messageCh := make(chan []byte, 16)
	errorCh := make(chan error, 1)

	go func() {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				errorCh <- err
				return
			}
			select {
			case messageCh <- msg:
			case <-s.done:
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.done:
			return nil
		case <-pingTicker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return fmt.Errorf("ping failed: %w", err)
			}
		case err := <-errorCh:
			return err
		case msg := <-messageCh:
			s.handleMessage(msg)
		}
	}
}

// handleMessage parses one stream message and stores it. Subscription acks
// and unparseable payloads are skipped.
func (s *Stream) handleMessage(msg []byte) {
	var m sampleMessage
	if err := json.Unmarshal(msg, &m); err != nil {
		s.logger.Warn("Unparseable stream message", "error", err.Error())
		return
	}

	if m.Symbol == "" {
		var ack streamAck
		if err := json.Unmarshal(msg, &ack); err == nil && ack.Action != "" {
			s.logger.Debug("Stream subscription acknowledged", "action", ack.Action)
			return
		}
		s.logger.Warn("Stream message without symbol, skipping")
		return
	}

	sample := m.toSample()
	if err := s.store.Put(sample); err != nil {
		s.logger.Warn("Dropped streamed sample",
			"symbol", sample.Symbol,
			"source", sample.Source,
			"error", err.Error(),
		)
		return
	}
	metrics.RecordSample(sample.Source, sample.Symbol)
}

func (s *Stream) closeConn() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
}
