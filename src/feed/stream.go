package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	logger "github.com/sirupsen/logrus"

	"signalconsumer/src/model"
)

// Stream consumes parsed trading signals from an upstream websocket feed
// and delivers them on a channel. It reconnects with capped exponential
// backoff and drops messages that do not decode as signals.
type Stream struct {
	cfg Config
	log *logger.Entry
}

func NewStream(cfg Config) *Stream {
	return &Stream{
		cfg: cfg,
		log: logger.WithField("component", "feed.Stream"),
	}
}

// Run reads signals into out until ctx is cancelled. The channel is closed
// on return.
func (s *Stream) Run(ctx context.Context, out chan<- *model.TradingSignal) {
	defer close(out)

	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, err := s.dial(ctx)
		if err != nil {
			s.log.WithError(err).Warn("feed dial failed, backing off")
			if !sleepCtx(ctx, backoff) {
				return
			}
			backoff *= 2
			if backoff > s.cfg.MaxBackoff {
				backoff = s.cfg.MaxBackoff
			}
			continue
		}

		backoff = time.Second
		s.log.WithField("url", s.cfg.URL).Info("signal feed connected")

		s.consume(ctx, conn, out)
		_ = conn.Close()

		select {
		case <-ctx.Done():
			return
		default:
			s.log.Warn("signal feed disconnected, reconnecting")
		}
	}
}

func (s *Stream) dial(ctx context.Context) (*websocket.Conn, error) {
	headers := http.Header{}
	if s.cfg.AuthToken != "" {
		headers.Set("Authorization", "Bearer "+s.cfg.AuthToken)
	}

	dialer := websocket.Dialer{HandshakeTimeout: s.cfg.HandshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, s.cfg.URL, headers)
	if err != nil {
		if resp != nil {
			s.log.WithField("status", resp.StatusCode).Debug("feed handshake rejected")
		}
		return nil, err
	}

	conn.SetPongHandler(func(string) error { return nil })
	return conn, nil
}

// consume reads messages until the connection breaks or ctx is cancelled.
func (s *Stream) consume(ctx context.Context, conn *websocket.Conn, out chan<- *model.TradingSignal) {
	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.pingLoop(readCtx, conn)
	go func() {
		// Unblocks ReadMessage when the surrounding process shuts down.
		<-readCtx.Done()
		_ = conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				s.log.WithError(err).Warn("feed read error")
			}
			return
		}

		var signal model.TradingSignal
		if err := json.Unmarshal(raw, &signal); err != nil {
			s.log.WithError(err).Warn("dropping undecodable feed message")
			continue
		}
		if signal.Timestamp.IsZero() {
			signal.Timestamp = time.Now().UTC()
		}

		select {
		case out <- &signal:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Stream) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.log.WithError(err).Debug("feed ping failed")
				return
			}
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
