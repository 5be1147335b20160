package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"econdash/internal/infrastructure"
)

const (
	// Time allowed to write a message to the peer
	defaultWriteWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512
)

// Client command types
const (
	CommandRefresh   = "refresh"
	CommandHeartbeat = "heartbeat"
)

// Command is a message sent by a stream client. A refresh may override
// the query the stream was opened with.
type Command struct {
	Type     string `json:"type"`
	Range    string `json:"range,omitempty"`
	Combined *bool  `json:"combined,omitempty"`
	Year     string `json:"year,omitempty"`
}

// ErrorMessage is sent when a cycle cannot run.
type ErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// RunFunc runs one stream cycle for cmd, writing messages through send.
type RunFunc func(ctx context.Context, cmd Command, send func(v any) error) error

// Session streams JSON messages over one connection
type Session struct {
	conn       Connection
	id         string
	writeWait  time.Duration
	pingPeriod time.Duration
	logger     *slog.Logger
	metrics    *infrastructure.BusinessMetrics

	writeMu sync.Mutex
}

// Option configures a Session
type Option func(*Session)

// WithMetrics records the session in the stream gauge
func WithMetrics(m *infrastructure.BusinessMetrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithWriteWait bounds each write
func WithWriteWait(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.writeWait = d
		}
	}
}

// NewSession wraps conn
func NewSession(conn Connection, logger *slog.Logger, opts ...Option) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.New().String()
	s := &Session{
		conn:       conn,
		id:         id,
		writeWait:  defaultWriteWait,
		pingPeriod: pingPeriod,
		logger: logger.With(
			slog.String("component", "websocket.session"),
			slog.String("session_id", id),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session identifier
func (s *Session) ID() string { return s.id }

// Send writes v as one JSON text frame. Safe for concurrent use.
func (s *Session) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.write(websocket.TextMessage, data)
}

func (s *Session) write(messageType int, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeWait))
	return s.conn.WriteMessage(messageType, data)
}

// Serve runs one refresh cycle immediately and another for each refresh
// command, until the client goes away, ctx ends or a cycle fails. The
// connection is closed before Serve returns.
func (s *Session) Serve(ctx context.Context, run RunFunc) error {
	ctx, cancel := context.WithCancel(ctx)
	start := time.Now()

	if s.metrics != nil {
		s.metrics.StreamActiveClients.Add(ctx, 1)
	}
	s.logger.InfoContext(ctx, "stream client connected", slog.String("remote_addr", s.conn.RemoteAddr()))

	commands := make(chan Command, 8)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		defer cancel()
		s.readLoop(ctx, commands)
	}()
	go func() {
		defer wg.Done()
		s.pingLoop(ctx)
	}()

	cycles := 0
	err := s.cycle(ctx, run, Command{Type: CommandRefresh}, &cycles)
loop:
	for err == nil {
		select {
		case <-ctx.Done():
			break loop
		case cmd := <-commands:
			switch cmd.Type {
			case CommandRefresh:
				err = s.cycle(ctx, run, cmd, &cycles)
			case CommandHeartbeat:
			default:
				err = s.Send(ErrorMessage{Type: "error", Error: "unknown command " + cmd.Type})
			}
		}
	}

	// a cancelled ctx means the client left or the server is stopping
	if ctx.Err() != nil {
		err = nil
	}
	if err != nil {
		_ = s.Send(ErrorMessage{Type: "error", Error: err.Error()})
	}

	cancel()
	_ = s.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = s.conn.Close()
	wg.Wait()

	if s.metrics != nil {
		s.metrics.StreamActiveClients.Add(context.WithoutCancel(ctx), -1)
	}
	s.logger.InfoContext(ctx, "stream client disconnected",
		slog.Duration("connection_duration", time.Since(start)),
		slog.Int("cycles", cycles))
	return err
}

func (s *Session) cycle(ctx context.Context, run RunFunc, cmd Command, cycles *int) error {
	*cycles++
	return run(ctx, cmd, s.Send)
}

func (s *Session) readLoop(ctx context.Context, commands chan<- Command) {
	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.WarnContext(ctx, "unexpected websocket close", slog.String("error", err.Error()))
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(message, &cmd); err != nil {
			s.logger.DebugContext(ctx, "ignoring malformed command", slog.String("error", err.Error()))
			continue
		}
		select {
		case commands <- cmd:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Session) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(s.pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.write(websocket.PingMessage, nil); err != nil {
				s.logger.DebugContext(ctx, "failed to send ping", slog.String("error", err.Error()))
				return
			}
		}
	}
}
