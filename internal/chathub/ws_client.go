package chathub

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"camerashop/backend/internal/config"
	"camerashop/backend/internal/logging"
	"camerashop/backend/internal/metrics"
	"camerashop/backend/internal/validation"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	writeWait      = config.WriteWait
	pongWait       = config.PongWait
	pingPeriod     = config.PingPeriod
	maxMessageSize = config.MaxMessageSize
)

// WebSocketClient is a STOMP session carried over one WebSocket, one frame
// per WebSocket message.
type WebSocketClient struct {
	id    string
	attrs Attributes
	Conn  *websocket.Conn
	Hub   *ManagerService

	send    chan []byte
	final   chan []byte
	limiter *rate.Limiter

	ctx    context.Context
	cancel context.CancelFunc
	log    zerolog.Logger

	connected  bool
	registered bool

	closeOnce sync.Once
	closed    chan struct{}
}

func NewWebSocketClient(conn *websocket.Conn, hub *ManagerService, attrs Attributes) *WebSocketClient {
	id := uuid.NewString()
	l := logging.With().Str("session", id).Logger()
	ctx, cancel := context.WithCancel(logging.ContextWithLogger(context.Background(), l))

	limit := rate.Inf
	if hub.Options.SendRate > 0 {
		limit = rate.Limit(hub.Options.SendRate)
	}
	burst := hub.Options.SendBurst
	if burst < 1 {
		burst = 1
	}

	return &WebSocketClient{
		id:      id,
		attrs:   attrs,
		Conn:    conn,
		Hub:     hub,
		send:    make(chan []byte, hub.Options.SendQueue),
		final:   make(chan []byte, 1),
		limiter: rate.NewLimiter(limit, burst),
		ctx:     ctx,
		cancel:  cancel,
		log:     l,
		closed:  make(chan struct{}),
	}
}

func (c *WebSocketClient) ID() string             { return c.id }
func (c *WebSocketClient) Attributes() Attributes { return c.attrs }

// Run starts the pumps.
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close stops the write pump, which then closes the socket.
func (c *WebSocketClient) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.closed)
	})
}

// Deliver queues a MESSAGE frame without blocking.
func (c *WebSocketClient) Deliver(subscriptionID, destination string, body []byte) bool {
	data, err := encodeFrame(messageFrame(destination, subscriptionID, uuid.NewString(), body))
	if err != nil {
		c.log.Error().Err(err).Msg("encode message frame")
		return false
	}
	return c.enqueue(data)
}

func (c *WebSocketClient) enqueue(data []byte) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *WebSocketClient) reply(f *frame.Frame) {
	data, err := encodeFrame(f)
	if err != nil {
		c.log.Error().Err(err).Str("command", f.Command).Msg("encode frame")
		return
	}
	if !c.enqueue(data) {
		c.log.Warn().Str("command", f.Command).Msg("send queue full, frame dropped")
	}
}

// finish writes f as the last frame and closes the session.
func (c *WebSocketClient) finish(f *frame.Frame) {
	if data, err := encodeFrame(f); err == nil {
		select {
		case c.final <- data:
		default:
		}
	}
	c.Close()
}

// reject ends the session with an ERROR frame.
func (c *WebSocketClient) reject(reason, message, detail string) {
	metrics.RecordFrameRejected(reason)
	c.log.Warn().Str("reason", reason).Str("detail", detail).Msg("stomp session rejected")
	c.finish(errorFrame(message, detail))
}

func (c *WebSocketClient) readPump() {
	defer func() {
		if c.registered {
			c.Hub.Unregister(c)
		}
		c.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.Debug().Err(err).Msg("websocket read failed")
			}
			return
		}
		_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))

		f, err := decodeFrame(data)
		if err != nil {
			c.reject("malformed", "Malformed frame", err.Error())
			return
		}
		if f == nil {
			continue // heart-beat
		}
		if !c.handleFrame(f) {
			return
		}
	}
}

// handleFrame processes one frame and reports whether the session goes on.
func (c *WebSocketClient) handleFrame(f *frame.Frame) bool {
	if f.Command == cmdConnect || f.Command == cmdStomp {
		return c.handleConnect(f)
	}
	if !c.connected {
		c.reject("not_connected", "Not connected", "expected CONNECT, got "+f.Command)
		return false
	}

	switch f.Command {
	case cmdSubscribe:
		destination, id := f.Header.Get(hdrDestination), f.Header.Get(hdrID)
		if destination == "" || id == "" {
			c.reject("bad_subscribe", "Invalid SUBSCRIBE", "destination and id are required")
			return false
		}
		if !strings.HasPrefix(destination, "/topic/") {
			c.reject("bad_subscribe", "Invalid SUBSCRIBE", "unknown destination "+destination)
			return false
		}
		c.Hub.Broker.Subscribe(c, id, destination)

	case cmdUnsubscribe:
		c.Hub.Broker.Unsubscribe(c, f.Header.Get(hdrID))

	case cmdSend:
		if !c.limiter.Allow() {
			metrics.RecordFrameRejected("rate_limited")
			c.log.Warn().Str("destination", f.Header.Get(hdrDestination)).Msg("send rate exceeded, frame dropped")
			return true
		}
		if err := c.Hub.HandleSend(c.ctx, c, f); err != nil {
			c.logSendError(f, err)
		}

	case cmdDisconnect:
		if id := f.Header.Get(hdrReceipt); id != "" {
			c.finish(receiptFrame(id))
		}
		return false

	case cmdAck, cmdNack, cmdBegin, cmdCommit, cmdAbort:
		// Subscriptions are auto-ack and transactions are not supported.

	default:
		c.reject("unknown_command", "Unknown command", f.Command)
		return false
	}

	c.receipt(f)
	return true
}

func (c *WebSocketClient) handleConnect(f *frame.Frame) bool {
	if c.connected {
		c.reject("duplicate_connect", "Already connected", "")
		return false
	}
	if v := f.Header.Get(hdrAcceptVersion); v != "" && !acceptsVersion(v, stompVersion) {
		c.reject("bad_version", "Supported protocol version is "+stompVersion, "")
		return false
	}
	if err := c.Hub.Auth.Connect(c.ctx, c.attrs, f); err != nil {
		c.reject("access_denied", "Access denied", err.Error())
		return false
	}

	c.connected = true
	c.reply(connectedFrame(c.id))
	if !c.Hub.Register(c) {
		c.Close()
		return false
	}
	c.registered = true

	if userID := c.attrs.UserID(); userID != nil {
		c.log.Info().Uint("user_id", *userID).Msg("stomp session connected")
	} else {
		c.log.Info().Msg("stomp session connected as guest")
	}
	return true
}

func (c *WebSocketClient) receipt(f *frame.Frame) {
	if id := f.Header.Get(hdrReceipt); id != "" {
		c.reply(receiptFrame(id))
	}
}

func (c *WebSocketClient) logSendError(f *frame.Frame, err error) {
	ev := c.log.Warn()
	var verr *validation.Error
	if errors.As(err, &verr) {
		ev = c.log.Info()
	}
	ev.Err(err).Str("destination", f.Header.Get(hdrDestination)).Msg("send frame not processed")
}

func acceptsVersion(header, version string) bool {
	for _, v := range strings.Split(header, ",") {
		if strings.TrimSpace(v) == version {
			return true
		}
	}
	return false
}

func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case data := <-c.send:
			if err := c.write(websocket.TextMessage, data); err != nil {
				c.Close()
				return
			}

		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}

		case <-c.closed:
			c.flush()
			_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// flush writes whatever was queued before Close, then the final frame.
func (c *WebSocketClient) flush() {
	for {
		select {
		case data := <-c.send:
			if err := c.write(websocket.TextMessage, data); err != nil {
				return
			}
		default:
			select {
			case data := <-c.final:
				_ = c.write(websocket.TextMessage, data)
			default:
			}
			return
		}
	}
}

func (c *WebSocketClient) write(messageType int, data []byte) error {
	_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Conn.WriteMessage(messageType, data)
}
