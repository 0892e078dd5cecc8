package chathub

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"camerashop/backend/internal/config"
	"camerashop/backend/internal/logging"
	"camerashop/backend/internal/metrics"
	"camerashop/backend/internal/models"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

var (
	ErrUnknownDestination = errors.New("unknown destination")
	ErrNoRoomKey          = errors.New("typing event has no session id and sender is not authenticated")
)

// ChatService stores inbound chat messages.
type ChatService interface {
	SaveMessage(ctx context.Context, dto models.ChatMessageDTO, userID *uint) (*models.ChatMessage, *models.ChatRoom, error)
}

// PresenceTracker is told about authenticated sessions opening and closing.
type PresenceTracker interface {
	OnConnect(ctx context.Context, userID *uint, connID string)
	OnDisconnect(ctx context.Context, userID *uint, connID string)
}

// ClientOptions tunes every WebSocket session.
type ClientOptions struct {
	SendQueue int
	SendRate  float64
	SendBurst int
}

type presenceEvent struct {
	userID  *uint
	connID  string
	connect bool
}

// ManagerService is the hub: it tracks open STOMP sessions, routes SEND
// frames to the chat core and publishes the results.
type ManagerService struct {
	Clients map[string]Client

	RegisterCh   chan Client
	UnregisterCh chan Client

	Chat     ChatService
	Broker   *Broker
	Presence PresenceTracker
	Auth     *Authenticator
	Options  ClientOptions

	presenceCh chan presenceEvent
	done       chan struct{}
	stopOnce   sync.Once
}

func NewManagerService(chat ChatService, broker *Broker, presence PresenceTracker, auth *Authenticator, opts ClientOptions) *ManagerService {
	if opts.SendQueue <= 0 {
		opts.SendQueue = 256
	}
	return &ManagerService{
		Clients:      make(map[string]Client),
		RegisterCh:   make(chan Client),
		UnregisterCh: make(chan Client),
		Chat:         chat,
		Broker:       broker,
		Presence:     presence,
		Auth:         auth,
		Options:      opts,
		presenceCh:   make(chan presenceEvent, 256),
		done:         make(chan struct{}),
	}
}

func (m *ManagerService) String() string { return "chat-hub" }

// Serve runs the hub loop until ctx is cancelled, then closes every
// session and marks their users offline.
func (m *ManagerService) Serve(ctx context.Context) error {
	presenceDone := make(chan struct{})
	go func() {
		defer close(presenceDone)
		m.presenceLoop(ctx)
	}()

	for {
		select {
		case client := <-m.RegisterCh:
			m.Clients[client.ID()] = client
			metrics.StompSessions.Inc()
			m.queuePresence(ctx, presenceEvent{userID: client.Attributes().UserID(), connID: client.ID(), connect: true})
			logging.Debug().Str("session", client.ID()).Int("clients", len(m.Clients)).Msg("stomp session registered")

		case client := <-m.UnregisterCh:
			if _, ok := m.Clients[client.ID()]; !ok {
				client.Close()
				continue
			}
			m.remove(client)
			m.queuePresence(ctx, presenceEvent{userID: client.Attributes().UserID(), connID: client.ID()})
			logging.Debug().Str("session", client.ID()).Int("clients", len(m.Clients)).Msg("stomp session unregistered")

		case <-ctx.Done():
			m.stopOnce.Do(func() { close(m.done) })
			<-presenceDone
			m.shutdown()
			return ctx.Err()
		}
	}
}

func (m *ManagerService) remove(client Client) {
	delete(m.Clients, client.ID())
	metrics.StompSessions.Dec()
	m.Broker.UnsubscribeAll(client)
	client.Close()
}

// shutdown closes the remaining sessions. Presence writes get a short
// deadline of their own since the serving context is already done.
func (m *ManagerService) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, client := range m.Clients {
		m.remove(client)
		if m.Presence != nil {
			m.Presence.OnDisconnect(ctx, client.Attributes().UserID(), client.ID())
		}
	}
	logging.Info().Msg("chat hub stopped")
}

func (m *ManagerService) queuePresence(ctx context.Context, ev presenceEvent) {
	if m.Presence == nil || ev.userID == nil {
		return
	}
	select {
	case m.presenceCh <- ev:
	case <-ctx.Done():
	}
}

// presenceLoop applies presence events in arrival order, off the hub loop.
func (m *ManagerService) presenceLoop(ctx context.Context) {
	for {
		select {
		case ev := <-m.presenceCh:
			if ev.connect {
				m.Presence.OnConnect(ctx, ev.userID, ev.connID)
			} else {
				m.Presence.OnDisconnect(ctx, ev.userID, ev.connID)
			}
		case <-ctx.Done():
			// Apply what is already queued so disconnects are not lost.
			drain := context.Background()
			for {
				select {
				case ev := <-m.presenceCh:
					if ev.connect {
						m.Presence.OnConnect(drain, ev.userID, ev.connID)
					} else {
						m.Presence.OnDisconnect(drain, ev.userID, ev.connID)
					}
				default:
					return
				}
			}
		}
	}
}

// Register hands a connected client to the hub. It gives up once the hub
// has stopped.
func (m *ManagerService) Register(c Client) bool {
	select {
	case m.RegisterCh <- c:
		return true
	case <-m.done:
		return false
	}
}

func (m *ManagerService) Unregister(c Client) {
	select {
	case m.UnregisterCh <- c:
	case <-m.done:
	}
}

// HandleSend routes a SEND frame by destination.
func (m *ManagerService) HandleSend(ctx context.Context, c Client, f *frame.Frame) error {
	destination := f.Header.Get(hdrDestination)
	switch destination {
	case config.AppChatSend:
		var dto models.ChatMessageDTO
		if err := json.Unmarshal(f.Body, &dto); err != nil {
			return fmt.Errorf("decode chat message: %w", err)
		}
		msg, room, err := m.Chat.SaveMessage(ctx, dto, c.Attributes().UserID())
		if err != nil {
			return err
		}
		if _, err := m.Broker.PublishMessage(models.NewChatMessageEvent(msg, room.TopicKey())); err != nil {
			return err
		}
		return nil

	case config.AppChatTyping:
		var dto models.TypingEventDTO
		if err := json.Unmarshal(f.Body, &dto); err != nil {
			return fmt.Errorf("decode typing event: %w", err)
		}
		key := dto.SessionID
		if key == "" {
			userID := c.Attributes().UserID()
			if userID == nil {
				return ErrNoRoomKey
			}
			key = config.UserRoomKey(*userID)
		}
		_, err := m.Broker.PublishTyping(models.TypingEvent{SessionKey: key, Sender: dto.Sender, Typing: dto.Typing})
		return err
	}
	return fmt.Errorf("%w: %q", ErrUnknownDestination, destination)
}

// ServeWS authenticates the handshake, upgrades the connection and starts
// a STOMP session on it. The handshake never fails for lack of a token.
func (m *ManagerService) ServeWS(w http.ResponseWriter, r *http.Request, upgrader *websocket.Upgrader) error {
	attrs := m.Auth.Handshake(r)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("upgrade: %w", err)
	}
	NewWebSocketClient(conn, m, attrs).Run()
	return nil
}
