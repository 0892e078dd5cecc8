package chathub

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"camerashop/backend/internal/chat"
	"camerashop/backend/internal/models"
	"camerashop/backend/internal/notify"
	"camerashop/backend/internal/storage/storagetest"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type discardNotifier struct{}

func (discardNotifier) Enqueue(notify.Notification) bool { return true }

type wsFixture struct {
	store *storagetest.Memory
	hub   *ManagerService
	url   string
}

func newWSFixture(t *testing.T) (*wsFixture, func(userID uint) string) {
	t.Helper()
	store := storagetest.NewMemory()
	guard := newGuard()
	hub := NewManagerService(
		chat.NewService(store, discardNotifier{}),
		NewBroker(),
		chat.NewPresenceStore(store, time.Now),
		NewAuthenticator(guard),
		ClientOptions{SendQueue: 16},
	)
	startHub(t, hub)

	upgrader := &websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.ServeWS(w, r, upgrader)
	}))
	t.Cleanup(srv.Close)

	fx := &wsFixture{store: store, hub: hub, url: "ws" + strings.TrimPrefix(srv.URL, "http")}
	return fx, func(userID uint) string { return issue(t, guard, userID) }
}

func (fx *wsFixture) dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(fx.url+query, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func writeFrame(t *testing.T, conn *websocket.Conn, f *frame.Frame) {
	t.Helper()
	data, err := encodeFrame(f)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func readFrame(t *testing.T, conn *websocket.Conn) *frame.Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	f, err := decodeFrame(data)
	require.NoError(t, err)
	require.NotNil(t, f)
	return f
}

func connect(t *testing.T, conn *websocket.Conn, headers ...string) {
	t.Helper()
	writeFrame(t, conn, frame.New(cmdConnect, append([]string{hdrAcceptVersion, "1.1,1.2"}, headers...)...))
	f := readFrame(t, conn)
	require.Equal(t, cmdConnected, f.Command, string(f.Body))
}

func subscribe(t *testing.T, conn *websocket.Conn, id, destination string) {
	t.Helper()
	writeFrame(t, conn, frame.New(cmdSubscribe, hdrID, id, hdrDestination, destination, hdrReceipt, "sub-"+id))
	f := readFrame(t, conn)
	require.Equal(t, cmdReceipt, f.Command)
	require.Equal(t, "sub-"+id, f.Header.Get(hdrReceiptID))
}

func send(t *testing.T, conn *websocket.Conn, destination, body string) {
	t.Helper()
	f := frame.New(cmdSend, hdrDestination, destination, hdrContentType, jsonContent)
	f.Body = []byte(body)
	writeFrame(t, conn, f)
}

func TestWebSocket_GuestRoundTrip(t *testing.T) {
	fx, _ := newWSFixture(t)
	conn := fx.dial(t, "")

	connect(t, conn)
	subscribe(t, conn, "0", "/topic/chat/abc")
	send(t, conn, "/app/chat.send", `{"sessionId":"abc","sender":"USER","message":"Hello"}`)

	f := readFrame(t, conn)
	require.Equal(t, cmdMessage, f.Command)
	assert.Equal(t, "/topic/chat/abc", f.Header.Get(hdrDestination))
	assert.Equal(t, "0", f.Header.Get(hdrSubscription))

	var ev models.ChatMessageEvent
	require.NoError(t, json.Unmarshal(f.Body, &ev))
	assert.Equal(t, "abc", ev.SessionKey)
	assert.Equal(t, "Hello", ev.Text)
	assert.Equal(t, models.StatusSent, ev.Status)
	assert.Equal(t, 1, fx.store.RoomCount())
}

func TestWebSocket_AuthenticatedUserRoomAndPresence(t *testing.T) {
	fx, token := newWSFixture(t)
	userID := fx.store.AddUser(models.User{FullName: "alice", Email: "alice@example.com"})
	conn := fx.dial(t, "?token="+token(userID))

	connect(t, conn)
	assert.Eventually(t, func() bool {
		u, _ := fx.store.User(userID)
		return u.Online
	}, 2*time.Second, 10*time.Millisecond)

	topic := "/topic/chat/user-" + strconv.FormatUint(uint64(userID), 10)
	subscribe(t, conn, "0", topic)
	send(t, conn, "/app/chat.send", `{"sender":"USER","message":"Is the X100 in stock?"}`)

	f := readFrame(t, conn)
	require.Equal(t, cmdMessage, f.Command)
	assert.Equal(t, topic, f.Header.Get(hdrDestination))

	writeFrame(t, conn, frame.New(cmdDisconnect, hdrReceipt, "bye"))
	f = readFrame(t, conn)
	assert.Equal(t, cmdReceipt, f.Command)
	assert.Equal(t, "bye", f.Header.Get(hdrReceiptID))

	assert.Eventually(t, func() bool {
		u, _ := fx.store.User(userID)
		return !u.Online && u.LastSeen != nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocket_InvalidTokenRejectedOnConnect(t *testing.T) {
	fx, _ := newWSFixture(t)
	conn := fx.dial(t, "?token=not-a-jwt")

	writeFrame(t, conn, frame.New(cmdConnect, hdrAcceptVersion, "1.2"))
	f := readFrame(t, conn)
	assert.Equal(t, cmdError, f.Command)
	assert.Equal(t, "Access denied", f.Header.Get(hdrMessage))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "session is closed after ERROR")
}

func TestWebSocket_FrameBeforeConnectRejected(t *testing.T) {
	fx, _ := newWSFixture(t)
	conn := fx.dial(t, "")

	writeFrame(t, conn, frame.New(cmdSubscribe, hdrID, "0", hdrDestination, "/topic/chat/abc"))
	f := readFrame(t, conn)
	assert.Equal(t, cmdError, f.Command)
	assert.Equal(t, "Not connected", f.Header.Get(hdrMessage))
}

func TestWebSocket_InvalidMessageKeepsSession(t *testing.T) {
	fx, _ := newWSFixture(t)
	conn := fx.dial(t, "")

	connect(t, conn)
	subscribe(t, conn, "0", "/topic/chat/abc")
	send(t, conn, "/app/chat.send", `{"sessionId":"abc","sender":"USER","message":""}`)
	send(t, conn, "/app/chat.send", `{"sessionId":"abc","sender":"USER","message":"second try"}`)

	f := readFrame(t, conn)
	require.Equal(t, cmdMessage, f.Command)
	assert.Contains(t, string(f.Body), "second try")
	assert.Equal(t, 1, fx.store.MessageCount())
}

func TestWebSocket_SubscribeOutsideTopicsRejected(t *testing.T) {
	fx, _ := newWSFixture(t)
	conn := fx.dial(t, "")

	connect(t, conn)
	writeFrame(t, conn, frame.New(cmdSubscribe, hdrID, "0", hdrDestination, "/app/chat.send"))
	f := readFrame(t, conn)
	assert.Equal(t, cmdError, f.Command)
}
