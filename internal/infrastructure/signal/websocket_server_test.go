package signal

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pairlink/internal/core/broker"
	"pairlink/internal/core/domain"
	"pairlink/internal/core/services"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, services.AuthService) {
	t.Helper()

	auth := services.NewAuthService("test-secret", time.Hour)
	ws := NewWebSocketServer(auth, []string{"*"}, nil)
	b := broker.New(ws, nil, nil)
	ws.SetBroker(b)

	srv := httptest.NewServer(http.HandlerFunc(ws.HandleWebSocket))
	t.Cleanup(srv.Close)
	return srv, auth
}

func dial(t *testing.T, srv *httptest.Server, auth services.AuthService, userID string) *websocket.Conn {
	t.Helper()

	token, err := auth.GenerateToken(domain.UserID(userID), userID)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) domain.Event {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event domain.Event
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func TestHandshakeRequiresValidToken(t *testing.T) {
	srv, _ := newTestServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(url+"?token=garbage", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestConnectEmitsConnectedEvent(t *testing.T) {
	srv, auth := newTestServer(t)

	conn := dial(t, srv, auth, "user-a")

	event := readEvent(t, conn)
	assert.Equal(t, domain.EventConnected, event.Type)
	assert.NotEmpty(t, event.ConnectionID)
	assert.Equal(t, domain.UserID("user-a"), event.UserID)
}

func TestTwoClientsGetPaired(t *testing.T) {
	srv, auth := newTestServer(t)

	connA := dial(t, srv, auth, "user-a")
	welcomeA := readEvent(t, connA)
	require.Equal(t, domain.EventConnected, welcomeA.Type)

	connB := dial(t, srv, auth, "user-b")
	welcomeB := readEvent(t, connB)
	require.Equal(t, domain.EventConnected, welcomeB.Type)

	pairedA := readEvent(t, connA)
	pairedB := readEvent(t, connB)

	require.Equal(t, domain.EventPaired, pairedA.Type)
	require.Equal(t, domain.EventPaired, pairedB.Type)
	assert.Equal(t, welcomeB.ConnectionID, pairedA.PartnerID)
	assert.Equal(t, welcomeA.ConnectionID, pairedB.PartnerID)
	assert.Equal(t, domain.UserID("user-b"), pairedA.PartnerUserID)
	assert.Equal(t, domain.UserID("user-a"), pairedB.PartnerUserID)
}

func TestOfferRelayedToPartner(t *testing.T) {
	srv, auth := newTestServer(t)

	connA := dial(t, srv, auth, "user-a")
	welcomeA := readEvent(t, connA)

	connB := dial(t, srv, auth, "user-b")
	readEvent(t, connB) // connected

	pairedA := readEvent(t, connA)
	readEvent(t, connB) // paired

	sdp := json.RawMessage(`{"sdp":"v=0 fake offer","type":"offer"}`)
	require.NoError(t, connA.WriteJSON(SignalMessage{
		Type:    "offer",
		Target:  pairedA.PartnerID,
		Payload: sdp,
	}))

	relayed := readEvent(t, connB)
	assert.Equal(t, domain.EventOffer, relayed.Type)
	assert.Equal(t, welcomeA.ConnectionID, relayed.From)
	assert.JSONEq(t, string(sdp), string(relayed.Payload))
}

func TestDisconnectNotifiesPartner(t *testing.T) {
	srv, auth := newTestServer(t)

	connA := dial(t, srv, auth, "user-a")
	readEvent(t, connA) // connected

	connB := dial(t, srv, auth, "user-b")
	readEvent(t, connB) // connected
	readEvent(t, connA) // paired
	readEvent(t, connB) // paired

	require.NoError(t, connA.Close())

	event := readEvent(t, connB)
	assert.Equal(t, domain.EventPartnerDisconnected, event.Type)
}

func TestDirectCallBetweenClients(t *testing.T) {
	srv, auth := newTestServer(t)

	connA := dial(t, srv, auth, "user-a")
	readEvent(t, connA) // connected

	connB := dial(t, srv, auth, "user-b")
	readEvent(t, connB) // connected
	readEvent(t, connA) // paired with b
	readEvent(t, connB) // paired with a

	connC := dial(t, srv, auth, "user-c")
	readEvent(t, connC) // connected

	require.NoError(t, connC.WriteJSON(SignalMessage{
		Type:         "direct-call",
		TargetUserID: "user-b",
	}))

	// user-b is paired with user-a, so the invite fails busy.
	event := readEvent(t, connC)
	require.Equal(t, domain.EventCallFailed, event.Type)
	assert.Equal(t, domain.FailReasonBusy, event.Reason)

	require.NoError(t, connC.WriteJSON(SignalMessage{
		Type:         "direct-call",
		TargetUserID: "user-nobody",
	}))
	event = readEvent(t, connC)
	require.Equal(t, domain.EventCallFailed, event.Type)
	assert.Equal(t, domain.FailReasonOffline, event.Reason)
}

func TestUnknownMessageTypeReturnsError(t *testing.T) {
	srv, auth := newTestServer(t)

	conn := dial(t, srv, auth, "user-a")
	readEvent(t, conn) // connected

	require.NoError(t, conn.WriteJSON(SignalMessage{Type: "bogus"}))

	event := readEvent(t, conn)
	assert.Equal(t, domain.EventError, event.Type)
	assert.Contains(t, event.Error, "unknown message type")
}
