package broker

import (
	"encoding/json"
	"sync"
	"testing"

	"pairlink/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSender captures every event the broker emits, per connection.
type recordingSender struct {
	mu     sync.Mutex
	events map[domain.ConnectionID][]domain.Event
}

func newRecordingSender() *recordingSender {
	return &recordingSender{events: make(map[domain.ConnectionID][]domain.Event)}
}

func (s *recordingSender) Send(id domain.ConnectionID, event domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[id] = append(s.events[id], event)
}

func (s *recordingSender) eventsFor(id domain.ConnectionID) []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Event(nil), s.events[id]...)
}

func (s *recordingSender) ofType(id domain.ConnectionID, t domain.EventType) []domain.Event {
	var matched []domain.Event
	for _, event := range s.eventsFor(id) {
		if event.Type == t {
			matched = append(matched, event)
		}
	}
	return matched
}

func (s *recordingSender) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[domain.ConnectionID][]domain.Event)
}

func newTestBroker() (*Broker, *recordingSender) {
	sender := newRecordingSender()
	return New(sender, nil, nil), sender
}

// pairedIdle produces two connections that are online but not paired, the
// precondition for direct invite tests.
func pairedIdle(t *testing.T, b *Broker) (*domain.Connection, *domain.Connection) {
	t.Helper()
	a := b.Connect("conn-a", "user-a")
	c := b.Connect("conn-b", "user-b")
	require.Equal(t, domain.StatePaired, a.State)
	b.EndCall(a.ID, a.PartnerID)
	require.Equal(t, domain.StateIdle, a.State)
	require.Equal(t, domain.StateIdle, c.State)
	return a, c
}

func TestConnectAlone(t *testing.T) {
	b, sender := newTestBroker()

	conn := b.Connect("conn-a", "user-a")

	assert.Equal(t, domain.StateWaiting, conn.State)
	assert.True(t, b.pool.contains(conn.ID))

	events := sender.eventsFor(conn.ID)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventConnected, events[0].Type)
	assert.Equal(t, conn.ID, events[0].ConnectionID)
	assert.Equal(t, domain.UserID("user-a"), events[0].UserID)
}

func TestRandomPairing(t *testing.T) {
	b, sender := newTestBroker()

	a := b.Connect("conn-a", "user-a")
	c := b.Connect("conn-b", "user-b")

	// Mutual, symmetric partner references.
	assert.Equal(t, domain.StatePaired, a.State)
	assert.Equal(t, domain.StatePaired, c.State)
	assert.Equal(t, c.ID, a.PartnerID)
	assert.Equal(t, a.ID, c.PartnerID)
	assert.Equal(t, c.UserID, a.PartnerUserID)
	assert.Equal(t, a.UserID, c.PartnerUserID)

	// Neither remains in the waiting pool.
	assert.False(t, b.pool.contains(a.ID))
	assert.False(t, b.pool.contains(c.ID))

	// Both received paired with each other's ids.
	pairedA := sender.ofType(a.ID, domain.EventPaired)
	require.Len(t, pairedA, 1)
	assert.Equal(t, c.ID, pairedA[0].PartnerID)
	assert.Equal(t, c.UserID, pairedA[0].PartnerUserID)

	pairedC := sender.ofType(c.ID, domain.EventPaired)
	require.Len(t, pairedC, 1)
	assert.Equal(t, a.ID, pairedC[0].PartnerID)
	assert.Equal(t, a.UserID, pairedC[0].PartnerUserID)
}

func TestOddWaitingCount(t *testing.T) {
	b, _ := newTestBroker()

	conns := []*domain.Connection{
		b.Connect("conn-a", "user-a"),
		b.Connect("conn-b", "user-b"),
		b.Connect("conn-c", "user-c"),
	}

	var waiting, paired int
	for _, conn := range conns {
		switch conn.State {
		case domain.StateWaiting:
			waiting++
			assert.True(t, b.pool.contains(conn.ID))
		case domain.StatePaired:
			paired++
			// Never paired with itself, always symmetric.
			assert.NotEqual(t, conn.ID, conn.PartnerID)
			partner := b.conns[conn.PartnerID]
			require.NotNil(t, partner)
			assert.Equal(t, conn.ID, partner.PartnerID)
		}
	}
	assert.Equal(t, 1, waiting)
	assert.Equal(t, 2, paired)
}

func TestPairingSymmetryManyConnections(t *testing.T) {
	b, _ := newTestBroker()

	for i := 0; i < 10; i++ {
		suffix := string(rune('a' + i))
		b.Connect(domain.ConnectionID("conn-"+suffix), domain.UserID("user-"+suffix))
	}

	total, waiting, paired := b.Stats()
	assert.Equal(t, 10, total)
	assert.Equal(t, 0, waiting)
	assert.Equal(t, 10, paired)

	for _, conn := range b.conns {
		require.Equal(t, domain.StatePaired, conn.State)
		partner := b.conns[conn.PartnerID]
		require.NotNil(t, partner)
		assert.Equal(t, conn.ID, partner.PartnerID, "partner reference must be mutual")
		assert.False(t, b.pool.contains(conn.ID), "paired connection must not sit in the pool")
	}
}

func TestDirectCallSuccess(t *testing.T) {
	b, sender := newTestBroker()
	a, c := pairedIdle(t, b)
	sender.reset()

	b.DirectCall(a.ID, c.UserID)

	assert.Equal(t, c.ID, a.PartnerID)
	assert.Equal(t, a.ID, c.PartnerID)
	assert.Equal(t, domain.StatePaired, a.State)
	assert.Equal(t, domain.StatePaired, c.State)

	// Both sides get paired; only the caller gets start-direct-call, because
	// the inviter is the one creating the WebRTC offer.
	assert.Len(t, sender.ofType(a.ID, domain.EventPaired), 1)
	assert.Len(t, sender.ofType(c.ID, domain.EventPaired), 1)
	assert.Len(t, sender.ofType(a.ID, domain.EventStartDirectCall), 1)
	assert.Empty(t, sender.ofType(c.ID, domain.EventStartDirectCall))
}

func TestDirectCallBusyTarget(t *testing.T) {
	b, sender := newTestBroker()

	a := b.Connect("conn-a", "user-a")
	c := b.Connect("conn-b", "user-b")
	require.Equal(t, c.ID, a.PartnerID)

	caller := b.Connect("conn-c", "user-c")
	sender.reset()

	b.DirectCall(caller.ID, c.UserID)

	failed := sender.ofType(caller.ID, domain.EventCallFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, domain.FailReasonBusy, failed[0].Reason)

	// The existing pairing is unaffected.
	assert.Equal(t, c.ID, a.PartnerID)
	assert.Equal(t, a.ID, c.PartnerID)
	assert.Equal(t, domain.StateWaiting, caller.State)
}

func TestDirectCallOfflineTarget(t *testing.T) {
	b, sender := newTestBroker()

	caller := b.Connect("conn-a", "user-a")
	sender.reset()

	b.DirectCall(caller.ID, "nobody-home")

	failed := sender.ofType(caller.ID, domain.EventCallFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, domain.FailReasonOffline, failed[0].Reason)
	assert.Equal(t, domain.StateWaiting, caller.State)
}

func TestDirectCallSelfInvite(t *testing.T) {
	b, sender := newTestBroker()

	caller := b.Connect("conn-a", "user-a")
	sender.reset()

	b.DirectCall(caller.ID, caller.UserID)

	failed := sender.ofType(caller.ID, domain.EventCallFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, domain.FailReasonBusy, failed[0].Reason)
	assert.Empty(t, caller.PartnerID)
}

func TestRelayToPartner(t *testing.T) {
	b, sender := newTestBroker()

	a := b.Connect("conn-a", "user-a")
	c := b.Connect("conn-b", "user-b")
	sender.reset()

	candidate := json.RawMessage(`{"candidate":"candidate:1 1 UDP 123456 10.0.0.1 40000 typ host"}`)
	b.Relay(a.ID, domain.EventICECandidate, c.ID, candidate)

	received := sender.ofType(c.ID, domain.EventICECandidate)
	require.Len(t, received, 1)
	assert.JSONEq(t, string(candidate), string(received[0].Payload))
	assert.Empty(t, received[0].From, "ice-candidate delivery carries no sender id")

	// A disconnecting partner notifies the survivor and clears its reference.
	b.Disconnect(c.ID)
	assert.Len(t, sender.ofType(a.ID, domain.EventPartnerDisconnected), 1)
	assert.Empty(t, a.PartnerID)
	assert.Equal(t, domain.StateIdle, a.State)
}

func TestRelayOfferCarriesSenderID(t *testing.T) {
	b, sender := newTestBroker()

	a := b.Connect("conn-a", "user-a")
	c := b.Connect("conn-b", "user-b")
	sender.reset()

	offer := json.RawMessage(`{"type":"offer","sdp":"v=0\r\n"}`)
	b.Relay(a.ID, domain.EventOffer, c.ID, offer)

	received := sender.ofType(c.ID, domain.EventOffer)
	require.Len(t, received, 1)
	assert.Equal(t, a.ID, received[0].From)
}

func TestRelayDropsMismatchedTarget(t *testing.T) {
	b, sender := newTestBroker()

	a := b.Connect("conn-a", "user-a")
	b.Connect("conn-b", "user-b")
	bystander := b.Connect("conn-c", "user-c")
	sender.reset()

	b.Relay(a.ID, domain.EventOffer, bystander.ID, json.RawMessage(`{}`))

	assert.Empty(t, sender.eventsFor(bystander.ID), "signal to a non-partner must be dropped")
}

func TestRelayFromUnpairedConnection(t *testing.T) {
	b, sender := newTestBroker()

	a := b.Connect("conn-a", "user-a")
	sender.reset()

	b.Relay(a.ID, domain.EventAnswer, "bogus-target", json.RawMessage(`{}`))

	assert.Empty(t, sender.eventsFor("bogus-target"))
	assert.Empty(t, sender.eventsFor(a.ID))
}

func TestNextCall(t *testing.T) {
	b, sender := newTestBroker()

	a := b.Connect("conn-a", "user-a")
	c := b.Connect("conn-b", "user-b")
	sender.reset()

	b.NextCall(a.ID)

	// The skipped partner is told, stripped of its reference and left Idle:
	// requeueing is its own client's choice.
	assert.Len(t, sender.ofType(c.ID, domain.EventPartnerDisconnected), 1)
	assert.Empty(t, c.PartnerID)
	assert.Equal(t, domain.StateIdle, c.State)
	assert.False(t, b.pool.contains(c.ID))

	// The skipper waits for the next match.
	assert.Equal(t, domain.StateWaiting, a.State)
	assert.True(t, b.pool.contains(a.ID))

	// When the partner requeues, the two are the only candidates again.
	b.NextCall(c.ID)
	assert.Equal(t, domain.StatePaired, a.State)
	assert.Equal(t, domain.StatePaired, c.State)
	assert.Equal(t, c.ID, a.PartnerID)
}

func TestEndCall(t *testing.T) {
	b, sender := newTestBroker()

	a := b.Connect("conn-a", "user-a")
	c := b.Connect("conn-b", "user-b")
	sender.reset()

	b.EndCall(a.ID, c.ID)

	assert.Len(t, sender.ofType(c.ID, domain.EventPartnerDisconnected), 1)
	assert.Empty(t, a.PartnerID)
	assert.Empty(t, c.PartnerID)
	// end-call does not requeue either side.
	assert.False(t, b.pool.contains(a.ID))
	assert.False(t, b.pool.contains(c.ID))
}

func TestEndCallStaleTargetIgnored(t *testing.T) {
	b, sender := newTestBroker()

	a := b.Connect("conn-a", "user-a")
	c := b.Connect("conn-b", "user-b")
	sender.reset()

	b.EndCall(a.ID, "some-old-partner")

	assert.Equal(t, c.ID, a.PartnerID, "stale end-call must not touch the live pairing")
	assert.Equal(t, a.ID, c.PartnerID)
	assert.Empty(t, sender.ofType(c.ID, domain.EventPartnerDisconnected))
}

func TestDisconnectIdempotent(t *testing.T) {
	b, _ := newTestBroker()

	a := b.Connect("conn-a", "user-a")
	b.Disconnect(a.ID)
	assert.NotPanics(t, func() { b.Disconnect(a.ID) })

	total, waiting, _ := b.Stats()
	assert.Equal(t, 0, total)
	assert.Equal(t, 0, waiting)
}

func TestDisconnectRemovesFromPool(t *testing.T) {
	b, _ := newTestBroker()

	a := b.Connect("conn-a", "user-a")
	require.True(t, b.pool.contains(a.ID))

	b.Disconnect(a.ID)
	assert.False(t, b.pool.contains(a.ID))

	statuses := b.Presence([]domain.UserID{"user-a"})
	assert.Equal(t, domain.PresenceOffline, statuses["user-a"])
}

func TestReconnectSupersedesRegistry(t *testing.T) {
	b, _ := newTestBroker()

	old := b.Connect("conn-a1", "user-a")
	fresh := b.Connect("conn-a2", "user-a")

	// Presence follows the newest connection.
	connID, ok := b.registry.lookup("user-a")
	require.True(t, ok)
	assert.Equal(t, fresh.ID, connID)

	// The stale session going away must not knock the fresh one offline.
	b.Disconnect(old.ID)
	statuses := b.Presence([]domain.UserID{"user-a"})
	assert.Equal(t, domain.PresenceOnline, statuses["user-a"])

	b.Disconnect(fresh.ID)
	statuses = b.Presence([]domain.UserID{"user-a"})
	assert.Equal(t, domain.PresenceOffline, statuses["user-a"])
}

func TestPresenceBatch(t *testing.T) {
	b, _ := newTestBroker()

	b.Connect("conn-a", "user-a")
	b.Connect("conn-b", "user-b")

	statuses := b.Presence([]domain.UserID{"user-a", "user-b", "user-c"})
	assert.Equal(t, domain.PresenceOnline, statuses["user-a"])
	assert.Equal(t, domain.PresenceOnline, statuses["user-b"])
	assert.Equal(t, domain.PresenceOffline, statuses["user-c"])
}

func TestWaitingPoolIdempotence(t *testing.T) {
	pool := newWaitingPool()

	pool.enqueue("a")
	pool.enqueue("a")
	assert.Equal(t, 1, pool.size())

	pool.remove("a")
	pool.remove("a")
	assert.Equal(t, 0, pool.size())

	// popPair with fewer than two members is a no-op.
	pool.enqueue("a")
	_, _, ok := pool.popPair()
	assert.False(t, ok)
	assert.Equal(t, 1, pool.size())
}
