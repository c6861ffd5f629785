package broker

import (
	"math/rand"
	"sync"
	"time"

	"pairlink/internal/core/domain"
	"pairlink/internal/core/ports"

	"go.uber.org/zap"
)

// Broker owns all live session state: the connection table, the user
// registry and the waiting pool. Every inbound event takes the single lock,
// applies its transition atomically and releases it, so cross-connection
// mutations (pairing, partner cleanup) can never be observed half-applied.
// The per-event work is pure in-memory coordination, which keeps the
// critical sections short.
type Broker struct {
	mu       sync.Mutex
	conns    map[domain.ConnectionID]*domain.Connection
	registry *connectionRegistry
	pool     *waitingPool
	rng      *rand.Rand

	sender  ports.EventSender
	metrics ports.BrokerMetrics
	logger  *zap.SugaredLogger
}

func New(sender ports.EventSender, metrics ports.BrokerMetrics, logger *zap.SugaredLogger) *Broker {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Broker{
		conns:    make(map[domain.ConnectionID]*domain.Connection),
		registry: newConnectionRegistry(),
		pool:     newWaitingPool(),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		sender:   sender,
		metrics:  metrics,
		logger:   logger,
	}
}

// Connect admits an authenticated session: the connection is created,
// registered for presence, queued for random matching and matched right away
// if a partner is available. The transport assigns the connection id and must
// be ready to deliver events for it before calling Connect; ids are unique
// per live session and never reused.
func (b *Broker) Connect(id domain.ConnectionID, userID domain.UserID) *domain.Connection {
	conn := &domain.Connection{
		ID:          id,
		UserID:      userID,
		State:       domain.StateIdle,
		ConnectedAt: time.Now(),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.conns[conn.ID] = conn
	b.registry.register(userID, conn.ID)
	b.sender.Send(conn.ID, domain.ConnectedEvent(conn))

	conn.State = domain.StateWaiting
	b.pool.enqueue(conn.ID)
	b.matchWaitingLocked()

	b.metrics.ConnectionOpened()
	b.logger.Infow("connection opened", "connection_id", conn.ID, "user_id", userID)
	return conn
}

// Disconnect tears a session down: pool removal, presence unregistration and
// partner notification, then the connection ceases to exist. Calling it again
// for the same id is a no-op.
func (b *Broker) Disconnect(id domain.ConnectionID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	conn, ok := b.conns[id]
	if !ok {
		return
	}

	b.pool.remove(id)
	b.registry.unregister(conn.UserID, id)
	b.releasePartnerLocked(conn)
	delete(b.conns, id)

	b.metrics.ConnectionClosed()
	b.logger.Infow("connection closed", "connection_id", id, "user_id", conn.UserID)
}

// NextCall is the user-initiated skip: drop the current partner (who goes
// back to Idle and must re-queue on their own) and rejoin the waiting pool.
func (b *Broker) NextCall(id domain.ConnectionID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	conn, ok := b.conns[id]
	if !ok {
		return
	}

	b.releasePartnerLocked(conn)
	conn.State = domain.StateWaiting
	b.pool.enqueue(id)
	b.matchWaitingLocked()
}

// EndCall is an explicit hang-up. The caller names the partner it believes it
// is talking to; if that no longer matches the live partner (a stale end-call
// racing a fresh pairing) nothing happens.
func (b *Broker) EndCall(id, expectedTarget domain.ConnectionID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	conn, ok := b.conns[id]
	if !ok {
		return
	}
	if conn.PartnerID == "" || conn.PartnerID != expectedTarget {
		b.logger.Debugw("end-call target mismatch",
			"connection_id", id,
			"expected", expectedTarget,
			"actual", conn.PartnerID,
		)
		return
	}

	b.releasePartnerLocked(conn)
}

// releasePartnerLocked clears the mutual partner references and notifies the
// other side. Both connections end up Idle; neither is requeued here. The
// partner's back-reference is re-checked rather than trusted, so a disconnect
// race cannot clear somebody else's pairing.
func (b *Broker) releasePartnerLocked(conn *domain.Connection) {
	partnerID := conn.PartnerID
	if partnerID == "" {
		return
	}

	conn.PartnerID = ""
	conn.PartnerUserID = ""
	conn.State = domain.StateIdle

	partner, ok := b.conns[partnerID]
	if !ok || partner.PartnerID != conn.ID {
		return
	}
	partner.PartnerID = ""
	partner.PartnerUserID = ""
	partner.State = domain.StateIdle
	b.sender.Send(partner.ID, domain.Event{Type: domain.EventPartnerDisconnected})
}

// pairLocked applies the mutual pairing transition for a and b: partner
// references both ways, both Paired, both out of the pool, `paired` emitted
// to each side. For direct invites the caller additionally receives
// start-direct-call, marking it as the WebRTC offer initiator.
func (b *Broker) pairLocked(caller, target *domain.Connection, direct bool) {
	caller.PartnerID = target.ID
	caller.PartnerUserID = target.UserID
	target.PartnerID = caller.ID
	target.PartnerUserID = caller.UserID
	caller.State = domain.StatePaired
	target.State = domain.StatePaired

	b.pool.remove(caller.ID)
	b.pool.remove(target.ID)

	b.sender.Send(caller.ID, domain.PairedEvent(target))
	b.sender.Send(target.ID, domain.PairedEvent(caller))
	if direct {
		b.sender.Send(caller.ID, domain.Event{Type: domain.EventStartDirectCall})
	}

	b.metrics.PairFormed(direct)
	b.logger.Infow("pair formed",
		"connection_id", caller.ID,
		"partner_id", target.ID,
		"direct", direct,
	)
}

// Presence reports online/offline per user id, straight off the registry.
func (b *Broker) Presence(userIDs []domain.UserID) map[domain.UserID]domain.PresenceStatus {
	b.mu.Lock()
	defer b.mu.Unlock()

	statuses := make(map[domain.UserID]domain.PresenceStatus, len(userIDs))
	for _, userID := range userIDs {
		if _, ok := b.registry.lookup(userID); ok {
			statuses[userID] = domain.PresenceOnline
		} else {
			statuses[userID] = domain.PresenceOffline
		}
	}
	return statuses
}

// Stats returns connection counts for the health endpoint.
func (b *Broker) Stats() (total, waiting, paired int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, conn := range b.conns {
		if conn.State == domain.StatePaired {
			paired++
		}
	}
	return len(b.conns), b.pool.size(), paired
}

type nopMetrics struct{}

func (nopMetrics) ConnectionOpened() {}
func (nopMetrics) ConnectionClosed() {}
func (nopMetrics) PairFormed(bool) {}
func (nopMetrics) DirectCallFailed(domain.FailReason) {}
func (nopMetrics) SignalRelayed(domain.SignalKind) {}
func (nopMetrics) SignalDropped(domain.SignalKind) {}
