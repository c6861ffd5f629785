package ports

import (
	"encoding/json"

	"pairlink/internal/core/domain"
)

// EventSender delivers broker notifications to a live connection. The broker
// calls it while holding its state lock, so implementations must not block:
// the websocket transport enqueues onto a per-connection buffered channel,
// which also preserves per-connection delivery order.
type EventSender interface {
	Send(id domain.ConnectionID, event domain.Event)
}

// SessionBroker is the full inbound surface of the connection broker.
type SessionBroker interface {
	Connect(id domain.ConnectionID, userID domain.UserID) *domain.Connection
	Disconnect(id domain.ConnectionID)
	NextCall(id domain.ConnectionID)
	EndCall(id, expectedTarget domain.ConnectionID)
	DirectCall(id domain.ConnectionID, targetUserID domain.UserID)
	Relay(id domain.ConnectionID, kind domain.SignalKind, target domain.ConnectionID, payload json.RawMessage)
}

// PresenceQuerier answers batch online/offline lookups; backed by the
// broker's connection registry.
type PresenceQuerier interface {
	Presence(userIDs []domain.UserID) map[domain.UserID]domain.PresenceStatus
}

// BrokerMetrics receives counters from broker transitions. Implemented by the
// Prometheus collector; a no-op implementation is used in tests.
type BrokerMetrics interface {
	ConnectionOpened()
	ConnectionClosed()
	PairFormed(direct bool)
	DirectCallFailed(reason domain.FailReason)
	SignalRelayed(kind domain.SignalKind)
	SignalDropped(kind domain.SignalKind)
}
