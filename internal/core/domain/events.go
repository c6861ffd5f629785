package domain

import "encoding/json"

// EventType names an outbound broker notification on the wire.
type EventType string

const (
	EventConnected           EventType = "connected"
	EventPaired              EventType = "paired"
	EventStartDirectCall     EventType = "start-direct-call"
	EventCallFailed          EventType = "call-failed"
	EventPartnerDisconnected EventType = "partner-disconnected"
	EventOffer               EventType = "offer"
	EventAnswer              EventType = "answer"
	EventICECandidate        EventType = "ice-candidate"
	EventError               EventType = "error"
)

// SignalKind is the subset of events that the relay passes through verbatim.
type SignalKind = EventType

// FailReason explains a rejected direct-call invite.
type FailReason string

const (
	FailReasonOffline FailReason = "offline"
	FailReasonBusy    FailReason = "busy"
)

// Event is a single notification destined for one connection. Payload is
// opaque to the broker; it is relayed without inspection.
type Event struct {
	Type          EventType       `json:"type"`
	ConnectionID  ConnectionID    `json:"connection_id,omitempty"`
	UserID        UserID          `json:"user_id,omitempty"`
	PartnerID     ConnectionID    `json:"partner_id,omitempty"`
	PartnerUserID UserID          `json:"partner_user_id,omitempty"`
	Reason        FailReason      `json:"reason,omitempty"`
	From          ConnectionID    `json:"from,omitempty"`
	Error         string          `json:"error,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
}

func ConnectedEvent(conn *Connection) Event {
	return Event{Type: EventConnected, ConnectionID: conn.ID, UserID: conn.UserID}
}

func PairedEvent(partner *Connection) Event {
	return Event{Type: EventPaired, PartnerID: partner.ID, PartnerUserID: partner.UserID}
}

func CallFailedEvent(reason FailReason) Event {
	return Event{Type: EventCallFailed, Reason: reason}
}

func ErrorEvent(msg string) Event {
	return Event{Type: EventError, Error: msg}
}
