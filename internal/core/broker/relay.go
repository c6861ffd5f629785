package broker

import (
	"encoding/json"

	"pairlink/internal/core/domain"
)

// Relay forwards a signaling payload (offer, answer or ICE candidate) to the
// sender's partner. The payload is opaque; the broker never inspects WebRTC
// semantics. A message whose declared target is not the sender's current
// partner is dropped silently: that is a cross-talk guard, not a user-visible
// error. No buffering, no retry; if the target is gone the disconnect flow is
// the correction mechanism.
func (b *Broker) Relay(id domain.ConnectionID, kind domain.SignalKind, target domain.ConnectionID, payload json.RawMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sender, ok := b.conns[id]
	if !ok || sender.PartnerID == "" || sender.PartnerID != target {
		b.dropLocked(id, kind, target)
		return
	}
	if _, ok := b.conns[target]; !ok {
		b.dropLocked(id, kind, target)
		return
	}

	event := domain.Event{Type: kind, Payload: payload}
	// Only the offer carries the sender id: the receiving side needs to know
	// whom to answer. For answer and ice-candidate the receiver already
	// knows its partner.
	if kind == domain.EventOffer {
		event.From = id
	}

	b.sender.Send(target, event)
	b.metrics.SignalRelayed(kind)
}

func (b *Broker) dropLocked(id domain.ConnectionID, kind domain.SignalKind, target domain.ConnectionID) {
	b.metrics.SignalDropped(kind)
	b.logger.Debugw("signal dropped",
		"connection_id", id,
		"kind", kind,
		"target", target,
	)
}
