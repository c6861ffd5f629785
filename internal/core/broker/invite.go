package broker

import "pairlink/internal/core/domain"

// DirectCall pairs the caller with a specific known user instead of a random
// stranger. The whole decision runs under the broker lock, so two
// simultaneous invites to the same target cannot both succeed. Failures are
// terminal and leave both sides untouched.
func (b *Broker) DirectCall(id domain.ConnectionID, targetUserID domain.UserID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	caller, ok := b.conns[id]
	if !ok {
		return
	}

	targetConnID, online := b.registry.lookup(targetUserID)
	if !online {
		b.failInviteLocked(caller, domain.FailReasonOffline)
		return
	}
	target, ok := b.conns[targetConnID]
	if !ok {
		// Registry entry outlived the connection; treat as offline.
		b.failInviteLocked(caller, domain.FailReasonOffline)
		return
	}

	if target.ID == caller.ID || caller.Paired() || target.Paired() {
		b.failInviteLocked(caller, domain.FailReasonBusy)
		return
	}

	// Same transition as random matching, plus start-direct-call to the
	// caller: the inviter, and only the inviter, creates the WebRTC offer.
	b.pool.remove(caller.ID)
	b.pool.remove(target.ID)
	b.pairLocked(caller, target, true)

	b.logger.Infow("direct call started",
		"caller_user_id", caller.UserID,
		"target_user_id", targetUserID,
	)
}

func (b *Broker) failInviteLocked(caller *domain.Connection, reason domain.FailReason) {
	b.sender.Send(caller.ID, domain.CallFailedEvent(reason))
	b.metrics.DirectCallFailed(reason)
	b.logger.Debugw("direct call failed",
		"connection_id", caller.ID,
		"reason", reason,
	)
}
