package domain

import "time"

type ConnectionID string

type UserID string

// ConnectionState tracks where a live connection sits in the pairing lifecycle.
type ConnectionState string

const (
	StateIdle    ConnectionState = "idle"
	StateWaiting ConnectionState = "waiting"
	StatePaired  ConnectionState = "paired"
)

// Connection is one live client session. Partner references are mutual: they
// are set on both sides as part of a single pairing transition and cleared on
// both sides as part of a single termination transition, never unilaterally.
type Connection struct {
	ID            ConnectionID
	UserID        UserID
	State         ConnectionState
	PartnerID     ConnectionID
	PartnerUserID UserID
	ConnectedAt   time.Time
}

// Paired reports whether the connection currently has a partner.
func (c *Connection) Paired() bool {
	return c.PartnerID != ""
}
