package domain

import "time"

type User struct {
	ID           UserID
	Email        string
	Nickname     string
	PasswordHash string
	CreatedAt    time.Time
}

// Favorite is a saved contact: owner keeps a reference to another user so
// they can place direct calls later.
type Favorite struct {
	UserID     UserID
	FavoriteID UserID
	SavedAt    time.Time
}

// PresenceStatus is the answer to "does this user have a live connection".
type PresenceStatus string

const (
	PresenceOnline  PresenceStatus = "online"
	PresenceOffline PresenceStatus = "offline"
)
