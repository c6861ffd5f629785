package services

import (
	"context"
	"sort"
	"time"

	"pairlink/internal/core/domain"
	"pairlink/internal/core/ports"
)

// FavoriteContact is a saved contact joined with its owner-facing details.
type FavoriteContact struct {
	UserID   domain.UserID `json:"user_id"`
	Nickname string        `json:"nickname"`
	SavedAt  time.Time     `json:"saved_at"`
}

type FavoriteService interface {
	Add(ctx context.Context, userID, favoriteID domain.UserID) error
	Remove(ctx context.Context, userID, favoriteID domain.UserID) error
	List(ctx context.Context, userID domain.UserID) ([]FavoriteContact, error)
	Status(ctx context.Context, favoriteIDs []domain.UserID) map[domain.UserID]domain.PresenceStatus
}

type favoriteService struct {
	favorites ports.FavoriteRepository
	users     ports.UserRepository
	presence  ports.PresenceQuerier
}

func NewFavoriteService(favorites ports.FavoriteRepository, users ports.UserRepository, presence ports.PresenceQuerier) FavoriteService {
	return &favoriteService{
		favorites: favorites,
		users:     users,
		presence:  presence,
	}
}

// Add saves favoriteID as a contact of userID. Saving an already-saved
// contact is not an error.
func (s *favoriteService) Add(ctx context.Context, userID, favoriteID domain.UserID) error {
	if _, err := s.users.GetByID(ctx, favoriteID); err != nil {
		return err
	}

	exists, err := s.favorites.Exists(ctx, userID, favoriteID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	return s.favorites.Add(ctx, &domain.Favorite{
		UserID:     userID,
		FavoriteID: favoriteID,
		SavedAt:    time.Now(),
	})
}

func (s *favoriteService) Remove(ctx context.Context, userID, favoriteID domain.UserID) error {
	return s.favorites.Remove(ctx, userID, favoriteID)
}

// List returns the user's contacts, newest first, joined with nicknames.
// Contacts whose account no longer resolves are skipped.
func (s *favoriteService) List(ctx context.Context, userID domain.UserID) ([]FavoriteContact, error) {
	favorites, err := s.favorites.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	contacts := make([]FavoriteContact, 0, len(favorites))
	for _, fav := range favorites {
		user, err := s.users.GetByID(ctx, fav.FavoriteID)
		if err != nil {
			continue
		}
		contacts = append(contacts, FavoriteContact{
			UserID:   user.ID,
			Nickname: user.Nickname,
			SavedAt:  fav.SavedAt,
		})
	}

	sort.Slice(contacts, func(i, j int) bool {
		return contacts[i].SavedAt.After(contacts[j].SavedAt)
	})
	return contacts, nil
}

// Status reports online/offline for each requested contact, backed by the
// broker's live connection registry.
func (s *favoriteService) Status(ctx context.Context, favoriteIDs []domain.UserID) map[domain.UserID]domain.PresenceStatus {
	if len(favoriteIDs) == 0 {
		return map[domain.UserID]domain.PresenceStatus{}
	}
	return s.presence.Presence(favoriteIDs)
}
