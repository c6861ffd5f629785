package memory

import (
	"context"
	"sync"

	"pairlink/internal/core/domain"
	"pairlink/internal/core/ports"
)

type MemoryFavoriteRepository struct {
	// keyed by owner, then by saved contact
	favorites map[domain.UserID]map[domain.UserID]*domain.Favorite
	mu        sync.RWMutex
}

func NewMemoryFavoriteRepository() ports.FavoriteRepository {
	return &MemoryFavoriteRepository{
		favorites: make(map[domain.UserID]map[domain.UserID]*domain.Favorite),
	}
}

func (r *MemoryFavoriteRepository) Add(ctx context.Context, fav *domain.Favorite) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	byOwner, exists := r.favorites[fav.UserID]
	if !exists {
		byOwner = make(map[domain.UserID]*domain.Favorite)
		r.favorites[fav.UserID] = byOwner
	}
	byOwner[fav.FavoriteID] = fav
	return nil
}

func (r *MemoryFavoriteRepository) Remove(ctx context.Context, userID, favoriteID domain.UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	byOwner, exists := r.favorites[userID]
	if !exists {
		return domain.ErrFavoriteNotFound
	}
	if _, exists := byOwner[favoriteID]; !exists {
		return domain.ErrFavoriteNotFound
	}
	delete(byOwner, favoriteID)
	return nil
}

func (r *MemoryFavoriteRepository) ListByUser(ctx context.Context, userID domain.UserID) ([]*domain.Favorite, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byOwner := r.favorites[userID]
	favorites := make([]*domain.Favorite, 0, len(byOwner))
	for _, fav := range byOwner {
		favorites = append(favorites, fav)
	}
	return favorites, nil
}

func (r *MemoryFavoriteRepository) Exists(ctx context.Context, userID, favoriteID domain.UserID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byOwner, exists := r.favorites[userID]
	if !exists {
		return false, nil
	}
	_, exists = byOwner[favoriteID]
	return exists, nil
}
