package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"pairlink/internal/core/domain"
	"pairlink/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

type RedisFavoriteRepository struct {
	client *redis.Client
}

func NewRedisFavoriteRepository(client *redis.Client) ports.FavoriteRepository {
	return &RedisFavoriteRepository{client: client}
}

// favoritesKey holds one hash per owner: field = saved contact id,
// value = serialized Favorite.
func (r *RedisFavoriteRepository) favoritesKey(userID domain.UserID) string {
	return fmt.Sprintf("pairlink:favorites:%s", userID)
}

func (r *RedisFavoriteRepository) Add(ctx context.Context, fav *domain.Favorite) error {
	data, err := json.Marshal(fav)
	if err != nil {
		return fmt.Errorf("failed to marshal favorite: %w", err)
	}

	if err := r.client.HSet(ctx, r.favoritesKey(fav.UserID), string(fav.FavoriteID), data).Err(); err != nil {
		return fmt.Errorf("failed to add favorite in Redis: %w", err)
	}
	return nil
}

func (r *RedisFavoriteRepository) Remove(ctx context.Context, userID, favoriteID domain.UserID) error {
	removed, err := r.client.HDel(ctx, r.favoritesKey(userID), string(favoriteID)).Result()
	if err != nil {
		return fmt.Errorf("failed to remove favorite in Redis: %w", err)
	}
	if removed == 0 {
		return domain.ErrFavoriteNotFound
	}
	return nil
}

func (r *RedisFavoriteRepository) ListByUser(ctx context.Context, userID domain.UserID) ([]*domain.Favorite, error) {
	entries, err := r.client.HGetAll(ctx, r.favoritesKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites from Redis: %w", err)
	}

	favorites := make([]*domain.Favorite, 0, len(entries))
	for _, raw := range entries {
		var fav domain.Favorite
		if err := json.Unmarshal([]byte(raw), &fav); err != nil {
			return nil, fmt.Errorf("failed to unmarshal favorite: %w", err)
		}
		favorites = append(favorites, &fav)
	}
	return favorites, nil
}

func (r *RedisFavoriteRepository) Exists(ctx context.Context, userID, favoriteID domain.UserID) (bool, error) {
	exists, err := r.client.HExists(ctx, r.favoritesKey(userID), string(favoriteID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check favorite in Redis: %w", err)
	}
	return exists, nil
}
