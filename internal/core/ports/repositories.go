package ports

import (
	"context"

	"pairlink/internal/core/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id domain.UserID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type FavoriteRepository interface {
	Add(ctx context.Context, fav *domain.Favorite) error
	Remove(ctx context.Context, userID, favoriteID domain.UserID) error
	ListByUser(ctx context.Context, userID domain.UserID) ([]*domain.Favorite, error)
	Exists(ctx context.Context, userID, favoriteID domain.UserID) (bool, error)
}
