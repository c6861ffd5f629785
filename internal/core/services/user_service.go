package services

import (
	"context"
	"strings"
	"time"

	"pairlink/internal/core/domain"
	"pairlink/internal/core/ports"
	"pairlink/pkg/validation"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 10

type UserService interface {
	Register(ctx context.Context, email, nickname, password string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, string, error)
	GetUser(ctx context.Context, id domain.UserID) (*domain.User, error)
}

type userService struct {
	users ports.UserRepository
	auth  AuthService
}

func NewUserService(users ports.UserRepository, auth AuthService) UserService {
	return &userService{users: users, auth: auth}
}

func (s *userService) Register(ctx context.Context, email, nickname, password string) (*domain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	nickname = strings.TrimSpace(nickname)

	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := validation.ValidateNickname(nickname); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           domain.UserID(uuid.NewString()),
		Email:        email,
		Nickname:     nickname,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		// Do not leak whether the account exists.
		return nil, "", domain.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", domain.ErrInvalidCredentials
	}

	token, err := s.auth.GenerateToken(user.ID, user.Nickname)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *userService) GetUser(ctx context.Context, id domain.UserID) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}
