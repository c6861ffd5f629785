package http

import (
	"errors"
	"net/http"
	"time"

	"pairlink/internal/core/domain"
	"pairlink/internal/core/services"
	apperrors "pairlink/pkg/errors"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	userService services.UserService
	authService services.AuthService
	tokenTTL    time.Duration
}

func NewAuthHandler(userService services.UserService, authService services.AuthService, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		authService: authService,
		tokenTTL:    tokenTTL,
	}
}

func (h *AuthHandler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api/v1/auth")
	{
		api.POST("/register", h.Register)
		api.POST("/login", h.Login)
	}
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,max=254"`
	Nickname string `json:"nickname" binding:"required,max=50"`
	Password string `json:"password" binding:"required,max=128"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,max=254"`
	Password string `json:"password" binding:"required,max=128"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidInputError("invalid request format"))
		return
	}

	user, err := h.userService.Register(c.Request.Context(), req.Email, req.Nickname, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			c.Error(apperrors.NewConflictError("email already registered"))
			return
		}
		c.Error(apperrors.NewInvalidInputError(err.Error()))
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user_id":  user.ID,
		"email":    user.Email,
		"nickname": user.Nickname,
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidInputError("invalid request format"))
		return
	}

	user, token, err := h.userService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.Error(apperrors.NewUnauthorizedError("invalid email or password"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":      user.ID,
		"nickname":     user.Nickname,
		"access_token": token,
		"expires_in":   int(h.tokenTTL / time.Second),
	})
}
