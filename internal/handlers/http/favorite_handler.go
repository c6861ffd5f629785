package http

import (
	"errors"
	"net/http"

	"pairlink/internal/core/domain"
	"pairlink/internal/core/services"
	"pairlink/internal/infrastructure/middleware"
	apperrors "pairlink/pkg/errors"

	"github.com/gin-gonic/gin"
)

type FavoriteHandler struct {
	favoriteService services.FavoriteService
	authService     services.AuthService
}

func NewFavoriteHandler(favoriteService services.FavoriteService, authService services.AuthService) *FavoriteHandler {
	return &FavoriteHandler{
		favoriteService: favoriteService,
		authService:     authService,
	}
}

func (h *FavoriteHandler) SetupRoutes(router *gin.Engine) {
	api := router.Group("/api/v1/favorites")
	api.Use(middleware.AuthMiddleware(h.authService))
	{
		api.GET("", h.List)
		api.POST("", h.Add)
		api.DELETE("/:id", h.Remove)
		api.POST("/status", h.Status)
	}
}

type AddFavoriteRequest struct {
	UserID domain.UserID `json:"user_id" binding:"required"`
}

type FavoriteStatusRequest struct {
	UserIDs []domain.UserID `json:"user_ids" binding:"required,max=100"`
}

func (h *FavoriteHandler) List(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.Error(apperrors.NewUnauthorizedError("authentication required"))
		return
	}

	contacts, err := h.favoriteService.List(c.Request.Context(), userID)
	if err != nil {
		c.Error(apperrors.NewInternalError("failed to list favorites"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"favorites": contacts})
}

func (h *FavoriteHandler) Add(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.Error(apperrors.NewUnauthorizedError("authentication required"))
		return
	}

	var req AddFavoriteRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidInputError("invalid request format"))
		return
	}

	if err := h.favoriteService.Add(c.Request.Context(), userID, req.UserID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			c.Error(apperrors.NewNotFoundError("user"))
			return
		}
		c.Error(apperrors.NewInvalidInputError(err.Error()))
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user_id": req.UserID})
}

func (h *FavoriteHandler) Remove(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.Error(apperrors.NewUnauthorizedError("authentication required"))
		return
	}

	favoriteID := domain.UserID(c.Param("id"))
	if err := h.favoriteService.Remove(c.Request.Context(), userID, favoriteID); err != nil {
		if errors.Is(err, domain.ErrFavoriteNotFound) {
			c.Error(apperrors.NewNotFoundError("favorite"))
			return
		}
		c.Error(apperrors.NewInternalError("failed to remove favorite"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"removed": favoriteID})
}

// Status reports online/offline presence for a batch of saved contacts.
func (h *FavoriteHandler) Status(c *gin.Context) {
	if _, ok := middleware.UserIDFromContext(c); !ok {
		c.Error(apperrors.NewUnauthorizedError("authentication required"))
		return
	}

	var req FavoriteStatusRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidInputError("invalid request format"))
		return
	}

	statuses := h.favoriteService.Status(c.Request.Context(), req.UserIDs)
	c.JSON(http.StatusOK, gin.H{"statuses": statuses})
}
