package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/store_ratings/internal/events"
	"github.com/Skotchmaster/store_ratings/internal/hash"
	"github.com/Skotchmaster/store_ratings/internal/logging"
	authmw "github.com/Skotchmaster/store_ratings/internal/middleware/auth"
	"github.com/Skotchmaster/store_ratings/internal/models"
	"github.com/Skotchmaster/store_ratings/internal/service/token"
	"github.com/Skotchmaster/store_ratings/internal/validation"
)

type AuthHandler struct {
	DB       *gorm.DB
	Tokens   *token.Service
	Producer *events.Producer
}

func (h *AuthHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, events.TopicUserEvents, fmt.Sprint(event["userID"]), event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish error", "error", err)
	}
}

type registerRequest struct {
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Address  *string `json:"address"`
	Role     string  `json:"role"`
}

func (r *registerRequest) validate() error {
	if err := validation.Name(r.Name); err != nil {
		return err
	}
	if err := validation.Email(r.Email); err != nil {
		return err
	}
	if err := validation.Password(r.Password); err != nil {
		return err
	}
	if r.Address != nil {
		if err := validation.Address(*r.Address); err != nil {
			return err
		}
	}
	if r.Role == "" {
		r.Role = models.RoleUser
	}
	return validation.Role(r.Role)
}

func (h *AuthHandler) createUser(req *registerRequest) (*models.User, error) {
	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "could not hash password")
	}

	var existing models.User
	result := h.DB.Where("email = ?", req.Email).First(&existing)
	if result.Error == nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "user already exists")
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, result.Error.Error())
	}

	user := models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: pwHash,
		Address:      req.Address,
		Role:         req.Role,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return &user, nil
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := req.validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := h.createUser(&req)
	if err != nil {
		return err
	}

	access, _, err := h.Tokens.SignAccessToken(user.ID, user.Role)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create token")
	}
	refresh, _, err := h.Tokens.SignRefreshToken(c.Request().Context(), user.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create refresh token")
	}

	h.publish(c, map[string]any{
		"type":   "user_registered",
		"userID": user.ID,
		"email":  user.Email,
		"role":   user.Role,
	})

	return c.JSON(http.StatusCreated, echo.Map{
		"token":         access,
		"refresh_token": refresh,
		"user":          user,
	})
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := validation.Email(req.Email); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "password is required")
	}

	var user models.User
	if err := h.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid credentials")
	}
	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid credentials")
	}

	access, _, err := h.Tokens.SignAccessToken(user.ID, user.Role)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create token")
	}
	refresh, _, err := h.Tokens.SignRefreshToken(c.Request().Context(), user.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create refresh token")
	}

	h.publish(c, map[string]any{
		"type":   "user_logged_in",
		"userID": user.ID,
		"email":  user.Email,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"token":         access,
		"refresh_token": refresh,
		"user":          user,
	})
}

func (h *AuthHandler) Refresh(c echo.Context) error {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.RefreshToken == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "refresh_token is required")
	}

	access, refresh, err := h.Tokens.Rotate(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid refresh token")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"token":         access,
		"refresh_token": refresh,
	})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.RefreshToken != "" {
		if err := h.Tokens.Revoke(c.Request().Context(), req.RefreshToken); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out successfully"})
}

func (h *AuthHandler) Me(c echo.Context) error {
	user, ok := authmw.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	}
	return c.JSON(http.StatusOK, echo.Map{"user": user})
}
