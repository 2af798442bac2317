package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/store_ratings/internal/events"
	"github.com/Skotchmaster/store_ratings/internal/hash"
	"github.com/Skotchmaster/store_ratings/internal/logging"
	authmw "github.com/Skotchmaster/store_ratings/internal/middleware/auth"
	"github.com/Skotchmaster/store_ratings/internal/models"
	"github.com/Skotchmaster/store_ratings/internal/service/deletion"
	"github.com/Skotchmaster/store_ratings/internal/validation"
)

type AdminHandler struct {
	DB          *gorm.DB
	Coordinator *deletion.Coordinator
	Producer    *events.Producer
}

func (h *AdminHandler) publish(c echo.Context, topic string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, topic, fmt.Sprint(event["targetID"]), event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish error", "error", err)
	}
}

// updateUserRequest is the admin view of a user update: unlike the profile
// path, role changes are permitted.
type updateUserRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Address  *string `json:"address"`
	Role     *string `json:"role"`
	Password *string `json:"password"`
}

func (h *AdminHandler) UpdateUser(c echo.Context) error {
	userID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req updateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var user models.User
	if err := h.DB.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	changed := false
	if req.Name != nil {
		if err := validation.Name(*req.Name); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		user.Name = strings.TrimSpace(*req.Name)
		changed = true
	}
	if req.Email != nil {
		if err := validation.Email(*req.Email); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		user.Email = strings.TrimSpace(*req.Email)
		changed = true
	}
	if req.Address != nil {
		if err := validation.Address(*req.Address); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		user.Address = req.Address
		changed = true
	}
	if req.Role != nil {
		if err := validation.Role(*req.Role); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		user.Role = *req.Role
		changed = true
	}
	if req.Password != nil {
		if err := validation.Password(*req.Password); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		pwHash, err := hash.HashPassword(*req.Password)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "could not hash password")
		}
		user.PasswordHash = pwHash
		changed = true
	}

	if !changed {
		return echo.NewHTTPError(http.StatusBadRequest, "no valid fields provided for update")
	}

	if err := h.DB.Save(&user).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, events.TopicUserEvents, map[string]any{
		"type":     "user_updated",
		"targetID": user.ID,
	})

	return c.JSON(http.StatusOK, user)
}

type updateStoreRequest struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Address *string `json:"address"`
	OwnerID *uint   `json:"owner_id"`
}

func (h *AdminHandler) UpdateStore(c echo.Context) error {
	storeID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req updateStoreRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var store models.Store
	if err := h.DB.First(&store, storeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "store not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	changed := false
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "store name cannot be empty")
		}
		store.Name = *req.Name
		changed = true
	}
	if req.Email != nil {
		if err := validation.Email(*req.Email); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		store.Email = *req.Email
		changed = true
	}
	if req.Address != nil {
		if err := validation.Address(*req.Address); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		store.Address = req.Address
		changed = true
	}
	if req.OwnerID != nil {
		if *req.OwnerID == 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "owner id must be a valid number")
		}
		store.OwnerID = req.OwnerID
		changed = true
	}

	if !changed {
		return echo.NewHTTPError(http.StatusBadRequest, "no valid fields provided for update")
	}

	if err := h.DB.Save(&store).Error; err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid owner id")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, events.TopicStoreEvents, map[string]any{
		"type":     "store_updated",
		"targetID": store.ID,
	})

	return c.JSON(http.StatusOK, store)
}

func deletionStatus(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, deletion.ErrInvalidArgument), errors.Is(err, deletion.ErrSelfDeletion):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, deletion.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, deletion.ErrConstraint):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (h *AdminHandler) DeleteUser(c echo.Context) error {
	caller, ok := authmw.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	}

	targetID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	deleted, summary, err := h.Coordinator.DeleteUser(c.Request().Context(), caller.ID, targetID)
	if err != nil {
		return deletionStatus(err)
	}

	h.publish(c, events.TopicUserEvents, map[string]any{
		"type":     "user_deleted",
		"targetID": deleted.ID,
		"summary":  summary,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"message":     "user deleted successfully",
		"deletedUser": deleted,
		"summary":     summary,
	})
}

func (h *AdminHandler) DeleteStore(c echo.Context) error {
	caller, ok := authmw.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	}

	targetID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	deleted, summary, err := h.Coordinator.DeleteStore(c.Request().Context(), caller.ID, targetID)
	if err != nil {
		return deletionStatus(err)
	}

	h.publish(c, events.TopicStoreEvents, map[string]any{
		"type":     "store_deleted",
		"targetID": deleted.ID,
		"summary":  summary,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"message":      "store deleted successfully",
		"deletedStore": deleted,
		"summary":      summary,
	})
}
