package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/store_ratings/internal/events"
	"github.com/Skotchmaster/store_ratings/internal/logging"
	authmw "github.com/Skotchmaster/store_ratings/internal/middleware/auth"
	"github.com/Skotchmaster/store_ratings/internal/models"
	"github.com/Skotchmaster/store_ratings/internal/validation"
)

type RatingHandler struct {
	DB       *gorm.DB
	Producer *events.Producer
}

func (h *RatingHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, events.TopicRatingEvents, fmt.Sprint(event["userID"]), event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish error", "error", err)
	}
}

// SubmitRating inserts the caller's rating of a store, or updates the
// existing row when the (user, store) pair already has one.
func (h *RatingHandler) SubmitRating(c echo.Context) error {
	caller, ok := authmw.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	}

	var req struct {
		StoreID uint `json:"storeId"`
		Rating  int  `json:"rating"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.StoreID == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "valid store id is required")
	}
	if err := validation.RatingValue(req.Rating); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var store models.Store
	if err := h.DB.First(&store, req.StoreID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "store not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	updated := true
	var rating models.Rating
	tx := h.DB.Where("user_id = ? AND store_id = ?", caller.ID, req.StoreID).First(&rating)
	switch {
	case tx.Error == nil:
		rating.Rating = req.Rating
		if err := h.DB.Save(&rating).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	case errors.Is(tx.Error, gorm.ErrRecordNotFound):
		updated = false
		rating = models.Rating{UserID: caller.ID, StoreID: req.StoreID, Rating: req.Rating}
		if err := h.DB.Create(&rating).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, tx.Error.Error())
	}

	var avg sql.NullFloat64
	if err := h.DB.Model(&models.Rating{}).Where("store_id = ?", req.StoreID).
		Select("AVG(rating)").Row().Scan(&avg); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	message := "rating submitted successfully"
	if updated {
		message = "rating updated successfully"
	}

	h.publish(c, map[string]any{
		"type":    "rating_submitted",
		"userID":  caller.ID,
		"storeID": req.StoreID,
		"rating":  req.Rating,
		"updated": updated,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"rating":       rating,
		"storeAverage": fmt.Sprintf("%.1f", avg.Float64),
		"message":      message,
	})
}

type myRatingItem struct {
	ID           uint      `json:"id"`
	Rating       int       `json:"rating"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	StoreID      uint      `json:"store_id"`
	StoreName    string    `json:"store_name"`
	StoreEmail   string    `json:"store_email"`
	StoreAddress *string   `json:"store_address"`
}

func (h *RatingHandler) MyRatings(c echo.Context) error {
	caller, ok := authmw.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	}

	var items []myRatingItem
	err := h.DB.Table("ratings r").
		Select("r.id, r.rating, r.created_at, r.updated_at, "+
			"s.id AS store_id, s.name AS store_name, s.email AS store_email, s.address AS store_address").
		Joins("JOIN stores s ON r.store_id = s.id").
		Where("r.user_id = ?", caller.ID).
		Order("r.updated_at DESC").
		Scan(&items).Error
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"count":   len(items),
		"ratings": items,
	})
}

type ratingListItem struct {
	ID         uint      `json:"id"`
	Rating     int       `json:"rating"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	UserID     uint      `json:"user_id"`
	UserName   string    `json:"user_name"`
	UserEmail  string    `json:"user_email"`
	StoreID    uint      `json:"store_id"`
	StoreName  string    `json:"store_name"`
	StoreEmail string    `json:"store_email"`
}

func (h *RatingHandler) GetAllRatings(c echo.Context) error {
	var items []ratingListItem
	err := h.DB.Table("ratings r").
		Select("r.id, r.rating, r.created_at, r.updated_at, "+
			"u.id AS user_id, u.name AS user_name, u.email AS user_email, "+
			"s.id AS store_id, s.name AS store_name, s.email AS store_email").
		Joins("JOIN users u ON r.user_id = u.id").
		Joins("JOIN stores s ON r.store_id = s.id").
		Order("r.updated_at DESC").
		Scan(&items).Error
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{
		"count":   len(items),
		"ratings": items,
	})
}

// DeleteRating removes a single rating. Authors delete their own; admins
// delete any.
func (h *RatingHandler) DeleteRating(c echo.Context) error {
	caller, ok := authmw.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	}

	ratingID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var rating models.Rating
	if err := h.DB.First(&rating, ratingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "rating not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if caller.Role != models.RoleAdmin && rating.UserID != caller.ID {
		return echo.NewHTTPError(http.StatusForbidden, "not authorized to delete this rating")
	}

	if err := h.DB.Delete(&rating).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, map[string]any{
		"type":     "rating_deleted",
		"userID":   caller.ID,
		"ratingID": ratingID,
	})

	return c.JSON(http.StatusOK, echo.Map{"message": "rating deleted successfully"})
}
