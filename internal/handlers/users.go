package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/store_ratings/internal/events"
	"github.com/Skotchmaster/store_ratings/internal/hash"
	"github.com/Skotchmaster/store_ratings/internal/logging"
	authmw "github.com/Skotchmaster/store_ratings/internal/middleware/auth"
	"github.com/Skotchmaster/store_ratings/internal/models"
	"github.com/Skotchmaster/store_ratings/internal/validation"
)

type UserHandler struct {
	DB       *gorm.DB
	Producer *events.Producer
}

func (h *UserHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, events.TopicUserEvents, fmt.Sprint(event["userID"]), event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish error", "error", err)
	}
}

// ORDER BY is built from interpolation, so only whitelisted columns pass.
var userSortColumns = map[string]bool{
	"name":       true,
	"email":      true,
	"role":       true,
	"created_at": true,
}

func sortClause(columns map[string]bool, sortBy, sortOrder string) string {
	if !columns[sortBy] {
		sortBy = "name"
	}
	order := "ASC"
	if strings.EqualFold(sortOrder, "desc") {
		order = "DESC"
	}
	return sortBy + " " + order
}

func likeFilter(q *gorm.DB, column, value string) *gorm.DB {
	if value == "" {
		return q
	}
	return q.Where("LOWER("+column+") LIKE ?", "%"+strings.ToLower(value)+"%")
}

func (h *UserHandler) GetUsers(c echo.Context) error {
	q := h.DB.Model(&models.User{})
	q = likeFilter(q, "name", c.QueryParam("name"))
	q = likeFilter(q, "email", c.QueryParam("email"))
	if role := c.QueryParam("role"); role != "" {
		q = q.Where("role = ?", role)
	}

	var users []models.User
	if err := q.Order(sortClause(userSortColumns, c.QueryParam("sortBy"), c.QueryParam("sortOrder"))).
		Find(&users).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, users)
}

func (h *UserHandler) CreateUser(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := req.validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not hash password")
	}

	var existing models.User
	result := h.DB.Where("email = ?", req.Email).First(&existing)
	if result.Error == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "user already exists")
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, result.Error.Error())
	}

	user := models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: pwHash,
		Address:      req.Address,
		Role:         req.Role,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, map[string]any{
		"type":   "user_created",
		"userID": user.ID,
		"role":   user.Role,
	})

	return c.JSON(http.StatusCreated, user)
}

// updateProfileRequest enumerates exactly the fields a user may change about
// themselves. Role is deliberately absent.
type updateProfileRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Address  *string `json:"address"`
	Password *string `json:"password"`
}

func (h *UserHandler) UpdateProfile(c echo.Context) error {
	caller, ok := authmw.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	}

	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var user models.User
	if err := h.DB.First(&user, caller.ID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "user not found")
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
		var existing models.User
		result := h.DB.Where("email = ? AND id != ?", *req.Email, caller.ID).First(&existing)
		if result.Error == nil {
			return echo.NewHTTPError(http.StatusBadRequest, "email already exists")
		}
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusInternalServerError, result.Error.Error())
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

	h.publish(c, map[string]any{
		"type":   "profile_updated",
		"userID": user.ID,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"message": "profile updated successfully",
		"user":    user,
	})
}

func (h *UserHandler) DashboardStats(c echo.Context) error {
	caller, ok := authmw.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	}

	switch caller.Role {
	case models.RoleAdmin:
		var totalUsers, totalStores, totalRatings int64
		if err := h.DB.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if err := h.DB.Model(&models.Store{}).Count(&totalStores).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if err := h.DB.Model(&models.Rating{}).Count(&totalRatings).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		avg, err := h.avgRating(h.DB.Model(&models.Rating{}))
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, echo.Map{
			"totalUsers":    totalUsers,
			"totalStores":   totalStores,
			"totalRatings":  totalRatings,
			"averageRating": avg,
		})

	case models.RoleStoreOwner:
		var myStores, myRatings int64
		if err := h.DB.Model(&models.Store{}).Where("owner_id = ?", caller.ID).Count(&myStores).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		owned := h.DB.Model(&models.Rating{}).
			Joins("JOIN stores ON ratings.store_id = stores.id").
			Where("stores.owner_id = ?", caller.ID)
		if err := owned.Count(&myRatings).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		avg, err := h.avgRating(h.DB.Model(&models.Rating{}).
			Joins("JOIN stores ON ratings.store_id = stores.id").
			Where("stores.owner_id = ?", caller.ID))
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, echo.Map{
			"myStores":        myStores,
			"myRatings":       myRatings,
			"myAverageRating": avg,
		})

	default:
		var myRatings int64
		if err := h.DB.Model(&models.Rating{}).Where("user_id = ?", caller.ID).Count(&myRatings).Error; err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		avg, err := h.avgRating(h.DB.Model(&models.Rating{}).Where("user_id = ?", caller.ID))
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, echo.Map{
			"myRatings":       myRatings,
			"myAverageRating": avg,
		})
	}
}

func (h *UserHandler) avgRating(q *gorm.DB) (string, error) {
	var avg sql.NullFloat64
	if err := q.Select("AVG(rating)").Row().Scan(&avg); err != nil {
		return "", err
	}
	return fmt.Sprintf("%.2f", avg.Float64), nil
}
