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
	"github.com/Skotchmaster/store_ratings/internal/logging"
	authmw "github.com/Skotchmaster/store_ratings/internal/middleware/auth"
	"github.com/Skotchmaster/store_ratings/internal/models"
	"github.com/Skotchmaster/store_ratings/internal/validation"
)

type StoreHandler struct {
	DB       *gorm.DB
	Producer *events.Producer
}

func (h *StoreHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, events.TopicStoreEvents, fmt.Sprint(event["storeID"]), event); err != nil {
		logging.FromContext(c.Request().Context()).Error("kafka publish error", "error", err)
	}
}

var storeSortColumns = map[string]bool{
	"name":       true,
	"email":      true,
	"address":    true,
	"created_at": true,
}

type storeListItem struct {
	ID            uint      `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Address       *string   `json:"address"`
	OwnerID       *uint     `json:"owner_id"`
	CreatedAt     time.Time `json:"created_at"`
	OverallRating float64   `json:"overall_rating"`
	UserRating    *int      `json:"user_rating,omitempty"`
}

// GetStores lists every store with its query-time average rating. Regular
// users additionally get their own rating of each store.
func (h *StoreHandler) GetStores(c echo.Context) error {
	caller, ok := authmw.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	}

	q := h.DB.Table("stores s").
		Joins("LEFT JOIN ratings r ON s.id = r.store_id")

	selectCols := "s.id, s.name, s.email, s.address, s.owner_id, s.created_at, COALESCE(AVG(r.rating), 0) AS overall_rating"
	groupCols := "s.id, s.name, s.email, s.address, s.owner_id, s.created_at"

	if caller.Role == models.RoleUser {
		selectCols += ", ur.rating AS user_rating"
		groupCols += ", ur.rating"
		q = q.Joins("LEFT JOIN ratings ur ON s.id = ur.store_id AND ur.user_id = ?", caller.ID)
	}

	q = likeFilter(q, "s.name", c.QueryParam("name"))
	q = likeFilter(q, "s.email", c.QueryParam("email"))
	q = likeFilter(q, "s.address", c.QueryParam("address"))

	var items []storeListItem
	if err := q.Select(selectCols).
		Group(groupCols).
		Order(sortClause(storeSortColumns, c.QueryParam("sortBy"), c.QueryParam("sortOrder"))).
		Scan(&items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

type storeRequest struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Address *string `json:"address"`
	OwnerID *uint   `json:"owner_id"`
}

func (r *storeRequest) validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("store name is required")
	}
	if err := validation.Email(r.Email); err != nil {
		return err
	}
	if r.Address != nil {
		return validation.Address(*r.Address)
	}
	return nil
}

func (h *StoreHandler) createStore(c echo.Context, req *storeRequest, ownerID *uint) error {
	var existing models.Store
	result := h.DB.Where("email = ?", req.Email).First(&existing)
	if result.Error == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "store with this email already exists")
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, result.Error.Error())
	}

	store := models.Store{
		Name:    req.Name,
		Email:   req.Email,
		Address: req.Address,
		OwnerID: ownerID,
	}
	if err := h.DB.Create(&store).Error; err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid owner id")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, map[string]any{
		"type":    "store_created",
		"storeID": store.ID,
		"name":    store.Name,
	})

	return c.JSON(http.StatusCreated, store)
}

// CreateStore is the admin path: the owner is named in the request.
func (h *StoreHandler) CreateStore(c echo.Context) error {
	var req storeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := req.validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return h.createStore(c, &req, req.OwnerID)
}

// CreateOwnStore is the store_owner path: the caller becomes the owner.
func (h *StoreHandler) CreateOwnStore(c echo.Context) error {
	caller, ok := authmw.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	}

	var req storeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := req.validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ownerID := caller.ID
	return h.createStore(c, &req, &ownerID)
}

type ownedStoreItem struct {
	ID            uint      `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Address       *string   `json:"address"`
	OwnerID       *uint     `json:"owner_id"`
	CreatedAt     time.Time `json:"created_at"`
	AverageRating float64   `json:"average_rating"`
	TotalRatings  int64     `json:"total_ratings"`
	UniqueRaters  int64     `json:"unique_raters"`
}

func (h *StoreHandler) MyStores(c echo.Context) error {
	caller, ok := authmw.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	}

	var items []ownedStoreItem
	err := h.DB.Table("stores s").
		Select("s.id, s.name, s.email, s.address, s.owner_id, s.created_at, "+
			"COALESCE(AVG(r.rating), 0) AS average_rating, "+
			"COUNT(r.id) AS total_ratings, "+
			"COUNT(DISTINCT r.user_id) AS unique_raters").
		Joins("LEFT JOIN ratings r ON s.id = r.store_id").
		Where("s.owner_id = ?", caller.ID).
		Group("s.id, s.name, s.email, s.address, s.owner_id, s.created_at").
		Order("s.created_at DESC").
		Scan(&items).Error
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, items)
}

type storeRatingItem struct {
	UserID    uint      `json:"user_id"`
	UserName  string    `json:"user_name"`
	UserEmail string    `json:"user_email"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StoreRatings returns the detailed ratings of one of the caller's stores.
func (h *StoreHandler) StoreRatings(c echo.Context) error {
	caller, ok := authmw.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	}

	storeID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var store models.Store
	if err := h.DB.Where("id = ? AND owner_id = ?", storeID, caller.ID).First(&store).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "store not found or access denied")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var items []storeRatingItem
	err = h.DB.Table("ratings r").
		Select("u.id AS user_id, u.name AS user_name, u.email AS user_email, r.rating, r.created_at, r.updated_at").
		Joins("JOIN users u ON r.user_id = u.id").
		Where("r.store_id = ?", storeID).
		Order("r.updated_at DESC").
		Scan(&items).Error
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var sum int
	for _, it := range items {
		sum += it.Rating
	}
	avg := "0.0"
	if len(items) > 0 {
		avg = fmt.Sprintf("%.1f", float64(sum)/float64(len(items)))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"store":   store,
		"ratings": items,
		"summary": echo.Map{
			"totalRatings":  len(items),
			"averageRating": avg,
		},
	})
}

// updateOwnStoreRequest enumerates the fields an owner may change. The owner
// reference is deliberately absent.
type updateOwnStoreRequest struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Address *string `json:"address"`
}

func (h *StoreHandler) UpdateOwnStore(c echo.Context) error {
	caller, ok := authmw.CurrentUser(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	}

	storeID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req updateOwnStoreRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var store models.Store
	if err := h.DB.Where("id = ? AND owner_id = ?", storeID, caller.ID).First(&store).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "store not found or access denied")
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

	if !changed {
		return echo.NewHTTPError(http.StatusBadRequest, "no valid fields provided for update")
	}

	if err := h.DB.Save(&store).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.publish(c, map[string]any{
		"type":    "store_updated",
		"storeID": store.ID,
	})

	return c.JSON(http.StatusOK, store)
}
