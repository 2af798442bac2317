package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/store_ratings/internal/models"
	"github.com/Skotchmaster/store_ratings/internal/service/token"
)

const userContextKey = "user"

type Middleware struct {
	DB     *gorm.DB
	Tokens *token.Service
}

// Authenticate resolves the Bearer token to a user row and attaches it to the
// request context. The row is re-read on every request so a deleted user's
// token stops working immediately.
func (m *Middleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		raw := strings.TrimPrefix(header, "Bearer ")
		if raw == "" || raw == header {
			return echo.NewHTTPError(http.StatusUnauthorized, "access token required")
		}

		userID, _, err := m.Tokens.ParseAccessToken(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
		}

		var user models.User
		if err := m.DB.First(&user, userID).Error; err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid token - user not found")
		}

		c.Set(userContextKey, user)
		return next(c)
	}
}

func CurrentUser(c echo.Context) (models.User, bool) {
	user, ok := c.Get(userContextKey).(models.User)
	return user, ok
}

// SetCurrentUser exists for tests that invoke handlers without the middleware.
func SetCurrentUser(c echo.Context, user models.User) {
	c.Set(userContextKey, user)
}
