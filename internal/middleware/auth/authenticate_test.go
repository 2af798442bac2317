package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/store_ratings/internal/models"
	"github.com/Skotchmaster/store_ratings/internal/service/token"
)

func newMiddleware(t *testing.T) *Middleware {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.RefreshToken{}))
	return &Middleware{
		DB: db,
		Tokens: &token.Service{
			DB:            db,
			JWTSecret:     []byte("test-jwt-secret"),
			RefreshSecret: []byte("test-refresh-secret"),
		},
	}
}

func request(t *testing.T, authorization string) echo.Context {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set(echo.HeaderAuthorization, authorization)
	}
	return echo.New().NewContext(req, httptest.NewRecorder())
}

func okHandler(c echo.Context) error { return c.NoContent(http.StatusOK) }

func TestAuthenticateAttachesUser(t *testing.T) {
	m := newMiddleware(t)
	user := models.User{Name: "Authenticated Middleware Subject", Email: "mw@example.com", PasswordHash: "x", Role: models.RoleUser}
	require.NoError(t, m.DB.Create(&user).Error)

	access, _, err := m.Tokens.SignAccessToken(user.ID, user.Role)
	require.NoError(t, err)

	c := request(t, "Bearer "+access)
	err = m.Authenticate(func(c echo.Context) error {
		got, ok := CurrentUser(c)
		require.True(t, ok)
		require.Equal(t, user.ID, got.ID)
		require.Equal(t, user.Email, got.Email)
		return c.NoContent(http.StatusOK)
	})(c)
	require.NoError(t, err)
}

func TestAuthenticateMissingHeader(t *testing.T) {
	m := newMiddleware(t)

	for _, header := range []string{"", "Bearer ", "Basic dXNlcg=="} {
		c := request(t, header)
		err := m.Authenticate(okHandler)(c)
		he, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		require.Equal(t, http.StatusUnauthorized, he.Code)
	}
}

func TestAuthenticateBadToken(t *testing.T) {
	m := newMiddleware(t)

	c := request(t, "Bearer not.a.token")
	err := m.Authenticate(okHandler)(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusUnauthorized, he.Code)
}

// A structurally valid token stops working the moment its user row is gone.
func TestAuthenticateDeletedUser(t *testing.T) {
	m := newMiddleware(t)
	user := models.User{Name: "Authenticated Middleware Subject", Email: "mw@example.com", PasswordHash: "x", Role: models.RoleUser}
	require.NoError(t, m.DB.Create(&user).Error)

	access, _, err := m.Tokens.SignAccessToken(user.ID, user.Role)
	require.NoError(t, err)
	require.NoError(t, m.DB.Delete(&models.User{}, user.ID).Error)

	c := request(t, "Bearer "+access)
	err = m.Authenticate(okHandler)(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestRequireRoles(t *testing.T) {
	admin := models.User{ID: 1, Role: models.RoleAdmin}
	user := models.User{ID: 2, Role: models.RoleUser}

	mw := RequireRoles(models.RoleAdmin)

	c := request(t, "")
	SetCurrentUser(c, admin)
	require.NoError(t, mw(okHandler)(c))

	c = request(t, "")
	SetCurrentUser(c, user)
	err := mw(okHandler)(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusForbidden, he.Code)

	// no user on the context at all
	c = request(t, "")
	err = mw(okHandler)(c)
	he, ok = err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusUnauthorized, he.Code)
}
