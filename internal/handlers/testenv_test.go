package handlers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/store_ratings/internal/events"
	"github.com/Skotchmaster/store_ratings/internal/hash"
	authmw "github.com/Skotchmaster/store_ratings/internal/middleware/auth"
	"github.com/Skotchmaster/store_ratings/internal/models"
	"github.com/Skotchmaster/store_ratings/internal/service/deletion"
	"github.com/Skotchmaster/store_ratings/internal/service/token"
)

const testPassword = "Password1!"

type testEnv struct {
	T       *testing.T
	E       *echo.Echo
	DB      *gorm.DB
	Tokens  *token.Service
	Auth    *AuthHandler
	Users   *UserHandler
	Stores  *StoreHandler
	Ratings *RatingHandler
	Admin   *AdminHandler
}

func initTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Store{}, &models.Rating{}, &models.RefreshToken{}); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	db := initTestDB(t)
	tokens := &token.Service{
		DB:            db,
		JWTSecret:     []byte("test-jwt-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
	}
	prod := &events.Producer{}

	return &testEnv{
		T:       t,
		E:       echo.New(),
		DB:      db,
		Tokens:  tokens,
		Auth:    &AuthHandler{DB: db, Tokens: tokens, Producer: prod},
		Users:   &UserHandler{DB: db, Producer: prod},
		Stores:  &StoreHandler{DB: db, Producer: prod},
		Ratings: &RatingHandler{DB: db, Producer: prod},
		Admin:   &AdminHandler{DB: db, Coordinator: &deletion.Coordinator{DB: db}, Producer: prod},
	}
}

func (env *testEnv) doJSONRequest(method, path string, body interface{}) (*httptest.ResponseRecorder, echo.Context) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	return rec, c
}

func (env *testEnv) createUser(name, email, role string) models.User {
	pwHash, err := hash.HashPassword(testPassword)
	require.NoError(env.T, err)
	user := models.User{
		Name:         name,
		Email:        email,
		PasswordHash: pwHash,
		Role:         role,
	}
	require.NoError(env.T, env.DB.Create(&user).Error)
	return user
}

func (env *testEnv) createStore(name, email string, ownerID *uint) models.Store {
	store := models.Store{Name: name, Email: email, OwnerID: ownerID}
	require.NoError(env.T, env.DB.Create(&store).Error)
	return store
}

func (env *testEnv) createRating(userID, storeID uint, value int) models.Rating {
	rating := models.Rating{UserID: userID, StoreID: storeID, Rating: value}
	require.NoError(env.T, env.DB.Create(&rating).Error)
	return rating
}

func (env *testEnv) as(c echo.Context, user models.User) {
	authmw.SetCurrentUser(c, user)
}

func (env *testEnv) count(model interface{}) int64 {
	var n int64
	require.NoError(env.T, env.DB.Model(model).Count(&n).Error)
	return n
}

func httpError(t *testing.T, err error) *echo.HTTPError {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected *echo.HTTPError, got %v", err)
	return he
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
}
