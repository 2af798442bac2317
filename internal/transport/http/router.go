package httpserver

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/store_ratings/internal/handlers"
	authmw "github.com/Skotchmaster/store_ratings/internal/middleware/auth"
	"github.com/Skotchmaster/store_ratings/internal/models"
)

type Deps struct {
	DB            *gorm.DB
	Auth          *authmw.Middleware
	AuthHandler   *handlers.AuthHandler
	UserHandler   *handlers.UserHandler
	StoreHandler  *handlers.StoreHandler
	RatingHandler *handlers.RatingHandler
	AdminHandler  *handlers.AdminHandler
	SearchHandler *handlers.SearchHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	auth := v1.Group("/auth")
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/refresh", d.AuthHandler.Refresh)
	auth.POST("/logout", d.AuthHandler.Logout, d.Auth.Authenticate)
	auth.GET("/me", d.AuthHandler.Me, d.Auth.Authenticate)

	users := v1.Group("/users", d.Auth.Authenticate)
	users.GET("/dashboard-stats", d.UserHandler.DashboardStats)
	users.PATCH("/profile", d.UserHandler.UpdateProfile)
	users.GET("", d.UserHandler.GetUsers, authmw.RequireRoles(models.RoleAdmin))
	users.POST("", d.UserHandler.CreateUser, authmw.RequireRoles(models.RoleAdmin))

	stores := v1.Group("/stores", d.Auth.Authenticate)
	stores.GET("", d.StoreHandler.GetStores)
	stores.GET("/search", d.SearchHandler.SearchStores)
	stores.POST("", d.StoreHandler.CreateStore, authmw.RequireRoles(models.RoleAdmin))
	stores.POST("/create-own", d.StoreHandler.CreateOwnStore, authmw.RequireRoles(models.RoleStoreOwner))
	stores.GET("/my-stores", d.StoreHandler.MyStores, authmw.RequireRoles(models.RoleStoreOwner))
	stores.GET("/:id/ratings", d.StoreHandler.StoreRatings, authmw.RequireRoles(models.RoleStoreOwner))
	stores.PATCH("/:id", d.StoreHandler.UpdateOwnStore, authmw.RequireRoles(models.RoleStoreOwner))

	ratings := v1.Group("/ratings", d.Auth.Authenticate)
	ratings.POST("", d.RatingHandler.SubmitRating, authmw.RequireRoles(models.RoleUser))
	ratings.GET("/my-ratings", d.RatingHandler.MyRatings)
	ratings.GET("", d.RatingHandler.GetAllRatings, authmw.RequireRoles(models.RoleAdmin))
	ratings.DELETE("/:id", d.RatingHandler.DeleteRating)

	admin := v1.Group("/admin", d.Auth.Authenticate, authmw.RequireRoles(models.RoleAdmin))
	admin.PATCH("/users/:id", d.AdminHandler.UpdateUser)
	admin.PATCH("/stores/:id", d.AdminHandler.UpdateStore)
	admin.DELETE("/users/:id", d.AdminHandler.DeleteUser)
	admin.DELETE("/stores/:id", d.AdminHandler.DeleteStore)
}
