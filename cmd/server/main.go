package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/Skotchmaster/store_ratings/internal/config"
	"github.com/Skotchmaster/store_ratings/internal/es"
	"github.com/Skotchmaster/store_ratings/internal/events"
	"github.com/Skotchmaster/store_ratings/internal/handlers"
	"github.com/Skotchmaster/store_ratings/internal/logging"
	authmw "github.com/Skotchmaster/store_ratings/internal/middleware/auth"
	loggingmw "github.com/Skotchmaster/store_ratings/internal/middleware/logging"
	"github.com/Skotchmaster/store_ratings/internal/service/deletion"
	"github.com/Skotchmaster/store_ratings/internal/service/token"
	httpserver "github.com/Skotchmaster/store_ratings/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LOG_LEVEL)

	db, err := config.InitDB(context.Background(), configuration)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}

	prod, err := events.NewProducer(
		[]string{configuration.KAFKA_ADDRESS},
		[]string{events.TopicUserEvents, events.TopicStoreEvents, events.TopicRatingEvents},
	)
	if err != nil {
		log.Fatal(err)
	}

	esClient, err := es.NewClient(configuration)
	if err != nil {
		log.Fatal(err)
	}

	tokens := &token.Service{
		DB:            db,
		JWTSecret:     []byte(configuration.JWT_SECRET),
		RefreshSecret: []byte(configuration.REFRESH_SECRET),
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(20))))
	e.Use(loggingmw.RequestLogger(logger))

	deps := httpserver.Deps{
		DB:            db,
		Auth:          &authmw.Middleware{DB: db, Tokens: tokens},
		AuthHandler:   &handlers.AuthHandler{DB: db, Tokens: tokens, Producer: prod},
		UserHandler:   &handlers.UserHandler{DB: db, Producer: prod},
		StoreHandler:  &handlers.StoreHandler{DB: db, Producer: prod},
		RatingHandler: &handlers.RatingHandler{DB: db, Producer: prod},
		AdminHandler:  &handlers.AdminHandler{DB: db, Coordinator: &deletion.Coordinator{DB: db}, Producer: prod},
		SearchHandler: &handlers.SearchHandler{ES: esClient, Index: "stores"},
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":" + configuration.HTTP_PORT,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	} else {
		log.Printf("db() error: %v", err)
	}

	if err := prod.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}
