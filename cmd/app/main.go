package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"

	"raffle-board-backend/internal/common/cache"
	"raffle-board-backend/internal/common/config"
	"raffle-board-backend/internal/common/logger"
	"raffle-board-backend/internal/common/middleware"
	"raffle-board-backend/internal/feed"
	rafflehttp "raffle-board-backend/internal/features/raffle/delivery/http"
	rafflerepo "raffle-board-backend/internal/features/raffle/repository/postgres"
	raffleservice "raffle-board-backend/internal/features/raffle/service"
	sellerhttp "raffle-board-backend/internal/features/seller/delivery/http"
	sellerrepo "raffle-board-backend/internal/features/seller/repository/postgres"
	sellerservice "raffle-board-backend/internal/features/seller/service"
	tickethttp "raffle-board-backend/internal/features/ticket/delivery/http"
	"raffle-board-backend/internal/features/ticket/inventory"
	ticketrepo "raffle-board-backend/internal/features/ticket/repository/postgres"
	ticketservice "raffle-board-backend/internal/features/ticket/service"
	"raffle-board-backend/internal/platform/postgres"
	redisplatform "raffle-board-backend/internal/platform/redis"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Init("raffle-board", false)
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init("raffle-board", cfg.Debug)

	postgresClient, err := postgres.NewClient(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer postgresClient.Close()

	if err := postgresClient.EnsureSchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	redisClient, err := redisplatform.NewClient(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	cacheService := cache.NewCacheService(redisClient)
	publisher := feed.NewPublisher(redisClient)

	ticketRepository := ticketrepo.NewPostgresRepository(postgresClient.GetDB(), publisher)
	sellerRepository := sellerrepo.NewPostgresRepository(postgresClient.GetDB(), publisher)
	raffleRepository := rafflerepo.NewPostgresRepository(postgresClient.GetDB(), publisher)

	inv := inventory.New()
	raffleSvc := raffleservice.NewRaffleService(raffleRepository, cacheService)
	sellerSvc := sellerservice.NewSellerService(sellerRepository, cacheService, cfg, inv, raffleSvc)
	ticketSvc := ticketservice.NewTicketService(ticketRepository, inv, raffleSvc, sellerSvc)

	// Initialization failure here is fatal: running against an empty,
	// unsynced board would show every ticket as missing.
	if err := ticketSvc.Bootstrap(ctx, cfg.Raffle.DefaultTicketCount); err != nil {
		logger.Fatal().Err(err).Msg("Failed to bootstrap ticket board")
	}
	if err := sellerSvc.Bootstrap(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to bootstrap sellers")
	}

	subscriber := feed.NewSubscriber(redisClient)
	subscriber.Handle(feed.TableTickets, inv.ApplyRemoteEvent)
	subscriber.Handle(feed.TableSellers, sellerSvc.HandleFeedEvent)
	subscriber.Handle(feed.TableConfig, raffleSvc.HandleFeedEvent)
	go subscriber.Run(ctx)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.Origin}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization", "Accept", "X-Request-ID"}
	router.Use(cors.New(corsConfig))

	router.Use(middleware.Auth(sellerSvc))

	v1 := router.Group("/api/v1")
	tickethttp.NewTicketHandler(ticketSvc).RegisterRoutes(v1)
	sellerhttp.NewSellerHandler(sellerSvc).RegisterRoutes(v1)
	rafflehttp.NewRaffleHandler(raffleSvc).RegisterRoutes(v1)

	registerProbes(router, postgresClient, redisClient)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited")
}

func registerProbes(router *gin.Engine, pg *postgres.Client, rdb *goredis.Client) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   "raffle-board-backend",
		})
	})

	router.GET("/live", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := pg.HealthCheck(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unready",
				"error":  "postgres unavailable",
			})
			return
		}

		if err := rdb.Ping(ctx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unready",
				"error":  "redis unavailable",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "ready",
			"timestamp": time.Now().UTC(),
			"service":   "raffle-board-backend",
		})
	})
}
