package main

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/BlairKirara/url-shortener-sub000/pkg/shortener/admin"
	"github.com/BlairKirara/url-shortener-sub000/pkg/shortener/auth"
	"github.com/BlairKirara/url-shortener-sub000/pkg/shortener/cache"
	"github.com/BlairKirara/url-shortener-sub000/pkg/shortener/config"
	"github.com/BlairKirara/url-shortener-sub000/pkg/shortener/database"
	"github.com/BlairKirara/url-shortener-sub000/pkg/shortener/guests"
	"github.com/BlairKirara/url-shortener-sub000/pkg/shortener/models"
	"github.com/BlairKirara/url-shortener-sub000/pkg/shortener/redirect"
	"github.com/BlairKirara/url-shortener-sub000/pkg/shortener/shortcode"
	"github.com/BlairKirara/url-shortener-sub000/pkg/shortener/tags"
	"github.com/BlairKirara/url-shortener-sub000/pkg/shortener/urls"
	"github.com/BlairKirara/url-shortener-sub000/pkg/shortener/visits"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := config.NewLogger(cfg)

	auth.Configure(cfg.Auth.JWTSecret, cfg.Auth.TokenDuration)

	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	if err := models.AutoMigrate(db); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Database migrations completed")

	if err := ensureAdminExists(db, logger); err != nil {
		logger.Fatalf("Failed to ensure admin user exists: %v", err)
	}

	baseStore := urls.NewStore(db, logger)

	// All consumers share one store value so the cached wrapper, when
	// enabled, also covers the redirect path and the admin write paths
	var (
		handlerStore  urls.URLStore       = baseStore
		adminStore    admin.URLAdminStore = baseStore
		resolverStore redirect.URLSource  = baseStore
		sweeper       blockSweeper        = baseStore
	)

	if cfg.Redis.Enabled {
		client, cacheErr := cache.NewClient(cache.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			CacheTTL: cfg.Redis.CacheTTL,
		})
		if cacheErr != nil {
			logger.WithError(cacheErr).Warn("Redis unavailable, running without cache")
		} else {
			defer client.Close()
			cached := urls.NewCachedStore(baseStore, client, logger)
			handlerStore = cached
			adminStore = cached
			resolverStore = cached
			sweeper = cached
			logger.Info("Redis cache enabled for redirect lookups")
		}
	}

	recorder := visits.NewRecorder(db, logger)
	quota := guests.NewQuotaGuard(db)

	generator := shortcode.NewSeededGenerator()
	allocator := shortcode.NewAllocator(generator, baseStore.Exists, cfg.App.ShortCodeLength, cfg.App.MaxAllocAttempts)

	resolver := redirect.NewResolver(resolverStore, recorder, logger)

	startBlockSweeper(sweeper, cfg.App.BlockSweepEvery, logger)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API routes
	api := r.Group("/api")
	{
		authHandler := auth.NewHandler(db)
		authHandler.RegisterRoutes(api.Group("/auth"))

		urlsHandler := urls.NewHandler(handlerStore, allocator, quota, recorder, urls.Options{
			BaseURL:       cfg.App.BaseURL,
			CreateRetries: cfg.App.CreateRetries,
			GuestLimit:    cfg.App.GuestDailyLimit,
			GuestWindow:   cfg.App.GuestQuotaWindow,
		}, logger)
		urlsHandler.RegisterRoutes(api)

		visitsHandler := visits.NewHandler(db, recorder)
		visitsHandler.RegisterRoutes(api)

		tagsHandler := tags.NewHandler(db)
		tagsHandler.RegisterRoutes(api)

		adminHandler := admin.NewHandler(db, adminStore, logger)
		adminGroup := api.Group("/admin")
		adminGroup.Use(auth.AuthMiddleware(), auth.RequireAdmin())
		adminHandler.RegisterRoutes(adminGroup)
	}

	// Redirect routes (public, must be registered LAST to avoid conflicts)
	redirectHandler := redirect.NewHandler(resolver)
	redirectHandler.RegisterRoutes(r)

	addr := cfg.ServerAddress()
	logger.Infof("Starting shortener server on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}

type blockSweeper interface {
	SweepExpiredBlocks(now time.Time) ([]string, error)
}

// startBlockSweeper runs the bulk expired-block sweep on an interval. The
// redirect path clears expired blocks lazily as well; both writers set the
// same values, so the two paths converge.
func startBlockSweeper(sweeper blockSweeper, every time.Duration, logger *logrus.Logger) {
	if every <= 0 {
		every = 10 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for now := range ticker.C {
			if _, err := sweeper.SweepExpiredBlocks(now); err != nil {
				logger.WithError(err).Error("block sweep failed")
			}
		}
	}()
}

// ensureAdminExists creates a default admin user if no admin exists in the
// database
func ensureAdminExists(db *gorm.DB, logger *logrus.Logger) error {
	var count int64
	if err := db.Model(&models.User{}).Where("system_role = ?", models.SystemRoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hashedPassword, err := auth.HashPassword("changeme")
	if err != nil {
		return err
	}

	adminUser := models.User{
		Email:        "admin@shortener.local",
		Name:         "Admin",
		PasswordHash: hashedPassword,
		SystemRole:   models.SystemRoleAdmin,
	}
	if err := db.Create(&adminUser).Error; err != nil {
		return err
	}

	logger.Info("Created default admin user: admin@shortener.local (password: changeme)")
	return nil
}
