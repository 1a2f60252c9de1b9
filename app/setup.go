package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/sahilchouksey/learnhub-api/api"
	"github.com/sahilchouksey/learnhub-api/config"
	"github.com/sahilchouksey/learnhub-api/database"
	"github.com/sahilchouksey/learnhub-api/router"
	"github.com/sahilchouksey/learnhub-api/services"
	"github.com/sahilchouksey/learnhub-api/services/cron"
	"github.com/sahilchouksey/learnhub-api/services/discount"
	"github.com/sahilchouksey/learnhub-api/services/events"
	"github.com/sahilchouksey/learnhub-api/services/storage"
	"github.com/sahilchouksey/learnhub-api/utils/auth"
	"github.com/sahilchouksey/learnhub-api/utils/cache"
	"github.com/sahilchouksey/learnhub-api/utils/logger"
	"github.com/sahilchouksey/learnhub-api/utils/middleware"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const shutdownTimeout = 10 * time.Second

func SetupAndRunServer() error {
	// Load ENV
	if err := config.LoadENV(); err != nil {
		return err
	}

	env, err := config.Get()
	if err != nil {
		return err
	}

	log, err := logger.New(env.GO_ENV)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync()

	// Initialize GORM database connection
	store, err := database.StartGORM(env, log)
	if err != nil {
		log.Error("check whether Postgres is running", "host", env.DB_HOST, "port", env.DB_PORT)
		return err
	}
	defer store.Close()

	if err := store.Init(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	db := store.DB()

	if env.ADMIN_EMAIL != "" && env.ADMIN_PASSWORD != "" {
		if err := database.NewSeeder(db, log).SeedAdminUser(context.Background(), env.ADMIN_EMAIL, env.ADMIN_PASSWORD); err != nil {
			log.Warn("failed to seed admin user", "error", err)
		}
	}

	// Redis is optional: it backs the outline cache, login lockouts and the redis change feed
	var redisCache *cache.RedisCache
	if env.REDIS_URL != "" {
		redisCache, err = cache.NewRedisCache(env.REDIS_URL)
		if err != nil {
			log.Warn("redis unavailable, caching and brute force protection disabled", "error", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	hub := events.NewHub()
	notifier, err := changeFeed(ctx, g, env, db, redisCache, hub, log)
	if err != nil {
		return err
	}

	objects := objectStore(env, log)

	var outlineCache services.OutlineCache
	var bruteForce *middleware.BruteForceProtection
	if redisCache != nil {
		outlineCache = redisCache
		bruteForce = middleware.NewBruteForceProtection(redisCache)
	}

	courses := services.NewCourseService(db, log, services.CourseServiceOptions{
		Cache:    outlineCache,
		CacheTTL: env.COURSE_CACHE_TTL,
		Notifier: notifier,
		Store:    objects,
	})
	certificates := services.NewCertificateService(db, courses, objects, env.CERT_FONT_PATH, log)
	promos := discount.NewPromoService(db, notifier, log)
	notifications := services.NewNotificationService(db, notifier, log)
	blacklist := auth.NewBlacklistService(db)

	deps := router.Dependencies{
		Env:        env,
		Log:        log,
		Store:      store,
		JWT:        jwtManager(env),
		Blacklist:  blacklist,
		BruteForce: bruteForce,
		Hub:        hub,
		Notifier:   notifier,

		Users:         services.NewUserService(db, notifier, log),
		Courses:       courses,
		Progress:      services.NewProgressService(db, courses, log),
		Certificates:  certificates,
		Products:      services.NewProductService(db, notifier, log),
		Orders:        services.NewOrderService(db, promos, notifier, log),
		Notifications: notifications,
		Presets:       discount.NewPresetService(db, notifier, log),
		Promos:        promos,
	}

	// Scheduled jobs
	if env.CRON_ENABLED {
		cronManager := cron.NewCronManager(db, log, cron.Jobs{
			Promos:        promos,
			Timers:        services.NewTimerService(db, notifier, log),
			Unlocks:       notifications,
			Tokens:        blacklist,
			Notifications: notifications,
		}, cron.Schedules{
			PromoSweep:          env.PROMO_SWEEP_SCHEDULE,
			TimerSweep:          env.TIMER_SWEEP_SCHEDULE,
			UnlockNotify:        env.UNLOCK_NOTIFY_SCHEDULE,
			TokenCleanup:        env.TOKEN_CLEANUP_SCHEDULE,
			NotificationCleanup: env.NOTIF_CLEANUP_SCHEDULE,
		})
		if err := cronManager.Start(); err != nil {
			return fmt.Errorf("failed to start cron jobs: %w", err)
		}
		defer cronManager.Stop()
	}

	// Init API
	server := api.NewAPIServer(fmt.Sprintf(":%d", env.PORT), log)
	router.SetupRoutes(server.GetEngine(), deps)

	g.Go(server.Run)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("server stopped")
	return nil
}

func jwtManager(env *config.EnviornmentVariable) *auth.JWTManager {
	return auth.NewJWTManager(auth.JWTConfig{
		Secret:        env.JWT_SECRET,
		Expiry:        env.JWT_EXPIRY,
		RefreshExpiry: env.JWT_REFRESH_EXPIRY,
		Issuer:        env.JWT_ISSUER,
	})
}

// changeFeed picks the Notifier services publish to and starts the relay that
// feeds the local hub, so SSE subscribers see changes from every instance
func changeFeed(ctx context.Context, g *errgroup.Group, env *config.EnviornmentVariable, db *gorm.DB, redisCache *cache.RedisCache, hub *events.Hub, log *logger.Logger) (events.Notifier, error) {
	switch env.CHANGE_FEED {
	case "redis":
		if redisCache == nil {
			return nil, errors.New("CHANGE_FEED=redis needs a reachable REDIS_URL")
		}
		relay := events.NewRedisRelay(redisCache.GetClient(), "", hub, log)
		g.Go(func() error { return relay.Run(ctx) })
		return events.NewRedisNotifier(redisCache.GetClient(), ""), nil
	case "postgres":
		listener := events.NewPGListener(env.DSN(), "", hub, log)
		g.Go(func() error { return listener.Run(ctx) })
		return events.NewPGNotifier(db, ""), nil
	default:
		return hub, nil
	}
}

// objectStore returns the S3 compatible store, or a store that refuses uploads when unconfigured
func objectStore(env *config.EnviornmentVariable, log *logger.Logger) storage.Store {
	if env.SPACES_BUCKET == "" || env.SPACES_ACCESS_KEY == "" {
		log.Warn("object storage not configured, handout uploads and certificates are disabled")
		return storage.Unconfigured{}
	}
	s3, err := storage.NewS3Store(storage.Config{
		AccessKey: env.SPACES_ACCESS_KEY,
		SecretKey: env.SPACES_SECRET_KEY,
		Bucket:    env.SPACES_BUCKET,
		Region:    env.SPACES_REGION,
		Endpoint:  env.SPACES_ENDPOINT,
	})
	if err != nil {
		log.Warn("failed to create object store", "error", err)
		return storage.Unconfigured{}
	}
	return s3
}
