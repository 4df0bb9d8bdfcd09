package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chepyr/study-planner/internal/auth"
	"github.com/chepyr/study-planner/internal/cache"
	"github.com/chepyr/study-planner/internal/config"
	"github.com/chepyr/study-planner/internal/db"
	"github.com/chepyr/study-planner/internal/handlers"
	"github.com/chepyr/study-planner/internal/planner"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	} else {
		log.WithField("level", cfg.LogLevel).Warn("unknown log level, using info")
	}

	store := initDB(cfg, log)
	defer store.Close()

	leaderboard, closeRedis := initCache(cfg, log)
	defer closeRedis()

	handler := initHandlers(cfg, store, leaderboard, log)
	defer handler.RateLimiter.Stop()

	server := initServer(cfg, handler)
	startServer(server, log)
}

func initDB(cfg *config.Config, log *logrus.Logger) *db.Store {
	dbConn, err := db.Connect(cfg.DBDriver, cfg.DSN)
	if err != nil {
		log.WithError(err).WithField("driver", cfg.DBDriver).Fatal("failed to connect to database")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.Migrate(ctx, dbConn); err != nil {
		log.WithError(err).Fatal("failed to migrate database")
	}
	return db.NewStore(dbConn)
}

// initCache connects to redis when REDIS_ADDR is set. Without it the
// leaderboard is read from the database on every request.
func initCache(cfg *config.Config, log *logrus.Logger) (planner.LeaderboardCache, func()) {
	if cfg.RedisAddr == "" {
		return nil, func() {}
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.WithError(err).WithField("addr", cfg.RedisAddr).Warn("redis unavailable, leaderboard cache disabled")
		client.Close()
		return nil, func() {}
	}
	return cache.NewLeaderboard(client, "planner:", cache.DefaultTTL), func() { client.Close() }
}

func initHandlers(cfg *config.Config, store *db.Store, leaderboard planner.LeaderboardCache, log *logrus.Logger) *handlers.Handler {
	hub := handlers.NewWSHub(cfg.AllowedOrigins, log)
	return &handlers.Handler{
		Planner: planner.NewService(planner.Deps{
			Tasks:    store.Tasks,
			Users:    store.Users,
			Tx:       store,
			Notifier: hub,
			Cache:    leaderboard,
			Log:      log,
		}),
		UserRepo:       store.Users,
		Tokens:         auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL),
		RateLimiter:    handlers.NewRateLimiter(5, time.Minute),
		WSHub:          hub,
		AllowedOrigins: cfg.AllowedOrigins,
		Log:            log,
	}
}

func initServer(cfg *config.Config, handler *handlers.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           handler.CORS(handler.Routes()),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func startServer(server *http.Server, log *logrus.Logger) {
	log.WithField("addr", server.Addr).Info("starting planner server")

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Error("server shutdown failed")
		return
	}
	log.Info("server stopped")
}
