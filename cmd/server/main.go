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

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/sudo-init-do/carhub/internal/admin"
	"github.com/sudo-init-do/carhub/internal/alerts"
	"github.com/sudo-init-do/carhub/internal/apperr"
	"github.com/sudo-init-do/carhub/internal/auth"
	"github.com/sudo-init-do/carhub/internal/config"
	"github.com/sudo-init-do/carhub/internal/db"
	"github.com/sudo-init-do/carhub/internal/favorites"
	"github.com/sudo-init-do/carhub/internal/listing"
	"github.com/sudo-init-do/carhub/internal/marketplace"
	"github.com/sudo-init-do/carhub/internal/messaging"
	"github.com/sudo-init-do/carhub/internal/metrics"
	mware "github.com/sudo-init-do/carhub/internal/middleware"
	"github.com/sudo-init-do/carhub/internal/store"
	"github.com/sudo-init-do/carhub/internal/user"
	"github.com/sudo-init-do/carhub/internal/utils"
)

func main() {
	cfg := config.Load()
	if err := run(cfg); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// openStore picks the backing store. Postgres is the default; the memory
// store is for local runs and loses everything on exit.
func openStore(cfg *config.Config) (store.Store, func()) {
	if cfg.StoreDriver == "memory" {
		log.Println("[db] using in-memory store")
		return store.NewMemory(), func() {}
	}
	db.Init(cfg.DatabaseURL)
	return store.NewPostgres(db.Conn), db.Close
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore := openStore(cfg)
	defer closeStore()

	// Notifications go through asynq only when a worker will drain them
	var (
		notify alerts.Notifier = alerts.Nop{}
		worker *alerts.Worker
	)
	if cfg.AlertsEnabled {
		redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
		enq := alerts.NewEnqueuer(redisOpt, cfg.AppURL)
		defer enq.Close()
		notify = enq
		worker = alerts.NewWorker(redisOpt, alerts.NewMailer(cfg.SMTP))
	}

	secret := []byte(cfg.JWTSecret)

	users := user.NewService(st, notify)
	listings := listing.NewService(st, listing.NewDiskImages(cfg.StaticDir))
	favs := favorites.NewService(st)
	market := marketplace.NewService(st, notify)
	msgs := messaging.NewService(st, notify, messaging.HubPusher{})

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if apperr.KindOf(err) != 0 {
			if !c.Response().Committed {
				_ = utils.Fail(c, err)
			}
			return
		}
		e.DefaultHTTPErrorHandler(err, c)
	}

	// Basic middleware
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.Recover())
	e.Use(middleware.Logger())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: cfg.CORSAllowOrigins}))

	// Health and readiness
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/ready", func(c echo.Context) error {
		pingCtx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := st.Ping(pingCtx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "not_ready", "error": "db unreachable"})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
	})
	e.GET("/metrics", metrics.Handler())
	e.Static("/uploads", cfg.StaticDir+"/uploads")

	// Auth routes with per-IP rate limiting to protect signup/login from abuse
	authGroup := e.Group("/auth")
	authGroup.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(20)))

	// Protected routes
	api := mware.Protected(e, mware.JWTMiddleware(secret))

	auth.NewHandler(users, secret, cfg.JWTTTL, cfg.AdminBootstrapSecret).Register(authGroup, api)
	user.NewHandler(users, user.NewPages(users, listings, market)).Register(api)
	listing.NewHandler(listings, favs).Register(api)
	favorites.NewHandler(favs, listings.Images()).Register(api)
	marketplace.NewHandler(market).Register(api)
	messaging.NewHandler(msgs).Register(api)

	// Admin routes
	adminGroup := e.Group("/admin")
	adminGroup.Use(mware.JWTMiddleware(secret))
	adminGroup.Use(mware.AdminGuard(st))
	admin.NewHandler(st, users, listings, market).Register(adminGroup)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("listening on :%s (store=%s, alerts=%t)", cfg.Port, cfg.StoreDriver, cfg.AlertsEnabled)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	if worker != nil {
		g.Go(func() error { return worker.Run(gctx) })
	}
	return g.Wait()
}
