package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/uptrace/bun"
	"github.com/urfave/cli/v3"

	"github.com/iliyamo/pms-backend/internal/config"
	"github.com/iliyamo/pms-backend/internal/database"
	"github.com/iliyamo/pms-backend/internal/handler"
	"github.com/iliyamo/pms-backend/internal/middleware"
	"github.com/iliyamo/pms-backend/internal/queue"
	"github.com/iliyamo/pms-backend/internal/repository"
	"github.com/iliyamo/pms-backend/internal/router"
	"github.com/iliyamo/pms-backend/internal/service"
	"github.com/iliyamo/pms-backend/internal/token"
	"github.com/iliyamo/pms-backend/internal/utils"
)

type runner struct {
	cfg    config.Config
	logger *log.Logger
}

func (r *runner) load(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return ctx, err
	}
	r.cfg = cfg
	r.logger = config.NewLogger(cfg.Log, os.Stderr)
	return ctx, nil
}

func (r *runner) openDB(ctx context.Context) (*bun.DB, error) {
	db, err := database.Open(r.cfg.Database)
	if err != nil {
		return nil, err
	}
	if r.cfg.Database.AutoMigrate {
		if err := database.CreateSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}

func (r *runner) hasher() (utils.PasswordHasher, error) {
	return utils.NewPasswordHasher(r.cfg.Security.PasswordHasher, r.cfg.Security.BcryptCost)
}

func (r *runner) serve(ctx context.Context, _ *cli.Command) error {
	db, err := r.openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	hasher, err := r.hasher()
	if err != nil {
		return err
	}

	var publisher queue.Publisher = queue.NopPublisher{}
	if r.cfg.AMQP.Enabled {
		p := queue.NewAMQPPublisher(r.cfg.AMQP.URL, r.cfg.AMQP.AuditQueue, r.logger.With("component", "publisher"))
		defer p.Close()
		publisher = p
	}

	tc := r.cfg.Token
	tokens := token.NewService(token.Config{
		SigningKey:                 tc.SigningKey,
		Issuer:                     tc.Issuer,
		Audience:                   tc.Audience,
		ExpirationMinutes:          tc.ExpirationMinutes,
		RefreshTokenExpirationDays: tc.RefreshTokenExpirationDays,
		SlidingRefresh:             tc.SlidingRefresh,
	})

	store := repository.NewStore(db, publisher, r.logger.With("component", "store"))
	handlers := service.New(store, tokens, hasher, r.cfg.Security.PhoneRegion)
	dispatcher, err := service.NewDispatcher(handlers, r.logger.With("component", "dispatch"))
	if err != nil {
		return err
	}

	rdb := config.NewRedisClient(r.cfg.Redis)
	if rdb != nil {
		defer rdb.Close()
	} else if r.cfg.Redis.Enabled {
		r.logger.Warn("redis unreachable, using in-process rate limiting and no response cache", "addr", r.cfg.Redis.Addr)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger(r.logger.With("component", "http")))

	router.Register(e, router.Deps{
		API:       handler.NewAPI(dispatcher, r.cfg.Server.RequestTimeout, r.logger.With("component", "api")),
		Tokens:    tokens,
		DB:        db,
		RateLimit: middleware.NewTokenBucket(r.cfg.RateLimit, rdb, r.logger.With("component", "ratelimit")),
		Cache:     middleware.NewRedisCache(r.cfg.Cache, rdb, r.logger.With("component", "cache")),
		AdminRole: r.cfg.Server.AdminRole,
	})

	addr := ":" + r.cfg.Server.Port
	errc := make(chan error, 1)
	go func() {
		r.logger.Info("listening", "addr", addr, "env", r.cfg.Server.Env, "db", r.cfg.Database.Driver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	r.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func (r *runner) migrate(ctx context.Context, cmd *cli.Command) error {
	db, err := database.Open(r.cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	if cmd.Bool("drop") {
		if err := database.DropSchema(ctx, db); err != nil {
			return fmt.Errorf("drop schema: %w", err)
		}
		r.logger.Info("tables dropped")
	}
	if err := database.CreateSchema(ctx, db); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	r.logger.Info("schema ready")
	return nil
}

func (r *runner) seed(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	hasher, err := r.hasher()
	if err != nil {
		return err
	}
	if err := database.Seed(ctx, db, database.SeedOptions{Reset: cmd.Bool("reset"), Hasher: hasher}); err != nil {
		return err
	}
	r.logger.Info("seed complete", "reset", cmd.Bool("reset"))
	return nil
}

func (r *runner) consume(ctx context.Context, _ *cli.Command) error {
	if !r.cfg.AMQP.Enabled {
		return errors.New("amqp is disabled; set [amqp] enabled = true or AMQP_ENABLED=true")
	}
	c := &queue.AuditConsumer{
		URL:    r.cfg.AMQP.URL,
		Queue:  r.cfg.AMQP.AuditQueue,
		Dir:    r.cfg.AMQP.AuditDir,
		Logger: r.logger.With("component", "audit"),
	}
	return c.Run(ctx)
}
