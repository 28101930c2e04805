package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	gconfig "github.com/goliatone/go-config/config"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-iam"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type App struct {
	config *gconfig.Container[*BaseConfig]
	bunDB  *bun.DB
	repo   iam.RepositoryManager
	auther *iam.Auther
	tokens iam.TokenService
	srv    router.Server[*fiber.App]
	logger *glog.BaseLogger
}

func (a *App) Config() *BaseConfig {
	return a.config.Raw()
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Info),
		glog.WithName("iam"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg := gconfig.New(&BaseConfig{}).
		WithLogger(lgr.GetLogger("config"))

	ctx := context.Background()
	if err := cfg.Load(ctx); err != nil {
		panic(err)
	}

	app := &App{
		config: cfg,
		logger: lgr,
	}

	if err := WithPersistence(ctx, app); err != nil {
		panic(err)
	}

	if err := WithAuth(ctx, app); err != nil {
		panic(err)
	}

	if err := WithHTTPServer(ctx, app); err != nil {
		panic(err)
	}

	if err := BootstrapAdmin(ctx, app); err != nil {
		panic(err)
	}

	addr := app.Config().GetServer().GetAddr()
	app.GetLogger("server").Info("listening", "addr", addr)
	app.srv.Serve(addr)

	WaitExitSignal()
}

func WithPersistence(ctx context.Context, app *App) error {
	db, err := sql.Open(sqliteshim.ShimName, app.Config().GetPersistence().GetDSN())
	if err != nil {
		return err
	}

	persistence.RegisterModel((*iam.User)(nil))

	cfg := app.Config().GetPersistence()
	dialect := sqlitedialect.New()
	client, err := persistence.New(cfg, db, dialect)
	if err != nil {
		return err
	}

	client.SetLogger(app.GetLogger("persistence"))

	migrationsFS, err := fs.Sub(iam.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return err
	}
	client.RegisterDialectMigrations(
		migrationsFS,
		persistence.WithDialectSourceLabel("data/sql/migrations"),
		persistence.WithValidationTargets("postgres", "sqlite"),
	)
	if err := client.ValidateDialects(ctx); err != nil {
		return err
	}

	if err := client.Migrate(ctx); err != nil {
		return err
	}

	app.bunDB = client.DB()
	app.repo = iam.NewRepositoryManager(client.DB())

	return app.repo.Validate()
}

func WithAuth(ctx context.Context, app *App) error {
	authCfg := app.Config().GetAuth().AuthConfig()

	tokens := iam.NewTokenService(
		[]byte(authCfg.GetSigningKey()),
		authCfg.GetTokenExpiration(),
		authCfg.GetIssuer(),
		authCfg.GetAudience(),
		app.GetLogger("iam:tokens"),
	)

	auther := iam.NewAuthenticator(app.repo, tokens)
	auther.WithLogger(app.GetLogger("iam:auth"))
	auther.WithActivitySink(activityLogger(app.GetLogger("iam:activity")))

	app.tokens = tokens
	app.auther = auther

	return nil
}

func WithHTTPServer(ctx context.Context, app *App) error {
	authCfg := app.Config().GetAuth().AuthConfig()

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			AppName:       "iam-server",
			StrictRouting: false,
			UnescapePath:  true,
		}))
	})

	srv.Router().WithLogger(app.GetLogger("router"))

	limiter := iam.NewSlidingWindowLimiter(
		authCfg.GetRateLimitRequests(),
		authCfg.GetRateLimitWindow(),
	)

	controller := iam.NewHTTPController(
		app.repo,
		app.auther,
		app.tokens,
		authCfg,
		iam.WithControllerLogger(app.GetLogger("iam:http")),
		iam.WithControllerLimiter(limiter),
	)

	controller.RegisterRoutes(srv.Router())

	app.srv = srv

	return nil
}

// BootstrapAdmin seeds the first admin account when the directory is
// empty, the admin-only create route is unusable otherwise.
func BootstrapAdmin(ctx context.Context, app *App) error {
	_, total, err := app.repo.Users().List(ctx, 1, 0)
	if err != nil {
		return err
	}
	if total > 0 {
		return nil
	}

	seed := app.Config().GetBootstrap()
	if seed.AdminEmail == "" || seed.AdminPassword == "" {
		app.GetLogger("bootstrap").Warn("empty directory and no bootstrap admin configured")
		return nil
	}

	fullName := seed.AdminFullName
	if fullName == "" {
		fullName = "Administrator"
	}

	user, err := app.auther.SignUp(ctx, iam.SignUpMessage{
		Email:    seed.AdminEmail,
		FullName: fullName,
		Password: seed.AdminPassword,
		Role:     iam.RoleAdmin,
	})
	if err != nil {
		return err
	}

	app.GetLogger("bootstrap").Info("seeded admin account", "user_id", user.ID.String(), "email", user.Email)
	return nil
}

func activityLogger(logger glog.Logger) iam.ActivitySinkFunc {
	return func(ctx context.Context, event iam.ActivityEvent) error {
		logger.Info("activity",
			"event", string(event.EventType),
			"actor_id", event.Actor.ID,
			"user_id", event.UserID,
			"metadata", print.MaybePrettyJSON(event.Metadata),
		)
		return nil
	}
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	sig := <-ch
	fmt.Println("shutting down")
	return sig
}
