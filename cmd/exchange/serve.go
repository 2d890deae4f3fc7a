package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/nckexchange/exchange/internal/auth"
	"github.com/nckexchange/exchange/internal/botcheck"
	"github.com/nckexchange/exchange/internal/config"
	"github.com/nckexchange/exchange/internal/db"
	"github.com/nckexchange/exchange/internal/handlers"
	"github.com/nckexchange/exchange/internal/logger"
	"github.com/nckexchange/exchange/internal/mailbox"
	"github.com/nckexchange/exchange/internal/mailer"
	"github.com/nckexchange/exchange/internal/messages"
	"github.com/nckexchange/exchange/internal/schedule"
	"github.com/nckexchange/exchange/internal/server"
	"github.com/nckexchange/exchange/internal/version"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the contact API and the scheduled mailbox importer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			app := fx.New(
				fx.Provide(
					provideConfig(configPath),
					provideLogger,
					provideDBConn,
					provideStore,
					provideVerifier,
					provideSender,
					provideAuthService,
					provideMessagesService,
					provideImporter,
					provideScheduler,

					provideServerHandler(handlers.NewPingHandler),
					provideServerHandler(handlers.NewAuthHandler),
					provideServerHandler(handlers.NewContactHandler),
					provideServerHandler(handlers.NewMessagesHandler),
					provideServerHandler(provideImporterHandler),

					provideServer,
				),
				fx.Invoke(
					startScheduler,
					startServer,
				),
				fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
					return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
				}),
			)
			app.Run()
			return nil
		},
	}
}

func provideConfig(path string) func() (config.Config, error) {
	return func() (config.Config, error) {
		cfg, err := config.Load(path)
		if err != nil {
			return config.Config{}, fmt.Errorf("load config: %w", err)
		}
		return cfg, nil
	}
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideDBConn(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	conn, err := db.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			conn.Close()
			return nil
		},
	})
	return conn, nil
}

func provideStore(conn *pgxpool.Pool) messages.Store {
	return messages.NewPgStore(conn)
}

func provideVerifier(log *slog.Logger, cfg config.Config) botcheck.Verifier {
	return botcheck.NewHTTPVerifier(log, cfg.BotCheck)
}

func provideSender(log *slog.Logger, cfg config.Config) (mailer.Sender, error) {
	switch cfg.Mailer.Provider {
	case "mailgun":
		return mailer.NewMailgunSender(log, cfg.Mailer.Mailgun)
	case "smtp", "":
		return mailer.NewSMTPSender(log, cfg.Mailer.SMTP)
	default:
		return nil, fmt.Errorf("unknown mailer provider: %s", cfg.Mailer.Provider)
	}
}

func provideAuthService(log *slog.Logger, cfg config.Config) (*auth.Service, error) {
	expiresIn, err := time.ParseDuration(cfg.Auth.JWTExpiresIn)
	if err != nil {
		return nil, fmt.Errorf("parse jwt_expires_in: %w", err)
	}
	return auth.NewService(log, cfg.Admin.Username, cfg.Admin.Password, cfg.Auth.JWTSecret, expiresIn)
}

func provideMessagesService(log *slog.Logger, store messages.Store, verifier botcheck.Verifier, sender mailer.Sender, cfg config.Config) *messages.Service {
	return messages.NewService(log, store, verifier, sender, cfg.Mailer.From)
}

func provideImporter(log *slog.Logger, cfg config.Config, store messages.Store) *mailbox.Importer {
	return mailbox.NewImporter(log, cfg.Mailbox, mailbox.IMAPDialer{}, store)
}

func provideScheduler(log *slog.Logger) *schedule.Scheduler {
	return schedule.NewScheduler(log)
}

func provideImporterHandler(log *slog.Logger, importer *mailbox.Importer) *handlers.ImporterHandler {
	return handlers.NewImporterHandler(log, importer)
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

type serverParams struct {
	fx.In

	Logger         *slog.Logger
	Config         config.Config
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, params.Config.Server.Addr, params.Config.Auth.JWTSecret, params.ServerHandlers...)
}

func startScheduler(lc fx.Lifecycle, scheduler *schedule.Scheduler, importer *mailbox.Importer, cfg config.Config) error {
	pattern := cfg.Mailbox.PollPattern
	if pattern == "" {
		pattern = config.DefaultPollPattern
	}
	if err := scheduler.Register(pattern, "mailbox-import", importer); err != nil {
		return err
	}
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			scheduler.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return scheduler.Stop(ctx)
		},
	})
	return nil
}

func startServer(
	lc fx.Lifecycle,
	logger *slog.Logger,
	srv *server.Server,
	shutdowner fx.Shutdowner,
) {
	fmt.Printf("Starting Exchange contact backend %s\n", version.GetInfo())

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go func() {
				if err := srv.Start(); err != nil { // block until server is stopped
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}
