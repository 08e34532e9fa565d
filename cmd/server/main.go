package main // Entry point package

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/iliyamo/restaurant-dashboard/internal/config"
	"github.com/iliyamo/restaurant-dashboard/internal/database"
	"github.com/iliyamo/restaurant-dashboard/internal/handler"
	"github.com/iliyamo/restaurant-dashboard/internal/logging"
	"github.com/iliyamo/restaurant-dashboard/internal/middleware"
	"github.com/iliyamo/restaurant-dashboard/internal/queue"
	"github.com/iliyamo/restaurant-dashboard/internal/repository"
	"github.com/iliyamo/restaurant-dashboard/internal/router"
	"github.com/iliyamo/restaurant-dashboard/internal/service"
	"github.com/iliyamo/restaurant-dashboard/internal/utils"
)

var (
	version = "dev"
	commit  = "none"
)

// CLI flags
var (
	envFile   string
	verbosity int

	tokenSubject string
	tokenTTL     time.Duration

	auditLogPath string
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "dashboard",
		Short:        "Read-only restaurant dashboard",
		Long:         `Serves a summary page, a name/vote search and a map over a MySQL restaurant table, plus a JSON API.`,
		SilenceUsage: true,
		RunE:         serve,
	}
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional .env file loaded before reading the environment")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v debug, -vv trace)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server (default)",
		RunE:  serve,
	})

	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the JSON API",
		RunE:  issueToken,
	}
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "Token subject, e.g. the client name (required)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "Token lifetime (default ACCESS_TOKEN_TTL_MIN minutes)")
	_ = tokenCmd.MarkFlagRequired("subject")
	rootCmd.AddCommand(tokenCmd)

	consumerCmd := &cobra.Command{
		Use:   "audit-consumer",
		Short: "Append search audit events from RabbitMQ to a log file",
		RunE:  runAuditConsumer,
	}
	consumerCmd.Flags().StringVar(&auditLogPath, "out", queue.DefaultAuditLog, "Audit log file")
	rootCmd.AddCommand(consumerCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dashboard %s (commit: %s)\n", version, commit)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads .env and the environment, then sets up logging.
func loadConfig() (config.Config, func(), error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return config.Config{}, nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	closer := logging.Apply(logging.LevelFromVerbosity(verbosity, cfg.LogLevel), cfg.LogFile)
	return cfg, func() { _ = closer.Close() }, nil
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, closeLogs, err := loadConfig()
	if err != nil {
		return err
	}
	defer closeLogs()

	db, dbErr := database.Open(database.Options{
		User:     cfg.DBUser,
		Password: cfg.DBPass,
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		Name:     cfg.DBName,
	})
	if dbErr != nil {
		log.Error().Err(dbErr).Str("host", cfg.DBHost).Str("db", cfg.DBName).
			Msg("Failed to connect to MySQL; serving default results")
	} else {
		log.Info().Str("host", cfg.DBHost).Str("db", cfg.DBName).Msg("Database connected")
		defer func() {
			if err := db.Close(); err != nil {
				log.Warn().Err(err).Msg("Closing database handle failed")
			}
		}()
	}
	status := database.StatusOf(db, dbErr)

	repo := repository.NewRestaurantRepo(db, cfg.DBTable)
	if err := repo.Err(); err != nil {
		log.Error().Err(err).Str("table", cfg.DBTable).Msg("DB_TABLE must be a plain identifier; queries disabled")
		status = database.Status{Error: fmt.Sprintf("%v: %q", err, cfg.DBTable)}
	}

	var auditor service.SearchAuditor
	if pub := queue.NewPublisher(cfg.AMQPURL); pub.Enabled() {
		auditor = pub
		defer func() { _ = pub.Close() }()
		log.Info().Msg("Search audit events enabled")
	}
	dash := service.NewDashboard(repo, auditor)

	e, err := newEcho()
	if err != nil {
		return err
	}

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	h := handler.NewDashboardHandler(dash, cfg.DBTable, status)
	router.RegisterRoutes(e, repo.Ping)
	router.RegisterPages(e, h)
	router.RegisterAPI(e, h, cfg.JWTSecret,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.Port
	log.Info().Str("addr", addr).Str("env", cfg.Env).Str("table", cfg.DBTable).
		Bool("api_auth", cfg.JWTSecret != "").Msg("Listening")

	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func newEcho() (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	r, err := handler.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	e.Renderer = r

	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).Str("uri", v.URI).Int("status", v.Status).
				Dur("latency", v.Latency).Msg("request")
			return nil
		},
	}))
	return e, nil
}

func issueToken(cmd *cobra.Command, args []string) error {
	cfg, closeLogs, err := loadConfig()
	if err != nil {
		return err
	}
	defer closeLogs()

	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set; the API is public and needs no token")
	}
	ttl := tokenTTL
	if ttl <= 0 {
		ttl = time.Duration(cfg.AccessTTLMin) * time.Minute
	}
	tok, err := utils.NewAccessToken(cfg.JWTSecret, tokenSubject, middleware.ScopeRead, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tok.Token)
	log.Info().Str("subject", tokenSubject).Time("expires", tok.Exp).Msg("Token issued")
	return nil
}

func runAuditConsumer(cmd *cobra.Command, args []string) error {
	cfg, closeLogs, err := loadConfig()
	if err != nil {
		return err
	}
	defer closeLogs()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &queue.Consumer{URL: cfg.AMQPURL, LogPath: auditLogPath}
	log.Info().Str("out", auditLogPath).Msg("Audit consumer started")
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
