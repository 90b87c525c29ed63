package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/sbilibin2017/linkbio-auth/internal/events"
	"github.com/sbilibin2017/linkbio-auth/internal/handlers"
	"github.com/sbilibin2017/linkbio-auth/internal/jwt"
	"github.com/sbilibin2017/linkbio-auth/internal/logger"
	"github.com/sbilibin2017/linkbio-auth/internal/metrics"
	"github.com/sbilibin2017/linkbio-auth/internal/middlewares"
	"github.com/sbilibin2017/linkbio-auth/internal/migrations"
	"github.com/sbilibin2017/linkbio-auth/internal/oauth"
	"github.com/sbilibin2017/linkbio-auth/internal/password"
	"github.com/sbilibin2017/linkbio-auth/internal/repositories"
	"github.com/sbilibin2017/linkbio-auth/internal/services"
)

// Build info variables, set via ldflags at build time.
var (
	buildVersion = "N/A" // Version of the service
	buildDate    = "N/A" // Build date
	buildCommit  = "N/A" // Git commit hash
)

// @title linkbio-auth API
// @version 1.0.0
// @description Identity and session service for linkbio: registration, login, logout and social sign-in
// @host localhost:8080
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	printBuildInfo()
	configPath := parseFlags()

	cfg, err := parseConfig(configPath)
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}

	if err := run(context.Background(), cfg); err != nil {
		log.Fatalf("application stopped with error: %v", err)
	}
}

// printBuildInfo prints the build version, commit hash, and build date.
func printBuildInfo() {
	fmt.Printf("Starting service version %s, commit %s, build %s\n", buildVersion, buildCommit, buildDate)
}

// parseFlags parses command-line flags and returns the config file path.
func parseFlags() string {
	c := flag.String("c", "config.env", "Path to configuration file")
	flag.Parse()
	return *c
}

// run initializes the logger and the application, serves HTTP and handles
// graceful shutdown.
func run(ctx context.Context, cfg config) error {
	if err := logger.Initialize(cfg.LogLevel, cfg.LogFormat); err != nil {
		fmt.Println("failed to initialize logger:", err)
		return err
	}
	defer logger.Log.Sync()
	logger.Log.Infof("Logger initialized with level %s", cfg.LogLevel)

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := &http.Server{
		Addr:              cfg.addr(),
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	errChan := make(chan error, 1)
	ctxShutdown, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	go func() {
		logger.Log.Infof("HTTP server listening on %s", cfg.addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()

	select {
	case <-ctxShutdown.Done():
		logger.Log.Info("Shutdown signal received, stopping HTTP server...")
	case serveErr := <-errChan:
		return serveErr
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Errorw("HTTP server shutdown error", "error", err)
	}

	logger.Log.Info("HTTP server stopped gracefully")
	return nil
}

// app is the wired service: storage, auth service and HTTP routes.
type app struct {
	handler http.Handler
	closers []func() error
}

// Close releases storage connections and the event writer in reverse order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Log.Errorw("failed to close resource", "err", err)
		}
	}
}

func newApp(ctx context.Context, cfg config) (*app, error) {
	a := &app{}

	store, sessions, err := a.openStorage(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	hasher, err := password.New(password.WithCost(cfg.BcryptCost), password.WithWorkers(cfg.HashWorkers))
	if err != nil {
		a.Close()
		return nil, err
	}

	tokens := jwt.New(
		jwt.WithSecretKey(cfg.JWTSecretKey),
		jwt.WithExpiration(cfg.SessionTTL),
		jwt.WithCookieName(cfg.SessionCookieName),
	)

	publisher := events.NewPublisher(nil)
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewPublisher(events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic))
		logger.Log.Infow("publishing account events", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}
	a.closers = append(a.closers, publisher.Close)

	m := metrics.New()

	authService := services.NewAuthService(store, hasher, sessions, tokens,
		services.WithEvents(publisher),
		services.WithRecorder(m),
	)

	providers := oauth.NewRegistry()
	for _, c := range cfg.OAuth {
		p, err := oauth.New(ctx, c)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to configure %s sign-in: %w", c.Provider, err)
		}
		providers.Register(p)
	}
	logger.Log.Infow("identity providers configured", "providers", providers.Names())

	a.handler = newRouter(cfg, authService, tokens, providers, m)
	return a, nil
}

// openStorage connects the credential and session stores selected by cfg.Storage.
func (a *app) openStorage(ctx context.Context, cfg config) (services.CredentialStore, services.SessionStore, error) {
	if cfg.Storage == storageMemory {
		logger.Log.Warn("Using in-memory storage, data is lost on restart")
		return repositories.NewMemoryUserRepository(), repositories.NewMemorySessionRepository(), nil
	}

	// Connect to PostgreSQL
	logger.Log.Infow("Connecting to PostgreSQL", "host", cfg.PGHost, "port", cfg.PGPort, "db", cfg.PGDB)
	db, err := sqlx.ConnectContext(ctx, "pgx", cfg.postgresDSN())
	if err != nil {
		return nil, nil, fmt.Errorf("PostgreSQL connection error: %w", err)
	}
	a.closers = append(a.closers, db.Close)
	db.SetMaxOpenConns(cfg.PGMaxOpenConns)
	db.SetMaxIdleConns(cfg.PGMaxIdleConns)

	if err := migrations.Up(ctx, db.DB); err != nil {
		return nil, nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Connect to Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		PoolSize:     cfg.RedisPoolSize,
		MinIdleConns: cfg.RedisMinIdleConns,
	})
	a.closers = append(a.closers, rdb.Close)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, nil, fmt.Errorf("redis connection error: %w", err)
	}

	return repositories.NewUserRepository(db), repositories.NewSessionRepository(rdb), nil
}

// newRouter mounts the public auth routes, the session-protected routes,
// social sign-in, metrics and API docs.
func newRouter(cfg config, svc *services.AuthService, tokens *jwt.JWT, providers *oauth.Registry, m *metrics.Metrics) http.Handler {
	cookie := handlers.SessionCookie{Name: cfg.SessionCookieName, Secure: cfg.SessionCookieSecure}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middlewares.LoggingMiddleware(logger.Log))
	r.Use(middlewares.MetricsMiddleware(m))

	// Public routes
	r.Post("/register", handlers.NewRegisterHandler(svc, cookie))
	r.Post("/login", handlers.NewLoginHandler(svc, cookie))
	r.Post("/logout", handlers.NewLogoutHandler(svc, tokens, cookie))

	r.Get("/oauth/{provider}/login", handlers.NewOAuthLoginHandler(providers, cfg.SessionCookieSecure))
	r.Get("/oauth/{provider}/callback", handlers.NewOAuthCallbackHandler(providers, svc, cookie))

	// Session routes
	r.Group(func(r chi.Router) {
		r.Use(middlewares.AuthMiddleware(tokens, svc))
		r.Get("/me", handlers.NewMeHandler())
	})

	r.Handle("/metrics", m.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("http://%s/swagger/doc.json", cfg.addr())),
	))

	return r
}
