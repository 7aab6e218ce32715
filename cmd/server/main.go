package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	h "github.com/gorilla/handlers"
	"github.com/pressly/goose/v3"
	"github.com/rescuedev/rescue-api/internal/alerts"
	"github.com/rescuedev/rescue-api/internal/alerttype"
	"github.com/rescuedev/rescue-api/internal/config"
	"github.com/rescuedev/rescue-api/internal/handlers"
	"github.com/rescuedev/rescue-api/internal/identity"
	"github.com/rescuedev/rescue-api/internal/ingest"
	"github.com/rescuedev/rescue-api/internal/middleware"
	"github.com/rescuedev/rescue-api/internal/migration"
	"github.com/rescuedev/rescue-api/internal/notification"
	"github.com/rescuedev/rescue-api/internal/observability/metrics"
	"github.com/rescuedev/rescue-api/internal/repository"
	"github.com/rescuedev/rescue-api/internal/routes"
	"github.com/rescuedev/rescue-api/internal/token"
	"github.com/rescuedev/rescue-api/internal/worker"
	"github.com/rs/zerolog"

	_ "github.com/lib/pq" // PostgreSQL driver
)

type application struct {
	config     *config.Config
	db         *sql.DB
	mqttClient mqtt.Client
	logger     zerolog.Logger
}

func main() {
	// Set up structured, level-based logging.
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	logger := zerolog.New(consoleWriter).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.SetFlags(0)
	log.SetOutput(logger)

	gooseAdapter := migration.NewGooseAdapter(logger)
	goose.SetLogger(gooseAdapter)

	// Load configuration.
	cfg := config.Load()

	// Initialize database connection.
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to the database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ping database")
	}

	// Run database migrations.
	migration.RunMigrations(cfg.DatabaseURL, logger)

	// Register Prometheus collectors.
	metrics.Init()

	// Connect to the MQTT broker when topic fan-out is configured.
	var mqttClient mqtt.Client
	if cfg.MQTT.BrokerURL != "" {
		mqttClient, err = notification.ConnectBroker(cfg.MQTT.BrokerURL, cfg.MQTT.ClientID,
			cfg.MQTT.Username, cfg.MQTT.Password)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to MQTT broker")
		}
		defer mqttClient.Disconnect(250)
		logger.Info().Str("broker", cfg.MQTT.BrokerURL).Msg("Connected to MQTT broker")
	} else {
		logger.Info().Msg("MQTT broker not configured, device-topic publishing disabled")
	}

	// Create the application instance.
	app := &application{
		config:     cfg,
		db:         db,
		mqttClient: mqttClient,
		logger:     logger,
	}

	// Initialize the HTTP router and middleware.
	router, cleanupWorker := app.initRouter(logger)
	loggedRouter := middleware.LoggingMiddleware(app.logger)(router)
	corsHandler := h.CORS(
		h.AllowedOrigins(cfg.AllowedOrigins),
		h.AllowedMethods([]string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}),
		h.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		h.AllowCredentials(),
	)(loggedRouter)

	// Start the session cleanup worker.
	if err := cleanupWorker.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start cleanup worker")
	}

	// Start the HTTP server and handle graceful shutdown.
	app.startServer(corsHandler, cleanupWorker, logger)

	logger.Info().Msg("Application terminated.")
}

// initRouter sets up all HTTP handlers and returns the router together
// with the background cleanup worker.
func (app *application) initRouter(logger zerolog.Logger) (http.Handler, *worker.CleanupWorker) {
	// Repositories
	companyRepo := repository.NewCompanyRepository(app.db)
	hardwareRepo := repository.NewHardwareRepository(app.db)
	userRepo := repository.NewUserRepository(app.db)
	alertTypeRepo := repository.NewAlertTypeRepository(app.db)
	alertRepo := repository.NewAlertRepository(app.db)
	sessionRepo := repository.NewSessionRepository(app.db)

	// Core services
	verifier := identity.NewVerifier(companyRepo, hardwareRepo)
	tokens := token.NewService(app.config.JWTSecret, app.config.HardwareAuth.TokenTTL, sessionRepo, logger)
	typeResolver := alerttype.NewResolver(alertTypeRepo)
	targetResolver := notification.NewTargetResolver(userRepo, hardwareRepo)
	lifecycle := alerts.NewService(alertRepo, companyRepo, logger)
	notifiers := []notification.Notifier{notification.NewTopicNotifier(true, logger)}
	if app.mqttClient != nil {
		notifiers = append(notifiers, notification.NewMQTTNotifier(app.mqttClient,
			byte(app.config.MQTT.QoS), app.config.MQTT.PublishTimeout, logger))
	}
	dispatcher := notification.NewDispatcher(logger, notifiers...)
	orchestrator := ingest.NewOrchestrator(tokens, typeResolver, targetResolver, lifecycle,
		hardwareRepo, companyRepo, dispatcher, logger)

	// Handlers
	authHandler := handlers.NewAuthHandler(userRepo, app.config.JWTSecret, logger)
	hardwareAuthHandler := handlers.NewHardwareAuthHandler(verifier, tokens, hardwareRepo,
		app.config.HardwareAuth.SessionRetention, app.config.HardwareAuth.StaleAfter, logger)
	alertHandler := handlers.NewAlertHandler(orchestrator, lifecycle, typeResolver,
		targetResolver, companyRepo, logger)

	cleanupWorker := worker.NewCleanupWorker(tokens, app.config.HardwareAuth.CleanupSchedule,
		app.config.HardwareAuth.SessionRetention, logger)

	return routes.NewRouter(authHandler, hardwareAuthHandler, alertHandler), cleanupWorker
}

// startServer launches the HTTP server and handles graceful shutdown.
func (app *application) startServer(handler http.Handler, cleanupWorker *worker.CleanupWorker, logger zerolog.Logger) {
	server := &http.Server{
		Addr:    ":" + app.config.ServerPort,
		Handler: handler,
	}

	// Channel to listen for server errors
	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// Wait for an interrupt signal or a server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info().Msgf("Received signal: %s. Shutting down...", sig)
	case err := <-serverErrCh:
		logger.Error().Err(err).Msg("Server error occurred")
	}

	// Gracefully shut down the HTTP server.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		logger.Info().Msg("HTTP server shutdown complete.")
	}

	// Stop the cleanup worker.
	cleanupWorker.Stop()
}
