// Gray Logic Access - building access-control service.
//
// This is the main entry point. It wires the SQLite store, the RS256 token
// service, the optional MQTT and InfluxDB event sinks and the HTTP API, then
// waits for a shutdown signal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/nerrad567/gray-logic-access/migrations"

	"github.com/nerrad567/gray-logic-access/internal/access"
	"github.com/nerrad567/gray-logic-access/internal/api"
	"github.com/nerrad567/gray-logic-access/internal/audit"
	"github.com/nerrad567/gray-logic-access/internal/auth"
	"github.com/nerrad567/gray-logic-access/internal/events"
	"github.com/nerrad567/gray-logic-access/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-access/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-access/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-access/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-access/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-access/internal/location"
	"github.com/nerrad567/gray-logic-access/internal/presence"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const (
	// defaultConfigPath is used when neither -config nor GLACCESS_CONFIG is set.
	defaultConfigPath = "configs/config.yaml"

	// configEnv names the environment variable holding the config path.
	configEnv = "GLACCESS_CONFIG"

	// auditFlushTimeout bounds how long shutdown waits for queued audit entries.
	auditFlushTimeout = 5 * time.Second
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	configPath, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(2)
	}

	if err := run(ctx, configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// parseFlags reads command-line flags. The -config flag wins over
// GLACCESS_CONFIG, which wins over the default path.
func parseFlags(args []string, output io.Writer) (string, error) {
	fs := flag.NewFlagSet("graylogic-access", flag.ContinueOnError)
	fs.SetOutput(output)
	configPath := fs.String("config", "", "path to the YAML configuration file (env "+configEnv+")")
	if err := fs.Parse(args); err != nil {
		return "", err
	}

	if *configPath != "" {
		return *configPath, nil
	}
	if path := os.Getenv(configEnv); path != "" {
		return path, nil
	}
	return defaultConfigPath, nil
}

// run is the application logic, separated from main for testability.
// It returns nil on a clean shutdown.
func run(ctx context.Context, configPath string) error {
	log := logging.Default()
	log.Info("starting Gray Logic Access",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	users := auth.NewUserRepository(db.DB)
	if _, seedErr := auth.SeedAdmin(ctx, users,
		cfg.Security.Bootstrap.AdminEmail, cfg.Security.Bootstrap.AdminPassword, log.Logger); seedErr != nil {
		return fmt.Errorf("seeding admin: %w", seedErr)
	}

	tokens, err := newTokenService(cfg)
	if err != nil {
		return err
	}

	// The hub is an event sink, so it exists before the publishers that feed it.
	hub := api.NewHub(cfg.WebSocket, log)
	go hub.Run(ctx)
	fanout := events.NewFanout(log.Logger, hub)

	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = connectMQTT(cfg.MQTT, log)
		if err != nil {
			return err
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		fanout.Add(events.NewMQTTSink(mqttClient, mqttClient.Topics(), mqttClient.QoS()))
	} else {
		log.Info("MQTT disabled")
	}

	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		fanout.Add(events.NewInfluxSink(influxClient))
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	logs := access.NewLogRepository(db.DB)
	recorder := access.NewRecorder(logs, fanout)

	if mqttClient != nil {
		topics := mqttClient.Topics()
		ingest := access.NewReaderIngest(recorder, topics, log.Logger)
		if subErr := mqttClient.Subscribe(topics.AllReaderEvents(), mqttClient.QoS(), ingest.Handle); subErr != nil {
			return fmt.Errorf("subscribing to reader events: %w", subErr)
		}
		log.Info("listening for door reader events", "topic", topics.AllReaderEvents())
	}

	auditRepo := audit.NewSQLiteRepository(db.DB)
	auditWriter := audit.NewWriter(auditRepo, log.Logger, audit.DefaultBuffer)
	auditWriter.Start(ctx)

	checks := map[string]api.HealthChecker{"database": db}
	deps := api.Deps{
		Config:        cfg.API,
		WS:            cfg.WebSocket,
		Logger:        log,
		Tokens:        tokens,
		Guard:         auth.NewGuard(tokens, users),
		Authenticator: auth.NewAuthenticator(users),
		Users:         users,
		Locations:     location.NewSQLiteRepository(db.DB),
		Roles:         access.NewRoleRepository(db.DB),
		Rules:         access.NewRuleRepository(db.DB),
		Logs:          logs,
		Recorder:      recorder,
		Presence:      presence.NewEngine(db.DB, fanout),
		AuditRepo:     auditRepo,
		Audit:         auditWriter,
		DB:            db.DB,
		Checks:        checks,
		ExternalHub:   hub,
		Version:       version,
	}
	// Assigned only when set so a nil client never becomes a non-nil interface.
	if mqttClient != nil {
		deps.MQTT = mqttClient
		checks["mqtt"] = mqttClient
	}
	if influxClient != nil {
		checks["influxdb"] = influxClient
	}

	if err := healthCheck(ctx, checks); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	server, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error stopping API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	select {
	case <-auditWriter.Done():
	case <-time.After(auditFlushTimeout):
		log.Warn("audit writer did not flush before shutdown")
	}

	log.Info("Gray Logic Access stopped")
	return nil
}

// newTokenService loads the RSA key pair and builds the token service.
func newTokenService(cfg *config.Config) (*auth.TokenService, error) {
	priv, pub, err := auth.LoadKeyPair(cfg.Security.JWT.PrivateKeyPath, cfg.Security.JWT.PublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("loading JWT keys: %w", err)
	}
	tokens, err := auth.NewTokenService(priv, pub, auth.TokenConfig{
		Issuer:     cfg.Security.JWT.Issuer,
		AccessTTL:  cfg.AccessTokenTTL(),
		RefreshTTL: cfg.RefreshTokenTTL(),
	})
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}
	return tokens, nil
}

// connectMQTT connects to the broker and hooks connection logging.
func connectMQTT(cfg config.MQTTConfig, log *logging.Logger) (*mqtt.Client, error) {
	client, err := mqtt.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	client.SetLogger(log)
	client.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.Broker.Host, cfg.Broker.Port),
		"client_id", cfg.Broker.ClientID,
	)
	return client, nil
}

// healthCheck verifies every configured dependency answers before the API
// starts serving. It returns the first failure.
func healthCheck(ctx context.Context, checks map[string]api.HealthChecker) error {
	for _, name := range []string{"database", "mqtt", "influxdb"} {
		check, ok := checks[name]
		if !ok {
			continue
		}
		if err := check.HealthCheck(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
