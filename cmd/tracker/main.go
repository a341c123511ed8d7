// Tracker backend - identity-aware GPS device tracking service.
//
// The service exposes a REST API for users, roles, scopes, and devices,
// a WebSocket live feed of location fixes, and an optional MQTT ingest
// path for devices publishing fixes with their API key. SQLite is the
// system of record; InfluxDB optionally keeps location history.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/IcarusCoding/tracker-backend/migrations"

	"github.com/IcarusCoding/tracker-backend/internal/api"
	"github.com/IcarusCoding/tracker-backend/internal/iam"
	"github.com/IcarusCoding/tracker-backend/internal/infrastructure/config"
	"github.com/IcarusCoding/tracker-backend/internal/infrastructure/database"
	"github.com/IcarusCoding/tracker-backend/internal/infrastructure/logging"
	"github.com/IcarusCoding/tracker-backend/internal/infrastructure/mqtt"
	"github.com/IcarusCoding/tracker-backend/internal/infrastructure/tsdb"
	"github.com/IcarusCoding/tracker-backend/internal/ingest"
	"github.com/IcarusCoding/tracker-backend/internal/tracker"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting tracker backend",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

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

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database migrations complete")

	identityStore := iam.NewStore(db.DB)
	trackerStore := tracker.NewStore(db.DB)
	identity := iam.NewService(
		identityStore,
		[]byte(cfg.Security.JWT.SignKey),
		cfg.AccessTokenTTL(),
		cfg.RefreshTokenTTL(),
	)
	registry := iam.NewScopeRegistry()

	// Connect location history recorder (optional)
	var recorder *tsdb.Recorder
	if cfg.InfluxDB.Enabled {
		recorder, err = tsdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		recorder.SetLogger(log)
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := recorder.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("location history recording disabled")
	}

	deps := api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Logger:   log,
		Identity: identity,
		Tracker:  trackerStore,
		Scopes:   registry,
		Version:  version,
	}
	if recorder != nil {
		deps.Recorder = recorder
	}
	srv, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	// Routes are mounted, so the registry now holds every gate's scope;
	// seed the admin identity with all of them.
	if err := iam.Bootstrap(ctx, identityStore, registry,
		cfg.Bootstrap.AdminUsername, cfg.Bootstrap.AdminPassword, log); err != nil {
		return fmt.Errorf("bootstrapping identity: %w", err)
	}

	// Connect MQTT ingest (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		mqttClient.SetLogger(log)
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Host, cfg.MQTT.Port),
			"client_id", cfg.MQTT.ClientID,
		)

		var ingestRecorder ingest.Recorder
		if recorder != nil {
			ingestRecorder = recorder
		}
		svc := ingest.New(trackerStore, srv.Hub(), ingestRecorder, log)
		// #nosec G115 -- QoS is validated to 0..2 by config
		if err := svc.Start(mqttClient, cfg.MQTT.Topic, byte(cfg.MQTT.QoS)); err != nil {
			return fmt.Errorf("starting location ingest: %w", err)
		}
	} else {
		log.Info("MQTT ingest disabled")
	}

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := srv.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, db, mqttClient, recorder); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses TRACKER_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("TRACKER_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// The MQTT client and recorder may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, recorder *tsdb.Recorder) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if recorder != nil {
		if err := recorder.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
