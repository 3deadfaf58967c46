// Relay Core - Device State & Access Control Engine
//
// This is the main entry point for the Relay Core application. Relay Core
// drives a bank of relay channels behind an authenticated HTTP API:
//   - Channel-keyed binary devices mirrored onto active-low relay outputs
//   - Role-based access control with per-user device allowlists
//   - Physical button sampling, voice assistant bridge, MQTT and InfluxDB
//     integrations
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	_ "github.com/nerrad567/relaycore/migrations"

	"github.com/nerrad567/relaycore/internal/api"
	"github.com/nerrad567/relaycore/internal/auth"
	"github.com/nerrad567/relaycore/internal/core"
	"github.com/nerrad567/relaycore/internal/device"
	"github.com/nerrad567/relaycore/internal/hardware"
	"github.com/nerrad567/relaycore/internal/infrastructure/config"
	"github.com/nerrad567/relaycore/internal/infrastructure/database"
	"github.com/nerrad567/relaycore/internal/infrastructure/influxdb"
	"github.com/nerrad567/relaycore/internal/infrastructure/logging"
	"github.com/nerrad567/relaycore/internal/infrastructure/mqtt"
	"github.com/nerrad567/relaycore/internal/poller"
	"github.com/nerrad567/relaycore/internal/storage"
	"github.com/nerrad567/relaycore/internal/voice"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// sessionSweepInterval is how often expired sessions are reaped. Expiry is
// also checked lazily on every lookup, so this only bounds memory growth.
const sessionSweepInterval = 5 * time.Minute

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Relay Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

	// Open database and run migrations
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

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	blobs := storage.NewSQLite(db.DB)

	// Pin driver. Only the simulated driver exists today; real GPIO slots in
	// behind the same interface.
	pins := hardware.NewMemory()

	// Credential store and sessions
	users := auth.NewStore(blobs, log)
	if err := users.Load(ctx); err != nil {
		return fmt.Errorf("loading users: %w", err)
	}
	log.Info("credential store loaded", "users", users.Count())

	sessions := auth.NewSessions()
	go sweepSessions(ctx, sessions, log)

	// Device registry
	registry := device.NewRegistry(blobs, pins, log)
	if err := registry.Load(ctx); err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}
	if err := registry.SetupPins(); err != nil {
		return fmt.Errorf("configuring pins: %w", err)
	}
	log.Info("device registry initialised", "devices", registry.Count())

	gate := auth.NewGate(sessions, users)
	service := core.New(users, sessions, gate, registry, log)

	// Voice assistant bridge (optional)
	var bridge *voice.Bridge
	if cfg.Voice.Enabled {
		bridge = voice.NewBridge(registry, log)
		log.Info("voice bridge enabled")
	}

	// Physical button sampling (optional)
	if cfg.Poller.Enabled {
		p := poller.New(registry, pins, cfg.PollInterval(), log)
		go func() {
			if runErr := p.Run(ctx); runErr != nil && !errors.Is(runErr, context.Canceled) {
				log.Error("input poller stopped", "error", runErr)
			}
		}()
		log.Info("input poller started", "interval", cfg.PollInterval())
	}

	// MQTT bridge (optional)
	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)

		if bridgeErr := startMQTTBridge(ctx, mqttClient, registry, byte(cfg.MQTT.QoS), log); bridgeErr != nil {
			return fmt.Errorf("starting MQTT bridge: %w", bridgeErr)
		}
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	}

	// InfluxDB state history (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
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

		registry.Subscribe(func(change device.StateChange) {
			influxClient.WriteStateChange(change.Channel, change.Name, change.State, change.Timestamp)
		})
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	// HTTP API and WebSocket hub
	server, err := api.New(api.Deps{
		Config:   cfg.API,
		WS:       cfg.WebSocket,
		Logger:   log,
		Service:  service,
		Registry: registry,
		Voice:    bridge,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("shutting down API server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses RELAYCORE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("RELAYCORE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// sweepSessions reaps expired sessions periodically until ctx is cancelled.
func sweepSessions(ctx context.Context, sessions *auth.Sessions, log *logging.Logger) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.SweepExpired(); n > 0 {
				log.Debug("expired sessions reaped", "count", n)
			}
		}
	}
}

// startMQTTBridge wires the device registry onto the MQTT bus:
// every state change is published retained per channel, and command topics
// accept the same state/toggle payloads as the HTTP API.
//
// MQTT commands bypass the authorisation gate, like the voice bridge: the
// broker lives on the trusted LAN and carries no user identity.
func startMQTTBridge(ctx context.Context, client *mqtt.Client, registry *device.Registry, qos byte, log *logging.Logger) error {
	topics := mqtt.Topics{}

	registry.Subscribe(func(change device.StateChange) {
		payload, err := json.Marshal(change)
		if err != nil {
			return
		}
		if pubErr := client.PublishRetained(topics.DeviceState(change.Channel), payload); pubErr != nil {
			log.Warn("state publish failed", "channel", change.Channel, "error", pubErr)
		}
	})

	return client.Subscribe(topics.AllDeviceCommands(), qos, func(topic string, payload []byte) error {
		channel, ok := commandChannel(topic)
		if !ok {
			log.Warn("unparseable command topic", "topic", topic)
			return nil
		}

		var cmd struct {
			State  *bool `json:"state"`
			Toggle bool  `json:"toggle"`
		}
		if err := json.Unmarshal(payload, &cmd); err != nil {
			log.Warn("invalid command payload", "topic", topic, "error", err)
			return nil
		}

		var command device.Command
		switch {
		case cmd.Toggle:
			command = device.Flip()
		case cmd.State != nil:
			command = device.Explicit(*cmd.State)
		default:
			log.Warn("command payload has neither state nor toggle", "topic", topic)
			return nil
		}

		if _, err := registry.Apply(ctx, channel, command); err != nil {
			log.Warn("MQTT command failed", "channel", channel, "error", err)
		}
		return nil
	})
}

// commandChannel extracts the channel number from a device command topic
// of the form relaycore/device/{channel}/command.
func commandChannel(topic string) (int, bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 {
		return 0, false
	}
	channel, err := strconv.Atoi(parts[2])
	if err != nil || channel < 0 {
		return 0, false
	}
	return channel, true
}
