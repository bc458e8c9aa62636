// Barlinq Core - Device Control & Routing Engine
//
// This is the main entry point for the Barlinq Core application.
// Barlinq drives a room of displays over HDMI-CEC and infrared:
//   - Transport arbitration with automatic CEC/IR fallback
//   - Per-brand timing profiles for display quirks
//   - IR code learning from physical remotes
//   - Crosspoint matrix routing of video sources
//
// Control requests arrive over MQTT; results, display states, matrix
// routes, and hub reachability are published back to the bus.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/barlinq/barlinq-core/migrations"

	"github.com/barlinq/barlinq-core/internal/brand"
	"github.com/barlinq/barlinq-core/internal/bridge"
	"github.com/barlinq/barlinq-core/internal/cecbus"
	"github.com/barlinq/barlinq-core/internal/control"
	"github.com/barlinq/barlinq-core/internal/device"
	"github.com/barlinq/barlinq-core/internal/infrastructure/config"
	"github.com/barlinq/barlinq-core/internal/infrastructure/database"
	"github.com/barlinq/barlinq-core/internal/infrastructure/influxdb"
	"github.com/barlinq/barlinq-core/internal/infrastructure/logging"
	"github.com/barlinq/barlinq-core/internal/infrastructure/mqtt"
	"github.com/barlinq/barlinq-core/internal/irhub"
	"github.com/barlinq/barlinq-core/internal/learning"
	"github.com/barlinq/barlinq-core/internal/matrix"
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

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for
// testability. Returning an error allows main to handle exit codes
// consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Barlinq Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
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

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Load brand timing profiles (built-ins plus any stored overrides)
	brandStore := brand.NewStore()
	if loadErr := brandStore.Load(ctx, db.DB); loadErr != nil {
		return fmt.Errorf("loading brand profiles: %w", loadErr)
	}
	log.Info("brand profiles loaded", "brands", len(brandStore.Brands()))

	// Initialise device registry
	deviceRepo := device.NewSQLiteRepository(db.DB)
	deviceRegistry := device.NewRegistry(deviceRepo)
	deviceRegistry.SetLogger(log)

	if refreshErr := deviceRegistry.RefreshCache(ctx); refreshErr != nil {
		return fmt.Errorf("loading device registry: %w", refreshErr)
	}
	devices, err := deviceRegistry.ListDevices(ctx)
	if err != nil {
		return fmt.Errorf("listing devices: %w", err)
	}
	log.Info("device registry initialised", "devices", len(devices))

	// Matrix client and router. The client dials lazily, so an
	// unreachable switcher surfaces on the first route, not at boot.
	matrixClient := matrix.NewClient(matrix.ClientConfig{
		Address:        fmt.Sprintf("%s:%d", cfg.Matrix.Host, cfg.Matrix.Port),
		CommandTimeout: cfg.Matrix.Timeout(),
	})
	defer func() {
		if closeErr := matrixClient.Close(); closeErr != nil {
			log.Error("error closing matrix client", "error", closeErr)
		}
	}()

	router := matrix.NewRouter(matrix.RouterOptions{
		Switcher: matrixClient,
		Inputs:   cfg.Matrix.Inputs,
		Outputs:  cfg.Matrix.Outputs,
		Store:    matrix.NewSQLiteRouteStore(db.DB),
		Logger:   log,
	})
	if loadErr := router.LoadRoutes(ctx); loadErr != nil {
		return fmt.Errorf("loading matrix routes: %w", loadErr)
	}
	log.Info("matrix router initialised",
		"inputs", len(cfg.Matrix.Inputs),
		"outputs", len(cfg.Matrix.Outputs),
		"routes", len(router.Routes()),
	)

	// CEC gateway. A dead gateway degrades to IR-only control rather
	// than blocking startup; the arbiter reports per-command failures.
	var cecClient *cecbus.Client
	cecClient, err = cecbus.Connect(ctx, cecbus.Config{
		Connection:     cfg.CEC.Connection,
		ConnectTimeout: time.Duration(cfg.CEC.ConnectTimeout) * time.Second,
		CommandTimeout: time.Duration(cfg.CEC.CommandTimeout) * time.Second,
	})
	if err != nil {
		log.Warn("CEC gateway unavailable, running IR-only", "error", err)
		cecClient = nil
	} else {
		cecClient.SetLogger(log)
		defer func() {
			log.Info("closing CEC gateway connection")
			if closeErr := cecClient.Close(); closeErr != nil {
				log.Error("error closing CEC gateway", "error", closeErr)
			}
		}()
		log.Info("CEC gateway connected", "connection", cfg.CEC.Connection)
	}

	// IR hub registry
	hubRepo := irhub.NewSQLiteRepository(db.DB)
	hubRegistry := irhub.NewRegistry(hubRepo, irhub.WithLogger(log))
	if loadErr := hubRegistry.Load(ctx); loadErr != nil {
		return fmt.Errorf("loading IR hubs: %w", loadErr)
	}
	defer func() {
		log.Info("closing IR hub connections")
		hubRegistry.Close()
	}()
	log.Info("IR hub registry initialised", "hubs", len(hubRegistry.List()))

	// Learned IR code store
	learnStore := learning.NewStore(db.DB)

	// Transport adapters
	var adapters []control.Adapter
	if cecClient != nil {
		adapters = append(adapters, control.NewCECAdapter(cecClient, router, brandStore))
	}
	adapters = append(adapters, control.NewIRAdapter(hubRegistry, learnStore))

	// Connect to InfluxDB (optional)
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
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Command history and recorders
	history := control.NewHistory(cfg.Control.HistorySize)
	recorders := []control.Recorder{history}
	if influxClient != nil {
		recorders = append(recorders, &influxRecorder{client: influxClient})
	}

	// Command arbiter and batch dispatcher
	arbiter := control.NewArbiter(control.ArbiterOptions{
		Devices:        deviceRegistry,
		Brands:         brandStore,
		Adapters:       adapters,
		AttemptTimeout: cfg.Control.Timeout(),
		Logger:         log,
		Recorders:      recorders,
	})
	dispatcher := control.NewDispatcher(control.DispatcherOptions{
		Arbiter: arbiter,
		Delay:   cfg.Control.BatchDelayDuration(),
		Logger:  log,
	})

	// IR learning workflow
	workflow := learning.NewWorkflow(learning.WorkflowOptions{
		Store:         learnStore,
		Devices:       deviceRegistry,
		Hubs:          hubRegistry,
		Tester:        arbiter,
		CaptureWindow: cfg.Control.LearnTimeoutDuration(),
		Logger:        log,
	})

	// MQTT and the command bridge
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		commandBridge, bridgeErr := bridge.New(bridge.Options{
			Bus:        mqttClient,
			Arbiter:    arbiter,
			Dispatcher: dispatcher,
			Router:     router,
			Devices:    deviceRegistry,
			Learner:    workflow,
			Hubs:       hubRegistry,
			QoS:        byte(cfg.MQTT.QoS),
			Logger:     log,
		})
		if bridgeErr != nil {
			return fmt.Errorf("creating command bridge: %w", bridgeErr)
		}
		if startErr := commandBridge.Start(ctx); startErr != nil {
			return fmt.Errorf("starting command bridge: %w", startErr)
		}
		defer func() {
			log.Info("stopping command bridge")
			commandBridge.Stop()
		}()
	} else {
		log.Info("MQTT disabled, no command surface will be available")
	}

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// bridge, MQTT, InfluxDB, hub registry, CEC, matrix, database.

	log.Info("Barlinq Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses BARLINQ_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("BARLINQ_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// mqttClient and influxClient may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// influxRecorder adapts the InfluxDB client to the control engine's
// Recorder interface so every definitive dispatch lands in the
// time-series store.
type influxRecorder struct {
	client *influxdb.Client
}

// Record implements control.Recorder.
func (r *influxRecorder) Record(result control.Result) {
	r.client.WriteCommandResult(
		result.DeviceID,
		string(result.Command),
		string(result.Transport),
		result.Success,
		result.FallbackUsed,
		result.Duration,
	)
}
