// Package main is the entry point for busdecode.
//
// busdecode reads an I2C/SMBus logic-analyzer capture, resolves each
// transaction against the configured devices and their register maps,
// and prints one decoded line per transaction. Results can also be kept
// in a SQLite history, published over MQTT, written to InfluxDB and
// served live by the report API.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/busdecode/internal/api"
	"github.com/nerrad567/busdecode/internal/capture"
	"github.com/nerrad567/busdecode/internal/device"
	"github.com/nerrad567/busdecode/internal/i2c"
	"github.com/nerrad567/busdecode/internal/infrastructure/config"
	"github.com/nerrad567/busdecode/internal/infrastructure/database"
	"github.com/nerrad567/busdecode/internal/infrastructure/influxdb"
	"github.com/nerrad567/busdecode/internal/infrastructure/logging"
	"github.com/nerrad567/busdecode/internal/infrastructure/metrics"
	"github.com/nerrad567/busdecode/internal/infrastructure/mqtt"
	"github.com/nerrad567/busdecode/internal/resolver"
	"github.com/nerrad567/busdecode/internal/sink"
	"github.com/nerrad567/busdecode/internal/store"

	_ "github.com/nerrad567/busdecode/migrations" // registers embedded schema migrations
)

// Build-time variables (set via ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration path.
const defaultConfigPath = "configs/config.yaml"

// stdinInput selects standard input as the capture source.
const stdinInput = "-"

// maxLineSize bounds a single capture line.
const maxLineSize = 1 << 20

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Decoded lines are written to out; log records go where logging.output says.
func run(ctx context.Context, out io.Writer) error {
	log := logging.Default()

	configPath := getConfigPath()
	log.Debug("loading configuration", "path", configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, err = logging.New(cfg.Logging, version)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Close() //nolint:errcheck // Nothing useful to do on exit

	log.Info("busdecode starting",
		"version", version,
		"commit", commit,
		"build_date", date,
		"input", cfg.Decoder.Input,
	)

	registry := device.NewRegistry(cfg.IgnoreList())
	registry.SetLogger(log.With("component", "registry"))
	registry.SetDefaultVerbosity(device.Verbosity(cfg.Decoder.Debug))
	if err := device.LoadDefinitions(registry, definitions(cfg.Devices), cfg.Decoder.DevicesDir); err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}
	log.Info("devices configured", "count", registry.Len(), "ignored", registry.IgnoreList())

	res := resolver.New(registry)
	res.SetLogger(log.With("component", "resolver"))

	counters := metrics.New()
	dispatcher := sink.NewDispatcher()
	dispatcher.SetLogger(log.With("component", "sink"))
	dispatcher.SetFailureRecorder(counters)
	checks := make(map[string]api.HealthChecker)

	// Capture copy (optional)
	var capLog *capture.Log
	if cfg.Decoder.SaveOutput {
		capLog, err = capture.Open(cfg.Decoder.OutputDir, time.Now())
		if err != nil {
			return fmt.Errorf("opening capture log: %w", err)
		}
		defer func() {
			if closeErr := capLog.Close(); closeErr != nil {
				log.Error("error closing capture log", "error", closeErr)
			}
		}()
		log.Info("saving capture lines", "path", capLog.Path())
	}

	// History database (optional)
	var (
		db      *database.DB
		history store.Repository
	)
	if cfg.Database.Enabled {
		db, err = database.Open(database.Config{
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

		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		history = store.NewSQLiteRepository(db.DB)
		dispatcher.Add(sink.NewStoreSink(history))
		checks["database"] = db
		log.Info("database ready", "path", cfg.Database.Path)
	} else {
		log.Info("database disabled")
	}

	// MQTT (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		var connErr error
		mqttClient, connErr = mqtt.Connect(cfg.MQTT)
		if connErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", connErr)
		}
		defer func() {
			log.Info("closing MQTT connection")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		dispatcher.Add(sink.NewMQTTSink(mqttClient))
		checks["mqtt"] = mqttClient
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, connErr := influxdb.Connect(cfg.InfluxDB)
		if connErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", connErr)
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
		dispatcher.Add(sink.NewMetricSink(influxClient))
		checks["influxdb"] = influxClient
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Report API (optional)
	var server *api.Server
	if cfg.API.Enabled {
		deps := api.Deps{
			Config:   cfg.API,
			WS:       cfg.WebSocket,
			Logger:   log.With("component", "api"),
			Registry: registry,
			History:  history,
			Checks:   checks,
			Metrics:  counters.Handler(),
			Version:  version,
		}
		if db != nil {
			deps.Schema = db
		}
		server, err = api.New(deps)
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := server.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
		dispatcher.Add(sink.NewBroadcastSink(server.Hub()))
	} else {
		log.Info("API server disabled")
	}

	if err := healthCheck(ctx, checks); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	in, closeInput, err := openInput(cfg.Decoder.Input)
	if err != nil {
		return err
	}
	defer closeInput()

	runID := uuid.NewString()
	log.Info("decoding", "run_id", runID, "sinks", dispatcher.Len())

	publishRun(mqttClient, log, mqtt.RunStatus{
		RunID: runID,
		State: mqtt.RunStarted,
		Input: cfg.Decoder.Input,
	})

	d := &decoder{
		resolver:   res,
		dispatcher: dispatcher,
		capture:    capLog,
		out:        out,
		logger:     log.With("component", "decoder"),
		metrics:    counters,
		color:      cfg.Decoder.Color,
		runID:      runID,
	}
	tally, err := d.decode(ctx, in)
	if err != nil {
		return err
	}

	log.Info("decode complete",
		"run_id", runID,
		"lines", tally.Lines,
		"results", tally.Results,
		"degraded", conditionSummary(tally.Conditions),
		"sink_failures", dispatcher.Failures(),
	)
	publishRun(mqttClient, log, mqtt.RunStatus{
		RunID:    runID,
		State:    mqtt.RunComplete,
		Input:    cfg.Decoder.Input,
		Lines:    tally.Lines,
		Results:  tally.Results,
		Degraded: conditionSummary(tally.Conditions),
	})

	if server != nil && ctx.Err() == nil {
		log.Info("serving report, waiting for shutdown signal")
		<-ctx.Done()
		log.Info("shutdown signal received, cleaning up")
	}

	log.Info("busdecode stopped")
	return nil
}

// decoder drives one run over a capture stream.
type decoder struct {
	resolver   *resolver.Resolver
	dispatcher *sink.Dispatcher
	capture    *capture.Log
	out        io.Writer
	logger     *logging.Logger
	metrics    *metrics.Metrics
	color      bool
	runID      string
	seq        int64
}

// decode resolves every line of in, printing each result and offering it
// to the sinks. It stops early, without error, when ctx is cancelled.
func (d *decoder) decode(ctx context.Context, in io.Reader) (*resolver.Tally, error) {
	tally := &resolver.Tally{}
	w := bufio.NewWriter(d.out)
	defer w.Flush() //nolint:errcheck // Flushed explicitly on the success path

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize) //nolint:mnd // initial buffer

	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		line := scanner.Text()
		d.metrics.ObserveLine()
		if d.logger != nil {
			d.logger.Debug("capture line", "seq", d.seq, "line", i2c.StripLine(line))
		}

		if d.capture != nil {
			if err := d.capture.Write(line); err != nil {
				return tally, fmt.Errorf("saving capture line: %w", err)
			}
		}

		results := d.resolver.ResolveLine(line)
		for _, r := range results {
			if _, err := fmt.Fprintln(w, r.Render(d.color)); err != nil {
				return tally, fmt.Errorf("writing result: %w", err)
			}
			d.metrics.ObserveResult(string(r.Condition))
			d.seq++
			d.dispatcher.Dispatch(ctx, sink.Record{
				RunID:  d.runID,
				Seq:    d.seq,
				Time:   time.Now().UTC(),
				Result: r,
			})
		}
		tally.Add(results)
	}
	if err := scanner.Err(); err != nil {
		return tally, fmt.Errorf("reading input: %w", err)
	}

	if err := w.Flush(); err != nil {
		return tally, fmt.Errorf("writing result: %w", err)
	}
	return tally, nil
}

// publishRun announces run state on MQTT when a broker is configured.
// A failed publish is logged and never stops the run.
func publishRun(client *mqtt.Client, log *logging.Logger, status mqtt.RunStatus) {
	if client == nil {
		return
	}
	status.Timestamp = time.Now().UTC()
	if err := client.PublishRunStatus(status); err != nil {
		log.Warn("publishing run status failed", "state", status.State, "error", err)
	}
}

// getConfigPath returns the configuration file path.
// Uses BUSDECODE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("BUSDECODE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// openInput opens the capture file, or standard input for "-".
func openInput(path string) (io.Reader, func(), error) {
	if path == stdinInput {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path) //nolint:gosec // Path from operator configuration
	if err != nil {
		return nil, nil, fmt.Errorf("opening input: %w", err)
	}
	return f, func() { f.Close() }, nil //nolint:errcheck // Read-only file
}

// definitions converts configured devices to registry definitions.
func definitions(devs []config.DeviceConfig) []device.Definition {
	defs := make([]device.Definition, 0, len(devs))
	for _, d := range devs {
		defs = append(defs, device.Definition{
			Name:          d.Name,
			Address:       d.Address,
			Description:   d.Description,
			Parser:        d.Parser,
			Verbosity:     device.Verbosity(d.Debug),
			Color:         d.Color,
			CommandLength: d.CmdLength,
		})
	}
	return defs
}

// healthCheck verifies every enabled backend is healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - checks: Enabled backends by name
//
// Returns:
//   - error: Every health check failure joined, or nil if all healthy
func healthCheck(ctx context.Context, checks map[string]api.HealthChecker) error {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		if err := checks[name].HealthCheck(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// conditionSummary flattens degraded counts for logging.
func conditionSummary(counts map[resolver.Condition]int) map[string]int {
	out := make(map[string]int, len(counts))
	for c, n := range counts {
		out[string(c)] = n
	}
	return out
}
