package influxdb

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/busdecode/internal/infrastructure/config"
)

// testConfig returns a configuration for a local InfluxDB.
func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "busdecode-dev-token",
		Org:           "busdecode",
		Bucket:        "registers",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

// connectOrSkip returns a live client or skips when no server is running.
func connectOrSkip(t *testing.T) *Client {
	t.Helper()
	client, err := Connect(testConfig())
	if err != nil {
		if os.Getenv("RUN_INTEGRATION") != "" {
			t.Fatalf("Connect() error = %v", err)
		}
		t.Skip("InfluxDB not available, skipping integration test")
	}
	return client
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	if _, err := Connect(cfg); !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestClientOptions_Defaults(t *testing.T) {
	tests := []struct {
		name      string
		batch     int
		flush     int
		wantBatch uint
		wantFlush uint
	}{
		{"configured", 100, 2, 100, 2000},
		{"zero uses defaults", 0, 0, defaultBatchSize, defaultFlushInterval * millisecondsPerSecond},
		{"negative uses defaults", -5, -1, defaultBatchSize, defaultFlushInterval * millisecondsPerSecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.BatchSize, cfg.FlushInterval = tt.batch, tt.flush
			opts := clientOptions(cfg)
			if opts.BatchSize() != tt.wantBatch {
				t.Errorf("BatchSize() = %d, want %d", opts.BatchSize(), tt.wantBatch)
			}
			if opts.FlushInterval() != tt.wantFlush {
				t.Errorf("FlushInterval() = %d, want %d", opts.FlushInterval(), tt.wantFlush)
			}
		})
	}
}

func TestSamplePoint(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	p := samplePoint(Sample{
		RunID:        "run-1",
		Address:      "0x40",
		Device:       "VR",
		Register:     "0x8B",
		RegisterName: "READ_VOUT",
		Format:       "L16",
		Units:        "V",
		Value:        5.7001953125,
		Time:         at,
	})

	line := write.PointToLineProtocol(p, time.Nanosecond)
	for _, want := range []string{
		"register_value,",
		"address=0x40",
		"register_name=READ_VOUT",
		"units=V",
		"value=5.7001953125",
	} {
		if !strings.Contains(line, want) {
			t.Errorf("line protocol %q missing %q", line, want)
		}
	}
	if strings.Contains(line, "page=") {
		t.Errorf("empty page tag should be omitted: %q", line)
	}
	if !p.Time().Equal(at) {
		t.Errorf("Time() = %v, want %v", p.Time(), at)
	}
}

func TestSamplePoint_ZeroTime(t *testing.T) {
	before := time.Now()
	p := samplePoint(Sample{Address: "0x40", Value: 1})
	if p.Time().Before(before) {
		t.Errorf("Time() = %v, want now", p.Time())
	}
}

func TestDisconnectedClient(t *testing.T) {
	c := &Client{}

	c.WriteSample(Sample{Address: "0x40", Value: 1})
	c.Flush()
	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestWriteSample_Live(t *testing.T) {
	client := connectOrSkip(t)
	defer client.Close() //nolint:errcheck // Test cleanup

	var (
		mu       sync.Mutex
		writeErr error
	)
	client.SetOnError(func(err error) {
		mu.Lock()
		writeErr = err
		mu.Unlock()
	})

	client.WriteSample(Sample{RunID: "test", Address: "0x40", Register: "0x8B", Value: 5.7})
	client.Flush()

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if writeErr != nil {
		t.Errorf("async write error = %v", writeErr)
	}
}
