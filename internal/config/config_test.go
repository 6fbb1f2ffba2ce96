package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/wheberth/cppthreadpool/internal/logger"
	"github.com/wheberth/cppthreadpool/internal/pool"
)

func intPtr(v int) *int { return &v }

func TestLoadFileYAML(t *testing.T) {
	content := `
pool:
  threads: 4
  policy: hard-stop
  metric_samples: 200
driver:
  jobs: 32
  max_sleep: 100ms
monitor:
  enabled: true
  addr: ":9090"
log:
  level: debug
`
	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(tmpFile, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}

	cfg, err := LoadFile(tmpFile)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Pool.Threads == nil || *cfg.Pool.Threads != 4 {
		t.Errorf("expected threads 4, got %v", cfg.Pool.Threads)
	}
	if cfg.Pool.Policy != "hard-stop" {
		t.Errorf("expected policy 'hard-stop', got '%s'", cfg.Pool.Policy)
	}
	if cfg.Driver.Jobs != 32 {
		t.Errorf("expected 32 jobs, got %d", cfg.Driver.Jobs)
	}
	if !cfg.Monitor.Enabled {
		t.Error("expected monitor to be enabled")
	}
}

func TestLoadFileJSON(t *testing.T) {
	content := `{
  "pool": {
    "threads": 0,
    "policy": "drain"
  },
  "driver": {
    "jobs": 8
  }
}`
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(tmpFile, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}

	cfg, err := LoadFile(tmpFile)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Pool.Threads == nil || *cfg.Pool.Threads != 0 {
		t.Errorf("expected explicit threads 0, got %v", cfg.Pool.Threads)
	}
	if cfg.Monitor.Enabled {
		t.Error("expected monitor to be disabled")
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := LoadFile("/nonexistent/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoadFileUnsupportedFormat(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.txt")
	if err := os.WriteFile(tmpFile, []byte("test"), 0644); err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}

	_, err := LoadFile(tmpFile)
	if err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestLoadFileInvalidYAML(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(tmpFile, []byte("pool: [unclosed"), 0644); err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}

	_, err := LoadFile(tmpFile)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestToSettings(t *testing.T) {
	cfg := &FileConfig{
		Pool: PoolConfig{
			Threads:       intPtr(2),
			Policy:        "hard-stop",
			MetricSamples: 50,
		},
		Driver: DriverConfig{
			Jobs:     10,
			MaxSleep: "20ms",
		},
		Monitor: MonitorConfig{
			Enabled: true,
			Addr:    ":8081",
		},
		Log: LogConfig{Level: "warn"},
	}

	s, err := cfg.ToSettings()
	if err != nil {
		t.Fatalf("failed to convert config: %v", err)
	}

	if s.Threads != 2 {
		t.Errorf("expected 2 threads, got %d", s.Threads)
	}
	if s.Policy != pool.PolicyHardStop {
		t.Errorf("expected hard-stop, got %s", s.Policy)
	}
	if s.MetricSamples != 50 {
		t.Errorf("expected 50 metric samples, got %d", s.MetricSamples)
	}
	if s.Jobs != 10 {
		t.Errorf("expected 10 jobs, got %d", s.Jobs)
	}
	if s.MaxSleep != 20*time.Millisecond {
		t.Errorf("expected 20ms, got %v", s.MaxSleep)
	}
	if s.MonitorAddr != ":8081" {
		t.Errorf("expected :8081, got %s", s.MonitorAddr)
	}
	if s.LogLevel != logger.LevelWarn {
		t.Errorf("expected WARN, got %s", s.LogLevel)
	}
}

func TestToSettingsDefaults(t *testing.T) {
	cfg := &FileConfig{}

	s, err := cfg.ToSettings()
	if err != nil {
		t.Fatalf("failed to convert config: %v", err)
	}

	if s != DefaultSettings() {
		t.Errorf("expected defaults, got %+v", s)
	}
}

func TestToSettingsZeroThreads(t *testing.T) {
	cfg := &FileConfig{Pool: PoolConfig{Threads: intPtr(0)}}

	s, err := cfg.ToSettings()
	if err != nil {
		t.Fatalf("failed to convert config: %v", err)
	}
	if s.Threads != 0 {
		t.Errorf("expected explicit 0 threads to be kept, got %d", s.Threads)
	}
}

func TestToSettingsInvalidDuration(t *testing.T) {
	cfg := &FileConfig{
		Driver: DriverConfig{MaxSleep: "invalid"},
	}

	_, err := cfg.ToSettings()
	if err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		config   FileConfig
		hasError bool
	}{
		{
			name:     "valid config",
			config:   FileConfig{},
			hasError: false,
		},
		{
			name: "zero threads",
			config: FileConfig{
				Pool: PoolConfig{Threads: intPtr(0)},
			},
			hasError: false,
		},
		{
			name: "negative threads",
			config: FileConfig{
				Pool: PoolConfig{Threads: intPtr(-1)},
			},
			hasError: true,
		},
		{
			name: "unknown policy",
			config: FileConfig{
				Pool: PoolConfig{Policy: "later"},
			},
			hasError: true,
		},
		{
			name: "negative metric samples",
			config: FileConfig{
				Pool: PoolConfig{MetricSamples: -1},
			},
			hasError: true,
		},
		{
			name: "negative jobs",
			config: FileConfig{
				Driver: DriverConfig{Jobs: -1},
			},
			hasError: true,
		},
		{
			name: "monitor without address",
			config: FileConfig{
				Monitor: MonitorConfig{Enabled: true},
			},
			hasError: true,
		},
		{
			name: "unknown log level",
			config: FileConfig{
				Log: LogConfig{Level: "verbose"},
			},
			hasError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.hasError && err == nil {
				t.Error("expected validation error")
			}
			if !tt.hasError && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}
