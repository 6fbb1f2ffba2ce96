package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wheberth/cppthreadpool/internal/logger"
	"github.com/wheberth/cppthreadpool/internal/pool"

	"gopkg.in/yaml.v3"
)

// FileConfig は設定ファイルの構造
type FileConfig struct {
	Pool    PoolConfig    `yaml:"pool" json:"pool"`
	Driver  DriverConfig  `yaml:"driver" json:"driver"`
	Monitor MonitorConfig `yaml:"monitor" json:"monitor"`
	Log     LogConfig     `yaml:"log" json:"log"`
}

// PoolConfig はプール設定
type PoolConfig struct {
	Threads       *int   `yaml:"threads" json:"threads"`
	Policy        string `yaml:"policy" json:"policy"`
	MetricSamples int    `yaml:"metric_samples" json:"metric_samples"`
}

// DriverConfig はサンプルドライバの設定
type DriverConfig struct {
	Jobs     int    `yaml:"jobs" json:"jobs"`
	MaxSleep string `yaml:"max_sleep" json:"max_sleep"`
}

// MonitorConfig はモニタサーバーの設定
type MonitorConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr"`
}

// LogConfig はログ設定
type LogConfig struct {
	Level string `yaml:"level" json:"level"`
}

// Settings は解決済みの実行設定
type Settings struct {
	Threads       int
	Policy        pool.Policy
	MetricSamples int
	Jobs          int
	MaxSleep      time.Duration
	MonitorAddr   string // 空ならモニタ無効
	LogLevel      logger.Level
}

// DefaultSettings はデフォルト設定を返す
func DefaultSettings() Settings {
	return Settings{
		Threads:  8,
		Policy:   pool.PolicyDrain,
		Jobs:     16,
		MaxSleep: 512 * time.Millisecond,
		LogLevel: logger.LevelInfo,
	}
}

// LoadFile は設定ファイルを読み込む
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config FileConfig
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}

	return &config, nil
}

// Validate は設定を検証する
func (f *FileConfig) Validate() error {
	if f.Pool.Threads != nil && *f.Pool.Threads < 0 {
		return fmt.Errorf("pool.threads must be non-negative")
	}
	if _, err := pool.ParsePolicy(f.Pool.Policy); err != nil {
		return fmt.Errorf("pool.policy: %w", err)
	}
	if f.Pool.MetricSamples < 0 {
		return fmt.Errorf("pool.metric_samples must be non-negative")
	}
	if f.Driver.Jobs < 0 {
		return fmt.Errorf("driver.jobs must be non-negative")
	}
	if f.Monitor.Enabled && f.Monitor.Addr == "" {
		return fmt.Errorf("monitor.addr is required when monitor is enabled")
	}
	if _, err := logger.ParseLevel(f.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// ToSettings はFileConfigを実行設定に変換する
// 未指定の項目はデフォルト値のまま残る
func (f *FileConfig) ToSettings() (Settings, error) {
	s := DefaultSettings()

	// threads は 0 も有効な値なので未指定と区別する
	if f.Pool.Threads != nil {
		s.Threads = *f.Pool.Threads
	}
	if f.Pool.Policy != "" {
		policy, err := pool.ParsePolicy(f.Pool.Policy)
		if err != nil {
			return s, err
		}
		s.Policy = policy
	}
	if f.Pool.MetricSamples > 0 {
		s.MetricSamples = f.Pool.MetricSamples
	}

	if f.Driver.Jobs > 0 {
		s.Jobs = f.Driver.Jobs
	}
	if f.Driver.MaxSleep != "" {
		d, err := time.ParseDuration(f.Driver.MaxSleep)
		if err != nil {
			return s, fmt.Errorf("invalid driver.max_sleep: %w", err)
		}
		s.MaxSleep = d
	}

	if f.Monitor.Enabled {
		s.MonitorAddr = f.Monitor.Addr
	}

	if f.Log.Level != "" {
		level, err := logger.ParseLevel(f.Log.Level)
		if err != nil {
			return s, err
		}
		s.LogLevel = level
	}

	return s, nil
}
