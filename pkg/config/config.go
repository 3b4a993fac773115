// Package config loads distdash settings from flags, environment variables,
// dotenv files and an optional config file.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/salahayoub/distdash/pkg/backend"
	"github.com/salahayoub/distdash/pkg/logging"
)

// EnvPrefix prefixes every environment variable, e.g. DISTDASH_BACKEND_URL.
const EnvPrefix = "distdash"

// Keys as they appear in config files and, upper-cased, in the environment.
const (
	KeyConfig           = "config"
	KeyBackendURL       = "backend_url"
	KeyRequestTimeout   = "request_timeout"
	KeySimulateSync     = "simulate_sync"
	KeyHistoryPath      = "history_path"
	KeyHTTPAddr         = "http_addr"
	KeyGRPCAddr         = "grpc_addr"
	KeyLogLevel         = "log_level"
	KeyLogFile          = "log_file"
	KeyDemoAddr         = "demo_addr"
	KeyReplicationDelay = "replication_delay"
)

// Config holds every setting of the dashboard and the demo backend.
type Config struct {
	BackendURL       string
	RequestTimeout   time.Duration
	SimulateSync     bool
	HistoryPath      string // bbolt journal; empty disables it
	HTTPAddr         string // control server
	GRPCAddr         string // health service; empty disables it
	LogLevel         string
	LogFile          string // TUI diagnostics
	DemoAddr         string
	ReplicationDelay time.Duration
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		BackendURL:     backend.DefaultBaseURL,
		RequestTimeout: backend.DefaultTimeout,
		SimulateSync:   true,
		HTTPAddr:       ":8080",
		LogLevel:       "info",
		LogFile:        "distdash.log",
		DemoAddr:       ":8000",
	}
}

// flagNames maps config keys to their command-line flags.
var flagNames = map[string]string{
	KeyConfig:           "config",
	KeyBackendURL:       "backend-url",
	KeyRequestTimeout:   "request-timeout",
	KeySimulateSync:     "simulate-sync",
	KeyHistoryPath:      "history-path",
	KeyHTTPAddr:         "http-addr",
	KeyGRPCAddr:         "grpc-addr",
	KeyLogLevel:         "log-level",
	KeyLogFile:          "log-file",
	KeyDemoAddr:         "demo-addr",
	KeyReplicationDelay: "replication-delay",
}

// SetupFlags adds the persistent flags shared by every command.
func SetupFlags(cmd *cobra.Command) {
	d := Default()
	fs := cmd.PersistentFlags()
	fs.String("config", "", "Config file (yaml, toml or json)")
	fs.String("backend-url", d.BackendURL, "Base URL of the distributed database API")
	fs.Duration("request-timeout", d.RequestTimeout, "Timeout of each backend request")
	fs.Bool("simulate-sync", d.SimulateSync, "Animate the destination node while replicating")
	fs.String("history-path", d.HistoryPath, "bbolt file that journals operations (disabled when empty)")
	fs.String("http-addr", d.HTTPAddr, "Listen address of the control server")
	fs.String("grpc-addr", d.GRPCAddr, "Listen address of the gRPC health service (disabled when empty)")
	fs.String("log-level", d.LogLevel, "Log level (debug, info, warn, error)")
	fs.String("log-file", d.LogFile, "File that receives diagnostics while the TUI owns the terminal")
	fs.String("demo-addr", d.DemoAddr, "Listen address of the demo backend")
	fs.Duration("replication-delay", d.ReplicationDelay, "Pause of the demo backend before the after-snapshot")
}

// Init prepares v with defaults, environment lookup and the given dotenv
// files. Missing dotenv files are ignored.
func Init(v *viper.Viper, envFiles ...string) {
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}

	d := Default()
	v.SetDefault(KeyBackendURL, d.BackendURL)
	v.SetDefault(KeyRequestTimeout, d.RequestTimeout)
	v.SetDefault(KeySimulateSync, d.SimulateSync)
	v.SetDefault(KeyHistoryPath, d.HistoryPath)
	v.SetDefault(KeyHTTPAddr, d.HTTPAddr)
	v.SetDefault(KeyGRPCAddr, d.GRPCAddr)
	v.SetDefault(KeyLogLevel, d.LogLevel)
	v.SetDefault(KeyLogFile, d.LogFile)
	v.SetDefault(KeyDemoAddr, d.DemoAddr)
	v.SetDefault(KeyReplicationDelay, d.ReplicationDelay)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
}

// BindFlags binds cmd's flags to their keys in v. A flag only overrides the
// environment and the config file when it was set on the command line.
func BindFlags(v *viper.Viper, cmd *cobra.Command) error {
	flags := cmd.Flags()
	for key, name := range flagNames {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Load reads the optional config file named by the config key and returns
// the merged settings.
func Load(v *viper.Viper) (*Config, error) {
	if path := v.GetString(KeyConfig); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	return &Config{
		BackendURL:       v.GetString(KeyBackendURL),
		RequestTimeout:   v.GetDuration(KeyRequestTimeout),
		SimulateSync:     v.GetBool(KeySimulateSync),
		HistoryPath:      v.GetString(KeyHistoryPath),
		HTTPAddr:         v.GetString(KeyHTTPAddr),
		GRPCAddr:         v.GetString(KeyGRPCAddr),
		LogLevel:         v.GetString(KeyLogLevel),
		LogFile:          v.GetString(KeyLogFile),
		DemoAddr:         v.GetString(KeyDemoAddr),
		ReplicationDelay: v.GetDuration(KeyReplicationDelay),
	}, nil
}

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() error {
	var errs []string

	if c.BackendURL == "" {
		errs = append(errs, "missing required setting: "+KeyBackendURL)
	} else if u, err := url.Parse(c.BackendURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Sprintf("%s must be an http(s) URL, got %q", KeyBackendURL, c.BackendURL))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, KeyRequestTimeout+" must be positive")
	}
	if c.ReplicationDelay < 0 {
		errs = append(errs, KeyReplicationDelay+" must not be negative")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Level returns the parsed log level, falling back to info.
func (c *Config) Level() logging.Level {
	l, _ := logging.ParseLevel(c.LogLevel)
	return l
}
