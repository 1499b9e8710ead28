package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"storefront/internal/logger"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	AppName                string `envconfig:"APP_NAME" default:"storefront"`
	APIBaseURL             string `envconfig:"API_BASE_URL" default:"http://localhost:8080/api"`
	LogLevel               string `envconfig:"LOG_LEVEL" default:"info"`
	PrefsFile              string `envconfig:"PREFS_FILE"`
	RemoteLogHttpURI       string `envconfig:"REMOTE_LOG_HTTP_URI"`
	RemoteTraceRpcURI      string `envconfig:"REMOTE_TRACE_RPC_URI"`
	RemoteTraceInsecure    bool   `envconfig:"REMOTE_TRACE_INSECURE" default:"true"`
	TraceStdout            bool   `envconfig:"TRACE_STDOUT" default:"false"`
	RemoteProfilingHttpURI string `envconfig:"REMOTE_PROFILING_HTTP_URI"`
}

// LogValue lists the settings that are safe to log. The remote log endpoint is
// left out and credentials in the API URL are masked.
func (c *Config) LogValue() slog.Value {
	api := c.APIBaseURL
	if u, err := url.Parse(api); err == nil {
		api = u.Redacted()
	}
	return slog.GroupValue(
		slog.String("app_name", c.AppName),
		slog.String("api_base_url", api),
		slog.String("log_level", c.LogLevel),
		slog.String("prefs_file", c.PrefsFile),
		slog.String("remote_trace_rpc_uri", c.RemoteTraceRpcURI),
		slog.Bool("trace_stdout", c.TraceStdout),
		slog.String("remote_profiling_http_uri", c.RemoteProfilingHttpURI),
	)
}

var (
	configInstance *Config
	configOnce     sync.Once
)

// Load reads an optional .env file and binds the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	u, err := url.Parse(cfg.APIBaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API_BASE_URL %q: %w", cfg.APIBaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid API_BASE_URL %q: scheme must be http or https", cfg.APIBaseURL)
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")

	if cfg.PrefsFile == "" {
		cfg.PrefsFile = defaultPrefsFile(cfg.AppName)
	}

	return &cfg, nil
}

func defaultPrefsFile(appName string) string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, appName, "prefs.yaml")
}

func Instance() *Config {
	configOnce.Do(func() {
		log := logger.Instance()

		cfg, err := Load()
		if err != nil {
			log.Error("Invalid configuration", logger.Err(err))
			os.Exit(1)
		}
		configInstance = cfg

		if cfg.RemoteLogHttpURI == "" {
			log.Debug("Missing REMOTE_LOG_HTTP_URI will skip sending log")
		}
		if cfg.RemoteTraceRpcURI == "" {
			log.Debug("Missing REMOTE_TRACE_RPC_URI will skip sending trace")
		}
		if cfg.RemoteProfilingHttpURI == "" {
			log.Debug("Missing REMOTE_PROFILING_HTTP_URI will skip sending profiling")
		}

		log.Debug("Configuration loaded", slog.Any("data", cfg))
	})

	return configInstance
}
