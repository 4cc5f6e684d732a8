package config

import (
	"os"
	"strings"

	"codeberg.org/mutker/printwatch/internal/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	DefaultLogLevel = "info"

	defaultInterval       = 5
	defaultFetchTimeout   = 5
	defaultSourceURL      = "http://localhost:5000/api/v1/printer/status"
	defaultDatabase       = "printer_data.db"
	defaultStatusFile     = "status.json"
	defaultAlertsLog      = "alerts.log"
	defaultHistoryLimit   = 200
	defaultHistoryMinutes = 10
)

type Config struct {
	Interval       int    `mapstructure:"interval"`
	SourceURL      string `mapstructure:"source_url"`
	FetchTimeout   int    `mapstructure:"fetch_timeout"`
	Database       string `mapstructure:"database"`
	StatusFile     string `mapstructure:"status_file"`
	AlertsLog      string `mapstructure:"alerts_log"`
	HistoryLimit   int    `mapstructure:"history_limit"`
	HistoryMinutes int    `mapstructure:"history_minutes"`
	LogLevel       string `mapstructure:"log_level"`
}

func Load() (*Config, error) {
	errFactory := errors.New()
	v := viper.New()

	v.SetDefault("interval", defaultInterval)
	v.SetDefault("source_url", defaultSourceURL)
	v.SetDefault("fetch_timeout", defaultFetchTimeout)
	v.SetDefault("database", defaultDatabase)
	v.SetDefault("status_file", defaultStatusFile)
	v.SetDefault("alerts_log", defaultAlertsLog)
	v.SetDefault("history_limit", defaultHistoryLimit)
	v.SetDefault("history_minutes", defaultHistoryMinutes)
	v.SetDefault("log_level", DefaultLogLevel)

	flags := pflag.NewFlagSet("printwatch", pflag.ContinueOnError)
	// Tolerate foreign flags (e.g. the test binary's -test.* flags)
	flags.ParseErrorsWhitelist.UnknownFlags = true
	flags.Int("interval", defaultInterval, "Seconds between polling cycles")
	flags.String("source-url", defaultSourceURL, "Telemetry source status endpoint")
	flags.Int("fetch-timeout", defaultFetchTimeout, "Seconds before a fetch is abandoned")
	flags.String("database", defaultDatabase, "Path to the reading history database")
	flags.String("status-file", defaultStatusFile, "Path to the status snapshot file")
	flags.String("alerts-log", defaultAlertsLog, "Path to the append-only alerts log")
	flags.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return nil, errFactory.Wrap(errors.ErrBindFlags, err)
	}

	// Config file: explicit path via env, otherwise the usual locations
	if path := os.Getenv("PRINTWATCH_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("printwatch")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, errFactory.WithMessage(errors.ErrReadConfig, "Failed to read config file").
				WithData(err.Error())
		}
	}

	// Flags set on the command line win over file values
	flags.Visit(func(f *pflag.Flag) {
		v.Set(strings.ReplaceAll(f.Name, "-", "_"), f.Value.String())
	})

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.Interval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Interval)
	}
	if c.FetchTimeout <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "fetch_timeout must be positive").
			WithData(c.FetchTimeout)
	}
	if c.SourceURL == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "source_url must not be empty")
	}
	if c.Database == "" || c.StatusFile == "" || c.AlertsLog == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "output paths must not be empty")
	}
	if c.HistoryLimit <= 0 || c.HistoryMinutes <= 0 {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "history bounds must be positive")
	}
	if !isValidLogLevel(c.LogLevel) {
		return errFactory.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	return nil
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warning", "error":
		return true
	default:
		return false
	}
}
