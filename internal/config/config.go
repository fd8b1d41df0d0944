package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from flags, files and
// environment variables.
type Config struct {
	AppName        string        `mapstructure:"app_name"`
	Env            string        `mapstructure:"app_env"`
	LogLevel       string        `mapstructure:"log_level"`
	RequestsFile   string        `mapstructure:"requests_file"`
	PublishersFile string        `mapstructure:"publishers_file"`
	UserAgent      string        `mapstructure:"user_agent"`
	TimeoutSeconds int64         `mapstructure:"timeout_seconds"`
	Timeout        time.Duration `mapstructure:"-"`

	History int `mapstructure:"history"`

	RepeatIntervalSeconds int64         `mapstructure:"repeat_interval_seconds"`
	RepeatInterval        time.Duration `mapstructure:"-"`

	JournalType            string        `mapstructure:"journal_type"`
	JournalPath            string        `mapstructure:"journal_path"`
	JournalTTLSeconds      int64         `mapstructure:"journal_ttl_seconds"`
	JournalCleanupSeconds  int64         `mapstructure:"journal_cleanup_interval_seconds"`
	JournalTTL             time.Duration `mapstructure:"-"`
	JournalCleanupInterval time.Duration `mapstructure:"-"`
}

// Load reads configuration from command-line args, environment variables and
// configs/.env. Flags take precedence over the environment.
func Load(args []string) (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "naivehttp")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("requests_file", "./configs/requests.yaml")
	v.SetDefault("publishers_file", "")
	v.SetDefault("user_agent", "naivehttp/1.0")
	v.SetDefault("timeout_seconds", 30)
	v.SetDefault("repeat_interval_seconds", 0)
	v.SetDefault("history", 0)
	v.SetDefault("journal_type", "bbolt")
	v.SetDefault("journal_path", "./data/journal.db")
	v.SetDefault("journal_ttl_seconds", int64((7*24*time.Hour)/time.Second))
	v.SetDefault("journal_cleanup_interval_seconds", int64((6*time.Hour)/time.Second))

	v.AutomaticEnv()

	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}
	for flagName, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(flagName)); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", flagName, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.RequestsFile) == "" {
		return nil, fmt.Errorf("requests_file is required")
	}
	if cfg.TimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid timeout_seconds (must be positive seconds)")
	}
	cfg.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second

	if cfg.History < 0 {
		return nil, fmt.Errorf("invalid history (must be zero or positive)")
	}

	if cfg.RepeatIntervalSeconds < 0 {
		return nil, fmt.Errorf("invalid repeat_interval_seconds (must be zero or positive seconds)")
	}
	cfg.RepeatInterval = time.Duration(cfg.RepeatIntervalSeconds) * time.Second

	if cfg.JournalTTLSeconds <= 0 {
		return nil, fmt.Errorf("invalid journal_ttl_seconds (must be positive seconds)")
	}
	if cfg.JournalCleanupSeconds <= 0 {
		return nil, fmt.Errorf("invalid journal_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.JournalTTL = time.Duration(cfg.JournalTTLSeconds) * time.Second
	cfg.JournalCleanupInterval = time.Duration(cfg.JournalCleanupSeconds) * time.Second

	return &cfg, nil
}

// flagKeys maps command-line flags to config keys.
var flagKeys = map[string]string{
	"requests":   "requests_file",
	"publishers": "publishers_file",
	"log-level":  "log_level",
	"timeout":    "timeout_seconds",
	"repeat":     "repeat_interval_seconds",
	"journal":    "journal_type",
	"history":    "history",
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("naivehttp", pflag.ContinueOnError)
	fs.String("requests", "", "path to the request plan file (YAML or JSON)")
	fs.String("publishers", "", "path to the report publishers file (YAML or JSON)")
	fs.String("log-level", "", "log level: debug, info, warn, error")
	fs.Int64("timeout", 0, "per-exchange timeout in seconds")
	fs.Int64("repeat", 0, "repeat the plan every N seconds (0 runs once)")
	fs.String("journal", "", "exchange journal backend: bbolt or none")
	fs.Int("history", 0, "print the N most recent journal entries and exit")
	return fs
}
