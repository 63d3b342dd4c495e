package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"
)

const (
	DirName   = ".riskguard"
	FileName  = "config.yaml"
	EnvPrefix = "RISKGUARD"
)

// Refresh modes.
const (
	ModePush   = "push"
	ModePull   = "pull"
	ModeStatic = "static"
)

var Modes = []string{ModePush, ModePull, ModeStatic}

const (
	DefaultLiveURL    = "ws://localhost:8080/ws/websocket"
	DefaultTopic      = "/sonarmetrics/received"
	DefaultRequestURL = "http://localhost:8080/upload"
	DefaultListenAddr = "127.0.0.1:8090"
	DefaultLogLevel   = "info"
)

type Config struct {
	ConfigPath     string `yaml:"-" mapstructure:"-"`
	Mode           string `yaml:"mode" mapstructure:"mode"`
	LiveURL        string `yaml:"live_url" mapstructure:"live_url"`
	Topic          string `yaml:"topic" mapstructure:"topic"`
	RequestURL     string `yaml:"request_url" mapstructure:"request_url"`
	StaticPath     string `yaml:"static_path,omitempty" mapstructure:"static_path"`
	RequestTimeout string `yaml:"request_timeout,omitempty" mapstructure:"request_timeout"`
	ListenAddr     string `yaml:"listen_addr" mapstructure:"listen_addr"`
	Log            Log    `yaml:"log" mapstructure:"log"`
}

type Log struct {
	Level string `yaml:"level" mapstructure:"level"`
	File  string `yaml:"file,omitempty" mapstructure:"file"`
}

// Default returns a push-mode configuration pointing at a local backend.
func Default() Config {
	return Config{
		Mode:       ModePush,
		LiveURL:    DefaultLiveURL,
		Topic:      DefaultTopic,
		RequestURL: DefaultRequestURL,
		ListenAddr: DefaultListenAddr,
		Log:        Log{Level: DefaultLogLevel},
	}
}

// DefaultPath is the config file location for the current directory.
func DefaultPath() (string, error) {
	workingDir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return filepath.Join(workingDir, DirName, FileName), nil
}

// LoadConfig reads the YAML file at path. Every key can be overridden by
// an environment variable, e.g. RISKGUARD_LIVE_URL or RISKGUARD_LOG_LEVEL.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	defaults := Default()
	v.SetDefault("mode", defaults.Mode)
	v.SetDefault("live_url", defaults.LiveURL)
	v.SetDefault("topic", defaults.Topic)
	v.SetDefault("request_url", defaults.RequestURL)
	v.SetDefault("static_path", "")
	v.SetDefault("request_timeout", "")
	v.SetDefault("listen_addr", defaults.ListenAddr)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.file", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	cfg.ConfigPath = path

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) WriteConfig() error {
	if c.ConfigPath == "" {
		return fmt.Errorf("config path is not set")
	}
	if err := os.MkdirAll(filepath.Dir(c.ConfigPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(c.ConfigPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Mode {
	case ModePush:
		if err := checkURL("live_url", c.LiveURL, "ws", "wss"); err != nil {
			return err
		}
		if err := checkURL("request_url", c.RequestURL, "http", "https"); err != nil {
			return err
		}
	case ModePull:
		if err := checkURL("request_url", c.RequestURL, "http", "https"); err != nil {
			return err
		}
	case ModeStatic:
		if c.StaticPath == "" {
			return fmt.Errorf("static_path is required in %s mode", ModeStatic)
		}
	default:
		return fmt.Errorf("unknown mode %q (expected one of %s)", c.Mode, strings.Join(Modes, ", "))
	}

	if _, err := c.Timeout(); err != nil {
		return err
	}
	if c.Log.Level != "" {
		if _, err := log.ParseLevel(c.Log.Level); err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
	}
	return nil
}

// Timeout is the refresh request timeout; zero means no timeout.
func (c *Config) Timeout() (time.Duration, error) {
	if c.RequestTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid request_timeout %q", c.RequestTimeout)
	}
	return d, nil
}

func checkURL(key, raw string, schemes ...string) error {
	if raw == "" {
		return fmt.Errorf("%s is not set in config", key)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	for _, scheme := range schemes {
		if u.Scheme == scheme && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("%s must be a %s url, got %q", key, strings.Join(schemes, "/"), raw)
}
