// Package config loads daemon settings from flags, environment and an
// optional config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CONTACT_SENSOR_BROKER.
const EnvPrefix = "CONTACT_SENSOR"

// Contact sources.
const (
	SourceGPIO = "gpio"
	SourceMQTT = "mqtt"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config holds the daemon settings.
type Config struct {
	Name        string        `mapstructure:"name"`
	Source      string        `mapstructure:"source"`
	Chip        string        `mapstructure:"chip"`
	Pin         int           `mapstructure:"pin"`
	ActiveLow   bool          `mapstructure:"active_low"`
	Poll        time.Duration `mapstructure:"poll"`
	Debounce    time.Duration `mapstructure:"debounce"`
	Heartbeat   time.Duration `mapstructure:"heartbeat"`
	Broker      string        `mapstructure:"broker"`
	ClientID    string        `mapstructure:"client_id"`
	TopicPrefix string        `mapstructure:"topic_prefix"`
	ListenTopic string        `mapstructure:"listen_topic"`
	BufferSize  int           `mapstructure:"buffer_size"`
	HTTP        string        `mapstructure:"http"`
	DB          string        `mapstructure:"db"`
	LogLevel    string        `mapstructure:"log_level"`
	PrintState  bool          `mapstructure:"print_state"`
}

// binding maps a config key to its command line flag.
type binding struct {
	key  string
	flag string
}

var bindings = []binding{
	{"name", "name"},
	{"source", "source"},
	{"chip", "chip"},
	{"pin", "pin"},
	{"active_low", "active-low"},
	{"poll", "poll"},
	{"debounce", "debounce"},
	{"heartbeat", "heartbeat"},
	{"broker", "broker"},
	{"client_id", "client-id"},
	{"topic_prefix", "topic-prefix"},
	{"listen_topic", "listen-topic"},
	{"buffer_size", "buffer-size"},
	{"http", "http"},
	{"db", "db"},
	{"log_level", "log-level"},
	{"print_state", "print-state"},
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("contact-sensor", pflag.ContinueOnError)
	fs.String("config", "", "Path to config file (yaml, toml or json)")
	fs.String("name", "Contact Sensor", "Accessory name")
	fs.String("source", SourceGPIO, `Contact source: "gpio" or "mqtt"`)
	fs.String("chip", "gpiochip0", "GPIO chip")
	fs.Int("pin", 17, "BCM pin number for the contact")
	fs.Bool("active-low", false, "Treat a low level as open")
	fs.Duration("poll", 100*time.Millisecond, "GPIO polling interval")
	fs.Duration("debounce", 250*time.Millisecond, "Debounce duration")
	fs.Duration("heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	fs.String("broker", "tcp://localhost:1883", "MQTT broker address")
	fs.String("client-id", "", "MQTT client id (empty derives a unique id)")
	fs.String("topic-prefix", "home/contact-sensor", "MQTT topic prefix")
	fs.String("listen-topic", "", `Topic carrying contact state when source is "mqtt"`)
	fs.Int("buffer-size", 100, "MQTT messages held while disconnected")
	fs.String("http", ":8080", "HTTP status address (empty to disable)")
	fs.String("db", "/var/lib/contact-sensor/history.db", "History database path (empty keeps history in memory)")
	fs.String("log-level", "info", "Log level: debug, info, warn, error")
	fs.Bool("print-state", false, "Print current contact state and exit")
	return fs
}

// Load parses args (without the program name) and merges them over
// environment variables, the config file and defaults.
func Load(args []string) (*Config, error) {
	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, b := range bindings {
		if err := v.BindPFlag(b.key, fs.Lookup(b.flag)); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", b.flag, err)
		}
	}

	path, _ := fs.GetString("config")
	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("contact-sensor")
		v.AddConfigPath("/etc/contact-sensor")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	switch c.Source {
	case SourceGPIO:
		if c.Poll <= 0 {
			return fmt.Errorf("%w: poll must be positive, got %v", ErrInvalid, c.Poll)
		}
		if c.Debounce < 0 {
			return fmt.Errorf("%w: debounce must not be negative, got %v", ErrInvalid, c.Debounce)
		}
		if c.Pin < 0 {
			return fmt.Errorf("%w: pin must not be negative, got %d", ErrInvalid, c.Pin)
		}
	case SourceMQTT:
		if c.ListenTopic == "" {
			return fmt.Errorf("%w: listen_topic is required for source %q", ErrInvalid, SourceMQTT)
		}
	default:
		return fmt.Errorf("%w: unknown source %q", ErrInvalid, c.Source)
	}
	if c.Heartbeat < 0 {
		return fmt.Errorf("%w: heartbeat must not be negative, got %v", ErrInvalid, c.Heartbeat)
	}
	if c.Broker == "" {
		return fmt.Errorf("%w: broker is required", ErrInvalid)
	}
	return nil
}

// ListenAddress is the source address the accessory is bound to, used to
// derive its serial number.
func (c *Config) ListenAddress() string {
	if c.Source == SourceMQTT {
		return c.ListenTopic
	}
	return fmt.Sprintf("%s/%d", c.Chip, c.Pin)
}
