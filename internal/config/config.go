package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Device    DeviceConfig    `yaml:"device" mapstructure:"device"`
	Controls  []ControlConfig `yaml:"controls" mapstructure:"controls"`
	Journal   JournalConfig   `yaml:"journal" mapstructure:"journal"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
	Simulator SimulatorConfig `yaml:"simulator" mapstructure:"simulator"`

	// ConfigPath is the path to the config file (not serialized)
	ConfigPath string `yaml:"-" mapstructure:"-"`
}

// DeviceConfig represents the connection to the device web endpoint
type DeviceConfig struct {
	BaseURL        string        `yaml:"base_url" mapstructure:"base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
	PollInterval   time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`

	// Push (websocket) settings
	UsePush            bool          `yaml:"use_push" mapstructure:"use_push"`
	PushEndpoint       string        `yaml:"push_endpoint" mapstructure:"push_endpoint"`
	PushReconnectDelay time.Duration `yaml:"push_reconnect_delay" mapstructure:"push_reconnect_delay"`
	PushMaxReconnect   time.Duration `yaml:"push_max_reconnect_delay" mapstructure:"push_max_reconnect_delay"`
	PushPingInterval   time.Duration `yaml:"push_ping_interval" mapstructure:"push_ping_interval"`

	// RequestLogSize bounds the ring of recent outbound requests
	RequestLogSize int `yaml:"request_log_size" mapstructure:"request_log_size"`
}

// ControlConfig declares one UI control known to the client
type ControlConfig struct {
	ID    string `yaml:"id" mapstructure:"id"`
	Kind  string `yaml:"kind" mapstructure:"kind"` // "text", "checkbox", "range", ...
	Class string `yaml:"class,omitempty" mapstructure:"class"`
	Value string `yaml:"value,omitempty" mapstructure:"value"`
}

// JournalConfig represents the sqlite value journal
type JournalConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// LogConfig represents logging settings
type LogConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`
	BufferSize int    `yaml:"buffer_size" mapstructure:"buffer_size"`
}

// SimulatorConfig represents the local device simulator
type SimulatorConfig struct {
	Host     string        `yaml:"host" mapstructure:"host"`
	Port     int           `yaml:"port" mapstructure:"port"`
	TaskTime time.Duration `yaml:"task_time" mapstructure:"task_time"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			BaseURL:            "http://192.168.4.1",
			RequestTimeout:     2 * time.Second,
			PollInterval:       1 * time.Second,
			UsePush:            false, // the stock firmware only answers GET requests
			PushEndpoint:       "ws://192.168.4.1/ws",
			PushReconnectDelay: 1 * time.Second,
			PushMaxReconnect:   30 * time.Second,
			PushPingInterval:   30 * time.Second,
			RequestLogSize:     50,
		},
		Controls: []ControlConfig{
			{ID: "id_start_task", Kind: "button"},
			{ID: "id_stop_task", Kind: "button"},
		},
		Journal: JournalConfig{
			Enabled: false,
			Path:    "fieldsync.db",
		},
		Log: LogConfig{
			Level:      "info",
			BufferSize: 500,
		},
		Simulator: SimulatorConfig{
			Host:     "127.0.0.1",
			Port:     8080,
			TaskTime: 180 * time.Second,
		},
	}
}

// SearchPaths lists the locations Load tries, in order
var SearchPaths = []string{
	"fieldsync.yaml",
	"configs/fieldsync.yaml",
	"/etc/fieldsync/fieldsync.yaml",
}

// ErrNotFound is returned by Load when no config file exists in SearchPaths
var ErrNotFound = errors.New("config file not found")

// Load loads configuration from the first config file found in SearchPaths
func Load() (*Config, error) {
	for _, path := range SearchPaths {
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, ErrNotFound
}

// LoadFile loads configuration from path on top of the defaults.
// FIELDSYNC_* environment variables override file values,
// e.g. FIELDSYNC_DEVICE_BASE_URL.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("fieldsync")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only applies to keys viper knows about
	bindDefaults(v, Default())

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := Default()
	if v.IsSet("controls") {
		cfg.Controls = nil
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	cfg.ConfigPath = path
	return cfg, nil
}

func bindDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("device.base_url", d.Device.BaseURL)
	v.SetDefault("device.request_timeout", d.Device.RequestTimeout)
	v.SetDefault("device.poll_interval", d.Device.PollInterval)
	v.SetDefault("device.use_push", d.Device.UsePush)
	v.SetDefault("device.push_endpoint", d.Device.PushEndpoint)
	v.SetDefault("device.push_reconnect_delay", d.Device.PushReconnectDelay)
	v.SetDefault("device.push_max_reconnect_delay", d.Device.PushMaxReconnect)
	v.SetDefault("device.push_ping_interval", d.Device.PushPingInterval)
	v.SetDefault("device.request_log_size", d.Device.RequestLogSize)
	v.SetDefault("journal.enabled", d.Journal.Enabled)
	v.SetDefault("journal.path", d.Journal.Path)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.buffer_size", d.Log.BufferSize)
	v.SetDefault("simulator.host", d.Simulator.Host)
	v.SetDefault("simulator.port", d.Simulator.Port)
	v.SetDefault("simulator.task_time", d.Simulator.TaskTime)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
