// Package config provides YAML-based configuration loading for sensorstream.
package config

import (
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"

    "github.com/spf13/viper"

    "sensorstream/pkg/protocol"
)

// Config is the root application configuration.
type Config struct {
    // AppName optional logical name of the device/application
    AppName string `mapstructure:"app_name"`

    // Log holds logging configuration
    Log LogConfig `mapstructure:"log"`

    // Streams maps a stream name (video, depth, labels, ...) to its endpoint settings.
    Streams map[string]StreamConfig `mapstructure:"streams"`

    // Net holds listener and writer tuning
    Net NetConfig `mapstructure:"net"`

    // Sensors selects and sizes the capture devices
    Sensors SensorsConfig `mapstructure:"sensors"`
}

// LogConfig defines logger settings.
type LogConfig struct {
    // Level: debug, info, warn, error
    Level string `mapstructure:"level"`
    // Format: console or json
    Format string `mapstructure:"format"`
    // Outputs: list of outputs: stdout, stderr, or file paths
    Outputs []string `mapstructure:"outputs"`

    // Rotation controls file rotation when writing to files
    Rotation RotationConfig `mapstructure:"rotation"`
    // Development toggles development-friendly logging options
    Development bool `mapstructure:"development"`
}

// RotationConfig controls log file rotation for file outputs.
type RotationConfig struct {
    Enable     bool   `mapstructure:"enable"`
    Filename   string `mapstructure:"filename"`
    MaxSizeMB  int    `mapstructure:"max_size_mb"`
    MaxBackups int    `mapstructure:"max_backups"`
    MaxAgeDays int    `mapstructure:"max_age_days"`
    Compress   bool   `mapstructure:"compress"`
}

// StreamConfig controls one stream endpoint.
type StreamConfig struct {
    Enabled bool `mapstructure:"enabled"`
    // Port overrides the stream's well-known port; 0 keeps the default and
    // -1 asks for an ephemeral port.
    Port int `mapstructure:"port"`
    // RateLimit caps writer throughput in bytes per second; 0 is unlimited.
    RateLimit int64 `mapstructure:"rate_limit"`
}

// Default returns a Config populated with sensible defaults.
func Default() *Config {
    streams := make(map[string]StreamConfig, len(protocol.Kinds))
    for _, k := range protocol.Kinds {
        streams[k.String()] = StreamConfig{Enabled: true}
    }
    return &Config{
        AppName: "sensorstream-node",
        Log: LogConfig{
            Level:       "info",
            Format:      "console",
            Outputs:     []string{"stdout"},
            Development: true,
            Rotation: RotationConfig{
                Enable:     false,
                Filename:   "logs/sensorstream.log",
                MaxSizeMB:  50,
                MaxBackups: 3,
                MaxAgeDays: 28,
                Compress:   true,
            },
        },
        Streams: streams,
        Net: NetConfig{
            BindHost:       "",
            PollIntervalMS: 20,
            WriteTimeoutMS: 2000,
            MaxFrameBytes:  protocol.DefaultMaxPayload,
        },
        Sensors: SensorsConfig{
            ResearchCamera: "long_throw",
            DepthWidth:     320,
            DepthHeight:    288,
            VLCWidth:       640,
            VLCHeight:      480,
            VideoWidth:     640,
            VideoHeight:    360,
            DepthFPS:       5,
            VideoFPS:       15,
            PoseFPS:        60,
            MeshIntervalMS: 1000,
            JPEGQuality:    75,
            Consent:        ConsentConfig{Camera: true, EyeTracking: true},
        },
    }
}

// Load reads configuration from the provided path (if non-empty),
// otherwise it searches common locations and supports environment overrides.
// Environment variables use the prefix SENSORSTREAM and `.`/`-` are replaced with `_`.
// Example: SENSORSTREAM_LOG_LEVEL=debug, SENSORSTREAM_STREAMS_DEPTH_PORT=31002
func Load(path string) (*Config, error) {
    cfg := Default()

    v := viper.New()
    v.SetConfigType("yaml")
    v.SetEnvPrefix("SENSORSTREAM")
    v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
    v.AutomaticEnv()

    // seed defaults for viper so env-only configs work
    v.SetDefault("app_name", cfg.AppName)
    v.SetDefault("log.level", cfg.Log.Level)
    v.SetDefault("log.format", cfg.Log.Format)
    v.SetDefault("log.outputs", cfg.Log.Outputs)
    v.SetDefault("log.development", cfg.Log.Development)
    v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
    v.SetDefault("log.rotation.filename", cfg.Log.Rotation.Filename)
    v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
    v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
    v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
    v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)
    for name, s := range cfg.Streams {
        v.SetDefault("streams."+name+".enabled", s.Enabled)
        v.SetDefault("streams."+name+".port", s.Port)
        v.SetDefault("streams."+name+".rate_limit", s.RateLimit)
    }
    cfg.Net.seed(v)
    cfg.Sensors.seed(v)

    // Choose config file
    if path == "" {
        // Allow override via env var
        if envPath := os.Getenv("SENSORSTREAM_CONFIG"); envPath != "" {
            path = envPath
        }
    }

    if path != "" {
        v.SetConfigFile(path)
    } else {
        // Search common locations with base name `sensorstream`
        v.SetConfigName("sensorstream")
        v.AddConfigPath(".")
        v.AddConfigPath("./configs")
        if home, err := os.UserHomeDir(); err == nil {
            v.AddConfigPath(filepath.Join(home, ".sensorstream"))
        }
    }

    // Read config file if present; if not found, continue with defaults/env
    if err := v.ReadInConfig(); err != nil {
        var viperConfigFileNotFound viper.ConfigFileNotFoundError
        if !errors.As(err, &viperConfigFileNotFound) {
            return nil, fmt.Errorf("read config: %w", err)
        }
    }

    if err := v.Unmarshal(cfg); err != nil {
        return nil, fmt.Errorf("decode config: %w", err)
    }

    if err := cfg.validate(); err != nil {
        return nil, err
    }
    return cfg, nil
}

func (c *Config) validate() error {
    lvl := strings.ToLower(strings.TrimSpace(c.Log.Level))
    switch lvl {
    case "debug", "info", "warn", "warning", "error":
        // ok
    default:
        return fmt.Errorf("invalid log.level: %q", c.Log.Level)
    }

    if c.Log.Format == "" {
        c.Log.Format = "console"
    }
    if len(c.Log.Outputs) == 0 {
        c.Log.Outputs = []string{"stdout"}
    }

    ports := make(map[int]string)
    for name, s := range c.Streams {
        kind, err := protocol.ParseStreamKind(name)
        if err != nil { return fmt.Errorf("streams: %w", err) }
        if s.Port < -1 || s.Port > 65535 { return fmt.Errorf("streams.%s.port out of range: %d", name, s.Port) }
        if s.RateLimit < 0 { return fmt.Errorf("streams.%s.rate_limit must not be negative", name) }
        if !s.Enabled { continue }
        port := c.Port(kind)
        if port < 0 { continue }
        if other, dup := ports[port]; dup { return fmt.Errorf("streams %s and %s both use port %d", other, name, port) }
        ports[port] = name
    }
    if err := c.Net.validate(); err != nil { return err }
    return c.Sensors.validate()
}

// Stream returns the settings for kind; unknown kinds are disabled.
func (c *Config) Stream(kind protocol.StreamKind) StreamConfig { return c.Streams[kind.String()] }

// Port returns the effective port of kind.
func (c *Config) Port(kind protocol.StreamKind) int {
    if p := c.Stream(kind).Port; p != 0 { return p }
    return kind.DefaultPort()
}

// MustLoad is a convenience that panics on error.
func MustLoad(path string) *Config {
    cfg, err := Load(path)
    if err != nil {
        panic(err)
    }
    return cfg
}
