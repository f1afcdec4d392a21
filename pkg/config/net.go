package config

import (
    "fmt"
    "time"

    "github.com/spf13/viper"
)

// NetConfig contains listener and writer tuning options.
type NetConfig struct {
    // BindHost is the interface every stream listens on; empty means all.
    BindHost       string `mapstructure:"bind_host"`
    PollIntervalMS int    `mapstructure:"poll_interval_ms"`
    WriteTimeoutMS int    `mapstructure:"write_timeout_ms"`
    MaxFrameBytes  int    `mapstructure:"max_frame_bytes"`
}

func (n NetConfig) PollInterval() time.Duration { return time.Duration(n.PollIntervalMS) * time.Millisecond }
func (n NetConfig) WriteTimeout() time.Duration { return time.Duration(n.WriteTimeoutMS) * time.Millisecond }

func (n NetConfig) seed(v *viper.Viper) {
    v.SetDefault("net.bind_host", n.BindHost)
    v.SetDefault("net.poll_interval_ms", n.PollIntervalMS)
    v.SetDefault("net.write_timeout_ms", n.WriteTimeoutMS)
    v.SetDefault("net.max_frame_bytes", n.MaxFrameBytes)
}

func (n NetConfig) validate() error {
    if n.PollIntervalMS <= 0 { return fmt.Errorf("net.poll_interval_ms must be positive") }
    if n.WriteTimeoutMS < 0 { return fmt.Errorf("net.write_timeout_ms must not be negative") }
    if n.MaxFrameBytes <= 0 { return fmt.Errorf("net.max_frame_bytes must be positive") }
    return nil
}
