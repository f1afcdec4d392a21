package main

import (
    "time"

    "github.com/spf13/pflag"
)

// Options holds CLI options for the node.
type Options struct {
    ConfigPath     string
    StatusInterval time.Duration
}

// ParseFlags parses CLI flags from args and returns Options.
func ParseFlags(args []string) Options {
    fs := pflag.NewFlagSet("sensorstream-node", pflag.ExitOnError)
    var opts Options
    fs.StringVarP(&opts.ConfigPath, "config", "c", "", "Path to YAML config file")
    fs.DurationVar(&opts.StatusInterval, "status-interval", 30*time.Second, "Interval between stream status logs (0 disables)")
    _ = fs.Parse(args)
    return opts
}
