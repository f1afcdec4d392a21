package main

import (
    "context"
    "os"
    "os/signal"
    "syscall"
    "time"

    "go.uber.org/zap"

    "sensorstream/pkg/config"
    "sensorstream/pkg/observability"
    "sensorstream/pkg/recorder"
)

// run is the main entry point after CLI parsing.
func run(opts Options) int {
    cfg, err := config.Load(opts.ConfigPath)
    if err != nil {
        _, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
        return 1
    }

    logger, err := observability.SetupLogger(cfg.Log)
    if err != nil {
        _, _ = os.Stderr.WriteString("failed to setup logger: " + err.Error() + "\n")
        return 1
    }
    defer func() { _ = logger.Sync() }()

    zap.L().Info("sensorstream-node started", zap.String("app", cfg.AppName))
    zap.L().Info("effective configuration", zap.Any("config", cfg))

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    rec := recorder.New(cfg, recorder.SimulatedDevices(cfg.Sensors))
    if err := rec.StartRecording(ctx); err != nil {
        // Streams that did bind keep serving.
        zap.L().Error("some streams failed to start", zap.Error(err))
    }
    if !rec.Recording() {
        zap.L().Error("no stream is running; exiting")
        return 1
    }
    defer rec.StopRecording()

    zap.L().Info("node is running; press Ctrl+C to exit")
    var tick <-chan time.Time
    if opts.StatusInterval > 0 {
        t := time.NewTicker(opts.StatusInterval)
        defer t.Stop()
        tick = t.C
    }
    for {
        select {
        case <-ctx.Done():
            zap.L().Info("shutting down")
            return 0
        case <-tick:
            for _, st := range rec.Status() {
                zap.L().Info("stream status", append([]zap.Field{zap.String("stream", st.Kind.String()), zap.String("addr", st.Addr)}, st.Fields()...)...)
            }
            if s := rec.DebugText(); s != "" { zap.L().Debug("debug text", zap.String("text", s)) }
        }
    }
}
