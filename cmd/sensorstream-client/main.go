package main

import (
    "context"
    "errors"
    "fmt"
    "io"
    "net"
    "os"
    "os/signal"
    "strconv"
    "strings"
    "time"

    "github.com/spf13/pflag"
    "go.uber.org/zap"

    "sensorstream/pkg/protocol"
    "sensorstream/pkg/telemetry"
    "sensorstream/pkg/transport/tcp"
)

func main() {
    host := pflag.String("addr", "127.0.0.1", "device host to connect to")
    stream := pflag.StringP("stream", "s", "depth", "stream to read: "+kindNames())
    port := pflag.IntP("port", "p", 0, "port override (0 uses the stream's port)")
    count := pflag.IntP("count", "n", 0, "stop after n frames (0 reads until the server closes)")
    timeout := pflag.Duration("timeout", 5*time.Second, "dial timeout")
    maxFrame := pflag.Int("max-frame", protocol.DefaultMaxPayload, "largest accepted payload in bytes")
    dumpDir := pflag.String("dump", "", "write received frames (zstd) and an index into this directory")
    indexFormat := pflag.String("index-format", "json", "dump index codec: json|cbor|proto")
    debug := pflag.String("send-debug", "", "send a debug value to the device: an integer or x,y,z")
    labels := pflag.StringArray("send-label", nil, "send a label as name=x,y,z (repeatable; sent together)")
    inspect := pflag.String("inspect", "", "print the records of a dump index file and exit")
    verbose := pflag.BoolP("verbose", "v", false, "debug logging")
    pflag.Parse()

    var logger *zap.Logger
    if *verbose {
        logger, _ = zap.NewDevelopment()
    } else {
        logger, _ = zap.NewProduction()
    }
    zap.ReplaceGlobals(logger)
    defer logger.Sync()

    if *inspect != "" {
        if err := inspectIndex(*inspect); err != nil { fatalf("inspect: %v", err) }
        return
    }

    ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
    defer cancel()

    switch {
    case *debug != "":
        payload, err := debugPayload(*debug)
        if err != nil { fatalf("send-debug: %v", err) }
        sendOnce(ctx, address(*host, protocol.StreamDebugText, *port), payload, *timeout)
        fmt.Println("debug value sent")
        return
    case len(*labels) > 0:
        ls, err := parseLabels(*labels)
        if err != nil { fatalf("send-label: %v", err) }
        payload, err := telemetry.AppendLabels(nil, ls)
        if err != nil { fatalf("send-label: %v", err) }
        sendOnce(ctx, address(*host, protocol.StreamLabels, *port), payload, *timeout)
        fmt.Printf("%d labels sent\n", len(ls))
        return
    }

    kind, err := protocol.ParseStreamKind(*stream)
    if err != nil { fatalf("%v", err) }
    if kind.Inbound() { fatalf("%s is an inbound stream; use --send-debug or --send-label", kind) }

    var dumper *Dumper
    if *dumpDir != "" {
        reg, err := newRegistry()
        if err != nil { fatalf("codecs: %v", err) }
        c, err := reg.Lookup(*indexFormat)
        if err != nil { fatalf("index-format: %v", err) }
        if dumper, err = NewDumper(*dumpDir, kind, c); err != nil { fatalf("dump: %v", err) }
        defer dumper.Close()
    }

    cl := dial(ctx, address(*host, kind, *port), *maxFrame, *timeout)
    defer cl.Close()
    zap.L().Info("connected", zap.String("stream", kind.String()), zap.Stringer("remote", cl.RemoteAddr()))

    received := 0
    for *count == 0 || received < *count {
        f, err := cl.Receive()
        if err != nil {
            if errors.Is(err, io.EOF) || ctx.Err() != nil { break }
            var pe *protocol.ProtocolError
            if errors.As(err, &pe) { fatalf("malformed frame: %v", err) }
            fatalf("receive: %v", err)
        }
        received++
        fmt.Println(describe(kind, f))
        if dumper != nil {
            name, err := dumper.Write(f)
            if err != nil { fatalf("dump: %v", err) }
            zap.L().Debug("frame dumped", zap.String("file", name))
        }
    }
    zap.L().Info("done", zap.Int("frames", received))
}

func address(host string, kind protocol.StreamKind, port int) string {
    if port == 0 { port = kind.DefaultPort() }
    return net.JoinHostPort(host, strconv.Itoa(port))
}

func dial(ctx context.Context, addr string, maxFrame int, timeout time.Duration) *tcp.Client {
    cl, err := tcp.DialTimeout(ctx, addr, maxFrame, timeout)
    if err != nil { fatalf("dial %s: %v", addr, err) }
    return cl
}

// sendOnce connects to an inbound stream, sends one frame stamped with the
// current time and closes.
func sendOnce(ctx context.Context, addr string, payload []byte, timeout time.Duration) {
    cl := dial(ctx, addr, 0, timeout)
    defer cl.Close()
    if err := cl.Send(payload, telemetry.TicksFromTime(time.Now())); err != nil { fatalf("send: %v", err) }
}

func debugPayload(s string) ([]byte, error) {
    parts := strings.Split(s, ",")
    switch len(parts) {
    case 1:
        i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
        if err != nil { return nil, err }
        return telemetry.AppendDebugInt(nil, int32(i)), nil
    case 3:
        v, err := parseFloats(parts)
        if err != nil { return nil, err }
        return telemetry.AppendDebugVector(nil, v[0], v[1], v[2]), nil
    }
    return nil, fmt.Errorf("want an integer or x,y,z, got %q", s)
}

// parseLabels accepts name=x,y,z and places each label at that position.
func parseLabels(specs []string) ([]telemetry.Label, error) {
    out := make([]telemetry.Label, 0, len(specs))
    for _, s := range specs {
        name, pos, ok := strings.Cut(s, "=")
        if !ok || name == "" { return nil, fmt.Errorf("want name=x,y,z, got %q", s) }
        parts := strings.Split(pos, ",")
        if len(parts) != 3 { return nil, fmt.Errorf("want name=x,y,z, got %q", s) }
        v, err := parseFloats(parts)
        if err != nil { return nil, err }
        out = append(out, telemetry.Label{Name: name, Pose: telemetry.Translation(v[0], v[1], v[2])})
    }
    return out, nil
}

func parseFloats(parts []string) ([]float32, error) {
    out := make([]float32, len(parts))
    for i, p := range parts {
        f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
        if err != nil { return nil, err }
        out[i] = float32(f)
    }
    return out, nil
}

func inspectIndex(path string) error {
    reg, err := newRegistry()
    if err != nil { return err }
    recs, err := ReadIndex(reg, path)
    for _, r := range recs {
        fmt.Printf("seq=%v ts=%v size=%v file=%v\n", r["seq"], r["timestamp"], r["size"], r["file"])
    }
    return err
}

func kindNames() string {
    var names []string
    for _, k := range protocol.Kinds {
        if !k.Inbound() { names = append(names, k.String()) }
    }
    return strings.Join(names, "|")
}

func fatalf(format string, a ...any) {
    _, _ = fmt.Fprintf(os.Stderr, format+"\n", a...)
    os.Exit(1)
}
