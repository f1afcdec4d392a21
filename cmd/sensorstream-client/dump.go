package main

import (
    "bufio"
    "fmt"
    "io"
    "os"
    "path/filepath"
    "strings"

    "github.com/klauspost/compress/zstd"

    "sensorstream/pkg/protocol"
    "sensorstream/pkg/protocol/codec"
)

// newRegistry returns the codec registry with CBOR added to the built-ins.
func newRegistry() (*codec.Registry, error) {
    reg := codec.NewRegistry()
    cb, err := codec.CBOR()
    if err != nil { return nil, err }
    reg.Register(cb)
    return reg, nil
}

// Dumper stores received frames as individual zstd-compressed files and
// appends one index record per frame. Index records are written as wire
// frames so the index can be read back with protocol.ReadFrame.
type Dumper struct {
    dir    string
    stream string
    codec  codec.Codec
    enc    *zstd.Encoder
    index  *os.File
    seq    uint64
}

// NewDumper creates dir if needed and opens <stream>.index.<codec> inside it.
func NewDumper(dir string, kind protocol.StreamKind, c codec.Codec) (*Dumper, error) {
    if err := os.MkdirAll(dir, 0o755); err != nil { return nil, err }
    enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
    if err != nil { return nil, fmt.Errorf("zstd encoder: %w", err) }
    index, err := os.Create(filepath.Join(dir, kind.String()+".index."+c.Name()))
    if err != nil {
        _ = enc.Close()
        return nil, err
    }
    return &Dumper{dir: dir, stream: kind.String(), codec: c, enc: enc, index: index}, nil
}

// Write stores f and returns the name of the dump file.
func (d *Dumper) Write(f protocol.Frame) (string, error) {
    name := fmt.Sprintf("%s-%06d.frame.zst", d.stream, d.seq)
    if err := os.WriteFile(filepath.Join(d.dir, name), d.enc.EncodeAll(f.EncodeFrame(), nil), 0o644); err != nil {
        return "", err
    }
    rec := map[string]any{
        "stream":    d.stream,
        "seq":       d.seq,
        "timestamp": f.Timestamp,
        "size":      len(f.Payload),
        "file":      name,
    }
    b, err := d.codec.Marshal(rec)
    if err != nil { return "", fmt.Errorf("index record: %w", err) }
    entry := protocol.Frame{Timestamp: f.Timestamp, Payload: b}
    if _, err := entry.WriteTo(d.index); err != nil { return "", err }
    d.seq++
    return name, nil
}

func (d *Dumper) Close() error {
    _ = d.enc.Close()
    return d.index.Close()
}

// ReadIndex decodes every record of an index file. The codec is picked from
// the file extension.
func ReadIndex(reg *codec.Registry, path string) ([]map[string]any, error) {
    c, err := reg.Lookup(strings.TrimPrefix(filepath.Ext(path), "."))
    if err != nil { return nil, err }
    f, err := os.Open(path)
    if err != nil { return nil, err }
    defer f.Close()

    br := bufio.NewReader(f)
    var out []map[string]any
    for {
        fr, err := protocol.ReadFrame(br, 0)
        if err == io.EOF { return out, nil }
        if err != nil { return out, fmt.Errorf("index entry %d: %w", len(out), err) }
        var rec map[string]any
        if err := c.Unmarshal(fr.Payload, &rec); err != nil { return out, fmt.Errorf("index entry %d: %w", len(out), err) }
        out = append(out, rec)
    }
}

// ReadDump decompresses one dumped frame file.
func ReadDump(path string) (protocol.Frame, error) {
    b, err := os.ReadFile(path)
    if err != nil { return protocol.Frame{}, err }
    dec, err := zstd.NewReader(nil)
    if err != nil { return protocol.Frame{}, err }
    defer dec.Close()
    raw, err := dec.DecodeAll(b, nil)
    if err != nil { return protocol.Frame{}, fmt.Errorf("%s: %w", filepath.Base(path), err) }
    var f protocol.Frame
    if _, err := f.DecodeFrame(raw, 0); err != nil { return protocol.Frame{}, err }
    return f, nil
}
