// Package codec encodes the small metadata records that accompany dumped
// telemetry frames (capture indexes). Sensor payloads themselves are raw
// binary and never pass through a codec.
package codec

import (
    "fmt"
    "sort"
    "strings"
)

// Codec defines a simple interface for marshaling index records.
// Implementations should be deterministic so identical captures produce identical indexes.
type Codec interface {
    Name() string
    ContentType() string
    Marshal(v any) ([]byte, error)
    Unmarshal(data []byte, v any) error
}

// Registry maps codec names to codecs.
type Registry struct { byName map[string]Codec }

// NewRegistry constructs a registry preloaded with built-in codecs
// that don't require initialization: JSON and Protobuf.
// CBOR can be added explicitly via Register(CBOR()).
func NewRegistry() *Registry {
    r := &Registry{byName: make(map[string]Codec)}
    r.Register(JSON())
    r.Register(Proto())
    return r
}

// Register adds a codec, replacing any codec with the same name.
func (r *Registry) Register(c Codec) { r.byName[c.Name()] = c }

// Lookup returns the codec registered under name (case-insensitive).
func (r *Registry) Lookup(name string) (Codec, error) {
    if c := r.byName[strings.ToLower(strings.TrimSpace(name))]; c != nil { return c, nil }
    return nil, fmt.Errorf("codec %q not registered (have %s)", name, strings.Join(r.Names(), ","))
}

// Names lists registered codec names in sorted order.
func (r *Registry) Names() []string {
    out := make([]string, 0, len(r.byName))
    for n := range r.byName { out = append(out, n) }
    sort.Strings(out)
    return out
}
