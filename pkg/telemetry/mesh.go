package telemetry

import "sort"

// Mesh is one spatial surface update in its own coordinate system.
type Mesh struct {
    ID             string
    WorldTransform Float4x4
    Vertices       [][3]float32
}

// AppendMesh appends every vertex transformed to world space (w = 1) as a
// 16-byte vector.
func AppendMesh(dst []byte, m *Mesh) []byte {
    for _, p := range m.Vertices {
        dst = appendVector(dst, m.WorldTransform.Apply(Vector4{p[0], p[1], p[2], 1}))
    }
    return dst
}

// SpatialMap is every surface currently observed, keyed by Mesh.ID. A map
// that has been published is never modified; With and Without return copies.
// The zero value is an empty map.
type SpatialMap struct {
    Surfaces map[string]*Mesh
}

// With returns a copy of s with m added or replacing the surface of the same ID.
func (s *SpatialMap) With(m *Mesh) *SpatialMap {
    out := s.clone(1)
    out.Surfaces[m.ID] = m
    return out
}

// Without returns a copy of s without surface id.
func (s *SpatialMap) Without(id string) *SpatialMap {
    out := s.clone(0)
    delete(out.Surfaces, id)
    return out
}

func (s *SpatialMap) clone(extra int) *SpatialMap {
    out := &SpatialMap{Surfaces: make(map[string]*Mesh, s.Len()+extra)}
    if s != nil {
        for id, m := range s.Surfaces { out.Surfaces[id] = m }
    }
    return out
}

// Len returns the number of surfaces.
func (s *SpatialMap) Len() int {
    if s == nil { return 0 }
    return len(s.Surfaces)
}

// IDs returns the surface IDs in sorted order.
func (s *SpatialMap) IDs() []string {
    if s == nil { return nil }
    ids := make([]string, 0, len(s.Surfaces))
    for id := range s.Surfaces { ids = append(ids, id) }
    sort.Strings(ids)
    return ids
}

// VertexCount returns the total number of vertices across all surfaces.
func (s *SpatialMap) VertexCount() int {
    n := 0
    if s == nil { return n }
    for _, m := range s.Surfaces { n += len(m.Vertices) }
    return n
}

// AppendSpatialMap appends the world-space vertices of every surface,
// surfaces ordered by ID.
func AppendSpatialMap(dst []byte, s *SpatialMap) []byte {
    for _, id := range s.IDs() { dst = AppendMesh(dst, s.Surfaces[id]) }
    return dst
}

// DecodeMesh parses a mesh payload into world-space vertices.
func DecodeMesh(b []byte) ([]Vector4, error) {
    if len(b)%VectorSize != 0 {
        return nil, &PayloadError{Kind: "mesh", Got: len(b), Want: len(b) - len(b)%VectorSize}
    }
    out := make([]Vector4, len(b)/VectorSize)
    for i := range out { out[i] = readVector(b[i*VectorSize:]) }
    return out, nil
}
