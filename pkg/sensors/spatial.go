package sensors

import (
    "context"

    "sensorstream/pkg/telemetry"
)

// SurfaceUpdate is one change reported by a spatial mapper: Mesh replaces
// the surface ID, or a nil Mesh means ID is no longer observed.
type SurfaceUpdate struct {
    ID   string
    Mesh *telemetry.Mesh
}

// SpatialMapper folds surface updates into whole-map snapshots. Every call
// to Next applies one update and returns the resulting map, so a consumer
// that only keeps the newest sample still sees every live surface. A
// SpatialMapper is driven by one goroutine.
type SpatialMapper struct {
    src     Source[SurfaceUpdate]
    current *telemetry.SpatialMap
}

// NewSpatialMapper starts from an empty map.
func NewSpatialMapper(src Source[SurfaceUpdate]) *SpatialMapper {
    return &SpatialMapper{src: src, current: &telemetry.SpatialMap{}}
}

// Apply records u and returns the new snapshot.
func (m *SpatialMapper) Apply(u SurfaceUpdate) *telemetry.SpatialMap {
    if u.Mesh == nil {
        m.current = m.current.Without(u.ID)
    } else {
        if u.Mesh.ID == "" { u.Mesh.ID = u.ID }
        m.current = m.current.With(u.Mesh)
    }
    return m.current
}

func (m *SpatialMapper) Next(ctx context.Context) (*telemetry.SpatialMap, int64, error) {
    u, ts, err := m.src.Next(ctx)
    if err != nil { return nil, 0, err }
    return m.Apply(u), ts, nil
}
