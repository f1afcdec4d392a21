package recorder

import (
    "sensorstream/pkg/config"
    "sensorstream/pkg/sensors"
    "sensorstream/pkg/telemetry"
)

// Devices bundles the collaborators the recorder captures from. Nil
// sources leave their stream idle: it listens but never has data.
type Devices struct {
    Consent      sensors.Requester
    Poses        sensors.PoseResolver
    Images       sensors.ImageEncoder
    Depth        sensors.Source[*telemetry.DepthFrame]
    VLC          sensors.Source[*telemetry.VLCFrame] // used instead of Depth when the research camera is vlc
    Camera       sensors.Source[sensors.CameraFrame]
    MixedReality sensors.Source[sensors.CameraFrame]
    Tracker      sensors.Source[*telemetry.Pose]
    Mesher       sensors.Source[*telemetry.SpatialMap]

    DepthCalibration func() *telemetry.DepthCalibration
    VideoCalibration func() *telemetry.VideoCalibration
}

// SimulatedDevices returns a complete synthetic device sized by c.
func SimulatedDevices(c config.SensorsConfig) Devices {
    mode := telemetry.DepthLongThrow
    if c.ResearchCamera == "ahat" { mode = telemetry.DepthAHAT }
    sim := sensors.NewSimulator(sensors.SimOptions{
        DepthMode:   mode,
        DepthWidth:  c.DepthWidth,
        DepthHeight: c.DepthHeight,
        VLCWidth:    c.VLCWidth,
        VLCHeight:   c.VLCHeight,
        VideoWidth:  c.VideoWidth,
        VideoHeight: c.VideoHeight,
    })
    d := Devices{
        Consent:          sensors.StaticRequester{Camera: c.Consent.Camera, EyeTracking: c.Consent.EyeTracking},
        Poses:            sim,
        Images:           sensors.JPEGEncoder{Quality: c.JPEGQuality},
        Camera:           sim.Camera(c.VideoFPS),
        MixedReality:     sim.Camera(c.VideoFPS),
        Tracker:          sim.Tracker(c.PoseFPS),
        Mesher:           sensors.NewSpatialMapper(sim.Mesher(c.MeshInterval())),
        VideoCalibration: sim.VideoCalibration,
    }
    if c.ResearchCamera == "vlc" {
        d.VLC = sim.VLC(c.DepthFPS)
    } else {
        d.Depth = sim.Depth(c.DepthFPS)
        d.DepthCalibration = sim.DepthCalibration
    }
    return d
}
