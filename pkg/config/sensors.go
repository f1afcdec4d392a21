package config

import (
    "fmt"
    "strings"
    "time"

    "github.com/spf13/viper"
)

// SensorsConfig sizes the simulated capture devices.
type SensorsConfig struct {
    // ResearchCamera picks what the depth port carries: long_throw, ahat or vlc.
    ResearchCamera string  `mapstructure:"research_camera"`
    DepthWidth     int     `mapstructure:"depth_width"`
    DepthHeight    int     `mapstructure:"depth_height"`
    VLCWidth       int     `mapstructure:"vlc_width"`
    VLCHeight      int     `mapstructure:"vlc_height"`
    VideoWidth     int     `mapstructure:"video_width"`
    VideoHeight    int     `mapstructure:"video_height"`
    DepthFPS       float64 `mapstructure:"depth_fps"`
    VideoFPS       float64 `mapstructure:"video_fps"`
    PoseFPS        float64 `mapstructure:"pose_fps"`
    MeshIntervalMS int     `mapstructure:"mesh_interval_ms"`
    JPEGQuality    int     `mapstructure:"jpeg_quality"`

    // Consent is what the static access prompt grants.
    Consent ConsentConfig `mapstructure:"consent"`
}

// ConsentConfig pre-answers the sensor access prompt.
type ConsentConfig struct {
    Camera      bool `mapstructure:"camera"`
    EyeTracking bool `mapstructure:"eye_tracking"`
}

func (s SensorsConfig) MeshInterval() time.Duration { return time.Duration(s.MeshIntervalMS) * time.Millisecond }

func (s SensorsConfig) seed(v *viper.Viper) {
    v.SetDefault("sensors.research_camera", s.ResearchCamera)
    v.SetDefault("sensors.depth_width", s.DepthWidth)
    v.SetDefault("sensors.depth_height", s.DepthHeight)
    v.SetDefault("sensors.vlc_width", s.VLCWidth)
    v.SetDefault("sensors.vlc_height", s.VLCHeight)
    v.SetDefault("sensors.video_width", s.VideoWidth)
    v.SetDefault("sensors.video_height", s.VideoHeight)
    v.SetDefault("sensors.depth_fps", s.DepthFPS)
    v.SetDefault("sensors.video_fps", s.VideoFPS)
    v.SetDefault("sensors.pose_fps", s.PoseFPS)
    v.SetDefault("sensors.mesh_interval_ms", s.MeshIntervalMS)
    v.SetDefault("sensors.jpeg_quality", s.JPEGQuality)
    v.SetDefault("sensors.consent.camera", s.Consent.Camera)
    v.SetDefault("sensors.consent.eye_tracking", s.Consent.EyeTracking)
}

func (s *SensorsConfig) validate() error {
    s.ResearchCamera = strings.ToLower(strings.TrimSpace(s.ResearchCamera))
    switch s.ResearchCamera {
    case "long_throw", "ahat", "vlc":
    default:
        return fmt.Errorf("invalid sensors.research_camera: %q", s.ResearchCamera)
    }
    for name, d := range map[string]int{
        "depth_width": s.DepthWidth, "depth_height": s.DepthHeight,
        "vlc_width": s.VLCWidth, "vlc_height": s.VLCHeight,
        "video_width": s.VideoWidth, "video_height": s.VideoHeight,
    } {
        if d <= 0 { return fmt.Errorf("sensors.%s must be positive", name) }
    }
    if s.DepthFPS <= 0 || s.VideoFPS <= 0 || s.PoseFPS <= 0 { return fmt.Errorf("sensors frame rates must be positive") }
    if s.MeshIntervalMS <= 0 { return fmt.Errorf("sensors.mesh_interval_ms must be positive") }
    if s.JPEGQuality < 1 || s.JPEGQuality > 100 { return fmt.Errorf("sensors.jpeg_quality out of range: %d", s.JPEGQuality) }
    return nil
}
