package sensors

import (
    "bytes"
    "image"
    "image/jpeg"
)

// JPEGEncoder compresses frames as baseline JPEG.
type JPEGEncoder struct {
    Quality int // 1..100; jpeg.DefaultQuality when zero
}

func (e JPEGEncoder) Encode(img image.Image) ([]byte, error) {
    q := e.Quality
    if q <= 0 { q = jpeg.DefaultQuality }
    var buf bytes.Buffer
    if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil { return nil, err }
    return buf.Bytes(), nil
}
