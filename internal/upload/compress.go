package upload

import (
	"bytes"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/memojournal/internal/objectstore"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	DefaultMaxDimension = 1920
	DefaultQuality      = 80
)

// CompressOptions bounds the re-encoded image.
type CompressOptions struct {
	MaxDimension int
	Quality      int // JPEG quality, 1 to 100
}

func (o CompressOptions) withDefaults() CompressOptions {
	if o.MaxDimension <= 0 {
		o.MaxDimension = DefaultMaxDimension
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = DefaultQuality
	}
	return o
}

// Compress fits the image within MaxDimension and re-encodes it as JPEG.
// It never fails: undecodable input, encode errors and re-encodes that
// would not shrink an image that needed no resize yield the original bytes.
func Compress(name string, data []byte, opts CompressOptions) objectstore.File {
	opts = opts.withDefaults()

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return passthrough(name, data)
	}

	b := src.Bounds()
	w, h := targetSize(b.Dx(), b.Dy(), opts.MaxDimension)
	resized := w != b.Dx() || h != b.Dy()

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	// JPEG has no alpha; transparent areas become white rather than black.
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: opts.Quality}); err != nil {
		return passthrough(name, data)
	}
	if !resized && buf.Len() >= len(data) {
		f := passthrough(name, data)
		f.Width, f.Height = b.Dx(), b.Dy()
		if format == "jpeg" {
			f.Format = "jpg"
		} else {
			f.Format = format
		}
		return f
	}

	return objectstore.File{
		Name:        strings.TrimSuffix(name, filepath.Ext(name)) + ".jpg",
		ContentType: "image/jpeg",
		Data:        buf.Bytes(),
		Width:       w,
		Height:      h,
		Format:      "jpg",
	}
}

// targetSize scales (w, h) down to fit max on the longer side. Images that
// already fit are left alone.
func targetSize(w, h, max int) (int, int) {
	if w <= max && h <= max {
		return w, h
	}
	if w >= h {
		nh := int(float64(h)*float64(max)/float64(w) + 0.5)
		return max, maxInt(nh, 1)
	}
	nw := int(float64(w)*float64(max)/float64(h) + 0.5)
	return maxInt(nw, 1), max
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func passthrough(name string, data []byte) objectstore.File {
	f := objectstore.File{
		Name:        name,
		ContentType: http.DetectContentType(data),
		Data:        data,
		Format:      strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), "."),
	}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		f.Width, f.Height = cfg.Width, cfg.Height
	}
	return f
}
