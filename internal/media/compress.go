// Package media normalizes guest photo uploads: decode, bound the
// dimensions, and re-encode toward a target size. Compression is an
// optimization; callers fall back to the original bytes on any failure.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

// Options bound the output of Normalize.
type Options struct {
	// MaxDimension is the longest allowed edge in pixels.
	MaxDimension int
	// TargetBytes is the size the encoder aims for. Best effort: quality is
	// lowered stepwise until the output fits or MinQuality is reached.
	TargetBytes int64
	// Quality is the initial JPEG quality (1-100).
	Quality int
	// MinQuality is the floor for the stepwise search.
	MinQuality int
}

// DefaultOptions returns the encoder bounds used when a field is zero.
func DefaultOptions() Options {
	return Options{
		MaxDimension: 1920,
		TargetBytes:  500 * 1024,
		Quality:      85,
		MinQuality:   40,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.MaxDimension <= 0 {
		o.MaxDimension = def.MaxDimension
	}
	if o.TargetBytes <= 0 {
		o.TargetBytes = def.TargetBytes
	}
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = def.Quality
	}
	if o.MinQuality <= 0 || o.MinQuality > o.Quality {
		o.MinQuality = def.MinQuality
	}
	return o
}

// Normalize decodes data, resizes it to fit opts.MaxDimension keeping the
// aspect ratio, and re-encodes as JPEG, stepping quality down toward
// opts.TargetBytes. It returns the encoded bytes and their content type.
func Normalize(data []byte, contentType string, opts Options) ([]byte, string, error) {
	opts = opts.withDefaults()

	img, err := decode(data, contentType)
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > opts.MaxDimension || bounds.Dy() > opts.MaxDimension {
		img = imaging.Fit(img, opts.MaxDimension, opts.MaxDimension, imaging.Lanczos)
	}

	var out []byte
	for q := opts.Quality; q >= opts.MinQuality; q -= 10 {
		buf := new(bytes.Buffer)
		if err := imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(q)); err != nil {
			return nil, "", fmt.Errorf("encode jpeg: %w", err)
		}
		out = buf.Bytes()
		if int64(len(out)) <= opts.TargetBytes {
			break
		}
	}
	return out, "image/jpeg", nil
}

func decode(data []byte, contentType string) (image.Image, error) {
	if contentType == "image/webp" {
		return webp.Decode(bytes.NewReader(data))
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		// Content type headers lie; try webp as a fallback before giving up.
		if wimg, werr := webp.Decode(bytes.NewReader(data)); werr == nil {
			return wimg, nil
		}
		return nil, err
	}
	return img, nil
}

// ErrNotAnImage is returned by Sniff for non-image payloads.
var ErrNotAnImage = errors.New("payload is not a decodable image")

// Sniff reports the decoded image config for validation without a full
// decode. It accepts the same formats as Normalize.
func Sniff(data []byte, contentType string) (width, height int, err error) {
	if contentType == "image/webp" {
		cfg, err := webp.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return 0, 0, ErrNotAnImage
		}
		return cfg.Width, cfg.Height, nil
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, ErrNotAnImage
	}
	return cfg.Width, cfg.Height, nil
}
