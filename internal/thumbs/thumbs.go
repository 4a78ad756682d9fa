// Package thumbs derives reduced-size thumbnail payloads from image
// uploads and stores them through the blob engine, so thumbnails get the
// same encryption and dedup guarantees as primary content.
package thumbs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"strings"

	// registered decoders for the formats the gallery accepts
	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"

	"github.com/tearleads/rapidvault/internal/blobstore"
)

// ErrUnsupportedMedia reports that no thumbnail can be derived for the
// payload's media type. Callers treat it as a non-fatal signal.
var ErrUnsupportedMedia = errors.New("unsupported media type for thumbnail")

// DefaultMaxPx bounds the longest thumbnail side.
const DefaultMaxPx = 256

const jpegQuality = 80

// Pipeline derives and stores thumbnails.
type Pipeline struct {
	store *blobstore.Store
	maxPx int
}

// New creates a pipeline writing through store. maxPx bounds the longest
// side of derived thumbnails; non-positive values fall back to DefaultMaxPx.
func New(store *blobstore.Store, maxPx int) *Pipeline {
	if maxPx <= 0 {
		maxPx = DefaultMaxPx
	}
	return &Pipeline{store: store, maxPx: maxPx}
}

// DeriveAndStore decodes the original payload, downscales it so its longest
// side is at most maxPx, re-encodes it as JPEG, and stores the result. The
// returned path addresses the thumbnail blob.
//
// Failures here are non-fatal to the parent upload by contract: the
// coordinator records the absence of a thumbnail and moves on.
func (p *Pipeline) DeriveAndStore(ctx context.Context, original []byte, mimeHint string) (string, error) {
	if !strings.HasPrefix(mimeHint, "image/") {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedMedia, mimeHint)
	}

	src, _, err := image.Decode(bytes.NewReader(original))
	if err != nil {
		return "", fmt.Errorf("%w: decode: %v", ErrUnsupportedMedia, err)
	}

	thumb := downscale(src, p.maxPx)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return "", fmt.Errorf("encode thumbnail: %w", err)
	}

	path, _, err := p.store.Store(ctx, buf.Bytes())
	if err != nil {
		return "", fmt.Errorf("store thumbnail: %w", err)
	}

	return path, nil
}

// downscale returns src resized so its longest side is at most maxPx.
// Images already small enough are returned unchanged.
func downscale(src image.Image, maxPx int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxPx && h <= maxPx {
		return src
	}

	var dw, dh int
	if w >= h {
		dw = maxPx
		dh = h * maxPx / w
	} else {
		dh = maxPx
		dw = w * maxPx / h
	}
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}
