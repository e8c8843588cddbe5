// Package framebuf converts renderer image payloads into float pixel
// buffers and accumulates incremental bucket updates.
//
// All functions here are lock-free and operate on plain values; the
// exporter serializes access with its image lock. Keeping conversions pure
// makes every format rule unit-testable without any concurrency setup.
package framebuf

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Image is one per-channel pixel buffer: Width*Height pixels with Channels
// float32 samples each, rows top to bottom.
type Image struct {
	Pixels   []float32
	Width    int
	Height   int
	Channels int
}

// NewImage allocates a zero-initialized buffer.
func NewImage(w, h, channels int) *Image {
	return &Image{
		Pixels:   make([]float32, w*h*channels),
		Width:    w,
		Height:   h,
		Channels: channels,
	}
}

// Valid reports whether the image holds pixel data.
func (img *Image) Valid() bool {
	return img != nil && len(img.Pixels) > 0
}

// DeepCopy returns an independent copy of the image. The copy stays valid
// after the source is replaced or mutated.
func (img *Image) DeepCopy() *Image {
	if !img.Valid() {
		return &Image{}
	}
	pixels := make([]float32, len(img.Pixels))
	copy(pixels, img.Pixels)
	return &Image{
		Pixels:   pixels,
		Width:    img.Width,
		Height:   img.Height,
		Channels: img.Channels,
	}
}

// MergeRegion copies a w*h 4-channel float sub-region into the buffer at
// offset (x, y). The region must fit inside the buffer; out-of-bounds
// regions are rejected so a stray bucket can never corrupt memory.
func (img *Image) MergeRegion(data []byte, x, y, w, h int) error {
	if img.Channels != 4 {
		return fmt.Errorf("merge region: buffer has %d channels, want 4", img.Channels)
	}
	if x < 0 || y < 0 || w < 0 || h < 0 || x+w > img.Width || y+h > img.Height {
		return fmt.Errorf("merge region: %dx%d at (%d,%d) outside %dx%d buffer",
			w, h, x, y, img.Width, img.Height)
	}

	source, err := floatsFrom(data, w*h*4)
	if err != nil {
		return fmt.Errorf("merge region: %w", err)
	}

	rowLen := w * 4
	for row := 0; row < h; row++ {
		destOff := ((y+row)*img.Width + x) * 4
		copy(img.Pixels[destOff:destOff+rowLen], source[row*rowLen:(row+1)*rowLen])
	}
	return nil
}

// Flip reverses the row order in place.
func (img *Image) Flip() {
	if !img.Valid() {
		return
	}
	rowLen := img.Width * img.Channels
	tmp := make([]float32, rowLen)
	for top, bottom := 0, img.Height-1; top < bottom; top, bottom = top+1, bottom-1 {
		a := img.Pixels[top*rowLen : (top+1)*rowLen]
		b := img.Pixels[bottom*rowLen : (bottom+1)*rowLen]
		copy(tmp, a)
		copy(a, b)
		copy(b, tmp)
	}
}

// ResetAlpha forces the alpha component to fully opaque. No-op for buffers
// without an alpha channel.
func (img *Image) ResetAlpha() {
	if !img.Valid() || img.Channels != 4 {
		return
	}
	for i := 3; i < len(img.Pixels); i += 4 {
		img.Pixels[i] = 1.0
	}
}

// Clamp limits every sample to [0, 1].
func (img *Image) Clamp() {
	if !img.Valid() {
		return
	}
	for i, v := range img.Pixels {
		if v < 0 {
			img.Pixels[i] = 0
		} else if v > 1 {
			img.Pixels[i] = 1
		}
	}
}

// floatsFrom reinterprets raw little-endian float32 bytes, checking the
// sample count.
func floatsFrom(data []byte, want int) ([]float32, error) {
	if len(data) != want*4 {
		return nil, fmt.Errorf("payload has %d bytes, want %d", len(data), want*4)
	}
	out := make([]float32, want)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out, nil
}
