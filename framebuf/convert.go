package framebuf

import (
	"bytes"
	"fmt"
	"image/jpeg"

	"github.com/pithecene-io/renderlink/types"
	"github.com/pithecene-io/renderlink/wire"
)

// Convert turns a full-frame image payload into a fresh buffer. One
// conversion rule per format:
//
//	RGBAFloat: 4-channel direct copy
//	RGBFloat:  4-channel source, alpha dropped per pixel
//	BWFloat:   4-channel source, first component only
//	JPEG:      decoded to a 3-channel float buffer
//
// Bucket payloads are not handled here; see Image.MergeRegion.
func Convert(p *wire.ImagePayload) (*Image, error) {
	switch p.Format {
	case types.FormatRGBAFloat:
		return convertRGBA(p.Data, p.Width, p.Height)
	case types.FormatRGBFloat:
		return convertRGB(p.Data, p.Width, p.Height)
	case types.FormatBWFloat:
		return convertBW(p.Data, p.Width, p.Height)
	case types.FormatJPEG:
		return decodeJPEG(p.Data)
	default:
		return nil, fmt.Errorf("no conversion for image format %d", p.Format)
	}
}

// convertRGBA copies a 4-channel float frame as-is.
func convertRGBA(data []byte, w, h int) (*Image, error) {
	source, err := floatsFrom(data, w*h*4)
	if err != nil {
		return nil, fmt.Errorf("rgba convert: %w", err)
	}
	return &Image{Pixels: source, Width: w, Height: h, Channels: 4}, nil
}

// convertRGB drops the alpha component of a 4-channel float frame.
func convertRGB(data []byte, w, h int) (*Image, error) {
	source, err := floatsFrom(data, w*h*4)
	if err != nil {
		return nil, fmt.Errorf("rgb convert: %w", err)
	}
	img := &Image{Pixels: make([]float32, w*h*3), Width: w, Height: h, Channels: 3}
	for px := 0; px < w*h; px++ {
		img.Pixels[px*3+0] = source[px*4+0]
		img.Pixels[px*3+1] = source[px*4+1]
		img.Pixels[px*3+2] = source[px*4+2]
	}
	return img, nil
}

// convertBW keeps only the first component of a 4-channel float frame.
func convertBW(data []byte, w, h int) (*Image, error) {
	source, err := floatsFrom(data, w*h*4)
	if err != nil {
		return nil, fmt.Errorf("bw convert: %w", err)
	}
	img := &Image{Pixels: make([]float32, w*h), Width: w, Height: h, Channels: 1}
	for px := 0; px < w*h; px++ {
		img.Pixels[px] = source[px*4]
	}
	return img, nil
}

// decodeJPEG fully decodes an encoded raster into a 3-channel float buffer,
// replacing any previous buffer for the channel wholesale.
func decodeJPEG(data []byte) (*Image, error) {
	decoded, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("jpeg decode: %w", err)
	}

	bounds := decoded.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	img := &Image{Pixels: make([]float32, w*h*3), Width: w, Height: h, Channels: 3}

	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := decoded.At(x, y).RGBA()
			img.Pixels[i+0] = float32(r) / 0xffff
			img.Pixels[i+1] = float32(g) / 0xffff
			img.Pixels[i+2] = float32(b) / 0xffff
			i += 3
		}
	}
	return img, nil
}
