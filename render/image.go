package render

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"

	_ "image/gif"
	_ "image/jpeg"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Picture is image data in a format gofpdf can embed (PNG, JPG or GIF),
// registered under a name derived from its content.
type Picture struct {
	Name string
	Type string
	Data []byte
}

// ResolveImage turns an image source into a Picture. Supported sources
// are a file path, encoded image bytes, an io.Reader of encoded bytes, an
// image.Image, or a Picture. BMP, TIFF and WebP input, as well as PNG
// variants gofpdf cannot embed, are re-encoded as 8-bit PNG.
func ResolveImage(src any) (*Picture, error) {
	switch s := src.(type) {
	case *Picture:
		return s, nil
	case Picture:
		return &s, nil
	case string:
		data, err := os.ReadFile(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
		}
		return pictureFromBytes(data)
	case []byte:
		return pictureFromBytes(s)
	case io.Reader:
		data, err := io.ReadAll(s)
		if err != nil {
			return nil, fmt.Errorf("%w: reading image: %v", ErrUnsupportedImage, err)
		}
		return pictureFromBytes(data)
	case image.Image:
		return pictureFromImage(s)
	case nil:
		return nil, fmt.Errorf("%w: nil", ErrUnsupportedImage)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedImage, src)
	}
}

func pictureFromBytes(data []byte) (*Picture, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	switch format {
	case "jpeg":
		return newPicture("JPG", data), nil
	case "gif":
		return newPicture("GIF", data), nil
	case "png":
		if !pngNeedsReencoding(data, cfg) {
			return newPicture("PNG", data), nil
		}
	case "bmp", "tiff", "webp":
	default:
		return nil, fmt.Errorf("%w: format %s", ErrUnsupportedImage, format)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrUnsupportedImage, format, err)
	}
	tracer().Debugf("re-encoding %s image (%dx%d) as PNG", format, cfg.Width, cfg.Height)
	return pictureFromImage(img)
}

// pngNeedsReencoding reports PNG features gofpdf rejects: 16-bit samples
// and Adam7 interlacing.
func pngNeedsReencoding(data []byte, cfg image.Config) bool {
	switch cfg.ColorModel {
	case color.RGBA64Model, color.NRGBA64Model, color.Gray16Model:
		return true
	}
	// The interlace method is the last byte of the IHDR chunk.
	const interlaceOffset = 8 + 8 + 12
	return len(data) > interlaceOffset && data[interlaceOffset] != 0
}

func pictureFromImage(img image.Image) (*Picture, error) {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("%w: encoding PNG: %v", ErrUnsupportedImage, err)
	}
	return newPicture("PNG", buf.Bytes()), nil
}

func newPicture(typ string, data []byte) *Picture {
	sum := sha256.Sum256(data)
	return &Picture{
		Name: "img-" + hex.EncodeToString(sum[:12]),
		Type: typ,
		Data: data,
	}
}
