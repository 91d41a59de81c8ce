package render

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"

	"github.com/jackzampolin/brochure/internal/types"
)

// VariantSpec sets the target widths and encoding quality of the variants.
type VariantSpec struct {
	LargeWidth     int
	MediumWidth    int
	ThumbnailWidth int
	JPEGQuality    int
}

// DefaultVariantSpec returns the standard variant sizes.
func DefaultVariantSpec() VariantSpec {
	return VariantSpec{
		LargeWidth:     1600,
		MediumWidth:    800,
		ThumbnailWidth: 320,
		JPEGQuality:    85,
	}
}

// width returns the target width for a variant; 0 means native size.
func (s VariantSpec) width(v types.Variant) int {
	switch v {
	case types.VariantLarge:
		return s.LargeWidth
	case types.VariantMedium:
		return s.MediumWidth
	case types.VariantThumbnail:
		return s.ThumbnailWidth
	default:
		return 0
	}
}

// Encoded is one encoded image variant.
type Encoded struct {
	Variant     types.Variant
	Data        []byte
	Width       int
	Height      int
	ContentType string
}

// Variants encodes img at every variant size. The result always holds all four
// variants or an error.
func Variants(img image.Image, spec VariantSpec) (map[types.Variant]Encoded, error) {
	if img == nil {
		return nil, fmt.Errorf("nil image")
	}
	quality := spec.JPEGQuality
	if quality <= 0 || quality > 100 {
		quality = DefaultVariantSpec().JPEGQuality
	}

	out := make(map[types.Variant]Encoded, len(types.AllVariants))
	for _, v := range types.AllVariants {
		scaled := Scale(img, spec.width(v))
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("failed to encode %s variant: %w", v, err)
		}
		b := scaled.Bounds()
		out[v] = Encoded{
			Variant:     v,
			Data:        buf.Bytes(),
			Width:       b.Dx(),
			Height:      b.Dy(),
			ContentType: "image/jpeg",
		}
	}
	return out, nil
}

// Scale resizes img to width, preserving aspect ratio. Images are never upscaled;
// width <= 0 returns img unchanged.
func Scale(img image.Image, width int) image.Image {
	src := img.Bounds()
	if width <= 0 || src.Dx() <= width {
		return img
	}
	height := src.Dy() * width / src.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, src, draw.Over, nil)
	return dst
}
