package ioutils

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	_ "image/png" // PNG decoder registration

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // WebP decoder registration, YouTube serves most thumbnails as WebP
)

// ErrEmptyImage is returned for empty input.
var ErrEmptyImage = errors.New("empty image data")

// ImageService turns video thumbnails into cover art.
//
// Thumbnails arrive as WebP, JPEG or PNG and are usually 16:9. ID3 players
// expect a JPEG, so every result is re-encoded as one.
//
// Example usage:
//
//	svc := NewImageService()
//	cover, _ := svc.CoverArt(ctx, thumbnail, 1000)
type ImageService struct {
	// Quality of the produced JPEG.
	// Default: 90
	Quality int
}

// NewImageService creates a new ImageService.
func NewImageService() *ImageService {
	return &ImageService{Quality: 90}
}

// CoverArt decodes data, scales it down to fit in a maxSize x maxSize
// square preserving the aspect ratio, and returns it as JPEG. Images that
// already fit, or a non-positive maxSize, are only re-encoded.
func (s *ImageService) CoverArt(ctx context.Context, data []byte, maxSize int) ([]byte, error) {
	if maxSize <= 0 {
		return s.ConvertToJPEG(ctx, data)
	}
	return s.ResizeImage(ctx, data, maxSize, maxSize)
}

// ResizeImage resizes an image to fit within the specified maximum dimensions.
//
// The aspect ratio is preserved and images are never scaled up. The result
// is JPEG-encoded. The Catmull-Rom algorithm is used for scaling.
//
// Example:
//
//	// A 1280x720 thumbnail becomes 1000x562
//	resized, err := svc.ResizeImage(ctx, imageData, 1000, 1000)
func (s *ImageService) ResizeImage(ctx context.Context, data []byte, maxWidth, maxHeight int) ([]byte, error) {
	img, err := decode(ctx, data)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width, height := fit(bounds.Dx(), bounds.Dy(), maxWidth, maxHeight)
	if width == bounds.Dx() && height == bounds.Dy() {
		return s.encode(img)
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	return s.encode(dst)
}

// ConvertToJPEG re-encodes an image as JPEG without resizing.
func (s *ImageService) ConvertToJPEG(ctx context.Context, data []byte) ([]byte, error) {
	img, err := decode(ctx, data)
	if err != nil {
		return nil, err
	}
	return s.encode(img)
}

func (s *ImageService) encode(img image.Image) ([]byte, error) {
	q := s.Quality
	if q <= 0 || q > 100 {
		q = 90
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(ctx context.Context, data []byte) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}

// fit returns the largest size within maxW x maxH with the aspect ratio of
// w x h. Sizes that already fit are returned unchanged.
func fit(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}

	ratio := float64(w) / float64(h)
	if float64(maxW)/float64(maxH) > ratio {
		w = int(float64(maxH) * ratio)
		h = maxH
	} else {
		h = int(float64(maxW) / ratio)
		w = maxW
	}
	return max(w, 1), max(h, 1)
}
