package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// Crop extracts the region (x1,y1)-(x2,y2) of img and optionally resizes it
// by scale.
func Crop(img image.Image, x1, y1, x2, y2 int, scale float64) (*ImageResult, error) {
	bounds := img.Bounds()

	if x1 < bounds.Min.X || y1 < bounds.Min.Y || x2 > bounds.Max.X || y2 > bounds.Max.Y {
		return nil, fmt.Errorf("crop region (%d,%d)-(%d,%d) outside image bounds (%d,%d)-(%d,%d)",
			x1, y1, x2, y2, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}
	if x1 >= x2 || y1 >= y2 {
		return nil, fmt.Errorf("invalid crop region: x1 must be < x2, y1 must be < y2")
	}

	cropped := imaging.Crop(img, image.Rect(x1, y1, x2, y2))

	if scale != 1.0 && scale > 0 {
		newWidth := int(float64(cropped.Bounds().Dx()) * scale)
		newHeight := int(float64(cropped.Bounds().Dy()) * scale)
		cropped = imaging.Resize(cropped, newWidth, newHeight, imaging.Lanczos)
	}

	return EncodePNG(cropped)
}

// CropFace crops a face box grown by margin (a fraction of the box size on
// every side) and clamped to the image.
func CropFace(img image.Image, face image.Rectangle, margin, scale float64) (*ImageResult, error) {
	r := ExpandRect(face, margin).Intersect(img.Bounds())
	if r.Empty() {
		return nil, fmt.Errorf("face box %v does not overlap the image", face)
	}
	return Crop(img, r.Min.X, r.Min.Y, r.Max.X, r.Max.Y, scale)
}

// ExpandRect grows r by margin times its width and height on each side.
func ExpandRect(r image.Rectangle, margin float64) image.Rectangle {
	if margin <= 0 {
		return r
	}
	dx := int(float64(r.Dx())*margin + 0.5)
	dy := int(float64(r.Dy())*margin + 0.5)
	return image.Rect(r.Min.X-dx, r.Min.Y-dy, r.Max.X+dx, r.Max.Y+dy)
}
