package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/blur"
	"github.com/disintegration/imaging"
)

// DefaultRedactSigma is the blur radius used when none is given.
const DefaultRedactSigma = 12.0

// Redact returns a copy of img with every region in rects Gaussian blurred.
// Regions are clamped to the image; regions outside it are ignored.
func Redact(img image.Image, rects []image.Rectangle, sigma float64) *image.NRGBA {
	if sigma <= 0 {
		sigma = DefaultRedactSigma
	}

	dst := imaging.Clone(img)
	offset := img.Bounds().Min
	for _, r := range rects {
		r = r.Sub(offset).Intersect(dst.Bounds())
		if r.Empty() {
			continue
		}
		region := imaging.Crop(dst, r)
		dst = imaging.Paste(dst, blur.Gaussian(region, sigma), r.Min)
	}
	return dst
}
