package faces

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/face-detect-mcp/internal/bridge"
)

// ToBGR converts img into a packed BGR buffer with no row padding, the
// pixel layout every detector backend expects. Alpha is discarded.
func ToBGR(img image.Image) (pix []byte, width, height, stride int) {
	nrgba := imaging.Clone(img)
	width = nrgba.Rect.Dx()
	height = nrgba.Rect.Dy()
	stride = width * bridge.BytesPerPixel
	pix = make([]byte, stride*height)

	for y := 0; y < height; y++ {
		src := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+width*4]
		dst := pix[y*stride : (y+1)*stride]
		for x := 0; x < width; x++ {
			dst[x*3+0] = src[x*4+2]
			dst[x*3+1] = src[x*4+1]
			dst[x*3+2] = src[x*4+0]
		}
	}
	return pix, width, height, stride
}

// fitForDetection shrinks img so its longest side is at most maxDim.
// Images already small enough, or maxDim <= 0, are returned as is.
func fitForDetection(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	if maxDim <= 0 || (b.Dx() <= maxDim && b.Dy() <= maxDim) {
		return img
	}
	return imaging.Fit(img, maxDim, maxDim, imaging.Linear)
}
