package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strconv"

	"github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/ironsheep/face-detect-mcp/internal/faces"
)

// Annotation is one face to draw, in image coordinates.
type Annotation struct {
	Box    image.Rectangle
	Score  float32
	Points []image.Point
}

// Annotations converts detections to annotations in source image pixels.
func Annotations(res *faces.Result) []Annotation {
	anns := make([]Annotation, len(res.Faces))
	for i, f := range res.Faces {
		anns[i] = Annotation{
			Box:    f.SourceRect(res.Scale()),
			Score:  f.Confidence,
			Points: f.SourcePoints(res.Scale()),
		}
	}
	return anns
}

// AnnotateOptions control Annotate.
type AnnotateOptions struct {
	// Color overrides the per-score palette for boxes when set.
	Color color.Color

	// Thickness of box lines in pixels. Defaults to 2.
	Thickness int

	// PointRadius of landmark dots in pixels. Defaults to 2.
	PointRadius int

	// HideLabels suppresses the score label above each box.
	HideLabels bool
}

var (
	lowScore  = colorful.Hcl(20, 0.9, 0.55)  // red
	highScore = colorful.Hcl(135, 0.8, 0.75) // green
)

// ScoreColor maps a score in 0..1 to a color between red and green.
func ScoreColor(score float32) color.Color {
	s := float64(score)
	switch {
	case s < 0:
		s = 0
	case s > 1:
		s = 1
	}
	return lowScore.BlendHcl(highScore, s).Clamped()
}

// Annotate returns a copy of img with a box, landmark dots and a score label
// drawn for every annotation.
func Annotate(img image.Image, anns []Annotation, opts AnnotateOptions) *image.NRGBA {
	if opts.Thickness <= 0 {
		opts.Thickness = 2
	}
	if opts.PointRadius <= 0 {
		opts.PointRadius = 2
	}

	dst := imaging.Clone(img)
	offset := img.Bounds().Min

	for _, a := range anns {
		c := opts.Color
		if c == nil {
			c = ScoreColor(a.Score)
		}
		box := a.Box.Sub(offset)
		drawBox(dst, box, opts.Thickness, c)

		for i, p := range a.Points {
			drawDot(dst, p.Sub(offset), opts.PointRadius, landmarkColor(i))
		}

		if !opts.HideLabels {
			drawLabel(dst, box.Min.X, box.Min.Y, fmt.Sprintf("%.2f", a.Score), color.White, color.NRGBA{0, 0, 0, 180})
		}
	}
	return dst
}

func drawBox(dst draw.Image, r image.Rectangle, thickness int, c color.Color) {
	src := image.NewUniform(c)
	t := thickness
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t),
		image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y),
		image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(dst.Bounds()), src, image.Point{}, draw.Over)
	}
}

func drawDot(dst draw.Image, p image.Point, radius int, c color.Color) {
	b := dst.Bounds()
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			if dx*dx+dy*dy > radius*radius {
				continue
			}
			q := image.Pt(p.X+dx, p.Y+dy)
			if q.In(b) {
				dst.Set(q.X, q.Y, c)
			}
		}
	}
}

// landmarkColor gives each of the five keypoints its own hue.
func landmarkColor(i int) color.Color {
	return colorful.Hsv(float64(i*72%360), 0.8, 1)
}

// drawLabel writes text with its bottom-left corner at (x, y), moving it
// inside the image when it would fall off the top.
func drawLabel(dst draw.Image, x, y int, text string, fg, bg color.Color) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	height := face.Metrics().Height.Ceil()

	top := y - height
	if top < dst.Bounds().Min.Y {
		top = y
	}
	bgRect := image.Rect(x, top, x+width+2, top+height).Intersect(dst.Bounds())
	draw.Draw(dst, bgRect, image.NewUniform(bg), image.Point{}, draw.Over)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(fg),
		Face: face,
		Dot:  fixed.P(x+1, top+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(text)
}

// ParseHexColor parses "#RRGGBB" or "#RRGGBBAA". The leading '#' is optional.
func ParseHexColor(hex string) (color.RGBA, error) {
	if len(hex) == 0 {
		return color.RGBA{}, fmt.Errorf("empty color string")
	}
	if hex[0] == '#' {
		hex = hex[1:]
	}

	var r, g, b, a uint8 = 0, 0, 0, 255

	switch len(hex) {
	case 6:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, err
		}
		r = uint8(val >> 16)
		g = uint8(val >> 8)
		b = uint8(val)
	case 8:
		val, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, err
		}
		r = uint8(val >> 24)
		g = uint8(val >> 16)
		b = uint8(val >> 8)
		a = uint8(val)
	default:
		return color.RGBA{}, fmt.Errorf("invalid hex color length")
	}

	return color.RGBA{R: r, G: g, B: b, A: a}, nil
}
