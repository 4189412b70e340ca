package imaging

import (
	"image"
	"image/color"
	"testing"

	"github.com/ironsheep/face-detect-mcp/internal/faces"
)

func TestAnnotate_DrawsBox(t *testing.T) {
	img := createInMemoryImage(100, 100, color.Black)
	box := image.Rect(20, 30, 60, 80)

	out := Annotate(img, []Annotation{{Box: box, Score: 0.9}}, AnnotateOptions{
		Color:      color.RGBA{255, 0, 0, 255},
		HideLabels: true,
	})

	if out.Bounds() != img.Bounds() {
		t.Fatalf("bounds changed: got %v", out.Bounds())
	}
	for _, p := range []image.Point{{20, 30}, {59, 79}, {40, 31}, {21, 50}} {
		if r, g, b := rgb8(out.At(p.X, p.Y)); r != 255 || g != 0 || b != 0 {
			t.Errorf("edge pixel %v: got (%d,%d,%d), want red", p, r, g, b)
		}
	}
	if r, g, b := rgb8(out.At(40, 55)); r != 0 || g != 0 || b != 0 {
		t.Errorf("interior pixel: got (%d,%d,%d), want black", r, g, b)
	}
	if r, _, _ := rgb8(img.At(20, 30)); r != 0 {
		t.Error("Annotate modified its input")
	}
}

func TestAnnotate_Landmarks(t *testing.T) {
	img := createInMemoryImage(50, 50, color.Black)
	out := Annotate(img, []Annotation{{
		Box:    image.Rect(5, 5, 45, 45),
		Score:  0.5,
		Points: []image.Point{{25, 25}},
	}}, AnnotateOptions{HideLabels: true})

	if r, g, b := rgb8(out.At(25, 25)); r == 0 && g == 0 && b == 0 {
		t.Error("landmark dot not drawn")
	}
}

func TestAnnotate_LabelAndOutOfBounds(t *testing.T) {
	img := createInMemoryImage(40, 40, color.Black)
	anns := []Annotation{
		{Box: image.Rect(0, 0, 20, 20), Score: 0.99},
		{Box: image.Rect(30, 30, 90, 90), Score: 0.1, Points: []image.Point{{200, 200}}},
	}

	// Must not panic for boxes and points past the edge
	out := Annotate(img, anns, AnnotateOptions{})

	lit := 0
	for y := 0; y < 13; y++ {
		for x := 3; x < 20; x++ {
			if r, g, b := rgb8(out.At(x, y)); r > 128 && g > 128 && b > 128 {
				lit++
			}
		}
	}
	if lit == 0 {
		t.Error("score label not drawn")
	}
}

func TestScoreColor(t *testing.T) {
	lo, _, _ := rgb8(ScoreColor(0))
	_, hiG, _ := rgb8(ScoreColor(1))
	_, loG, _ := rgb8(ScoreColor(0))
	if lo < 128 {
		t.Errorf("low score should be reddish, red channel %d", lo)
	}
	if hiG <= loG {
		t.Errorf("high score should be greener: green %d vs %d", hiG, loG)
	}
	if ScoreColor(-1) == nil || ScoreColor(2) == nil {
		t.Error("out of range scores must still map to a color")
	}
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.RGBA
		wantErr bool
	}{
		{"#FF0000", color.RGBA{255, 0, 0, 255}, false},
		{"00FF00", color.RGBA{0, 255, 0, 255}, false},
		{"#0000FF80", color.RGBA{0, 0, 255, 128}, false},
		{"", color.RGBA{}, true},
		{"#FFF", color.RGBA{}, true},
		{"#GGGGGG", color.RGBA{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHexColor(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error: got %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestAnnotations(t *testing.T) {
	res := &faces.Result{
		Width: 200, Height: 100, DetectionWidth: 100, DetectionHeight: 50,
		Faces: []faces.Face{{
			Confidence: 0.8,
			Rectangle:  faces.Rect{Left: 10, Top: 5, Width: 20, Height: 20},
			Landmarks:  faces.Landmarks{Nose: faces.Point{X: 20, Y: 15}},
		}},
	}

	anns := Annotations(res)
	if len(anns) != 1 {
		t.Fatalf("got %d annotations, want 1", len(anns))
	}
	if anns[0].Box != image.Rect(20, 10, 60, 50) {
		t.Errorf("Box: got %v", anns[0].Box)
	}
	if anns[0].Points[2] != image.Pt(40, 30) {
		t.Errorf("nose: got %v, want (40,30)", anns[0].Points[2])
	}
	if anns[0].Score != 0.8 {
		t.Errorf("Score: got %v", anns[0].Score)
	}
}
