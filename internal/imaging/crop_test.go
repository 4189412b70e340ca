package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func decodeResult(t *testing.T, r *ImageResult) image.Image {
	t.Helper()
	data, err := base64.StdEncoding.DecodeString(r.ImageBase64)
	if err != nil {
		t.Fatalf("failed to decode base64: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to decode PNG: %v", err)
	}
	return img
}

func TestCrop(t *testing.T) {
	img := createPatternImage(100, 100)

	result, err := Crop(img, 0, 0, 50, 50, 1.0)
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}
	if result.Width != 50 || result.Height != 50 {
		t.Errorf("dimensions: got %dx%d, want 50x50", result.Width, result.Height)
	}
	if result.MimeType != "image/png" {
		t.Errorf("MimeType: got %s, want image/png", result.MimeType)
	}

	// top-left quadrant is red
	r, g, b := rgb8(decodeResult(t, result).At(25, 25))
	if r != 255 || g != 0 || b != 0 {
		t.Errorf("cropped color: got (%d,%d,%d), want (255,0,0)", r, g, b)
	}
}

func TestCrop_Scale(t *testing.T) {
	img := createInMemoryImage(100, 100, color.RGBA{255, 0, 0, 255})

	tests := []struct {
		name         string
		x2, y2       int
		scale        float64
		wantW, wantH int
	}{
		{"up", 50, 50, 2.0, 100, 100},
		{"down", 100, 100, 0.5, 50, 50},
		{"zero ignored", 40, 20, 0, 40, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Crop(img, 0, 0, tt.x2, tt.y2, tt.scale)
			if err != nil {
				t.Fatalf("Crop failed: %v", err)
			}
			if result.Width != tt.wantW || result.Height != tt.wantH {
				t.Errorf("got %dx%d, want %dx%d", result.Width, result.Height, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestCrop_InvalidRegions(t *testing.T) {
	img := createInMemoryImage(100, 100, color.RGBA{255, 0, 0, 255})

	tests := []struct {
		name           string
		x1, y1, x2, y2 int
	}{
		{"x1 negative", -1, 0, 50, 50},
		{"y1 negative", 0, -1, 50, 50},
		{"x2 too large", 0, 0, 101, 50},
		{"y2 too large", 0, 0, 50, 101},
		{"x1 >= x2", 50, 0, 50, 50},
		{"y1 > y2", 0, 60, 50, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Crop(img, tt.x1, tt.y1, tt.x2, tt.y2, 1.0); err == nil {
				t.Error("Crop should fail")
			}
		})
	}
}

func TestExpandRect(t *testing.T) {
	r := image.Rect(10, 20, 30, 60)

	if got := ExpandRect(r, 0); got != r {
		t.Errorf("zero margin: got %v, want %v", got, r)
	}
	want := image.Rect(5, 10, 35, 70)
	if got := ExpandRect(r, 0.25); got != want {
		t.Errorf("0.25 margin: got %v, want %v", got, want)
	}
}

func TestCropFace(t *testing.T) {
	img := createPatternImage(100, 100)

	tests := []struct {
		name         string
		face         image.Rectangle
		margin       float64
		wantW, wantH int
	}{
		{"inside", image.Rect(10, 10, 30, 30), 0, 20, 20},
		{"with margin", image.Rect(20, 20, 40, 40), 0.5, 40, 40},
		{"clamped at edge", image.Rect(90, 90, 110, 110), 0, 10, 10},
		{"margin clamped", image.Rect(0, 0, 20, 20), 0.5, 30, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := CropFace(img, tt.face, tt.margin, 1.0)
			if err != nil {
				t.Fatalf("CropFace failed: %v", err)
			}
			if result.Width != tt.wantW || result.Height != tt.wantH {
				t.Errorf("got %dx%d, want %dx%d", result.Width, result.Height, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestCropFace_OutsideImage(t *testing.T) {
	img := createPatternImage(50, 50)
	if _, err := CropFace(img, image.Rect(100, 100, 120, 120), 0.1, 1.0); err == nil {
		t.Error("CropFace should fail when the box misses the image")
	}
}

func TestImageResult_WritePNG(t *testing.T) {
	result, err := EncodePNG(createInMemoryImage(7, 3, color.White))
	if err != nil {
		t.Fatalf("EncodePNG failed: %v", err)
	}
	if result.Width != 7 || result.Height != 3 {
		t.Errorf("got %dx%d, want 7x3", result.Width, result.Height)
	}

	var buf bytes.Buffer
	if err := result.WritePNG(&buf); err != nil {
		t.Fatalf("WritePNG failed: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("written bytes are not a PNG: %v", err)
	}
	if img.Bounds().Dx() != 7 {
		t.Errorf("decoded width: got %d, want 7", img.Bounds().Dx())
	}
}
