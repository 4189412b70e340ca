package bridge

import (
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fixedDetector returns a copy of records on every call and counts calls.
type fixedDetector struct {
	records []NativeFace
	err     error
	calls   int
}

func (d *fixedDetector) Detect(pix []byte, width, height, stride int) ([]NativeFace, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	out := make([]NativeFace, len(d.records))
	copy(out, d.records)
	return out, nil
}

func exampleRecords() []NativeFace {
	return []NativeFace{
		{Score: 0.98, X: 10, Y: 20, W: 30, H: 40, Landmarks: Landmarks{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}},
		{Score: 0.4, X: 100, Y: 5, W: 20, H: 25, Landmarks: Landmarks{}},
	}
}

func bgrBuffer(width, height int) ([]byte, int) {
	stride := width * BytesPerPixel
	return make([]byte, stride*height), stride
}

func TestDetectFaces_ExampleScenario(t *testing.T) {
	det := &fixedDetector{records: exampleRecords()}
	pix, stride := bgrBuffer(8, 8)

	faces, err := DetectFaces(det, pix, 8, 8, stride)
	if err != nil {
		t.Fatalf("DetectFaces failed: %v", err)
	}

	want := []Face{
		{Score: 0.98, X: 10, Y: 20, W: 30, H: 40, Landmarks: Landmarks{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}},
		{Score: 0.4, X: 100, Y: 5, W: 20, H: 25, Landmarks: Landmarks{0, 0, 0, 0, 0, 0, 0, 0, 0, 0}},
	}
	if len(faces) != len(want) {
		t.Fatalf("count: got %d, want %d", len(faces), len(want))
	}
	for i := range want {
		if faces[i] != want[i] {
			t.Errorf("face %d: got %+v, want %+v", i, faces[i], want[i])
		}
	}
}

func TestDetectFaces_FieldAndLandmarkFidelity(t *testing.T) {
	records := make([]NativeFace, 50)
	for i := range records {
		n := int32(i)
		records[i] = NativeFace{
			Score: float32(i) / 49,
			X:     n * 3,
			Y:     -n,
			W:     n + 1,
			H:     n * 2,
		}
		for j := range records[i].Landmarks {
			records[i].Landmarks[j] = n*100 + int32(j)
		}
	}
	det := &fixedDetector{records: records}
	pix, stride := bgrBuffer(4, 4)

	faces, err := DetectFaces(det, pix, 4, 4, stride)
	if err != nil {
		t.Fatalf("DetectFaces failed: %v", err)
	}
	if len(faces) != len(records) {
		t.Fatalf("count: got %d, want %d", len(faces), len(records))
	}

	for i, n := range records {
		f := faces[i]
		if f.Score != n.Score || f.X != n.X || f.Y != n.Y || f.W != n.W || f.H != n.H {
			t.Errorf("face %d scalars: got %+v, want %+v", i, f, n)
		}
		if len(f.Landmarks) != LandmarkCount {
			t.Errorf("face %d: landmark length %d, want %d", i, len(f.Landmarks), LandmarkCount)
		}
		for j := range n.Landmarks {
			if f.Landmarks[j] != n.Landmarks[j] {
				t.Errorf("face %d landmark %d: got %d, want %d", i, j, f.Landmarks[j], n.Landmarks[j])
			}
		}
	}
}

func TestDetectFaces_NoDetectionsIsEmptyNotNil(t *testing.T) {
	det := &fixedDetector{}
	pix, stride := bgrBuffer(16, 16)

	faces, err := DetectFaces(det, pix, 16, 16, stride)
	if err != nil {
		t.Fatalf("DetectFaces failed: %v", err)
	}
	if faces == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(faces) != 0 {
		t.Errorf("expected 0 faces, got %d", len(faces))
	}
}

func TestDetectFaces_DegenerateGeometry(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
	}{
		{"zero width", 0, 10},
		{"zero height", 10, 0},
		{"zero size", 0, 0},
		{"negative width", -4, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			det := &fixedDetector{records: exampleRecords()}
			faces, err := DetectFaces(det, nil, tt.width, tt.height, 0)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if faces == nil || len(faces) != 0 {
				t.Errorf("expected empty non-nil slice, got %v", faces)
			}
			if det.calls != 0 {
				t.Errorf("detector called %d times for degenerate input", det.calls)
			}
		})
	}
}

func TestDetectFaces_ContractViolations(t *testing.T) {
	tests := []struct {
		name   string
		pixLen int
		width  int
		height int
		stride int
		want   error
	}{
		{"buffer one byte short", 10*3*10 - 1, 10, 10, 30, ErrShortBuffer},
		{"empty buffer", 0, 10, 10, 30, ErrShortBuffer},
		{"padded stride needs more bytes", 10 * 30, 10, 10, 32, ErrShortBuffer},
		{"stride below width", 10 * 30, 10, 10, 29, ErrStrideTooSmall},
		{"zero stride", 10 * 30, 10, 10, 0, ErrStrideTooSmall},
		{"stride times height overflows", 0, 1, 2, math.MaxInt/2 + 1, ErrShortBuffer},
		{"width times bytes per pixel overflows", 4, math.MaxInt/BytesPerPixel + 1, 1, 4, ErrStrideTooSmall},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			det := &fixedDetector{records: exampleRecords()}
			_, err := DetectFaces(det, make([]byte, tt.pixLen), tt.width, tt.height, tt.stride)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got error %v, want %v", err, tt.want)
			}
			if !errors.Is(err, ErrContractViolation) {
				t.Errorf("error %v does not wrap ErrContractViolation", err)
			}
			if det.calls != 0 {
				t.Error("detector must not run when preconditions fail")
			}
		})
	}
}

func TestDetectFaces_PaddedStride(t *testing.T) {
	det := &fixedDetector{records: exampleRecords()}
	stride := 10*BytesPerPixel + 2

	faces, err := DetectFaces(det, make([]byte, stride*10), 10, 10, stride)
	if err != nil {
		t.Fatalf("DetectFaces with padded stride failed: %v", err)
	}
	if len(faces) != 2 {
		t.Errorf("expected 2 faces, got %d", len(faces))
	}
}

func TestDetectFaces_DetectorErrorUnchanged(t *testing.T) {
	engineErr := errors.New("engine exploded")
	det := &fixedDetector{err: engineErr}
	pix, stride := bgrBuffer(4, 4)

	faces, err := DetectFaces(det, pix, 4, 4, stride)
	if err != engineErr {
		t.Fatalf("got error %v, want the detector's error value", err)
	}
	if faces != nil {
		t.Errorf("expected no faces on failure, got %v", faces)
	}
}

func TestDetectFaces_IndependentResults(t *testing.T) {
	records := exampleRecords()
	det := DetectorFunc(func(pix []byte, width, height, stride int) ([]NativeFace, error) {
		return records, nil
	})
	pix, stride := bgrBuffer(4, 4)

	first, err := DetectFaces(det, pix, 4, 4, stride)
	if err != nil {
		t.Fatal(err)
	}
	second, err := DetectFaces(det, pix, 4, 4, stride)
	if err != nil {
		t.Fatal(err)
	}

	first[0].Score = -1
	first[0].Landmarks[3] = 999

	if second[0].Score != 0.98 || second[0].Landmarks[3] != 4 {
		t.Errorf("second result changed after mutating first: %+v", second[0])
	}
	if records[0].Score != 0.98 || records[0].Landmarks[3] != 4 {
		t.Errorf("native records changed after mutating a result: %+v", records[0])
	}
}

func TestConvert_EmptyAndNil(t *testing.T) {
	if got := Convert(nil); got == nil || len(got) != 0 {
		t.Errorf("Convert(nil): got %v, want empty non-nil slice", got)
	}
	if got := Convert([]NativeFace{}); got == nil || len(got) != 0 {
		t.Errorf("Convert(empty): got %v, want empty non-nil slice", got)
	}
}

func TestSerialize_OneCallAtATime(t *testing.T) {
	var inFlight, maxInFlight int32
	inner := DetectorFunc(func(pix []byte, width, height, stride int) ([]NativeFace, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			m := atomic.LoadInt32(&maxInFlight)
			if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return []NativeFace{{Score: 1}}, nil
	})
	det := Serialize(inner)
	pix, stride := bgrBuffer(2, 2)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			faces, err := DetectFaces(det, pix, 2, 2, stride)
			if err != nil || len(faces) != 1 {
				t.Errorf("concurrent DetectFaces: faces=%v err=%v", faces, err)
			}
		}()
	}
	wg.Wait()

	if maxInFlight != 1 {
		t.Errorf("max concurrent Detect calls: got %d, want 1", maxInFlight)
	}
}
