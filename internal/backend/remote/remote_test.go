package remote

import (
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/ironsheep/face-detect-mcp/internal/bridge"
)

// serve answers every connection on a temporary unix socket with resp and
// sends each decoded request on the returned channel.
func serve(t *testing.T, resp Response) (string, <-chan Request) {
	t.Helper()
	// t.TempDir paths can exceed the unix socket path limit.
	dir, err := os.MkdirTemp("", "fd")
	if err != nil {
		t.Fatalf("failed to create socket dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "yunet.sock")

	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Skipf("unix sockets unavailable: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	reqs := make(chan Request, 4)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			var req Request
			if err := msgpack.NewDecoder(conn).Decode(&req); err == nil {
				reqs <- req
				msgpack.NewEncoder(conn).Encode(&resp)
			}
			conn.Close()
		}
	}()
	return path, reqs
}

func TestClient_Detect(t *testing.T) {
	path, reqs := serve(t, Response{
		Detections: []Detection{{
			X: 10.2, Y: 19.8, Width: 30, Height: 40.5, Confidence: 0.91,
			Landmarks: []float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		}},
		InferenceMs: 3.5,
	})

	c := New(path, time.Second)
	// 2x1 image, stride padded by 2 bytes
	pix := []byte{1, 2, 3, 4, 5, 6, 0, 0}
	faces, err := c.Detect(pix, 2, 1, 8)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	req := <-reqs
	if req.Width != 2 || req.Height != 1 || req.Format != "bgr" {
		t.Errorf("request header: got %+v", req)
	}
	if string(req.Data) != string([]byte{1, 2, 3, 4, 5, 6}) {
		t.Errorf("request data should be packed, got %v", req.Data)
	}

	if len(faces) != 1 {
		t.Fatalf("got %d faces, want 1", len(faces))
	}
	f := faces[0]
	if f.X != 10 || f.Y != 20 || f.W != 30 || f.H != 41 {
		t.Errorf("box: got %d,%d %dx%d", f.X, f.Y, f.W, f.H)
	}
	if f.Score != 0.91 {
		t.Errorf("score: got %v, want 0.91", f.Score)
	}
	if f.Landmarks != (bridge.Landmarks{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}) {
		t.Errorf("landmarks: got %v", f.Landmarks)
	}
}

func TestClient_LandmarkMismatch(t *testing.T) {
	tests := []struct {
		name string
		lm   []float32
	}{
		{"too few", []float32{1, 2, 3, 4}},
		{"too many", make([]float32, 12)},
		{"missing", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, _ := serve(t, Response{Detections: []Detection{{Width: 5, Height: 5, Landmarks: tt.lm}}})
			_, err := New(path, time.Second).Detect(make([]byte, 3), 1, 1, 3)
			if !errors.Is(err, bridge.ErrLandmarkCount) {
				t.Errorf("got %v, want ErrLandmarkCount", err)
			}
			if !errors.Is(err, bridge.ErrContractViolation) {
				t.Error("landmark mismatch should be a contract violation")
			}
		})
	}
}

func TestClient_NoService(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "absent.sock"), 50*time.Millisecond)
	_, err := c.Detect(make([]byte, 3), 1, 1, 3)
	if err == nil || !strings.Contains(err.Error(), "failed to connect") {
		t.Errorf("got %v, want connection error", err)
	}
}

func TestClient_EmptyResponse(t *testing.T) {
	path, _ := serve(t, Response{})
	faces, err := New(path, time.Second).Detect(make([]byte, 3), 1, 1, 3)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if faces == nil || len(faces) != 0 {
		t.Errorf("got %v, want empty non-nil slice", faces)
	}
}
