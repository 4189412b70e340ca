// Package remote registers the "remote" backend, a client for a YuNet
// inference service listening on a unix socket.
//
// Each Detect call opens a connection, writes one msgpack request and reads
// one msgpack response. The whole exchange shares a single deadline.
package remote

import (
	"fmt"
	"math"
	"net"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/ironsheep/face-detect-mcp/internal/backend"
	"github.com/ironsheep/face-detect-mcp/internal/bridge"
	"github.com/ironsheep/face-detect-mcp/internal/config"
)

// Name is the registry name of this backend.
const Name = "remote"

// PixelFormat tells the service how to read Request.Data.
const PixelFormat = "bgr"

func init() {
	backend.Register(Name, func(cfg config.Backends) (backend.Detector, error) {
		return New(cfg.Remote.Socket, cfg.Remote.Timeout), nil
	})
}

// Request is sent to the inference service.
type Request struct {
	Height int    `msgpack:"h"`
	Width  int    `msgpack:"w"`
	Format string `msgpack:"f"`
	Data   []byte `msgpack:"d"` // packed rows, shape (H, W, 3)
}

// Detection is one face reported by the service.
type Detection struct {
	X          float32   `msgpack:"x"`
	Y          float32   `msgpack:"y"`
	Width      float32   `msgpack:"w"`
	Height     float32   `msgpack:"h"`
	Confidence float32   `msgpack:"c"`
	Landmarks  []float32 `msgpack:"l"`
}

// Response is received from the inference service.
type Response struct {
	Detections  []Detection `msgpack:"detections"`
	InferenceMs float32     `msgpack:"inference_ms"`
}

// Client talks to the service. It keeps no connection between calls and is
// safe for concurrent use.
type Client struct {
	socketPath string
	timeout    time.Duration
}

// New creates a client for the service at socketPath.
func New(socketPath string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 100 * time.Millisecond
	}
	return &Client{socketPath: socketPath, timeout: timeout}
}

// Detect implements bridge.Detector.
func (c *Client) Detect(pix []byte, width, height, stride int) ([]bridge.NativeFace, error) {
	resp, err := c.roundTrip(&Request{
		Height: height,
		Width:  width,
		Format: PixelFormat,
		Data:   packRows(pix, width, height, stride),
	})
	if err != nil {
		return nil, err
	}
	config.Debugf("[REMOTE] %d detections in %.1fms", len(resp.Detections), resp.InferenceMs)

	faces := make([]bridge.NativeFace, len(resp.Detections))
	for i, det := range resp.Detections {
		if len(det.Landmarks) != bridge.LandmarkCount {
			return nil, fmt.Errorf("%w: detection %d has %d landmark values, want %d",
				bridge.ErrLandmarkCount, i, len(det.Landmarks), bridge.LandmarkCount)
		}
		f := &faces[i]
		f.Score = det.Confidence
		f.X, f.Y = round(det.X), round(det.Y)
		f.W, f.H = round(det.Width), round(det.Height)
		for j, v := range det.Landmarks {
			f.Landmarks[j] = round(v)
		}
	}
	return faces, nil
}

func (c *Client) roundTrip(req *Request) (*Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to inference service: %w", err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return nil, fmt.Errorf("failed to set deadline: %w", err)
	}

	if err := msgpack.NewEncoder(conn).Encode(req); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	var resp Response
	if err := msgpack.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &resp, nil
}

// Close implements backend.Detector.
func (c *Client) Close() error { return nil }

func packRows(pix []byte, width, height, stride int) []byte {
	row := width * bridge.BytesPerPixel
	if stride == row {
		return pix[:row*height]
	}
	packed := make([]byte, row*height)
	for y := 0; y < height; y++ {
		copy(packed[y*row:(y+1)*row], pix[y*stride:y*stride+row])
	}
	return packed
}

func round(v float32) int32 {
	return int32(math.Round(float64(v)))
}
