package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"

	"github.com/ironsheep/face-detect-mcp/internal/bridge"
	"github.com/ironsheep/face-detect-mcp/internal/faces"
	"github.com/ironsheep/face-detect-mcp/internal/imaging"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "face_detect", "face_crop").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// errInvalidArgs marks tool arguments that fail validation. Such calls are
// answered with -32602 rather than -32000.
var errInvalidArgs = errors.New("invalid arguments")

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if errors.Is(err, errInvalidArgs) {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}
	if err != nil {
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches to the handler for name.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)

	case "face_detect":
		return s.handleFaceDetect(ctx, args)
	case "face_detect_raw":
		return s.handleFaceDetectRaw(ctx, args)
	case "face_annotate":
		return s.handleFaceAnnotate(ctx, args)
	case "face_crop":
		return s.handleFaceCrop(ctx, args)
	case "face_redact":
		return s.handleFaceRedact(ctx, args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func decodeArgs(args json.RawMessage, dst interface{}) error {
	if err := json.Unmarshal(args, dst); err != nil {
		return fmt.Errorf("%w: %v", errInvalidArgs, err)
	}
	return nil
}

// === Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

// === Face Detection Handlers ===

// detectArgs are shared by every tool that runs detection.
type detectArgs struct {
	Path          string   `json:"path"`
	MaxDimension  *int     `json:"max_dimension,omitempty"`
	MinConfidence *float32 `json:"min_confidence,omitempty"`
}

// detect loads a.Path and runs detection with any per-call overrides.
func (s *Server) detect(ctx context.Context, a detectArgs) (image.Image, *faces.Result, error) {
	opts := s.svc.Options()
	if a.MaxDimension != nil {
		if *a.MaxDimension < 0 {
			return nil, nil, fmt.Errorf("%w: max_dimension must be >= 0", errInvalidArgs)
		}
		opts.MaxDimension = *a.MaxDimension
	}
	if a.MinConfidence != nil {
		if *a.MinConfidence < 0 || *a.MinConfidence > 1 {
			return nil, nil, fmt.Errorf("%w: min_confidence must be between 0.0 and 1.0", errInvalidArgs)
		}
		opts.MinConfidence = *a.MinConfidence
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, nil, err
	}
	res, err := s.svc.WithOptions(opts).Detect(ctx, img)
	if err != nil {
		return nil, nil, err
	}
	return img, res, nil
}

// faceJSON is one detection in both source and normalized coordinates.
type faceJSON struct {
	Index      int     `json:"index"`
	Confidence float32 `json:"confidence"`

	// Box and Landmarks are in source image pixels.
	Box       boxJSON       `json:"box"`
	Landmarks landmarksJSON `json:"landmarks"`

	// Detection is the face exactly as validated at detection resolution.
	Detection faces.Face `json:"detection"`

	NormalizedBox       faces.RectF      `json:"normalized_box"`
	NormalizedLandmarks faces.LandmarksF `json:"normalized_landmarks"`
}

type boxJSON struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

type pointJSON struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type landmarksJSON struct {
	RightEye   pointJSON `json:"right_eye"`
	LeftEye    pointJSON `json:"left_eye"`
	Nose       pointJSON `json:"nose"`
	MouthRight pointJSON `json:"mouth_right"`
	MouthLeft  pointJSON `json:"mouth_left"`
}

type detectResult struct {
	Width           int        `json:"width"`
	Height          int        `json:"height"`
	DetectionWidth  int        `json:"detection_width"`
	DetectionHeight int        `json:"detection_height"`
	Backend         string     `json:"backend"`
	ElapsedMs       int64      `json:"elapsed_ms"`
	Discarded       int        `json:"discarded"`
	Count           int        `json:"count"`
	Faces           []faceJSON `json:"faces"`
}

func newDetectResult(res *faces.Result) *detectResult {
	out := &detectResult{
		Width:           res.Width,
		Height:          res.Height,
		DetectionWidth:  res.DetectionWidth,
		DetectionHeight: res.DetectionHeight,
		Backend:         res.Backend,
		ElapsedMs:       res.ElapsedMs,
		Discarded:       res.Discarded,
		Count:           len(res.Faces),
		Faces:           make([]faceJSON, len(res.Faces)),
	}

	scale := res.Scale()
	for i, f := range res.Faces {
		r := f.SourceRect(scale)
		pts := f.SourcePoints(scale)
		pt := func(i int) pointJSON { return pointJSON{X: pts[i].X, Y: pts[i].Y} }

		out.Faces[i] = faceJSON{
			Index:      i,
			Confidence: f.Confidence,
			Box:        boxJSON{Left: r.Min.X, Top: r.Min.Y, Width: r.Dx(), Height: r.Dy()},
			Landmarks: landmarksJSON{
				RightEye:   pt(0),
				LeftEye:    pt(1),
				Nose:       pt(2),
				MouthRight: pt(3),
				MouthLeft:  pt(4),
			},
			Detection:           f,
			NormalizedBox:       f.NormalizedRectangle(),
			NormalizedLandmarks: f.NormalizedLandmarks(),
		}
	}
	return out
}

func (s *Server) handleFaceDetect(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a detectArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	_, res, err := s.detect(ctx, a)
	if err != nil {
		return nil, err
	}
	return newDetectResult(res), nil
}

type rawResult struct {
	DetectionWidth  int           `json:"detection_width"`
	DetectionHeight int           `json:"detection_height"`
	Backend         string        `json:"backend"`
	Faces           []bridge.Face `json:"faces"`
}

func (s *Server) handleFaceDetectRaw(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a detectArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	svc := s.svc
	if a.MaxDimension != nil {
		opts := svc.Options()
		opts.MaxDimension = *a.MaxDimension
		svc = svc.WithOptions(opts)
	}
	raw, w, h, err := svc.DetectRaw(ctx, img)
	if err != nil {
		return nil, err
	}
	return &rawResult{DetectionWidth: w, DetectionHeight: h, Backend: svc.Backend(), Faces: raw}, nil
}

type faceAnnotateArgs struct {
	detectArgs
	Color      string `json:"color"`
	HideLabels bool   `json:"hide_labels"`
}

type annotateResult struct {
	*imaging.ImageResult
	Count int `json:"count"`
}

func (s *Server) handleFaceAnnotate(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a faceAnnotateArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	opts := imaging.AnnotateOptions{HideLabels: a.HideLabels}
	if a.Color != "" {
		c, err := imaging.ParseHexColor(a.Color)
		if err != nil {
			return nil, fmt.Errorf("%w: color: %v", errInvalidArgs, err)
		}
		opts.Color = c
	}

	img, res, err := s.detect(ctx, a.detectArgs)
	if err != nil {
		return nil, err
	}
	encoded, err := imaging.EncodePNG(imaging.Annotate(img, imaging.Annotations(res), opts))
	if err != nil {
		return nil, err
	}
	return &annotateResult{ImageResult: encoded, Count: len(res.Faces)}, nil
}

type faceCropArgs struct {
	detectArgs
	Index  int      `json:"index"`
	Margin *float64 `json:"margin,omitempty"`
	Scale  float64  `json:"scale"`
}

func (s *Server) handleFaceCrop(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a faceCropArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	margin := 0.2
	if a.Margin != nil {
		margin = *a.Margin
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}

	img, res, err := s.detect(ctx, a.detectArgs)
	if err != nil {
		return nil, err
	}
	if a.Index < 0 || a.Index >= len(res.Faces) {
		return nil, fmt.Errorf("face index %d out of range: %d faces detected", a.Index, len(res.Faces))
	}
	return imaging.CropFace(img, res.Faces[a.Index].SourceRect(res.Scale()), margin, a.Scale)
}

type faceRedactArgs struct {
	detectArgs
	Sigma  float64 `json:"sigma"`
	Margin float64 `json:"margin"`
}

type redactResult struct {
	*imaging.ImageResult
	Redacted int `json:"redacted"`
}

func (s *Server) handleFaceRedact(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a faceRedactArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}

	img, res, err := s.detect(ctx, a.detectArgs)
	if err != nil {
		return nil, err
	}

	rects := res.Rectangles()
	for i := range rects {
		rects[i] = imaging.ExpandRect(rects[i], a.Margin)
	}
	encoded, err := imaging.EncodePNG(imaging.Redact(img, rects, a.Sigma))
	if err != nil {
		return nil, err
	}
	return &redactResult{ImageResult: encoded, Redacted: len(rects)}, nil
}
