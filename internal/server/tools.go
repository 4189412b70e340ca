package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
}

// detectProperties returns the arguments every detecting tool accepts,
// merged with extra.
func detectProperties(extra map[string]interface{}) map[string]interface{} {
	props := map[string]interface{}{
		"path": pathProperty(),
		"max_dimension": map[string]interface{}{
			"type":        "integer",
			"description": "Downscale so the longest side is at most this many pixels before detecting. 0 disables. Defaults to the server setting",
			"minimum":     0,
		},
		"min_confidence": map[string]interface{}{
			"type":        "number",
			"description": "Drop faces scoring below this (0.0-1.0). Defaults to the server setting",
			"minimum":     0,
			"maximum":     1,
		},
	}
	for k, v := range extra {
		props[k] = v
	}
	return props
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions, format and file size. The decoded image is cached for later face tools.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file, after EXIF orientation is applied.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},

		// Face Detection
		{
			Name: "face_detect",
			Description: "Detect faces in an image. Returns each face's confidence, bounding box and five landmarks " +
				"(right eye, left eye, nose, right and left mouth corner, in the subject's sense) in image pixels and normalized 0-1 coordinates.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": detectProperties(nil),
				"required":   []string{"path"},
			},
		},
		{
			Name:        "face_detect_raw",
			Description: "Run the detector and return its records unfiltered: score, x, y, w, h and the flat 10-value landmark array, in detection pixels.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"max_dimension": map[string]interface{}{
						"type":        "integer",
						"description": "Downscale limit for the longest side. 0 disables",
						"minimum":     0,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "face_annotate",
			Description: "Detect faces and return a PNG with boxes, landmark dots and confidence labels drawn on it.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": detectProperties(map[string]interface{}{
					"color": map[string]interface{}{
						"type":        "string",
						"description": "Box color as #RRGGBB or #RRGGBBAA. Defaults to a red-to-green scale by confidence",
					},
					"hide_labels": map[string]interface{}{
						"type":        "boolean",
						"description": "Do not draw confidence labels",
						"default":     false,
					},
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "face_crop",
			Description: "Detect faces and return one of them cropped as a base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": detectProperties(map[string]interface{}{
					"index": map[string]interface{}{
						"type":        "integer",
						"description": "Index of the face in face_detect order (0-based)",
						"minimum":     0,
					},
					"margin": map[string]interface{}{
						"type":        "number",
						"description": "Extra space around the face as a fraction of the box size. Default 0.2",
						"default":     0.2,
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor for the crop. Default 1.0",
						"default":     1.0,
					},
				}),
				"required": []string{"path", "index"},
			},
		},
		{
			Name:        "face_redact",
			Description: "Detect faces and return a PNG with every face blurred out.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": detectProperties(map[string]interface{}{
					"sigma": map[string]interface{}{
						"type":        "number",
						"description": "Gaussian blur radius. Default 12",
						"default":     12.0,
					},
					"margin": map[string]interface{}{
						"type":        "number",
						"description": "Grow each blurred box by this fraction of its size. Default 0",
						"default":     0.0,
					},
				}),
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
