// Package config loads runtime settings for the face detection binaries.
//
// Settings come from an optional YAML or JSON file, are then overridden by
// FACEDETECT_* environment variables, and finally filled with defaults.
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FACEDETECT_"

// Config is the root configuration.
type Config struct {
	Backend   string    `yaml:"backend" json:"backend"`
	Detection Detection `yaml:"detection" json:"detection"`
	Backends  Backends  `yaml:"backends" json:"backends"`
	Log       Log       `yaml:"log" json:"log"`
	MQTT      MQTT      `yaml:"mqtt" json:"mqtt"`
	Store     Store     `yaml:"store" json:"store"`
}

// Detection controls pre- and post-processing around a detector.
type Detection struct {
	// MaxDimension downscales images whose longest side exceeds it. 0 disables.
	MaxDimension int `yaml:"maxDimension" json:"maxDimension"`

	// MinConfidence drops faces scoring below it. 0 keeps everything.
	MinConfidence float32 `yaml:"minConfidence" json:"minConfidence"`
}

// Backends holds per-engine settings. Only the selected engine reads its
// section.
type Backends struct {
	Pigo   Pigo   `yaml:"pigo" json:"pigo"`
	Remote Remote `yaml:"remote" json:"remote"`
	YuNet  YuNet  `yaml:"yunet" json:"yunet"`
}

// Pigo configures the pure-Go cascade detector.
type Pigo struct {
	CascadeDir  string  `yaml:"cascadeDir" json:"cascadeDir"`
	MinSize     int     `yaml:"minSize" json:"minSize"`
	MaxSize     int     `yaml:"maxSize" json:"maxSize"`
	ShiftFactor float64 `yaml:"shiftFactor" json:"shiftFactor"`
	ScaleFactor float64 `yaml:"scaleFactor" json:"scaleFactor"`
	IoU         float64 `yaml:"iou" json:"iou"`
	MinQuality  float32 `yaml:"minQuality" json:"minQuality"`
}

// Remote configures the unix-socket YuNet service client.
type Remote struct {
	Socket  string        `yaml:"socket" json:"socket"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// UnmarshalJSON accepts timeout either as a duration string ("250ms") or
// as integer nanoseconds. Fields missing from data keep their values.
func (r *Remote) UnmarshalJSON(data []byte) error {
	type plain Remote
	aux := struct {
		*plain
		Timeout json.RawMessage `json:"timeout"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Timeout) == 0 || string(aux.Timeout) == "null" {
		return nil
	}

	var s string
	if err := json.Unmarshal(aux.Timeout, &s); err == nil {
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid remote timeout %q: %w", s, err)
		}
		r.Timeout = d
		return nil
	}
	var ns int64
	if err := json.Unmarshal(aux.Timeout, &ns); err != nil {
		return fmt.Errorf("invalid remote timeout %s: want a duration string or nanoseconds", aux.Timeout)
	}
	r.Timeout = time.Duration(ns)
	return nil
}

// YuNet configures the OpenCV FaceDetectorYN engine.
type YuNet struct {
	Model          string  `yaml:"model" json:"model"`
	ScoreThreshold float32 `yaml:"scoreThreshold" json:"scoreThreshold"`
	NMSThreshold   float32 `yaml:"nmsThreshold" json:"nmsThreshold"`
	TopK           int     `yaml:"topK" json:"topK"`
}

// Log configures diagnostic output.
type Log struct {
	Level string `yaml:"level" json:"level"`
}

// MQTT configures the RPC worker.
type MQTT struct {
	Broker         string `yaml:"broker" json:"broker"`
	Username       string `yaml:"username" json:"username"`
	Password       string `yaml:"password" json:"password"`
	RequestTopic   string `yaml:"requestTopic" json:"requestTopic"`
	ResponsePrefix string `yaml:"responsePrefix" json:"responsePrefix"`
}

// Store configures detection persistence.
type Store struct {
	DatabaseURL string `yaml:"databaseUrl" json:"databaseUrl"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads path (if non-empty), applies environment overrides and
// defaults, and validates the result.
func Load(path string) (*Config, error) {
	c := &Config{}
	if path != "" {
		if err := c.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := c.loadEnv(); err != nil {
		return nil, err
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse YAML config file %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse JSON config file %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config file format: %s (supported: .yaml, .yml, .json)", ext)
	}
	return nil
}

func (c *Config) loadEnv() error {
	str := func(key string, dst *string) {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			*dst = v
		}
	}
	str("BACKEND", &c.Backend)
	str("LOG_LEVEL", &c.Log.Level)
	str("PIGO_CASCADE_DIR", &c.Backends.Pigo.CascadeDir)
	str("REMOTE_SOCKET", &c.Backends.Remote.Socket)
	str("YUNET_MODEL", &c.Backends.YuNet.Model)
	str("MQTT_BROKER", &c.MQTT.Broker)
	str("MQTT_USERNAME", &c.MQTT.Username)
	str("MQTT_PASSWORD", &c.MQTT.Password)
	str("DATABASE_URL", &c.Store.DatabaseURL)

	if v := os.Getenv(EnvPrefix + "MAX_DIMENSION"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sMAX_DIMENSION %q: %w", EnvPrefix, v, err)
		}
		c.Detection.MaxDimension = n
	}
	if v := os.Getenv(EnvPrefix + "MIN_CONFIDENCE"); v != "" {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return fmt.Errorf("invalid %sMIN_CONFIDENCE %q: %w", EnvPrefix, v, err)
		}
		c.Detection.MinConfidence = float32(f)
	}
	if v := os.Getenv(EnvPrefix + "REMOTE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sREMOTE_TIMEOUT %q: %w", EnvPrefix, v, err)
		}
		c.Backends.Remote.Timeout = d
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Backend == "" {
		c.Backend = "pigo"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	p := &c.Backends.Pigo
	if p.CascadeDir == "" {
		p.CascadeDir = "cascade"
	}
	if p.MinSize == 0 {
		p.MinSize = 20
	}
	if p.MaxSize == 0 {
		p.MaxSize = 1000
	}
	if p.ShiftFactor == 0 {
		p.ShiftFactor = 0.1
	}
	if p.ScaleFactor == 0 {
		p.ScaleFactor = 1.1
	}
	if p.IoU == 0 {
		p.IoU = 0.2
	}
	if p.MinQuality == 0 {
		p.MinQuality = 5
	}

	if c.Backends.Remote.Socket == "" {
		c.Backends.Remote.Socket = "/tmp/yunet.sock"
	}
	if c.Backends.Remote.Timeout == 0 {
		c.Backends.Remote.Timeout = 100 * time.Millisecond
	}

	y := &c.Backends.YuNet
	if y.Model == "" {
		y.Model = "face_detection_yunet_2023mar.onnx"
	}
	if y.ScoreThreshold == 0 {
		y.ScoreThreshold = 0.9
	}
	if y.NMSThreshold == 0 {
		y.NMSThreshold = 0.3
	}
	if y.TopK == 0 {
		y.TopK = 5000
	}

	if c.MQTT.RequestTopic == "" {
		c.MQTT.RequestTopic = "/facedetect/rpc/detect/request"
	}
	if c.MQTT.ResponsePrefix == "" {
		c.MQTT.ResponsePrefix = "/facedetect/rpc/detect/response/"
	}
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	if c.Detection.MaxDimension < 0 {
		return fmt.Errorf("detection.maxDimension must be >= 0, got %d", c.Detection.MaxDimension)
	}
	if c.Detection.MinConfidence < 0 || c.Detection.MinConfidence > 1 {
		return fmt.Errorf("detection.minConfidence must be between 0.0 and 1.0, got %f", c.Detection.MinConfidence)
	}
	if c.Backends.Pigo.MinSize > c.Backends.Pigo.MaxSize {
		return fmt.Errorf("backends.pigo.minSize (%d) exceeds maxSize (%d)", c.Backends.Pigo.MinSize, c.Backends.Pigo.MaxSize)
	}
	if c.Backends.Pigo.ScaleFactor <= 1 {
		return fmt.Errorf("backends.pigo.scaleFactor must be > 1, got %f", c.Backends.Pigo.ScaleFactor)
	}
	return nil
}

// Debug reports whether debug logging is enabled.
func (c *Config) Debug() bool {
	return strings.EqualFold(c.Log.Level, "debug")
}

var debugEnabled bool

// SetDebug turns Debugf output on or off process-wide.
func SetDebug(on bool) {
	debugEnabled = on
}

// Debugf logs through the standard logger when debug output is enabled.
func Debugf(format string, args ...interface{}) {
	if debugEnabled {
		log.Output(2, fmt.Sprintf(format, args...))
	}
}
