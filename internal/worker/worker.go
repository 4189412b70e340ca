// Package worker serves face detection as an RPC over MQTT.
//
// Requests arrive as JSON on the configured request topic:
//
//	{"requestId": "42", "payload": "<base64 image>", "path": "cam1/0001.jpg"}
//
// and the answer is published to the request's responseTo topic, or to the
// response prefix followed by the request ID:
//
//	{"requestId": "42", "faces": [...], "error": ""}
package worker

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/ironsheep/face-detect-mcp/internal/config"
	"github.com/ironsheep/face-detect-mcp/internal/faces"
)

// Request is one detection RPC.
type Request struct {
	RequestID  string `json:"requestId"`
	Payload    string `json:"payload"`
	Path       string `json:"path,omitempty"`
	ResponseTo string `json:"responseTo,omitempty"`
}

// DetectedFace is a face in source image pixels.
type DetectedFace struct {
	Rect      image.Rectangle `json:"rect"`
	Score     float32         `json:"score"`
	Landmarks []image.Point   `json:"landmarks"`
}

// Response answers a Request. Error is empty on success.
type Response struct {
	RequestID string         `json:"requestId"`
	Width     int            `json:"width,omitempty"`
	Height    int            `json:"height,omitempty"`
	Faces     []DetectedFace `json:"faces"`
	Error     string         `json:"error,omitempty"`
}

// Recorder persists detection results. *store.Store satisfies it.
type Recorder interface {
	SaveResult(ctx context.Context, id, path string, res *faces.Result) error
}

// Worker answers detection requests received over MQTT.
type Worker struct {
	svc *faces.Service
	cfg config.MQTT

	rec   Recorder
	recMu sync.Mutex
	recID func(payload []byte) string

	// mu guards closing; no request is started once closing is set.
	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup
}

// New creates a Worker. Call Run to connect.
func New(svc *faces.Service, cfg config.MQTT) *Worker {
	return &Worker{svc: svc, cfg: cfg}
}

// WithRecorder makes w persist every successful detection. id derives
// the stored image ID from the raw payload.
func (w *Worker) WithRecorder(rec Recorder, id func(payload []byte) string) *Worker {
	w.rec = rec
	w.recID = id
	return w
}

// Run connects to the broker and serves requests until ctx is canceled.
// Requests still in flight are allowed to finish before Run returns.
func (w *Worker) Run(ctx context.Context) error {
	if w.cfg.Broker == "" {
		return errors.New("no MQTT broker configured")
	}

	clientID := uuid.New().String()
	log.Println("[WORKER] Connecting to MQTT", w.cfg.Broker, "with client ID:", clientID)

	opts := mqtt.NewClientOptions().AddBroker(w.cfg.Broker).SetClientID(clientID)
	if w.cfg.Username != "" {
		opts.SetUsername(w.cfg.Username)
		opts.SetPassword(w.cfg.Password)
	}
	opts.SetKeepAlive(2 * time.Second)
	opts.SetPingTimeout(1 * time.Second)
	opts.SetConnectTimeout(30 * time.Second)
	opts.SetAutoReconnect(true)

	// Subscriptions are dropped on reconnect, so they are made here.
	opts.OnConnect = func(c mqtt.Client) {
		log.Println("[WORKER] Connected to MQTT")
		token := c.Subscribe(w.cfg.RequestTopic, 0, func(c mqtt.Client, m mqtt.Message) {
			w.dispatch(ctx, m.Payload(), func(topic string, body []byte) {
				c.Publish(topic, 0, false, body).Wait()
				config.Debugf("[WORKER] response published to %s", topic)
			})
		})
		if token.Wait() && token.Error() != nil {
			log.Println("[WORKER] Subscribe failed:", token.Error())
			return
		}
		log.Println("[WORKER] Subscribed to", w.cfg.RequestTopic)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to %s: %w", w.cfg.Broker, token.Error())
	}

	<-ctx.Done()
	log.Println("[WORKER] Shutting down, waiting for in-flight requests")
	client.Unsubscribe(w.cfg.RequestTopic).WaitTimeout(time.Second)
	w.drain()
	client.Disconnect(250)
	return nil
}

// dispatch handles payload on its own goroutine and hands the response to
// publish. Requests arriving after drain has started are dropped.
func (w *Worker) dispatch(ctx context.Context, payload []byte, publish func(topic string, body []byte)) bool {
	w.mu.Lock()
	if w.closing {
		w.mu.Unlock()
		config.Debugf("[WORKER] shutting down, dropping request")
		return false
	}
	w.wg.Add(1)
	w.mu.Unlock()

	go func() {
		defer w.wg.Done()
		topic, body := w.process(ctx, payload)
		if topic == "" {
			return
		}
		publish(topic, body)
	}()
	return true
}

// drain stops new requests and waits for those in flight.
func (w *Worker) drain() {
	w.mu.Lock()
	w.closing = true
	w.mu.Unlock()
	w.wg.Wait()
}

// process handles one raw request and returns the topic and body of the
// response. An empty topic means the request could not be answered.
func (w *Worker) process(ctx context.Context, payload []byte) (string, []byte) {
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		log.Println("[WORKER] error parsing request:", err)
		return "", nil
	}
	if req.RequestID == "" && req.ResponseTo == "" {
		log.Println("[WORKER] request without requestId or responseTo, dropping it")
		return "", nil
	}

	topic := req.ResponseTo
	if topic == "" {
		topic = w.cfg.ResponsePrefix + req.RequestID
	}

	resp := w.detect(ctx, req)
	if resp.Error != "" {
		log.Println("[WORKER]", req.RequestID, "failed:", resp.Error)
	} else {
		config.Debugf("[WORKER] %s: %d faces", req.RequestID, len(resp.Faces))
	}

	body, err := json.Marshal(resp)
	if err != nil {
		log.Println("[WORKER]", req.RequestID, "error encoding response:", err)
		return "", nil
	}
	return topic, body
}

func (w *Worker) detect(ctx context.Context, req Request) Response {
	resp := Response{RequestID: req.RequestID, Faces: []DetectedFace{}}

	data, err := base64.StdEncoding.DecodeString(req.Payload)
	if err != nil {
		resp.Error = fmt.Sprintf("invalid base64 payload: %v", err)
		return resp
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		resp.Error = fmt.Sprintf("failed to decode image: %v", err)
		return resp
	}

	res, err := w.svc.Detect(ctx, img)
	if err != nil {
		resp.Error = err.Error()
		return resp
	}

	resp.Width, resp.Height = res.Width, res.Height
	scale := res.Scale()
	for _, f := range res.Faces {
		resp.Faces = append(resp.Faces, DetectedFace{
			Rect:      f.SourceRect(scale),
			Score:     f.Confidence,
			Landmarks: f.SourcePoints(scale),
		})
	}

	if w.rec != nil {
		path := req.Path
		if path == "" {
			path = "mqtt:" + req.RequestID
		}
		w.recMu.Lock()
		err := w.rec.SaveResult(ctx, w.recID(data), path, res)
		w.recMu.Unlock()
		if err != nil {
			log.Println("[WORKER]", req.RequestID, "failed to store result:", err)
		}
	}
	return resp
}
