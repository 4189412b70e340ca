// Package backend is the registry of face detection engines.
//
// Engines live in subpackages and register themselves from init, the way
// database/sql drivers do. Binaries select the engines they ship with by
// blank-importing them:
//
//	import _ "github.com/ironsheep/face-detect-mcp/internal/backend/pigo"
//
// and open one by name with Open.
package backend

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ironsheep/face-detect-mcp/internal/bridge"
	"github.com/ironsheep/face-detect-mcp/internal/config"
)

// Detector is a bridge.Detector that holds resources.
type Detector interface {
	bridge.Detector
	Close() error
}

// Factory creates a Detector from the backend settings.
type Factory func(cfg config.Backends) (Detector, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register makes a backend available under name. It panics if name is
// registered twice or factory is nil.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	if factory == nil {
		panic("backend: Register factory is nil")
	}
	if _, dup := factories[name]; dup {
		panic("backend: Register called twice for " + name)
	}
	factories[name] = factory
}

// Open creates the backend registered under name.
func Open(name string, cfg config.Backends) (Detector, error) {
	mu.RLock()
	factory, ok := factories[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown backend %q (available: %v)", name, Names())
	}

	d, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open backend %s: %w", name, err)
	}
	return d, nil
}

// Names returns the registered backend names, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NopCloser turns a bridge.Detector without resources into a Detector.
func NopCloser(d bridge.Detector) Detector {
	return nopCloser{d}
}

type nopCloser struct {
	bridge.Detector
}

func (nopCloser) Close() error { return nil }

// serialized keeps Close reachable after bridge.Serialize.
type serialized struct {
	bridge.Detector
	closer Detector
}

func (s serialized) Close() error { return s.closer.Close() }

// Serialize wraps d so that one Detect runs at a time.
func Serialize(d Detector) Detector {
	return serialized{Detector: bridge.Serialize(d), closer: d}
}
