package container

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Backend)
)

// Register makes a backend available by name. Registering the same name
// twice replaces the earlier backend.
func Register(b Backend) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[b.Name()] = b
}

// Lookup returns the backend registered under name.
func Lookup(name string) (Backend, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	b, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownBackend, name, strings.Join(backendNames(), ", "))
	}
	return b, nil
}

// Backends lists the registered backend names in sorted order.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return backendNames()
}

func backendNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve picks the backend for path. An explicit name always wins;
// otherwise ".avi" selects the AVI backend, a path without extension selects
// the image sequence backend and anything else requires OpenCV.
func Resolve(path, name string) (Backend, error) {
	if name != "" {
		return Lookup(name)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".avi":
		return Lookup(BackendAVI)
	case "":
		return Lookup(BackendImageSeq)
	default:
		b, err := Lookup(BackendOpenCV)
		if err != nil {
			return nil, fmt.Errorf("%w: no pure Go backend for %q files, build with -tags opencv", ErrUnknownBackend, ext)
		}
		return b, nil
	}
}
