// Package blob provides implementations of the core.BlobStore port:
// a filesystem store for local and single-node deployments and an
// in-memory store for tests.
package blob

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FSStore writes blobs under a base directory, mirroring the object name
// as a relative path. Put returns a file:// URL.
type FSStore struct {
	baseDir string
}

// NewFSStore creates an FSStore rooted at baseDir, creating it if needed.
func NewFSStore(baseDir string) (*FSStore, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, errors.New("blob base directory is required")
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve blob dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	return &FSStore{baseDir: abs}, nil
}

// Put stores the named object, overwriting any previous content. Object
// names may contain slashes; path escapes out of the base dir are
// rejected.
func (s *FSStore) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cleaned, err := s.resolve(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(cleaned), 0o755); err != nil {
		return "", fmt.Errorf("create blob subdir: %w", err)
	}
	if err := os.WriteFile(cleaned, data, 0o644); err != nil {
		return "", fmt.Errorf("write blob %s: %w", name, err)
	}
	return "file://" + cleaned, nil
}

func (s *FSStore) resolve(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("blob name is required")
	}
	cleaned := filepath.Join(s.baseDir, filepath.FromSlash(name))
	if !strings.HasPrefix(cleaned, s.baseDir+string(filepath.Separator)) {
		return "", fmt.Errorf("blob name %q escapes the base directory", name)
	}
	return cleaned, nil
}

// MemoryStore keeps blobs in memory. Intended for tests.
type MemoryStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: map[string][]byte{}}
}

// Put stores the named object and returns a mem:// URL.
func (s *MemoryStore) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(name) == "" {
		return "", errors.New("blob name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.blobs[name] = cp
	return "mem://" + name, nil
}

// Get returns the stored bytes for name, or nil when absent.
func (s *MemoryStore) Get(name string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blobs[name]
}

// Names returns the stored object names.
func (s *MemoryStore) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.blobs))
	for name := range s.blobs {
		names = append(names, name)
	}
	return names
}
