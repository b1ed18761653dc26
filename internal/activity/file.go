package activity

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

type fileDocument struct {
	Events []Event          `yaml:"events"`
	Latest map[string]Event `yaml:"latest"`
}

// FileRecorder keeps the latest capacity events in a YAML document so CLI
// runs sharing a store file also share their activity.
type FileRecorder struct {
	mu       sync.Mutex
	path     string
	capacity int
}

// NewFile returns a recorder backed by path. The file is created on the
// first Record.
func NewFile(path string, capacity int) *FileRecorder {
	if capacity <= 0 {
		capacity = defaultMemoryCapacity
	}
	return &FileRecorder{path: path, capacity: capacity}
}

// PathFor derives the activity file that sits next to a store file:
// facepass.yaml becomes facepass.activity.yaml.
func PathFor(storePath string) string {
	ext := filepath.Ext(storePath)
	if ext == "" {
		ext = ".yaml"
	}
	return storePath[:len(storePath)-len(filepath.Ext(storePath))] + ".activity" + ext
}

// Record appends event and drops the oldest beyond capacity.
func (r *FileRecorder) Record(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return err
	}
	doc.Events = append(doc.Events, event)
	if over := len(doc.Events) - r.capacity; over > 0 {
		doc.Events = doc.Events[over:]
	}
	if prev, ok := doc.Latest[event.Kind]; !ok || !event.OccurredAt.Before(prev.OccurredAt) {
		doc.Latest[event.Kind] = event
	}
	return r.save(doc)
}

// Recent lists the newest events first.
func (r *FileRecorder) Recent(_ context.Context, limit int) ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > len(doc.Events) {
		limit = len(doc.Events)
	}
	out := make([]Event, 0, limit)
	for i := len(doc.Events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, doc.Events[i])
	}
	return out, nil
}

// Latest returns the newest event of kind.
func (r *FileRecorder) Latest(_ context.Context, kind string) (Event, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.load()
	if err != nil {
		return Event{}, false, err
	}
	e, ok := doc.Latest[kind]
	return e, ok, nil
}

func (r *FileRecorder) load() (fileDocument, error) {
	doc := fileDocument{Latest: make(map[string]Event)}
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return doc, fmt.Errorf("read activity file: %w", err)
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return doc, fmt.Errorf("parse activity file %s: %w", r.path, err)
	}
	if doc.Latest == nil {
		doc.Latest = make(map[string]Event)
	}
	return doc, nil
}

func (r *FileRecorder) save(doc fileDocument) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode activity file: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create activity dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".facepass-activity-*.yaml")
	if err != nil {
		return fmt.Errorf("create temp activity file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write activity file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close activity file: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("replace activity file: %w", err)
	}
	return nil
}
