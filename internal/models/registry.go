package models

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Registry provides thread-safe access to the model catalog.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]*ModelSpec
}

// NewRegistry creates a registry pre-loaded with the built-in specs.
func NewRegistry() *Registry {
	r := &Registry{specs: make(map[string]*ModelSpec)}
	r.Register(&ModelSpec{
		ID:          "mgeo-base",
		SourceID:    "iic/mgeo_backbone_chinese_base",
		DisplayName: "MGeo Chinese Base",
		Description: "Pretrained Chinese geographic-text backbone, fine-tuned here for address named-entity extraction.",
		Task:        "token-classification",
		License:     "Apache-2.0",
	})
	return r
}

// Register adds or replaces a spec. Invalid specs are rejected.
func (r *Registry) Register(spec *ModelSpec) error {
	if spec == nil {
		return fmt.Errorf("spec cannot be nil")
	}
	if err := spec.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs[spec.ID] = spec
	return nil
}

// Get resolves a spec by ID or by ModelScope SourceID, so users can refer to
// "mgeo-base" and "iic/mgeo_backbone_chinese_base" interchangeably.
func (r *Registry) Get(modelID string) *ModelSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if spec, ok := r.specs[modelID]; ok {
		return spec
	}
	for _, spec := range r.specs {
		if spec.SourceID == modelID {
			return spec
		}
	}
	return nil
}

// List returns all registered specs.
func (r *Registry) List() []*ModelSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]*ModelSpec, 0, len(r.specs))
	for _, spec := range r.specs {
		specs = append(specs, spec)
	}
	return specs
}

// LocalModel describes a model directory found in local storage.
type LocalModel struct {
	ID   string
	Tag  string
	Path string
	Size int64
}

// ListLocal scans the models directory for downloaded checkpoints. Layout is
// modelsDir/{id}/{tag}; directories without files and directories with a
// download still in progress are skipped.
func ListLocal(modelsDir string) ([]LocalModel, error) {
	entries, err := os.ReadDir(modelsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read models directory: %w", err)
	}

	var local []LocalModel
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		tags, err := os.ReadDir(filepath.Join(modelsDir, entry.Name()))
		if err != nil {
			continue
		}
		for _, tag := range tags {
			if !tag.IsDir() {
				continue
			}
			path := filepath.Join(modelsDir, entry.Name(), tag.Name())
			if _, err := os.Stat(filepath.Join(path, lockFileName)); err == nil {
				continue
			}
			size := dirSize(path)
			if size == 0 {
				continue
			}
			local = append(local, LocalModel{
				ID:   entry.Name(),
				Tag:  tag.Name(),
				Path: path,
				Size: size,
			})
		}
	}
	return local, nil
}

func dirSize(path string) int64 {
	var size int64
	filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size
}
