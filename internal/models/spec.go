// Package models provides the model catalog and ModelScope download support
// for the mgeo application.
//
// The catalog is small by design: the MGeo backbone plus whatever fine-tuned
// checkpoints land in local storage. Specs map short user-facing IDs to
// ModelScope repository paths.
package models

import "fmt"

// ModelSpec describes a model the application knows how to download and use.
type ModelSpec struct {
	// ID is the short user-facing identifier (e.g., "mgeo-base").
	ID string

	// SourceID is the ModelScope repository path
	// (e.g., "iic/mgeo_backbone_chinese_base").
	SourceID string

	// DisplayName is the human-readable model name.
	DisplayName string

	// Description explains what the model is for.
	Description string

	// Task is the ModelScope task the model serves.
	Task string

	// License is the model license identifier.
	License string
}

// Validate checks the essential spec fields.
func (m *ModelSpec) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("model ID cannot be empty")
	}
	if m.SourceID == "" {
		return fmt.Errorf("model %s must have a source ID", m.ID)
	}
	return nil
}
