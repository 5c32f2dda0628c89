// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/tomtom215/shiori/internal/kv"
	"github.com/tomtom215/shiori/internal/logging"
	"github.com/tomtom215/shiori/internal/models"
)

// ErrInvalidImport wraps every structural problem with an import document.
var ErrInvalidImport = errors.New("invalid import document")

const exportSchemaURL = "shiori://export.schema.json"

// exportSchema checks the document shape only; field-level decoding
// errors are reported by the JSON decoder.
const exportSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["profile", "lists"],
  "properties": {
    "profile": {
      "type": "object",
      "required": ["name"],
      "properties": {
        "id": {"type": "string"},
        "name": {"type": "string", "minLength": 1}
      }
    },
    "lists": {
      "type": "object",
      "properties": {
        "planToWatch": {"type": "array", "items": {"type": "integer"}},
        "currentlyWatching": {"type": "array", "items": {"type": "integer"}},
        "planToRead": {"type": "array", "items": {"type": "integer"}},
        "currentlyReading": {"type": "array", "items": {"type": "integer"}},
        "reminders": {"type": "array"},
        "notifications": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["id", "type"],
            "properties": {"type": {"enum": ["update", "reminder", "storage"]}}
          }
        },
        "storageQuota": {"type": "integer", "minimum": 0}
      }
    },
    "layout": {},
    "tracked": {
      "type": ["array", "null"],
      "items": {"type": "object", "required": ["id"]}
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(exportSchema))
		if err != nil {
			schemaErr = err
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(exportSchemaURL, doc); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = c.Compile(exportSchemaURL)
	})
	return schema, schemaErr
}

// Export assembles the full local state as one document.
func (s *Store) Export(ctx context.Context) (*models.ExportDocument, error) {
	profile, ok := s.Profile()
	if !ok {
		return nil, ErrNoProfile
	}

	doc := &models.ExportDocument{
		Profile: &profile,
		Lists:   s.ListData().Clone(),
		Tracked: []models.TrackedMediaRecord{},
	}

	layout, err := s.LayoutConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("read layout: %w", err)
	}
	doc.Layout = layout

	if _, err := kv.GetJSON(ctx, s.kv, kv.KeyTrackedMedia, &doc.Tracked); err != nil {
		return nil, fmt.Errorf("read tracked media: %w", err)
	}
	return doc, nil
}

// ValidateImport checks data against the export schema and decodes it.
func ValidateImport(data []byte) (*models.ExportDocument, error) {
	sch, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("compile export schema: %w", err)
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	if err := sch.Validate(inst); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}

	var doc models.ExportDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	if doc.Profile == nil || doc.Lists == nil {
		return nil, fmt.Errorf("%w: profile and lists are required", ErrInvalidImport)
	}
	doc.Lists.Normalize()
	if doc.Tracked == nil {
		doc.Tracked = []models.TrackedMediaRecord{}
	}
	return &doc, nil
}

// Import replaces all local state with an exported document. The document
// is fully validated before anything is written; on a validation error the
// current state is untouched.
func (s *Store) Import(ctx context.Context, data []byte) error {
	doc, err := ValidateImport(data)
	if err != nil {
		return err
	}
	if doc.Profile.ID == "" {
		doc.Profile.ID = newID()
	}

	s.writeMu.Lock()

	writes := []struct {
		key string
		val any
	}{
		{kv.KeyProfile, doc.Profile},
		{kv.KeyListData, doc.Lists},
		{kv.KeyTrackedMedia, doc.Tracked},
	}
	for _, w := range writes {
		if err := kv.SetJSON(ctx, s.kv, w.key, w.val); err != nil {
			s.writeMu.Unlock()
			return fmt.Errorf("import %s: %w", w.key, err)
		}
	}
	// A document without layout replaces the old one with nothing.
	layout := doc.Layout
	if len(layout) == 0 || string(layout) == "null" {
		layout = nil
	}
	if err := s.kv.Set(ctx, kv.KeyLayoutConfig, layout); err != nil {
		s.writeMu.Unlock()
		return fmt.Errorf("import %s: %w", kv.KeyLayoutConfig, err)
	}

	s.profile.Store(doc.Profile)
	prev := s.snapshot.Swap(doc.Lists)
	s.durable = doc.Lists
	seq := s.nextSeq()
	s.writeMu.Unlock()

	logging.Ctx(ctx).Info().
		Str("profile", doc.Profile.Name).
		Int("tracked", len(doc.Tracked)).
		Int("reminders", len(doc.Lists.Reminders)).
		Msg("Local data imported")

	s.notify(ctx, seq, Event{Reason: ReasonImport, Prev: prev, Next: doc.Lists})
	return nil
}
