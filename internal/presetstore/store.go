// Package presetstore persists mapping preset documents as JSON files on
// disk. It lives strictly outside the per-frame path: the engine never calls
// into it while processing gesture samples.
package presetstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/nategarelik/ox-board-sub009/internal/gesture"
	"github.com/nategarelik/ox-board-sub009/internal/logging"
)

// Store errors
var (
	ErrPresetNotFound = errors.New("preset not found")
	ErrPresetReadOnly = errors.New("built-in presets are read-only")
	ErrInvalidID      = errors.New("invalid preset id")
)

// Store is a directory-backed preset store. Built-in presets are served from
// memory and never written; user presets are JSON documents under dir.
type Store struct {
	mutex    sync.Mutex
	dir      string
	builtins map[string]gesture.MappingPreset
	logger   zerolog.Logger
}

// New creates a store rooted at dir, creating the directory if needed
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create preset directory: %w", err)
	}

	builtins := make(map[string]gesture.MappingPreset)
	for _, p := range gesture.BuiltinPresets() {
		builtins[p.ID] = p
	}

	logger := logging.GetSubsystemLogger("presets").With().Str("component", "preset-store").Logger()
	return &Store{dir: dir, builtins: builtins, logger: logger}, nil
}

// Load returns the preset document with the given id, checking built-ins
// first
func (s *Store) Load(id string) (gesture.PresetDocument, error) {
	if err := validateID(id); err != nil {
		return gesture.PresetDocument{}, err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if builtin, ok := s.builtins[id]; ok {
		return gesture.DocumentFromPreset(builtin), nil
	}

	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return gesture.PresetDocument{}, fmt.Errorf("%w: %s", ErrPresetNotFound, id)
		}
		return gesture.PresetDocument{}, fmt.Errorf("failed to read preset %s: %w", id, err)
	}

	var doc gesture.PresetDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return gesture.PresetDocument{}, fmt.Errorf("%w: %v", gesture.ErrMalformedDocument, err)
	}
	if err := gesture.CheckSchemaVersion(doc.SchemaVersion); err != nil {
		return gesture.PresetDocument{}, err
	}
	return doc, nil
}

// Save writes a user preset document atomically (write to temp file, then
// rename). Saving under a built-in id fails.
func (s *Store) Save(doc gesture.PresetDocument) error {
	if err := validateID(doc.ID); err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.builtins[doc.ID]; ok {
		return fmt.Errorf("%w: %s", ErrPresetReadOnly, doc.ID)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode preset %s: %w", doc.ID, err)
	}

	target := s.path(doc.ID)
	tmp, err := os.CreateTemp(s.dir, ".preset-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write preset %s: %w", doc.ID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to store preset %s: %w", doc.ID, err)
	}

	s.logger.Info().Str("preset_id", doc.ID).Str("preset_name", doc.Name).Msg("preset saved")
	return nil
}

// Delete removes a user preset. Built-ins cannot be deleted.
func (s *Store) Delete(id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.builtins[id]; ok {
		return fmt.Errorf("%w: %s", ErrPresetReadOnly, id)
	}
	if err := os.Remove(s.path(id)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrPresetNotFound, id)
		}
		return fmt.Errorf("failed to delete preset %s: %w", id, err)
	}

	s.logger.Info().Str("preset_id", id).Msg("preset deleted")
	return nil
}

// PresetInfo is a directory listing entry
type PresetInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	BuiltIn bool   `json:"builtIn"`
}

// List returns all presets, built-ins first, each group sorted by name.
// Unreadable files are skipped with a warning rather than failing the
// listing.
func (s *Store) List() []PresetInfo {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var infos []PresetInfo
	for id, p := range s.builtins {
		infos = append(infos, PresetInfo{ID: id, Name: p.Name, BuiltIn: true})
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to read preset directory")
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			s.logger.Warn().Err(err).Str("file", name).Msg("failed to read preset file")
			continue
		}
		var doc gesture.PresetDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			s.logger.Warn().Err(err).Str("file", name).Msg("skipping malformed preset file")
			continue
		}
		infos = append(infos, PresetInfo{ID: doc.ID, Name: doc.Name})
	}

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].BuiltIn != infos[j].BuiltIn {
			return infos[i].BuiltIn
		}
		return infos[i].Name < infos[j].Name
	})
	return infos
}

// path maps a preset id to its file location
func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// validateID rejects ids that would escape the store directory
func validateID(id string) error {
	if id == "" || strings.ContainsAny(id, "/\\") || strings.Contains(id, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}
