package gesture

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Preset exchange format versions. The schema version is a monotonically
// increasing integer; documents newer than PresetSchemaVersion are refused
// rather than guessed at.
const (
	PresetSchemaVersion    = 2
	MinPresetSchemaVersion = 1
)

// Import errors
var (
	ErrSchemaVersionTooNew = errors.New("preset document schema version is newer than supported")
	ErrSchemaVersionTooOld = errors.New("preset document schema version is older than supported")
	ErrMalformedDocument   = errors.New("malformed preset document")
	ErrImportCollision     = errors.New("mapping identity already registered")
)

// CollisionPolicy controls what happens when an imported mapping's identity
// already exists in the registry
type CollisionPolicy string

const (
	CollisionReject    CollisionPolicy = "reject"
	CollisionRename    CollisionPolicy = "rename"
	CollisionOverwrite CollisionPolicy = "overwrite"
)

// PresetDocument is the sole externally exchanged artifact: a versioned
// MappingPreset ready for persistence or transfer
type PresetDocument struct {
	SchemaVersion int              `json:"schemaVersion"`
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Mappings      []GestureMapping `json:"mappings"`
	Global        GlobalSettings   `json:"globalSettings"`
	Tags          []string         `json:"tags,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// ImportOptions tune codec import behavior. The zero value is the strict
// default: any invalid mapping rejects the whole document and identity
// collisions are errors.
type ImportOptions struct {
	// BestEffort skips mappings that fail validation instead of rejecting
	// the document, reporting them in ImportSummary.Skipped
	BestEffort bool
	// OnCollision selects the policy for identities already registered
	OnCollision CollisionPolicy
}

// SkippedMapping names one mapping left out of a best-effort import
type SkippedMapping struct {
	ID     MappingID `json:"id"`
	Reason string    `json:"reason"`
}

// ImportSummary reports what an import did
type ImportSummary struct {
	Imported    int                     `json:"imported"`
	Overwritten int                     `json:"overwritten"`
	Renamed     map[MappingID]MappingID `json:"renamed,omitempty"`
	Skipped     []SkippedMapping        `json:"skipped,omitempty"`
}

// PresetCodec serializes mapping sets to the versioned exchange format and
// validates documents back into the registry. It sits beside the registry,
// never on the per-frame path.
type PresetCodec struct {
	registry *MappingRegistry
	catalog  *TargetCatalog
}

// NewPresetCodec creates a codec bound to a registry and its target catalog
func NewPresetCodec(registry *MappingRegistry, catalog *TargetCatalog) *PresetCodec {
	return &PresetCodec{registry: registry, catalog: catalog}
}

// Export builds a preset document from the registry. With no ids given every
// registered mapping is exported; otherwise only the named ones, in registry
// order. Unknown ids fail rather than silently exporting a subset.
func (c *PresetCodec) Export(name string, global GlobalSettings, ids ...MappingID) (PresetDocument, error) {
	all := c.registry.List()

	var mappings []GestureMapping
	if len(ids) == 0 {
		mappings = all
	} else {
		wanted := make(map[MappingID]struct{}, len(ids))
		for _, id := range ids {
			wanted[id] = struct{}{}
		}
		for _, m := range all {
			if _, ok := wanted[m.ID]; ok {
				mappings = append(mappings, m)
				delete(wanted, m.ID)
			}
		}
		if len(wanted) > 0 {
			for id := range wanted {
				return PresetDocument{}, fmt.Errorf("%w: %s", ErrMappingNotFound, id)
			}
		}
	}

	now := time.Now()
	return PresetDocument{
		SchemaVersion: PresetSchemaVersion,
		ID:            newPresetID(),
		Name:          name,
		Mappings:      mappings,
		Global:        global,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Decode parses and version-checks a serialized preset document without
// touching the registry
func (c *PresetCodec) Decode(data []byte) (PresetDocument, error) {
	var doc PresetDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return PresetDocument{}, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if err := CheckSchemaVersion(doc.SchemaVersion); err != nil {
		return PresetDocument{}, err
	}
	return doc, nil
}

// Encode serializes a preset document
func (c *PresetCodec) Encode(doc PresetDocument) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

// CheckSchemaVersion verifies a document version against the supported range
func CheckSchemaVersion(version int) error {
	if version > PresetSchemaVersion {
		return fmt.Errorf("%w: document %d, supported %d", ErrSchemaVersionTooNew, version, PresetSchemaVersion)
	}
	if version < MinPresetSchemaVersion {
		return fmt.Errorf("%w: document %d, minimum %d", ErrSchemaVersionTooOld, version, MinPresetSchemaVersion)
	}
	return nil
}

// Import validates a preset document and registers its mappings. In strict
// mode (the default) a single invalid mapping rejects the whole document and
// nothing is mutated. Best-effort mode skips failing mappings and reports
// them. Identity collisions follow opts.OnCollision; nothing is ever
// overwritten silently.
func (c *PresetCodec) Import(doc PresetDocument, opts ImportOptions) (ImportSummary, error) {
	if err := CheckSchemaVersion(doc.SchemaVersion); err != nil {
		return ImportSummary{}, err
	}
	if doc.Name == "" {
		return ImportSummary{}, fmt.Errorf("%w: preset without name", ErrMalformedDocument)
	}
	if err := doc.Global.Validate(); err != nil {
		return ImportSummary{}, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	seen := make(map[MappingID]struct{}, len(doc.Mappings))
	for i := range doc.Mappings {
		if _, dup := seen[doc.Mappings[i].ID]; dup {
			return ImportSummary{}, fmt.Errorf("%w: duplicate identity %s in document", ErrMalformedDocument, doc.Mappings[i].ID)
		}
		seen[doc.Mappings[i].ID] = struct{}{}
	}

	if opts.OnCollision == "" {
		opts.OnCollision = CollisionReject
	}
	return c.registry.importMappings(doc.Mappings, opts)
}

// importMappings performs the registry side of an import atomically under a
// single write lock: all mappings are validated against the current state
// first, then applied, so a strict-mode failure leaves the registry
// untouched.
func (r *MappingRegistry) importMappings(mappings []GestureMapping, opts ImportOptions) (ImportSummary, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	summary := ImportSummary{}
	type pending struct {
		mapping   GestureMapping
		overwrite bool
		renamed   MappingID // original identity when renamed on import
	}
	var accepted []pending

	for _, m := range mappings {
		if err := ValidateMapping(m, r.catalog); err != nil {
			if opts.BestEffort {
				summary.Skipped = append(summary.Skipped, SkippedMapping{ID: m.ID, Reason: err.Error()})
				continue
			}
			return ImportSummary{}, fmt.Errorf("mapping %s: %w", m.ID, err)
		}

		p := pending{mapping: m.clone()}
		if _, exists := r.mappings[m.ID]; exists {
			switch opts.OnCollision {
			case CollisionOverwrite:
				p.overwrite = true
			case CollisionRename:
				p.renamed = m.ID
				p.mapping.ID = NewMappingID()
			default:
				if opts.BestEffort {
					summary.Skipped = append(summary.Skipped, SkippedMapping{
						ID:     m.ID,
						Reason: ErrImportCollision.Error(),
					})
					continue
				}
				return ImportSummary{}, fmt.Errorf("%w: %s", ErrImportCollision, m.ID)
			}
		}
		accepted = append(accepted, p)
	}

	if len(r.mappings)+len(accepted) > GetConfig().MaxMappings {
		return ImportSummary{}, ErrRegistryFull
	}

	now := time.Now()
	for _, p := range accepted {
		m := p.mapping
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		m.UpdatedAt = now
		r.mappings[m.ID] = m

		summary.Imported++
		if p.overwrite {
			summary.Overwritten++
		}
		if p.renamed != "" {
			if summary.Renamed == nil {
				summary.Renamed = make(map[MappingID]MappingID)
			}
			summary.Renamed[p.renamed] = m.ID
		}
	}
	r.rebuildSnapshotLocked()

	r.logger.Info().
		Int("imported", summary.Imported).
		Int("overwritten", summary.Overwritten).
		Int("renamed", len(summary.Renamed)).
		Int("skipped", len(summary.Skipped)).
		Msg("preset document imported")
	return summary, nil
}

// DocumentFromPreset wraps a preset in the current exchange format
func DocumentFromPreset(preset MappingPreset) PresetDocument {
	return PresetDocument{
		SchemaVersion: PresetSchemaVersion,
		ID:            preset.ID,
		Name:          preset.Name,
		Mappings:      preset.Mappings,
		Global:        preset.Global,
		Tags:          preset.Tags,
		CreatedAt:     preset.CreatedAt,
		UpdatedAt:     preset.UpdatedAt,
	}
}

// PresetFromDocument converts an exchange document back into a preset
func PresetFromDocument(doc PresetDocument) MappingPreset {
	return MappingPreset{
		ID:        doc.ID,
		Name:      doc.Name,
		Mappings:  doc.Mappings,
		Global:    doc.Global,
		Tags:      doc.Tags,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}
