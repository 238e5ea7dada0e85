package gesture

import (
	"fmt"
	"sync"
)

// TargetKind identifies the class of audio parameter a mapping drives
type TargetKind string

const (
	TargetCrossfader TargetKind = "crossfader"
	TargetChannel    TargetKind = "channel"
	TargetMaster     TargetKind = "master"
	TargetEffect     TargetKind = "effect"
)

// AudioControlTarget identifies a destination parameter in the audio engine's
// parameter catalogue. Targets are owned by the audio collaborator and only
// referenced by mappings; they are immutable once registered.
type AudioControlTarget struct {
	Kind      TargetKind `json:"kind"`
	Channel   *int       `json:"channel,omitempty"`
	Parameter string     `json:"parameter"`
	MinValue  float64    `json:"minValue"`
	MaxValue  float64    `json:"maxValue"`
	Default   float64    `json:"default"`
	Unit      string     `json:"unit,omitempty"`
	Label     string     `json:"label,omitempty"`
}

// Key returns the catalogue key identifying this target. Two targets with the
// same key refer to the same audio parameter.
func (t AudioControlTarget) Key() string {
	if t.Channel != nil {
		return fmt.Sprintf("%s/%d/%s", t.Kind, *t.Channel, t.Parameter)
	}
	return fmt.Sprintf("%s/%s", t.Kind, t.Parameter)
}

// TargetCatalog holds the set of audio parameters the collaborator exposes.
// Mappings are validated against the catalog at registration time.
type TargetCatalog struct {
	mutex   sync.RWMutex
	targets map[string]AudioControlTarget
}

// NewTargetCatalog creates an empty target catalog
func NewTargetCatalog() *TargetCatalog {
	return &TargetCatalog{targets: make(map[string]AudioControlTarget)}
}

// NewDefaultTargetCatalog creates a catalog populated with the standard
// two-deck mixer surface the audio collaborator exposes
func NewDefaultTargetCatalog() *TargetCatalog {
	c := NewTargetCatalog()
	_ = c.Register(AudioControlTarget{
		Kind: TargetCrossfader, Parameter: "position",
		MinValue: 0, MaxValue: 1, Default: 0.5, Label: "Crossfader",
	})
	_ = c.Register(AudioControlTarget{
		Kind: TargetMaster, Parameter: "gain",
		MinValue: 0, MaxValue: 1, Default: 0.8, Label: "Master Gain",
	})
	for ch := 0; ch < 2; ch++ {
		channel := ch
		_ = c.Register(AudioControlTarget{
			Kind: TargetChannel, Channel: &channel, Parameter: "volume",
			MinValue: 0, MaxValue: 1, Default: 0.75,
			Label: fmt.Sprintf("Deck %d Volume", channel+1),
		})
		_ = c.Register(AudioControlTarget{
			Kind: TargetChannel, Channel: &channel, Parameter: "filter",
			MinValue: 20, MaxValue: 20000, Default: 20000, Unit: "Hz",
			Label: fmt.Sprintf("Deck %d Filter Cutoff", channel+1),
		})
		_ = c.Register(AudioControlTarget{
			Kind: TargetEffect, Channel: &channel, Parameter: "reverbMix",
			MinValue: 0, MaxValue: 1, Default: 0,
			Label: fmt.Sprintf("Deck %d Reverb Mix", channel+1),
		})
	}
	return c
}

// Register adds a target to the catalog. Registering a target with a key that
// already exists or a zero-width value range fails.
func (c *TargetCatalog) Register(target AudioControlTarget) error {
	if err := ValidateTarget(target); err != nil {
		return err
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	key := target.Key()
	if _, exists := c.targets[key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTarget, key)
	}
	c.targets[key] = target
	return nil
}

// Lookup returns the catalog entry matching the given target reference
func (c *TargetCatalog) Lookup(target AudioControlTarget) (AudioControlTarget, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	t, ok := c.targets[target.Key()]
	return t, ok
}

// List returns all registered targets
func (c *TargetCatalog) List() []AudioControlTarget {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	targets := make([]AudioControlTarget, 0, len(c.targets))
	for _, t := range c.targets {
		targets = append(targets, t)
	}
	return targets
}
