// Package preset holds named partial configurations that are merged over the
// defaults in order.
package preset

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/levenlabs/go-lflag"
	"gopkg.in/yaml.v3"

	"github.com/pvsizer/pvsizer/pkg/types"
)

// ErrUnknownPreset is returned when a requested preset is not registered.
var ErrUnknownPreset = errors.New("unknown preset")

// Preset is a named partial configuration.
type Preset struct {
	Name        string                       `json:"name" yaml:"name"`
	Description string                       `json:"description" yaml:"description"`
	Overrides   types.ConfigurationOverrides `json:"overrides" yaml:"overrides"`
}

// Registry holds the available presets.
type Registry struct {
	mu      sync.RWMutex
	presets map[string]Preset
}

// NewRegistry returns a registry with the built-in presets.
func NewRegistry() *Registry {
	r := &Registry{presets: make(map[string]Preset, len(builtins))}
	for _, p := range builtins {
		r.presets[p.Name] = p
	}
	return r
}

// Configured returns a registry with the built-in presets plus any presets
// in the file named by -presets-file.
func Configured() *Registry {
	r := NewRegistry()
	file := lflag.String("presets-file", "", "YAML file with additional presets")

	lflag.Do(func() {
		if *file == "" {
			return
		}
		if err := r.LoadFile(*file); err != nil {
			panic(fmt.Sprintf("failed to load presets: %v", err))
		}
	})

	return r
}

type presetFile struct {
	Presets []Preset `yaml:"presets"`
}

// LoadFile adds the presets from a YAML file, replacing any with the same
// name.
func (r *Registry) LoadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read presets file: %w", err)
	}
	return r.Load(b)
}

// Load adds the presets from a YAML document.
func (r *Registry) Load(b []byte) error {
	var f presetFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("failed to decode presets: %w", err)
	}
	for i, p := range f.Presets {
		p.Name = normalize(p.Name)
		if p.Name == "" {
			return fmt.Errorf("preset %d has no name", i)
		}
		// catch incomplete variants at load time instead of on first use
		if _, err := types.DefaultConfiguration().Merge(p.Overrides); err != nil {
			return fmt.Errorf("preset %s: %w", p.Name, err)
		}
		f.Presets[i] = p
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range f.Presets {
		r.presets[p.Name] = p
	}
	return nil
}

// Get returns the named preset.
func (r *Registry) Get(name string) (Preset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.presets[normalize(name)]
	return p, ok
}

// List returns every preset sorted by name.
func (r *Registry) List() []Preset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Preset, 0, len(r.presets))
	for _, p := range r.presets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Overrides layers the named presets in order. Later presets win.
func (r *Registry) Overrides(names ...string) (types.ConfigurationOverrides, error) {
	var o types.ConfigurationOverrides
	for _, name := range names {
		p, ok := r.Get(name)
		if !ok {
			return types.ConfigurationOverrides{}, fmt.Errorf("%w: %s", ErrUnknownPreset, name)
		}
		o = types.MergeOverrides(o, p.Overrides)
	}
	return o, nil
}

// Resolve merges the named presets in order over the defaults.
func (r *Registry) Resolve(names ...string) (types.Configuration, error) {
	return r.Build(names, types.ConfigurationOverrides{})
}

// Build merges the named presets and then extra over the defaults.
func (r *Registry) Build(names []string, extra types.ConfigurationOverrides) (types.Configuration, error) {
	o, err := r.Overrides(names...)
	if err != nil {
		return types.Configuration{}, err
	}
	return types.DefaultConfiguration().Merge(types.MergeOverrides(o, extra))
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// PinnedPrice returns the electricity price set by the named presets or
// extra, if any of them sets one.
func (r *Registry) PinnedPrice(names []string, extra types.ConfigurationOverrides) (*float64, error) {
	o, err := r.Overrides(names...)
	if err != nil {
		return nil, err
	}
	o = types.MergeOverrides(o, extra)
	if o.Financial == nil {
		return nil, nil
	}
	return o.Financial.ElectricityPricePerKWH, nil
}
