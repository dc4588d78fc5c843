// Package settings applies and removes the key/value defaults the n-gram
// search extension registers with the host settings store.
package settings

import (
	"context"
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// DefaultSection is the top-level key of the module configuration file
const DefaultSection = "ngramsearch"

//go:embed config/module.yaml
var moduleConfig []byte

// Store is the host settings store. Writes are last-writer-wins.
type Store interface {
	Set(ctx context.Context, name string, value interface{}) error
	Delete(ctx context.Context, name string) error
}

// LoadDefaults reads the "config" mapping under section from a YAML
// module configuration
func LoadDefaults(data []byte, section string) (map[string]interface{}, error) {
	var doc map[string]struct {
		Config map[string]interface{} `yaml:"config"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse module config: %w", err)
	}

	sec, ok := doc[section]
	if !ok {
		return nil, fmt.Errorf("module config has no %q section", section)
	}
	if sec.Config == nil {
		return map[string]interface{}{}, nil
	}
	return sec.Config, nil
}

// DefaultSettings returns the defaults shipped with the module
func DefaultSettings() (map[string]interface{}, error) {
	return LoadDefaults(moduleConfig, DefaultSection)
}

// Bootstrapper writes the defaults on install and deletes them on uninstall.
// Existing values are overwritten without merging.
type Bootstrapper struct {
	store    Store
	defaults map[string]interface{}
}

// NewBootstrapper creates a bootstrapper for the given defaults
func NewBootstrapper(store Store, defaults map[string]interface{}) *Bootstrapper {
	return &Bootstrapper{store: store, defaults: defaults}
}

// Keys returns the setting names in sorted order
func (b *Bootstrapper) Keys() []string {
	keys := make([]string, 0, len(b.defaults))
	for k := range b.defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Install sets every default
func (b *Bootstrapper) Install(ctx context.Context) error {
	for _, name := range b.Keys() {
		if err := b.store.Set(ctx, name, b.defaults[name]); err != nil {
			return fmt.Errorf("failed to set setting %s: %w", name, err)
		}
	}
	return nil
}

// Uninstall deletes every default
func (b *Bootstrapper) Uninstall(ctx context.Context) error {
	for _, name := range b.Keys() {
		if err := b.store.Delete(ctx, name); err != nil {
			return fmt.Errorf("failed to delete setting %s: %w", name, err)
		}
	}
	return nil
}
