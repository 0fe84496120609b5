// internal/form/definition.go
//
// Forms subsystem: entity definition loader.
//
// Context
//   Every catalog entity the admin panel can create (brand, category, and
//   whatever comes next) is declared in a small YAML file: its kind, the
//   message keys for its labels, the field length bounds, the backend
//   endpoint, and the list route to return to after a save.  One generic
//   create/edit workflow is driven entirely by these definitions, so adding
//   an entity never means adding a code path.
//
// Workflow
//   •  Defaults for brand and category are embedded under entities/ and
//      registered by RegisterEmbedded.
//   •  LoadEntityDef parses one YAML file and validates structural rules.
//   •  RegisterDefs walks override directories and replaces or adds
//      definitions by kind.
//   •  Lookup offers safe, read-only access by kind.
//
// Style
//   comments use short noun phrases.
//
//------------------------------------------------------------------------------

package form

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed entities/*.yaml
var embeddedDefs embed.FS

// -----------------------------------------------------------------------------
// Data structures
// -----------------------------------------------------------------------------

// Bounds holds the length limits enforced by the validator.  Lengths are
// counted in characters, not bytes.
type Bounds struct {
	NameMin        int `yaml:"name_min"`
	NameMax        int `yaml:"name_max"`
	DescriptionMax int `yaml:"description_max"`
}

// EntityDef parameterizes the create/edit workflow for one entity kind.
type EntityDef struct {
	Kind        string            `yaml:"kind"`         // URL segment and registry key, e.g. “brand”.
	Label       string            `yaml:"label"`        // Message key for the entity name.
	FieldLabels map[string]string `yaml:"field_labels"` // Field → message key.
	Bounds      Bounds            `yaml:"bounds"`
	Endpoint    string            `yaml:"endpoint"`   // Backend collection path, e.g. “/brands”.
	ListRoute   string            `yaml:"list_route"` // Where to navigate after a save.
	Permission  string            `yaml:"permission"` // ACL component name.  Defaults to kind.
}

// FieldLabel returns the message key for field, or the field name itself.
func (d *EntityDef) FieldLabel(field string) string {
	if k, ok := d.FieldLabels[field]; ok {
		return k
	}
	return field
}

// -----------------------------------------------------------------------------
// Registry
// -----------------------------------------------------------------------------

var (
	registryMu sync.RWMutex
	registry   = make(map[string]*EntityDef)
)

// Lookup returns a definition by kind.  The boolean is false when the kind
// is unknown.
func Lookup(kind string) (*EntityDef, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	d, ok := registry[kind]
	return d, ok
}

// Kinds lists registered kinds in sorted order.
func Kinds() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Register inserts or replaces d.  Callers must pass a validated def.
func Register(d *EntityDef) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[d.Kind] = d
}

// -----------------------------------------------------------------------------
// Loader API
// -----------------------------------------------------------------------------

// LoadEntityDef parses one YAML file, validates its structure, and returns
// a populated EntityDef.  It NEVER mutates the registry.
func LoadEntityDef(path string) (*EntityDef, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read entity file %s: %w", path, err)
	}
	return parseEntityDef(raw, path)
}

func parseEntityDef(raw []byte, path string) (*EntityDef, error) {
	var d EntityDef
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("parse YAML %s: %w", path, err)
	}
	if d.Permission == "" {
		d.Permission = d.Kind
	}
	if err := validateEntityDef(&d, path); err != nil {
		return nil, err
	}
	return &d, nil
}

// RegisterEmbedded loads the built-in brand and category definitions.
func RegisterEmbedded() error {
	files, err := fs.Glob(embeddedDefs, "entities/*.yaml")
	if err != nil {
		return err
	}
	for _, name := range files {
		raw, err := embeddedDefs.ReadFile(name)
		if err != nil {
			return err
		}
		d, err := parseEntityDef(raw, name)
		if err != nil {
			return err
		}
		Register(d)
	}
	return nil
}

// RegisterDefs walks each directory and registers every “*.yaml” found.
// Later directories override earlier ones.  Missing directories are
// skipped.
func RegisterDefs(dirs []string) error {
	if len(dirs) == 0 {
		return errors.New("RegisterDefs: no directories provided")
	}
	for _, dir := range dirs {
		err := filepath.WalkDir(dir, func(path string, de fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if de.IsDir() || !strings.HasSuffix(de.Name(), ".yaml") {
				return nil
			}
			d, err := LoadEntityDef(path)
			if err != nil {
				return err // fail fast so issues surface loudly.
			}
			Register(d)
			return nil
		})
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Validation helpers
// -----------------------------------------------------------------------------

// validateEntityDef enforces rules YAML cannot express.
func validateEntityDef(d *EntityDef, path string) error {
	if d.Kind == "" {
		return fmt.Errorf("entity definition %s: missing required 'kind'", path)
	}
	if strings.ContainsAny(d.Kind, "/ ") {
		return fmt.Errorf("entity definition %s: kind %q must be a single path segment", path, d.Kind)
	}
	if d.Label == "" {
		return fmt.Errorf("entity definition %s: missing 'label'", path)
	}
	if !strings.HasPrefix(d.Endpoint, "/") {
		return fmt.Errorf("entity definition %s: 'endpoint' must start with /", path)
	}
	if !strings.HasPrefix(d.ListRoute, "/") {
		return fmt.Errorf("entity definition %s: 'list_route' must start with /", path)
	}

	b := d.Bounds
	if b.NameMin < 1 || b.NameMax < 1 || b.DescriptionMax < 1 {
		return fmt.Errorf("entity definition %s: bounds must be positive", path)
	}
	if b.NameMin > b.NameMax {
		return fmt.Errorf("entity definition %s: name_min greater than name_max", path)
	}
	return nil
}
