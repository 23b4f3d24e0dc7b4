package metadata

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// LoadDefinitions reads every *.yaml / *.yml entity file in dir, in file
// name order. A file holds a single entity definition.
func LoadDefinitions(dir string) ([]EntityDef, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read entities dir: %w", err)
	}

	var files []string
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)

	defs := make([]EntityDef, 0, len(files))
	for _, name := range files {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		def, err := ParseDefinition(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// ParseDefinition decodes one entity definition from YAML (or JSON).
func ParseDefinition(data []byte) (EntityDef, error) {
	var def EntityDef
	if err := yaml.Unmarshal(data, &def); err != nil {
		return EntityDef{}, err
	}
	if def.Name == "" {
		return EntityDef{}, fmt.Errorf("%w: missing name", ErrInvalidEntity)
	}
	return def, nil
}
