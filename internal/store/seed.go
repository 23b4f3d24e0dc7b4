package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Seed loads <entity>.yaml files from dir, each a list of records, into
// entities that have no records yet. Files are applied in name order, so
// referenced entities should sort first.
func (m *Models) Seed(ctx context.Context, dir string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read seed dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		entity := strings.TrimSuffix(name, filepath.Ext(name))
		model, err := m.Model(entity)
		if err != nil {
			return fmt.Errorf("seed %s: %w", name, err)
		}
		n, err := model.Count(ctx, nil)
		if err != nil {
			return fmt.Errorf("seed %s: %w", name, err)
		}
		if n > 0 {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		var records []map[string]any
		if err := yaml.Unmarshal(data, &records); err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		for i, r := range records {
			if _, err := model.Create(ctx, r); err != nil {
				return fmt.Errorf("seed %s record %d: %w", name, i, err)
			}
		}
		logger.Info("seeded entity", zap.String("entity", model.Entity()), zap.Int("records", len(records)))
	}
	return nil
}
