package store

import (
	"fmt"

	"metadesk-backend/internal/metadata"
)

// column is one stored property of an entity.
type column struct {
	name     string
	typ      *metadata.PropertyType
	required bool
}

// link joins a source table to a target table: target.targetCol = source.sourceCol.
type link struct {
	name      string
	target    *table
	sourceCol string
	targetCol string
	many      bool
}

// table is the storage view of one entity.
type table struct {
	entity    string
	name      string
	columns   []*column
	byName    map[string]*column
	links     map[string]*link
	boolNames []string
}

func (t *table) column(name string) (*column, bool) {
	c, ok := t.byName[name]
	return c, ok
}

func (t *table) addColumn(c *column) {
	if _, ok := t.byName[c.name]; ok {
		return
	}
	t.columns = append(t.columns, c)
	t.byName[c.name] = c
	if c.typ != nil && c.typ.IsA("boolean") {
		t.boolNames = append(t.boolNames, c.name)
	}
}

func (t *table) columnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.name
	}
	return names
}

// Schema is the storage layout of every registered entity. Relation keys
// follow one convention: hasOne r is stored in the source column rId,
// hasMany rs in the target column <source>Id, and relation-typed
// properties hold the target id.
type Schema struct {
	tables  map[string]*table
	ordered []*table
}

// NewSchema derives the storage layout from the registry.
func NewSchema(reg *metadata.Registry) (*Schema, error) {
	types := reg.Types()
	s := &Schema{tables: map[string]*table{}}

	for _, def := range reg.Definitions() {
		t := &table{
			entity: def.Name,
			name:   def.TableName(),
			byName: map[string]*column{},
			links:  map[string]*link{},
		}
		idType := types.Resolve("code")
		if p, ok := def.Properties.Get("id"); ok {
			idType = types.Resolve(p.Type)
		}
		t.addColumn(&column{name: "id", typ: idType})
		for _, p := range def.Properties {
			t.addColumn(&column{name: p.Key, typ: types.Resolve(p.Type), required: p.Required})
		}
		s.tables[def.Name] = t
		s.ordered = append(s.ordered, t)
	}

	code := types.Resolve("code")
	for _, def := range reg.Definitions() {
		t := s.tables[def.Name]
		for _, p := range def.Properties {
			if !types.Resolve(p.Type).IsA("relation") {
				continue
			}
			target, err := s.target(reg, def.Name, p.Key)
			if err != nil {
				return nil, err
			}
			t.links[p.Key] = &link{name: p.Key, target: target, sourceCol: p.Key, targetCol: "id"}
		}
		for _, rel := range def.HasOne {
			target, err := s.target(reg, def.Name, rel)
			if err != nil {
				return nil, err
			}
			fk := rel + "Id"
			t.addColumn(&column{name: fk, typ: code})
			t.links[rel] = &link{name: rel, target: target, sourceCol: fk, targetCol: "id"}
		}
		for _, rel := range def.HasMany {
			target, err := s.target(reg, def.Name, rel)
			if err != nil {
				return nil, err
			}
			fk := def.Name + "Id"
			target.addColumn(&column{name: fk, typ: code})
			t.links[rel] = &link{name: rel, target: target, sourceCol: "id", targetCol: fk, many: true}
		}
	}
	return s, nil
}

func (s *Schema) target(reg *metadata.Registry, entity, key string) (*table, error) {
	name, ok := reg.Target(entity, key)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s has no target", metadata.ErrInvalidEntity, entity, key)
	}
	return s.tables[name], nil
}

func (s *Schema) table(entity string) (*table, bool) {
	t, ok := s.tables[entity]
	return t, ok
}
