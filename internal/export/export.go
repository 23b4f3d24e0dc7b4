// Package export writes list query results as spreadsheets.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"metadesk-backend/internal/metadata"
)

const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// maxSheetName is the longest sheet name Excel accepts.
const maxSheetName = 31

// Columns returns the keys to export: the requested properties, or every
// property of the entity when none were requested.
func Columns(e *metadata.ResolvedEntity, properties []string) []string {
	if len(properties) > 0 {
		return properties
	}
	return e.PropertyKeys()
}

// Filename is the attachment name of an export of e.
func Filename(e *metadata.ResolvedEntity) string {
	return metadata.Slugify(e.Label) + ".xlsx"
}

// WriteXLSX writes one sheet named after the entity: a header row of
// localized property labels followed by one row per record.
func WriteXLSX(w io.Writer, e *metadata.ResolvedEntity, columns []string, rows []map[string]any) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(e.Label)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("open stream writer: %w", err)
	}

	props := make([]*metadata.Property, len(columns))
	header := make([]any, len(columns))
	for i, key := range columns {
		header[i] = key
		if p, ok := e.Property(key); ok {
			props[i] = p
			header[i] = p.Label
		}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for r, row := range rows {
		values := make([]any, len(columns))
		for i, key := range columns {
			values[i] = cellValue(props[i], lookup(row, key))
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, values); err != nil {
			return fmt.Errorf("write row %d: %w", r+1, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// lookup reads a flat key or a dotted relation.field path from a record.
func lookup(row map[string]any, key string) any {
	if v, ok := row[key]; ok {
		return v
	}
	relation, rest, dotted := strings.Cut(key, ".")
	if !dotted {
		return nil
	}
	nested, ok := row[relation].(map[string]any)
	if !ok {
		return nil
	}
	return lookup(nested, rest)
}

// cellValue shows option labels instead of stored values.
func cellValue(p *metadata.Property, v any) any {
	if v == nil {
		return nil
	}
	if p != nil {
		for _, o := range p.Options {
			if fmt.Sprint(o.Value) == fmt.Sprint(v) {
				return o.Label
			}
		}
	}
	switch v.(type) {
	case map[string]any, []map[string]any, []any:
		return fmt.Sprint(v)
	}
	return v
}

func sheetName(label string) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '-'
		}
		return r
	}, label)
	if name == "" {
		name = "Export"
	}
	if runes := []rune(name); len(runes) > maxSheetName {
		name = string(runes[:maxSheetName])
	}
	return name
}
