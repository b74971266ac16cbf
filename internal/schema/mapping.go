// Package schema implements the schema mapping resolver: the translation
// tables between the natural-language vocabulary of users and operators and
// the physical identifiers of the backing data source, plus per-column
// inferred data types.
//
// Lookups are case-sensitive and exact; the configuration author owns
// consistent casing. Unmapped names pass through unchanged so partially
// mapped schemas still execute when logical labels coincide with physical
// names.
package schema

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/switchboard-ai/switchboard/pkg/models"
)

// ColumnType is the inferred data type category of a physical column.
type ColumnType string

const (
	TypeInteger ColumnType = "integer"
	TypeText    ColumnType = "text"
	TypeNumeric ColumnType = "numeric"
	TypeDate    ColumnType = "date"
	TypeUnknown ColumnType = "unknown"
)

// categoryOrder is the fixed scan order for type inference. A column named
// in more than one category resolves to the first listed here.
var categoryOrder = []ColumnType{TypeInteger, TypeText, TypeNumeric, TypeDate}

// Mapping is a compiled schema configuration. Immutable after NewMapping;
// safe for concurrent use.
type Mapping struct {
	cfg         *models.SchemaConfig
	columnTypes map[string]ColumnType
	knownTables map[string]struct{} // physical names, bare and qualified
}

// NewMapping compiles the schema configuration into a resolver.
func NewMapping(cfg *models.SchemaConfig) *Mapping {
	m := &Mapping{
		cfg:         cfg,
		columnTypes: make(map[string]ColumnType),
		knownTables: make(map[string]struct{}),
	}

	categories := map[ColumnType][]string{
		TypeInteger: cfg.DataTypeRules.Integer,
		TypeText:    cfg.DataTypeRules.Text,
		TypeNumeric: cfg.DataTypeRules.Numeric,
		TypeDate:    cfg.DataTypeRules.Date,
	}
	for _, cat := range categoryOrder {
		for _, col := range categories[cat] {
			if _, seen := m.columnTypes[col]; !seen {
				m.columnTypes[col] = cat
			}
		}
	}

	for _, t := range cfg.Tables {
		m.addKnownTable(t)
	}
	for _, v := range cfg.Views {
		m.addKnownTable(v)
	}
	for _, physical := range cfg.TableMappings {
		m.addKnownTable(physical)
	}
	for table := range cfg.ColumnMappings {
		m.addKnownTable(table)
	}
	return m
}

func (m *Mapping) addKnownTable(name string) {
	m.knownTables[name] = struct{}{}
	m.knownTables[m.Qualify(name)] = struct{}{}
	if i := strings.IndexByte(name, '.'); i >= 0 {
		m.knownTables[name[i+1:]] = struct{}{}
	}
}

// Qualify prefixes a table name with the schema namespace unless it is
// already qualified or no prefix is configured.
func (m *Mapping) Qualify(table string) string {
	if m.cfg.SchemaPrefix == "" || strings.Contains(table, ".") {
		return table
	}
	return m.cfg.SchemaPrefix + "." + table
}

// ResolveTable maps a logical table label to its qualified physical name.
// An unmapped label that already names a known physical table is qualified;
// anything else is returned unchanged.
func (m *Mapping) ResolveTable(logical string) string {
	if physical, ok := m.cfg.TableMappings[logical]; ok {
		return m.Qualify(physical)
	}
	if m.KnowsTable(logical) {
		return m.Qualify(logical)
	}
	return logical
}

// ResolveColumn maps a logical column label to its physical name within a
// physical table. The table is accepted bare or schema-qualified. Unmapped
// labels are returned unchanged.
func (m *Mapping) ResolveColumn(physicalTable, logical string) string {
	cols, ok := m.cfg.ColumnMappings[physicalTable]
	if !ok {
		// Retry with the bare table name.
		if i := strings.IndexByte(physicalTable, '.'); i >= 0 {
			cols, ok = m.cfg.ColumnMappings[physicalTable[i+1:]]
		}
	}
	if !ok {
		return logical
	}
	if physical, found := cols[logical]; found {
		return physical
	}
	return logical
}

// InferType returns the data type category of a physical column name,
// scanning the configured categories in fixed order (integer, text,
// numeric, date). Names in no category are unknown.
func (m *Mapping) InferType(physicalColumn string) ColumnType {
	if t, ok := m.columnTypes[physicalColumn]; ok {
		return t
	}
	return TypeUnknown
}

// KnowsTable reports whether a table identifier resolves to a configured
// physical table or view, bare or qualified.
func (m *Mapping) KnowsTable(name string) bool {
	_, ok := m.knownTables[name]
	return ok
}

// ── Prompt Description ───────────────────────────────────────

// Describe renders the schema for presentation to the completion
// capability: every introspected column annotated with its data type and
// nullability, followed by the table and column mapping tables and the
// data type rules. Output is deterministic (sorted) so prompts are
// reproducible.
func (m *Mapping) Describe(ps models.PhysicalSchema) string {
	var b strings.Builder

	b.WriteString("Schema Information:\n")
	tables := make([]string, 0, len(ps))
	for t := range ps {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	for _, t := range tables {
		fmt.Fprintf(&b, "\nTable: %s\nColumns:\n", m.Qualify(t))
		for _, col := range ps[t] {
			dataType := col.DataType
			if inferred := m.InferType(col.Name); inferred != TypeUnknown {
				dataType = string(inferred)
			}
			nullability := "not nullable"
			if col.Nullable {
				nullability = "nullable"
			}
			fmt.Fprintf(&b, "- %s (%s, %s)\n", col.Name, dataType, nullability)
		}
	}

	if len(m.cfg.TableMappings) > 0 {
		b.WriteString("\nTable Mappings (use these exact names in queries):\n")
		for _, logical := range sortedKeys(m.cfg.TableMappings) {
			fmt.Fprintf(&b, "- %s -> %s\n", logical, m.Qualify(m.cfg.TableMappings[logical]))
		}
	}

	if len(m.cfg.ColumnMappings) > 0 {
		b.WriteString("\nColumn Mappings (use these exact names in queries):\n")
		tableKeys := make([]string, 0, len(m.cfg.ColumnMappings))
		for t := range m.cfg.ColumnMappings {
			tableKeys = append(tableKeys, t)
		}
		sort.Strings(tableKeys)
		for _, t := range tableKeys {
			fmt.Fprintf(&b, "\nFor table %s:\n", m.Qualify(t))
			for _, logical := range sortedKeys(m.cfg.ColumnMappings[t]) {
				fmt.Fprintf(&b, "- %s -> %s\n", logical, m.cfg.ColumnMappings[t][logical])
			}
		}
	}

	rules := []struct {
		label string
		cols  []string
	}{
		{"Integer", m.cfg.DataTypeRules.Integer},
		{"Text", m.cfg.DataTypeRules.Text},
		{"Numeric", m.cfg.DataTypeRules.Numeric},
		{"Date", m.cfg.DataTypeRules.Date},
	}
	wroteHeader := false
	for _, r := range rules {
		if len(r.cols) == 0 {
			continue
		}
		if !wroteHeader {
			b.WriteString("\nData Type Rules (use these data types in queries):\n")
			wroteHeader = true
		}
		fmt.Fprintf(&b, "\n%s columns:\n", r.label)
		for _, col := range r.cols {
			fmt.Fprintf(&b, "- %s\n", col)
		}
	}

	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ── Generated Query Post-Processing ──────────────────────────

// Rewrite fixes logical table and column names left in a generated query.
// Column labels are replaced on word boundaries anywhere; table labels are
// replaced only in FROM/JOIN position, accepting either the logical label
// or the bare physical name (so an unqualified physical name still gains
// its schema prefix).
func (m *Mapping) Rewrite(query string) string {
	for _, table := range sortedColumnTables(m.cfg.ColumnMappings) {
		cols := m.cfg.ColumnMappings[table]
		for _, logical := range sortedKeys(cols) {
			physical := cols[logical]
			if logical == physical {
				continue
			}
			re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(logical) + `\b`)
			query = re.ReplaceAllString(query, physical)
		}
	}

	for _, logical := range sortedKeys(m.cfg.TableMappings) {
		physical := m.Qualify(m.cfg.TableMappings[logical])
		alternatives := regexp.QuoteMeta(logical)
		if i := strings.IndexByte(physical, '.'); i >= 0 {
			alternatives += "|" + regexp.QuoteMeta(physical[i+1:])
		}
		re := regexp.MustCompile(`(?i)\b(FROM|JOIN)\s+(` + alternatives + `)\b`)
		query = re.ReplaceAllString(query, "${1} "+physical)
	}
	return query
}

// fromTargets extracts identifiers in FROM/JOIN position.
var fromTargets = regexp.MustCompile(`(?i)\b(?:FROM|JOIN)\s+([A-Za-z_][\w.]*)`)

// Validate checks a generated query's table identifiers against the known
// physical names and returns a warning per unknown identifier. The query
// is passed through regardless; callers log the warnings and attach them
// to response metadata.
func (m *Mapping) Validate(query string) []string {
	if len(m.knownTables) == 0 {
		return nil
	}
	var warnings []string
	seen := make(map[string]struct{})
	for _, match := range fromTargets.FindAllStringSubmatch(query, -1) {
		name := match[1]
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		if !m.KnowsTable(name) {
			warnings = append(warnings, fmt.Sprintf("query references unknown table %q", name))
		}
	}
	return warnings
}

func sortedColumnTables(m map[string]map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
