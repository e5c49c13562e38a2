package schema

import (
	"sync"

	"training-crm-backend/config"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Resolver maps stable logical field names to whichever physical column
// actually exists in the live database, tolerating the column renames this
// schema has been through. Lookups are memoized per table for the lifetime
// of the process, so the catalog is probed at most once per candidate.
type Resolver struct {
	db     *gorm.DB
	mu     sync.Mutex
	tables map[string]*ColumnMap
}

// ColumnMap holds the resolved logical-field -> physical-column mapping for
// one table. An empty mapping value means no candidate column exists; the
// caller is expected to skip the dependent clause rather than fail.
type ColumnMap struct {
	Table  string
	fields map[string]string
}

func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{
		db:     db,
		tables: make(map[string]*ColumnMap),
	}
}

// ResolveTable resolves every logical field in candidates against the live
// schema of table, returning the memoized result on repeat calls.
func (r *Resolver) ResolveTable(table string, candidates map[string][]string) *ColumnMap {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, ok := r.tables[table]; ok {
		return cached
	}

	cm := &ColumnMap{
		Table:  table,
		fields: make(map[string]string, len(candidates)),
	}

	for field, names := range candidates {
		for _, name := range names {
			if name == "" {
				continue
			}
			if r.hasColumn(table, name) {
				cm.fields[field] = name
				break
			}
		}
	}

	r.tables[table] = cm
	return cm
}

// RelationExists reports whether a table or view is present in the database
func (r *Resolver) RelationExists(name string) bool {
	return r.db.Migrator().HasTable(name)
}

// hasColumn probes the schema catalog for one column. A probe failure is
// treated as "column does not exist" so a flaky catalog query degrades a
// feature instead of breaking the request.
func (r *Resolver) hasColumn(table, column string) (exists bool) {
	defer func() {
		if rec := recover(); rec != nil {
			config.Logger.Error("Schema probe failed",
				zap.String("table", table),
				zap.String("column", column),
				zap.Any("panic", rec))
			exists = false
		}
	}()

	return r.db.Migrator().HasColumn(table, column)
}

// Column returns the physical column backing a logical field, if any
func (m *ColumnMap) Column(field string) (string, bool) {
	col, ok := m.fields[field]
	if !ok || col == "" {
		return "", false
	}
	return col, true
}

// ColumnOr returns the physical column backing a logical field, or fallback
// when no candidate resolved
func (m *ColumnMap) ColumnOr(field, fallback string) string {
	if col, ok := m.Column(field); ok {
		return col
	}
	return fallback
}

// Has reports whether a logical field resolved to a physical column
func (m *ColumnMap) Has(field string) bool {
	_, ok := m.Column(field)
	return ok
}

// Fields returns the logical names that resolved, in no particular order
func (m *ColumnMap) Fields() []string {
	out := make([]string, 0, len(m.fields))
	for field, col := range m.fields {
		if col != "" {
			out = append(out, field)
		}
	}
	return out
}
