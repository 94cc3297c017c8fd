package ddl

import "nanoconv/internal/schema"

// MapType maps a column type to a SQLite column type.
//
// SQLite supports dynamic typing, so this mapping prefers canonical
// affinities:
//   - integer-ish types -> INTEGER
//   - boolean          -> INTEGER (0/1)
//   - floating point   -> REAL
//   - others           -> TEXT
func (Dialect) MapType(t schema.Type) string {
	switch {
	case t == schema.Bool, t.IsInteger():
		return "INTEGER"
	case t == schema.Float32, t == schema.Float64:
		return "REAL"
	default:
		return "TEXT"
	}
}
