package ddl

import "nanoconv/internal/schema"

// MapType maps a column type to a MySQL column type. Unsigned NanoAOD types
// keep their range with the UNSIGNED variants.
func (Dialect) MapType(t schema.Type) string {
	switch t {
	case schema.Bool:
		return "BOOLEAN"
	case schema.Int8:
		return "TINYINT"
	case schema.Uint8:
		return "TINYINT UNSIGNED"
	case schema.Int16:
		return "SMALLINT"
	case schema.Uint16:
		return "SMALLINT UNSIGNED"
	case schema.Int32:
		return "INT"
	case schema.Uint32:
		return "INT UNSIGNED"
	case schema.Int64:
		return "BIGINT"
	case schema.Uint64:
		return "BIGINT UNSIGNED"
	case schema.Float32:
		return "FLOAT"
	case schema.Float64:
		return "DOUBLE"
	default:
		return "LONGTEXT"
	}
}
