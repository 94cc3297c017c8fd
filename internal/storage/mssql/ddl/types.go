package ddl

import "nanoconv/internal/schema"

// MapType maps a column type into a SQL Server column type. TINYINT is
// unsigned in T-SQL, so signed 8-bit values widen to SMALLINT. Unknown types
// fall back to NVARCHAR(MAX).
func (Dialect) MapType(t schema.Type) string {
	switch t {
	case schema.Bool:
		return "BIT"
	case schema.Uint8:
		return "TINYINT"
	case schema.Int8, schema.Int16:
		return "SMALLINT"
	case schema.Uint16, schema.Int32:
		return "INT"
	case schema.Uint32, schema.Int64:
		return "BIGINT"
	case schema.Uint64:
		return "DECIMAL(20, 0)"
	case schema.Float32:
		return "REAL"
	case schema.Float64:
		return "FLOAT"
	default:
		return "NVARCHAR(MAX)"
	}
}
