package ddl

import "nanoconv/internal/schema"

// MapType maps a column type into a Postgres SQL type.
//
//	Bool                  -> BOOLEAN
//	Int8/Uint8/Int16      -> SMALLINT
//	Uint16/Int32          -> INTEGER
//	Uint32/Int64          -> BIGINT
//	Uint64                -> NUMERIC(20)
//	Float32               -> REAL
//	Float64               -> DOUBLE PRECISION
//	everything else       -> TEXT
func (Dialect) MapType(t schema.Type) string {
	switch t {
	case schema.Bool:
		return "BOOLEAN"
	case schema.Int8, schema.Uint8, schema.Int16:
		return "SMALLINT"
	case schema.Uint16, schema.Int32:
		return "INTEGER"
	case schema.Uint32, schema.Int64:
		return "BIGINT"
	case schema.Uint64:
		return "NUMERIC(20)"
	case schema.Float32:
		return "REAL"
	case schema.Float64:
		return "DOUBLE PRECISION"
	default:
		return "TEXT"
	}
}
