package schema

import "strings"

// Type is the primitive type tag derived from a column's type token.
type Type int

const (
	Unknown Type = iota
	Bool
	Int8
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Int64
	Uint64
	Float32
	Float64
	String
)

var typeNames = [...]string{
	Unknown: "unknown",
	Bool:    "bool",
	Int8:    "int8",
	Uint8:   "uint8",
	Int16:   "int16",
	Uint16:  "uint16",
	Int32:   "int32",
	Uint32:  "uint32",
	Int64:   "int64",
	Uint64:  "uint64",
	Float32: "float32",
	Float64: "float64",
	String:  "string",
}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return "unknown"
	}
	return typeNames[t]
}

// IsInteger reports whether t is one of the signed or unsigned integer tags.
func (t Type) IsInteger() bool {
	switch t {
	case Int8, Uint8, Int16, Uint16, Int32, Uint32, Int64, Uint64:
		return true
	}
	return false
}

// typeTokens maps lower-cased type tokens to tags. ROOT, Go, C, SQLite and
// Postgres spellings are all accepted since sources report whatever their
// native catalog uses.
var typeTokens = map[string]Type{
	// ROOT
	"bool_t":     Bool,
	"char_t":     Int8,
	"uchar_t":    Uint8,
	"short_t":    Int16,
	"ushort_t":   Uint16,
	"int_t":      Int32,
	"uint_t":     Uint32,
	"long_t":     Int64,
	"ulong_t":    Uint64,
	"long64_t":   Int64,
	"ulong64_t":  Uint64,
	"float_t":    Float32,
	"float16_t":  Float32,
	"double_t":   Float64,
	"double32_t": Float64,

	// Go
	"bool":    Bool,
	"int8":    Int8,
	"uint8":   Uint8,
	"byte":    Uint8,
	"int16":   Int16,
	"uint16":  Uint16,
	"int32":   Int32,
	"uint32":  Uint32,
	"int64":   Int64,
	"uint64":  Uint64,
	"float32": Float32,
	"float64": Float64,
	"string":  String,

	// C / C++
	"char":               Int8,
	"unsigned char":      Uint8,
	"short":              Int16,
	"unsigned short":     Uint16,
	"int":                Int32,
	"unsigned int":       Uint32,
	"long":               Int64,
	"long long":          Int64,
	"unsigned long":      Uint64,
	"unsigned long long": Uint64,
	"float":              Float32,
	"double":             Float64,
	"int8_t":             Int8,
	"uint8_t":            Uint8,
	"int16_t":            Int16,
	"uint16_t":           Uint16,
	"int32_t":            Int32,
	"uint32_t":           Uint32,
	"int64_t":            Int64,
	"uint64_t":           Uint64,
	"std::string":        String,

	// SQL
	"boolean":          Bool,
	"tinyint":          Int8,
	"smallint":         Int16,
	"integer":          Int64,
	"bigint":           Int64,
	"real":             Float64,
	"double precision": Float64,
	"text":             String,
	"varchar":          String,

	// Postgres udt names
	"int2":   Int16,
	"int4":   Int32,
	"float4": Float32,
	"float8": Float64,
}

// ParseType maps a type token to a Type. Array markers ("[]" suffix or a
// leading "_" as Postgres reports array udt names) are stripped first; the
// caller tracks jaggedness separately. Unrecognised tokens yield Unknown.
func ParseType(token string) Type {
	tok := strings.ToLower(strings.TrimSpace(token))
	tok = strings.TrimSuffix(tok, "[]")
	if typ, ok := typeTokens[tok]; ok {
		return typ
	}
	if strings.HasPrefix(tok, "_") {
		if typ, ok := typeTokens[tok[1:]]; ok {
			return typ
		}
	}
	return Unknown
}
