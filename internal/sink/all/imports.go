// Package all registers every built-in sink, together with the storage
// backends the relational sinks write through.
package all

import (
	_ "nanoconv/internal/sink/arrowsink"
	_ "nanoconv/internal/sink/mongosink"
	_ "nanoconv/internal/sink/sqlsink"
	_ "nanoconv/internal/storage/all"
)
