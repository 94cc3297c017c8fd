// Package all registers every built-in row source.
package all

import (
	_ "nanoconv/internal/datasource/pgsrc"
	_ "nanoconv/internal/datasource/rootfile"
	_ "nanoconv/internal/datasource/sqlitesrc"
)
