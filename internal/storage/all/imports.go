// Package all wires all built-in storage backends into the storage factory.
//
// This package exists purely for side effects: importing it causes the init
// functions of each concrete backend to register its factory and DDL dialect:
//
//   - "postgres" (nanoconv/internal/storage/postgres)
//   - "mssql"    (nanoconv/internal/storage/mssql)
//   - "mysql"    (nanoconv/internal/storage/mysql)
//   - "sqlite"   (nanoconv/internal/storage/sqlite)
//
// A binary that needs only a subset can import the backends directly instead.
package all

import (
	_ "nanoconv/internal/storage/mssql"
	_ "nanoconv/internal/storage/mysql"
	_ "nanoconv/internal/storage/postgres"
	_ "nanoconv/internal/storage/sqlite"
)
