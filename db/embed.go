// Package db embeds the schema migrations applied at startup.
package db

import _ "embed"

// Schema holds the DDL for the catalog and order tables.
//
//go:embed migrations/001_schema.sql
var Schema string
