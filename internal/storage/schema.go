package storage

import _ "embed"

// Schema is the full database schema; every statement is idempotent.
//
//go:embed schema.sql
var Schema string
