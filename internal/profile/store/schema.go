package store

import _ "embed"

// Schema is the service's full DDL, applied by local tooling and
// integration tests. Production migrations run it statement-for-statement.
//
//go:embed schema.sql
var Schema string
