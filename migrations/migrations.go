// Package migrations embeds the SQL schema migrations for the knowledge base.
//
// The passage table stores 384 dimensional vectors, the output size of
// all-MiniLM-L6-v2. Switching to a model with a different size needs a new
// migration that alters the column and rebuilds the index.
package migrations

import "embed"

// FS holds the numbered up/down migration files
//
//go:embed *.sql
var FS embed.FS
