// Package migrations embeds the goose SQL migrations so the binary does not
// depend on its working directory.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
