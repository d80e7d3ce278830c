// Package migrations embeds the store service's goose SQL migrations,
// grounded on the teacher's internal/db/migrations pattern (go:embed FS
// handed to goose.SetBaseFS).
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
