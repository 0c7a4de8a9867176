// migrations встраивает SQL-миграции схемы в бинарник для goose.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
