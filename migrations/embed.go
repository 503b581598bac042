// Package migrations ships the SQL schema inside the binary so a
// deployment never depends on loose .sql files.
package migrations

import (
	"embed"

	"github.com/wattgate/wattgate-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	// The embedded files sit at the FS root, not under migrations/.
	database.MigrationsDir = "."
}
