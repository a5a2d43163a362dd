package migration

import (
	"database/sql"

	"go.uber.org/fx"
)

var Module = fx.Module("migration",
	fx.Invoke(func(db *sql.DB) error {
		return RunMigrations(db)
	}),
)
