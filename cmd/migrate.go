/*
Copyright 2024 Boreal Insurance PGI Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"database/sql"
	"fmt"

	migrate "github.com/rubenv/sql-migrate"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/borealinsurance/pgi"
	"github.com/borealinsurance/pgi/database"
)

const migrationSchema = "pgi"

func migrateCommands(app *pgiInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "run pgi database migrations",
	}

	cmd.AddCommand(migrateDirectionCommand(app, "up", migrate.Up))
	cmd.AddCommand(migrateDirectionCommand(app, "down", migrate.Down))
	return cmd
}

func migrateDirectionCommand(app *pgiInstance, use string, direction migrate.MigrationDirection) *cobra.Command {
	var max int
	cmd := &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("apply migrations %s", use),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database.ConnectDB(app.cnf.DataSource)
			if err != nil {
				return fmt.Errorf("error connecting to database: %v", err)
			}
			defer db.Close()

			n, err := runMigrations(db, direction, max)
			if err != nil {
				return fmt.Errorf("error migrating %s: %v", use, err)
			}
			logrus.Infof("applied %d migrations %s", n, use)
			return nil
		},
	}
	cmd.Flags().IntVar(&max, "max", 0, "maximum number of migrations to apply, 0 for all")
	return cmd
}

// runMigrations keeps the migration history table inside the pgi schema, which
// has to exist before sql-migrate can create that table.
func runMigrations(db *sql.DB, direction migrate.MigrationDirection, max int) (int, error) {
	if _, err := db.Exec("CREATE SCHEMA IF NOT EXISTS " + migrationSchema); err != nil {
		return 0, err
	}

	migrations := migrate.EmbedFileSystemMigrationSource{
		FileSystem: pgi.SQLFiles,
		Root:       "sql",
	}
	migrate.SetSchema(migrationSchema)
	return migrate.ExecMax(db, "postgres", migrations, direction, max)
}
