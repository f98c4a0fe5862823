package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tobyms/pgsite/internal/cli"
	"github.com/tobyms/pgsite/internal/doctor"
)

var (
	doctorDB       string
	doctorSchema   string
	doctorSettings string
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check project health",
	Long: `Run health checks on the project: the annotated schema, the generated
pgsite.toml, and (when a database is configured) the database state.

Exits non-zero when any check fails.`,
	Example: `  # Check the schema and configuration only
  pgsite doctor

  # Also check the database
  pgsite doctor --db postgres://localhost/site

  # Show details for each check
  pgsite doctor -v`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		schemaPath := cfg.ResolvedSchema(doctorSchema)
		settingsPath := resolveString(doctorSettings, cfg.Ingest.Config)
		showDetails := resolveBool(cfg.Doctor.Verbose, verbose > 0)

		// The database checks are optional: run them only when a DSN is
		// available from the flag or config.
		var db *sql.DB
		if dsn, err := resolveDSN(doctorDB); err == nil {
			db, err = sql.Open("postgres", dsn)
			if err != nil {
				return cli.DBConnectError("connecting to database", err)
			}
			defer func() { _ = db.Close() }()
		}

		report, err := doctor.New(db, schemaPath, settingsPath).Run(context.Background())
		if err != nil {
			return cli.GeneralError("running health checks", err)
		}

		report.Print(os.Stdout, showDetails)
		if report.HasErrors() {
			return cli.GeneralError(fmt.Sprintf("%d checks failed", report.Errors), nil)
		}
		return nil
	},
}

func init() {
	f := doctorCmd.Flags()
	f.StringVar(&doctorDB, "db", "", "database URL (enables database checks)")
	f.StringVar(&doctorSchema, "schema", "", "annotated .sql schema path")
	f.StringVar(&doctorSettings, "settings", "", "pgsite.toml path (default: auto-discover)")
}
