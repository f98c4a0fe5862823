package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/tobyms/pgsite/internal/cli"
	"github.com/tobyms/pgsite/pkg/reader"
	"github.com/tobyms/pgsite/pkg/settings"
)

var (
	readDB       string
	readSettings string
)

var readCmd = &cobra.Command{
	Use:   "read <object>",
	Short: "Run a configured read statement",
	Long: `Execute the read statement configured for an object in pgsite.toml and
print the resulting page attributes as JSON. A single row becomes a flat
attribute object; several rows become a "data" list plus per-column
value lists.`,
	Example: `  # Print the blog collection's rows
  pgsite read blog --db postgres://localhost/site`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dsn, err := resolveDSN(readDB)
		if err != nil {
			return err
		}
		return runRead(dsn, resolveString(readSettings, cfg.Ingest.Config), args[0])
	},
}

func init() {
	f := readCmd.Flags()
	f.StringVar(&readDB, "db", "", "database URL")
	f.StringVar(&readSettings, "settings", "", "pgsite.toml path (default: auto-discover)")
}

func runRead(dsn, settingsPath, name string) error {
	s, err := settings.Load(settingsPath)
	if err != nil {
		return cli.ConfigError("loading settings", err)
	}

	query := s.ReadSQL(name)
	if query == "" {
		return cli.ConfigError(fmt.Sprintf("no read statement configured for %q", name), nil)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return cli.DBConnectError("connecting to database", err)
	}
	defer func() { _ = db.Close() }()

	attrs, err := reader.Attrs(context.Background(), db, query)
	if err != nil {
		return cli.GeneralError("reading content", err)
	}

	out, err := json.MarshalIndent(attrs, "", "  ")
	if err != nil {
		return cli.GeneralError("encoding attributes", err)
	}
	fmt.Println(string(out))
	return nil
}
