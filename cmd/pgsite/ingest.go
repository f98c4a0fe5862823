package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/tobyms/pgsite/internal/cli"
	"github.com/tobyms/pgsite/pkg/content"
	"github.com/tobyms/pgsite/pkg/ingest"
	"github.com/tobyms/pgsite/pkg/settings"
)

var (
	ingestDB         string
	ingestSettings   string
	ingestCollection string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [content-dir]",
	Short: "Load markdown content into the database",
	Long: `Read markdown files (YAML front matter plus body), bind their fields
into the generated insert templates from pgsite.toml, and execute the
statements in dependency order.

Each statement runs inside its own savepoint: a failing insert is rolled
back and reported without aborting the rest of the batch.`,
	Example: `  # Ingest the content directory using the discovered pgsite.toml
  pgsite ingest content --db postgres://localhost/site

  # Ingest a single file into a specific collection's statements
  pgsite ingest content/first-post.md --collection blog`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		contentPath := resolveString(cfg.Ingest.Content, "content")
		if len(args) == 1 {
			contentPath = args[0]
		}
		settingsPath := resolveString(ingestSettings, cfg.Ingest.Config)
		collection := resolveString(ingestCollection, cfg.Ingest.Collection)

		dsn, err := resolveDSN(ingestDB)
		if err != nil {
			return err
		}
		return runIngest(dsn, settingsPath, collection, contentPath)
	},
}

func init() {
	f := ingestCmd.Flags()
	f.StringVar(&ingestDB, "db", "", "database URL")
	f.StringVar(&ingestSettings, "settings", "", "pgsite.toml path (default: auto-discover)")
	f.StringVar(&ingestCollection, "collection", "", "object name whose insert statements to run")
}

// resolveDSN gets the database DSN from flag or config.
func resolveDSN(flagDSN string) (string, error) {
	if flagDSN != "" {
		return flagDSN, nil
	}

	dsn, err := cfg.DSN()
	if err != nil {
		return "", cli.ConfigError("database configuration", err)
	}
	if dsn == "" {
		return "", cli.ConfigError("database URL is required (use --db or set in config)", nil)
	}
	return dsn, nil
}

func runIngest(dsn, settingsPath, collection, contentPath string) error {
	s, err := settings.Load(settingsPath)
	if err != nil {
		return cli.ConfigError("loading settings", err)
	}

	name, err := resolveCollection(s, collection)
	if err != nil {
		return err
	}
	templates := s.InsertSQL(name)
	if len(templates) == 0 {
		return cli.ConfigError(fmt.Sprintf("no insert statements configured for %q", name), nil)
	}

	files, err := contentFiles(contentPath)
	if err != nil {
		return cli.GeneralError("listing content", err)
	}
	if len(files) == 0 {
		return cli.GeneralError(fmt.Sprintf("no markdown files under %s", contentPath), nil)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return cli.DBConnectError("connecting to database", err)
	}
	defer func() { _ = db.Close() }()

	ctx := context.Background()
	total := ingest.Result{}

	for _, path := range files {
		doc, err := content.LoadFile(path)
		if err != nil {
			return cli.GeneralError("loading content", err)
		}
		if _, ok := doc.Fields["content"]; !ok {
			doc.Fields["content"] = doc.Body
		}

		res, err := ingestOne(ctx, db, templates, doc.Fields, s.AutoCommit)
		if err != nil {
			return cli.GeneralError(fmt.Sprintf("ingesting %s", path), err)
		}
		verbosef("%s: %d executed, %d skipped, %d failed",
			path, res.Executed, len(res.Skipped), len(res.Failed))
		for _, f := range res.Failed {
			fmt.Fprintln(os.Stderr, warnStyle.Render(fmt.Sprintf("%s: %v", path, f.Err)))
		}

		total.Executed += res.Executed
		total.Skipped = append(total.Skipped, res.Skipped...)
		total.Failed = append(total.Failed, res.Failed...)
	}

	if !quiet {
		fmt.Printf("Ingested %d files: %d statements executed, %d skipped, %d failed.\n",
			len(files), total.Executed, len(total.Skipped), len(total.Failed))
	}
	return nil
}

// ingestOne runs one document's statements inside a transaction. With
// auto-commit disabled the transaction is rolled back after running,
// which serves as a dry run.
func ingestOne(ctx context.Context, db *sql.DB, templates []string, fields map[string]any, commit bool) (*ingest.Result, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}

	in := ingest.New(tx)
	if verbose > 0 {
		in.Logf = verbosef
	}

	res, err := in.Run(ctx, templates, fields)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if !commit {
		if err := tx.Rollback(); err != nil {
			return nil, fmt.Errorf("rolling back transaction: %w", err)
		}
		return res, nil
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return res, nil
}

// resolveCollection picks the object whose statements to run: the flag,
// then the single configured object when there is exactly one.
func resolveCollection(s *settings.Settings, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	objects := s.Objects()
	if len(objects) == 1 {
		return objects[0], nil
	}
	if len(objects) == 0 {
		return "", cli.ConfigError("no insert_sql configured (run pgsite generate first)", nil)
	}
	return "", cli.ConfigError(
		fmt.Sprintf("multiple objects configured (%s); choose one with --collection", strings.Join(objects, ", ")), nil)
}

// contentFiles lists the markdown files under path (or path itself when
// it is a file).
func contentFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch filepath.Ext(p) {
		case ".md", ".markdown":
			files = append(files, p)
		}
		return nil
	})
	return files, err
}
