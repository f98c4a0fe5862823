// Package main provides the pgsite command line tool.
//
// pgsite sources static-site page and collection content from PostgreSQL.
// The CLI supports:
//   - generate: scan an annotated .sql schema and emit insert/read SQL
//     plus TOML configuration
//   - classify: interactively classify unannotated tables
//   - ingest: load markdown content into the database using the
//     generated insert templates
//   - read: run a configured read statement and print the row attributes
//
// generate and classify work purely on files; ingest and read need
// database access (--db or PGSITE_DATABASE_URL).
package main

func main() {
	Execute()
}
