// Package journal keeps a local record of dataset uploads.
//
// Every upload run is one Entry, keyed by the run ID and updated on each state
// change. A run that fails after the register step leaves a dataset on the
// server that has no data behind it; those entries are the orphans returned by
// Repo.ListOrphans. Nothing is deleted automatically: a caller removes the
// remote dataset and then calls MarkCleanedUp.
//
// # Backends
//
//   - journal/sqlite: modernc.org/sqlite through database/sql
//   - journal/postgres: pgx connection pool
//
// journal/database.Connect picks a backend from configuration, migrates and
// validates the table and returns a ready Repo.
package journal
