// Package catalog persists the shared movie catalogue and per-user
// annotations in SQLite.
//
// Catalogue entries are de-duplicated by TMDB id: UpsertMovie resolves or
// creates the single row for an id and merge-updates its metadata on
// re-import. Annotations are keyed by (user, movie) with the same upsert
// semantics, so committing an import twice converges rather than duplicating.
package catalog
