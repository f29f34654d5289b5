// Package importer implements the spreadsheet-to-catalogue import
// reconciliation workflow.
//
// The workflow runs in four stages. Parse decodes a tabular file into rows
// using header-alias mapping. Scan queries the metadata provider per row
// under a bounded concurrency limit, scores match confidence, and flags
// duplicates against the user's existing collection. The review step lets a
// caller re-search and override any candidate. Commit upserts the shared
// catalogue entry and the user's annotation for every selected candidate,
// counting row-scoped failures instead of aborting.
package importer
