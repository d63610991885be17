// Package importer loads question banks from CSV into the store.
//
// The pipeline sniffs the delimiter from the first line, resolves
// heterogeneous header names to canonical fields through a synonym table,
// validates and coerces each data row, then upserts the standard, its
// clauses and questions in one transaction. Rows missing a required field
// are skipped and counted; only unparseable CSV or a database failure
// aborts the import.
//
// After an import the package reports coverage: how many questions fall
// under each clause prefix (CR1..CR10, APP-A..APP-G, Other).
package importer
