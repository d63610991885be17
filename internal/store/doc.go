// Package store is the relational data access layer for assessd.
//
// It owns the gorm models for standards, clauses, questions, assessments and
// answers, and exposes the narrow query contract the importer, answer
// service, assessment listing and exports depend on. Postgres is the
// production dialect; sqlite serves single-file deployments and tests.
//
// Multi-step writes run through WithTx, which hands the callback a Store
// bound to one transaction. Any error returned from the callback rolls the
// whole transaction back.
package store
