// Package answers validates and persists batches of assessment answers.
//
// A batch is written in a single transaction: question ids that do not
// resolve are skipped, every other item is coerced against its question's
// response type and upserted. A failure on any item rolls back the whole
// batch. There is no versioning; the last committed write for an
// (assessment, question) pair wins.
package answers
