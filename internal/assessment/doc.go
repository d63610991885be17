// Package assessment creates assessments and lists their questions grouped
// by clause, merged with any answers saved so far.
package assessment
