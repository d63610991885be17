// Package export renders an assessment and its answers as a PDF report or
// an Excel workbook.
//
// Loader gathers the assessment, its standard's questions and the saved
// answers into a Report. WritePDF and WriteExcel render a Report to any
// io.Writer, so HTTP handlers stream straight to the response.
package export
