package importer

import "strings"

// Delimiters are the candidates tried by DetectDelimiter, in tie-break order.
var Delimiters = []rune{',', ';', '\t', '|'}

// DetectDelimiter picks the candidate that splits line into the most
// fields. Ties go to the earlier candidate, so comma wins when nothing
// else splits more.
func DetectDelimiter(line string) rune {
	best := Delimiters[0]
	most := 0
	for _, d := range Delimiters {
		if n := strings.Count(line, string(d)) + 1; n > most {
			most = n
			best = d
		}
	}
	return best
}

// DelimiterName returns a printable name for a delimiter.
func DelimiterName(d rune) string {
	switch d {
	case ',':
		return "comma"
	case ';':
		return "semicolon"
	case '\t':
		return "tab"
	case '|':
		return "pipe"
	default:
		return string(d)
	}
}

// firstLine returns content up to the first newline, without a trailing CR.
func firstLine(content string) string {
	if i := strings.IndexByte(content, '\n'); i >= 0 {
		content = content[:i]
	}
	return strings.TrimSuffix(content, "\r")
}
