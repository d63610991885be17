package assessment

import (
	"sort"
	"strconv"
	"strings"
)

// CompareClauseRefs orders clause refs as reports present them: CR clauses
// by their leading number, then APP- appendices, then everything else.
// Ties fall back to lexical order.
func CompareClauseRefs(a, b string) int {
	ca, cb := clauseClass(a), clauseClass(b)
	if ca != cb {
		return ca - cb
	}
	if ca == classCR {
		if na, nb := leadingInt(a[2:]), leadingInt(b[2:]); na != nb {
			if na < nb {
				return -1
			}
			return 1
		}
	}
	return strings.Compare(a, b)
}

// SortClauseRefs sorts refs in place by CompareClauseRefs.
func SortClauseRefs(refs []string) {
	sort.SliceStable(refs, func(i, j int) bool {
		return CompareClauseRefs(refs[i], refs[j]) < 0
	})
}

const (
	classCR = iota
	classAppendix
	classOther
)

func clauseClass(ref string) int {
	switch {
	case strings.HasPrefix(ref, "CR"):
		return classCR
	case strings.HasPrefix(ref, "APP-"):
		return classAppendix
	default:
		return classOther
	}
}

func leadingInt(s string) int {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}
