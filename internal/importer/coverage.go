package importer

import (
	"fmt"
	"strings"
)

// OtherBucket collects questions whose clause matches no coverage prefix.
const OtherBucket = "Other"

// CoverageBuckets are the clause prefixes reported by coverage, in order.
var CoverageBuckets = func() []string {
	buckets := make([]string, 0, 17)
	for i := 1; i <= 10; i++ {
		buckets = append(buckets, fmt.Sprintf("CR%d", i))
	}
	for _, l := range "ABCDEFG" {
		buckets = append(buckets, "APP-"+string(l))
	}
	return buckets
}()

// CoverageReport counts questions per clause-prefix bucket. Coverage and
// Other together sum to Total.
type CoverageReport struct {
	Coverage map[string]int `json:"coverage"`
	Other    int            `json:"other"`
	Total    int            `json:"total"`
}

// BucketCount is one ordered coverage entry.
type BucketCount struct {
	Bucket string
	Count  int
}

// Ordered returns the bucket counts in CoverageBuckets order.
func (r *CoverageReport) Ordered() []BucketCount {
	out := make([]BucketCount, 0, len(CoverageBuckets))
	for _, b := range CoverageBuckets {
		out = append(out, BucketCount{Bucket: b, Count: r.Coverage[b]})
	}
	return out
}

// BucketFor returns the coverage bucket of a clause ref. The longest
// matching prefix wins, and a prefix ending in a digit must not be followed
// by another digit, so CR10.2 lands in CR10 and never in CR1.
func BucketFor(ref string) string {
	best := ""
	for _, b := range CoverageBuckets {
		if !strings.HasPrefix(ref, b) || len(b) <= len(best) {
			continue
		}
		if isDigit(b[len(b)-1]) && len(ref) > len(b) && isDigit(ref[len(b)]) {
			continue
		}
		best = b
	}
	if best == "" {
		return OtherBucket
	}
	return best
}

// ComputeCoverage buckets the given clause refs, one per question.
func ComputeCoverage(clauseRefs []string) *CoverageReport {
	r := &CoverageReport{Coverage: make(map[string]int, len(CoverageBuckets))}
	for _, b := range CoverageBuckets {
		r.Coverage[b] = 0
	}
	for _, ref := range clauseRefs {
		if b := BucketFor(ref); b == OtherBucket {
			r.Other++
		} else {
			r.Coverage[b]++
		}
		r.Total++
	}
	return r
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
