package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoverageBuckets(t *testing.T) {
	require.Len(t, CoverageBuckets, 17)
	assert.Equal(t, "CR1", CoverageBuckets[0])
	assert.Equal(t, "CR10", CoverageBuckets[9])
	assert.Equal(t, "APP-A", CoverageBuckets[10])
	assert.Equal(t, "APP-G", CoverageBuckets[16])
}

func TestBucketFor(t *testing.T) {
	tests := map[string]string{
		"CR1":      "CR1",
		"CR1.2":    "CR1",
		"CR1a":     "CR1",
		"CR10":     "CR10",
		"CR10.1":   "CR10",
		"CR2":      "CR2",
		"CR11":     OtherBucket,
		"CR":       OtherBucket,
		"APP-A":    "APP-A",
		"APP-A1":   "APP-A",
		"APP-G.3":  "APP-G",
		"APP-H":    OtherBucket,
		"cr1":      OtherBucket,
		"SECTION9": OtherBucket,
	}
	for ref, want := range tests {
		assert.Equal(t, want, BucketFor(ref), ref)
	}
}

func TestComputeCoverage_SumsToTotal(t *testing.T) {
	refs := []string{"CR1", "CR1.1", "CR10", "CR10.2", "APP-B", "APP-Z", "MISC", "CR3"}

	r := ComputeCoverage(refs)

	assert.Equal(t, 8, r.Total)
	assert.Equal(t, 2, r.Coverage["CR1"])
	assert.Equal(t, 2, r.Coverage["CR10"])
	assert.Equal(t, 1, r.Coverage["CR3"])
	assert.Equal(t, 1, r.Coverage["APP-B"])
	assert.Equal(t, 0, r.Coverage["APP-G"])
	assert.Equal(t, 2, r.Other)

	sum := r.Other
	for _, bc := range r.Ordered() {
		sum += bc.Count
	}
	assert.Equal(t, r.Total, sum)
	assert.Len(t, r.Coverage, len(CoverageBuckets))
}

func TestComputeCoverage_Empty(t *testing.T) {
	r := ComputeCoverage(nil)
	assert.Zero(t, r.Total)
	assert.Zero(t, r.Other)
	assert.Equal(t, "CR1", r.Ordered()[0].Bucket)
}
