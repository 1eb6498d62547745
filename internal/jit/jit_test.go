package jit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"rebar/internal/jit"
)

func TestRecordCallAdvancesTiers(t *testing.T) {
	p := jit.NewProfiler()

	var tier jit.Tier
	for i := 0; i < jit.WarmThreshold-1; i++ {
		tier = p.RecordCall(1, "f")
	}
	assert.Equal(t, jit.TierUnprofiled, tier)

	tier = p.RecordCall(1, "f")
	assert.Equal(t, jit.TierWarm, tier)

	for i := 0; i < jit.HotThreshold-jit.WarmThreshold-1; i++ {
		tier = p.RecordCall(1, "f")
	}
	assert.Equal(t, jit.TierWarm, tier)

	tier = p.RecordCall(1, "f")
	assert.Equal(t, jit.TierHot, tier)
}

func TestHottestSortsDescendingByCalls(t *testing.T) {
	p := jit.NewProfiler()
	for i := 0; i < 5; i++ {
		p.RecordCall(1, "rare")
	}
	for i := 0; i < 100; i++ {
		p.RecordCall(2, "common")
	}
	for i := 0; i < 1000; i++ {
		p.RecordCall(3, "hot")
	}

	stats := p.Hottest()
	if assert.Len(t, stats, 3) {
		assert.Equal(t, "hot", stats[0].Name)
		assert.Equal(t, 1000, stats[0].Calls)
		assert.Equal(t, jit.TierHot, stats[0].Tier)

		assert.Equal(t, "common", stats[1].Name)
		assert.Equal(t, jit.TierWarm, stats[1].Tier)

		assert.Equal(t, "rare", stats[2].Name)
		assert.Equal(t, jit.TierUnprofiled, stats[2].Tier)
	}
}

func TestRecordCallTracksIdsIndependently(t *testing.T) {
	p := jit.NewProfiler()
	p.RecordCall(1, "a")
	p.RecordCall(1, "a")
	p.RecordCall(2, "b")

	stats := p.Hottest()
	counts := map[string]int{}
	for _, s := range stats {
		counts[s.Name] = s.Calls
	}
	assert.Equal(t, 2, counts["a"])
	assert.Equal(t, 1, counts["b"])
}
