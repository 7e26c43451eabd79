package journal

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/jeyong/simsafety/internal/safety"
	"github.com/jeyong/simsafety/internal/timeutil"
)

func openTemp(t *testing.T, clock timeutil.Clock) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"), clock)
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestRecordAndRecent(t *testing.T) {
	clock := timeutil.NewMockClock(time.Unix(1700000000, 0))
	j := openTemp(t, clock)

	safe := safety.EvalResult{
		IsSafe:       true,
		CurPos:       r3.Vec{X: 1, Y: 2, Z: -3},
		DestPos:      r3.Vec{X: 2, Y: 2, Z: -3},
		CurRiskDist:  math.Inf(-1),
		DestRiskDist: -1.5,
	}
	id1, err := j.Record("velocity", safe)
	require.NoError(t, err)
	_, err = uuid.Parse(id1)
	require.NoError(t, err)

	clock.Advance(time.Second)
	unsafe := safety.EvalResult{
		Reason:       safety.NewViolationSet(safety.Obstacle, safety.GeoFence),
		CurRiskDist:  -1,
		DestRiskDist: 1,
		SuggestedVec: r3.Vec{Y: 1},
		Message:      "blocked",
	}
	id2, err := j.Record("destination", unsafe)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	entries, err := j.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	newest := entries[0]
	assert.Equal(t, id2, newest.ID)
	assert.Equal(t, "destination", newest.Query)
	assert.False(t, newest.IsSafe)
	assert.Equal(t, "GeoFence|Obstacle", newest.Reason)
	assert.Equal(t, r3.Vec{Y: 1}, newest.SuggestedVec)
	assert.Equal(t, 1.0, newest.DestRiskDist)
	assert.Equal(t, "blocked", newest.Message)
	assert.True(t, newest.RecordedAt.Equal(time.Unix(1700000001, 0)))

	oldest := entries[1]
	assert.Equal(t, id1, oldest.ID)
	assert.True(t, oldest.IsSafe)
	assert.Equal(t, "None", oldest.Reason)
	assert.Equal(t, r3.Vec{X: 1, Y: 2, Z: -3}, oldest.CurPos)
	assert.True(t, math.IsInf(oldest.CurRiskDist, -1), "no obstacle reads back as -Inf, got %v", oldest.CurRiskDist)
	assert.Equal(t, -1.5, oldest.DestRiskDist)

	entries, err = j.Recent(1)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	total, unsafeCount, err := j.Counts()
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, unsafeCount)
}

func TestRecord_RiskDistancesRoundTrip(t *testing.T) {
	j := openTemp(t, timeutil.NewMockClock(time.Unix(1700000000, 0)))

	tests := []struct {
		name string
		cur  float64
		dest float64
	}{
		{"finite", -2.5, 0.75},
		{"no obstacle", math.Inf(-1), math.Inf(-1)},
		{"hover", -1, math.NaN()},
		{"unbounded", math.Inf(1), 0},
	}
	for _, tt := range tests {
		_, err := j.Record(tt.name, safety.EvalResult{CurRiskDist: tt.cur, DestRiskDist: tt.dest})
		require.NoError(t, err)
	}

	entries, err := j.Recent(len(tests))
	require.NoError(t, err)
	require.Len(t, entries, len(tests))
	byQuery := make(map[string]Entry)
	for _, e := range entries {
		byQuery[e.Query] = e
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := byQuery[tt.name]
			assertSameRisk(t, tt.cur, e.CurRiskDist)
			assertSameRisk(t, tt.dest, e.DestRiskDist)
		})
	}
}

func assertSameRisk(t *testing.T, want, got float64) {
	t.Helper()
	if math.IsNaN(want) {
		assert.True(t, math.IsNaN(got), "got %v, want NaN", got)
		return
	}
	assert.Equal(t, want, got)
}

func TestCountsEmpty(t *testing.T) {
	j := openTemp(t, nil)
	total, unsafeCount, err := j.Counts()
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Zero(t, unsafeCount)
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := Open(path, nil)
	require.NoError(t, err)
	_, err = j.Record("position", safety.EvalResult{IsSafe: true})
	require.NoError(t, err)
	require.NoError(t, j.Close())

	// migrations are already applied the second time
	j, err = Open(path, nil)
	require.NoError(t, err)
	defer j.Close()
	total, _, err := j.Counts()
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestInMemory(t *testing.T) {
	j, err := Open(":memory:", nil)
	require.NoError(t, err)
	defer j.Close()

	_, err = j.Record("position", safety.EvalResult{IsSafe: true})
	require.NoError(t, err)
	entries, err := j.Recent(5)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRecordAfterClose(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"), nil)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	_, err = j.Record("position", safety.EvalResult{})
	assert.Error(t, err)
}
