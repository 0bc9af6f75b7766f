package timeline

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSet(t *testing.T, duration float64) *RangeSet {
	t.Helper()
	rs, err := NewRangeSet(duration, DefaultMinLength)
	require.NoError(t, err)
	return rs
}

func assertInvariants(t *testing.T, rs *RangeSet) {
	t.Helper()
	ivs := rs.Intervals()
	for i, a := range ivs {
		assert.GreaterOrEqual(t, a.Start, 0.0, "start below zero: %s", a)
		assert.Less(t, a.Start, a.End, "non-positive length: %s", a)
		assert.LessOrEqual(t, a.End, rs.Duration(), "end past duration: %s", a)
		for j, b := range ivs {
			if i == j {
				continue
			}
			assert.True(t, a.End <= b.Start || b.End <= a.Start, "overlap %s %s", a, b)
		}
	}
}

func TestNewRangeSetRejectsBadDuration(t *testing.T) {
	for _, d := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := NewRangeSet(d, 0.1)
		assert.ErrorIs(t, err, ErrInvalidRange, "duration %v", d)
	}
}

func TestInsert(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		rs := newSet(t, 10)
		id, err := rs.Insert("a", 2, 4)
		require.NoError(t, err)
		assert.Equal(t, "a", id)
		assert.Equal(t, 1, rs.Len())
	})

	t.Run("touching neighbours allowed", func(t *testing.T) {
		rs := newSet(t, 10)
		_, err := rs.Insert("a", 2, 4)
		require.NoError(t, err)
		_, err = rs.Insert("b", 4, 6)
		require.NoError(t, err)
		_, err = rs.Insert("c", 0, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "a", "b"}, ids(rs))
	})

	t.Run("overlap rejected", func(t *testing.T) {
		rs := newSet(t, 10)
		_, err := rs.Insert("a", 2, 4)
		require.NoError(t, err)
		for _, r := range [][2]float64{{3, 5}, {1, 3}, {2.5, 3.5}, {1, 6}} {
			_, err := rs.Insert("x", r[0], r[1])
			assert.ErrorIs(t, err, ErrOverlap, "range %v", r)
		}
		assert.Equal(t, 1, rs.Len())
	})

	t.Run("invalid ranges rejected", func(t *testing.T) {
		rs := newSet(t, 10)
		cases := [][2]float64{
			{4, 2},
			{3, 3},
			{-1, 2},
			{8, 11},
			{math.NaN(), 2},
			{1, math.Inf(1)},
		}
		for _, c := range cases {
			_, err := rs.Insert("x", c[0], c[1])
			assert.ErrorIs(t, err, ErrInvalidRange, "range %v", c)
		}
		assert.Zero(t, rs.Len())
	})

	t.Run("empty and duplicate ids", func(t *testing.T) {
		rs := newSet(t, 10)
		_, err := rs.Insert("", 1, 2)
		assert.ErrorIs(t, err, ErrInvalidRange)
		_, err = rs.Insert("a", 1, 2)
		require.NoError(t, err)
		_, err = rs.Insert("a", 5, 6)
		assert.ErrorIs(t, err, ErrDuplicateID)
	})
}

func TestResizeEndClampsAtNeighbour(t *testing.T) {
	rs := newSet(t, 10)
	_, err := rs.Insert("a", 2, 4)
	require.NoError(t, err)
	_, err = rs.Insert("b", 5, 6)
	require.NoError(t, err)

	iv, err := rs.ResizeEnd("a", 8)
	require.NoError(t, err)
	assert.Equal(t, 5.0, iv.End)
	assert.Equal(t, 2.0, iv.Start)
}

func TestResizeEndClampsAtDurationAndEpsilon(t *testing.T) {
	rs := newSet(t, 10)
	_, err := rs.Insert("a", 2, 4)
	require.NoError(t, err)

	iv, err := rs.ResizeEnd("a", 42)
	require.NoError(t, err)
	assert.Equal(t, 10.0, iv.End)

	iv, err = rs.ResizeEnd("a", 0)
	require.NoError(t, err)
	assert.InDelta(t, 2.1, iv.End, 1e-9)
}

func TestResizeStartClamps(t *testing.T) {
	rs := newSet(t, 10)
	_, err := rs.Insert("a", 1, 2)
	require.NoError(t, err)
	_, err = rs.Insert("b", 4, 6)
	require.NoError(t, err)

	iv, err := rs.ResizeStart("b", 0)
	require.NoError(t, err)
	assert.Equal(t, 2.0, iv.Start, "must stop at previous end")

	iv, err = rs.ResizeStart("b", 9)
	require.NoError(t, err)
	assert.InDelta(t, 5.9, iv.Start, 1e-9, "must keep ε length")

	iv, err = rs.ResizeStart("a", -3)
	require.NoError(t, err)
	assert.Equal(t, 0.0, iv.Start)
}

func TestResizeUnknownAndNaN(t *testing.T) {
	rs := newSet(t, 10)
	_, err := rs.ResizeStart("nope", 1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = rs.ResizeEnd("nope", 1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = rs.Insert("a", 2, 4)
	require.NoError(t, err)
	iv, err := rs.ResizeEnd("a", math.NaN())
	assert.ErrorIs(t, err, ErrInvalidRange)
	assert.Equal(t, 4.0, iv.End)
}

func TestRemoveIsIdempotent(t *testing.T) {
	rs := newSet(t, 10)
	_, err := rs.Insert("a", 1, 2)
	require.NoError(t, err)
	_, err = rs.Insert("b", 3, 4)
	require.NoError(t, err)

	rs.Remove("a")
	once := rs.Intervals()
	rs.Remove("a")
	assert.Equal(t, once, rs.Intervals())
	rs.Remove("missing")
	assert.Equal(t, once, rs.Intervals())
}

func TestClear(t *testing.T) {
	rs := newSet(t, 10)
	_, _ = rs.Insert("a", 1, 2)
	_, _ = rs.Insert("b", 3, 4)
	rs.Clear()
	assert.Zero(t, rs.Len())
	assert.Equal(t, []Span{{0, 10}}, rs.Kept())
}

func TestContains(t *testing.T) {
	rs := newSet(t, 10)
	_, _ = rs.Insert("a", 3, 5)
	_, _ = rs.Insert("b", 5, 6)

	iv, ok := rs.Contains(3)
	assert.True(t, ok)
	assert.Equal(t, "a", iv.ID)

	iv, ok = rs.Contains(5)
	assert.True(t, ok)
	assert.Equal(t, "b", iv.ID, "end is exclusive")

	_, ok = rs.Contains(6)
	assert.False(t, ok)
	_, ok = rs.Contains(2.999)
	assert.False(t, ok)
}

func TestKept(t *testing.T) {
	t.Run("single deletion", func(t *testing.T) {
		rs := newSet(t, 10)
		_, _ = rs.Insert("a", 2, 4)
		kept := rs.Kept()
		assert.Equal(t, []Span{{0, 2}, {4, 10}}, kept)
		assert.Equal(t, 8.0, TotalLength(kept))
	})

	t.Run("edges omitted", func(t *testing.T) {
		rs := newSet(t, 10)
		_, _ = rs.Insert("a", 0, 2)
		_, _ = rs.Insert("b", 2, 3)
		_, _ = rs.Insert("c", 8, 10)
		assert.Equal(t, []Span{{3, 8}}, rs.Kept())
	})

	t.Run("whole timeline deleted", func(t *testing.T) {
		rs := newSet(t, 10)
		_, _ = rs.Insert("a", 0, 10)
		assert.Empty(t, rs.Kept())
		assert.Equal(t, 10.0, rs.DeletedLength())
		assert.Zero(t, rs.KeptLength())
	})

	t.Run("does not mutate", func(t *testing.T) {
		rs := newSet(t, 10)
		_, _ = rs.Insert("a", 2, 4)
		before := rs.Intervals()
		_ = rs.Kept()
		assert.Equal(t, before, rs.Intervals())
	})
}

// Random mutation sequences must preserve non-overlap, bounds and an exact
// cover of [0, duration) by kept spans plus deletions.
func TestRandomMutationsPreserveInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const duration = 30.0

	for round := 0; round < 50; round++ {
		rs := newSet(t, duration)
		for step := 0; step < 60; step++ {
			id := fmt.Sprintf("iv-%d", step)
			switch rng.Intn(4) {
			case 0:
				start := rng.Float64() * duration
				_, _ = rs.Insert(id, start, start+rng.Float64()*5)
			case 1, 2:
				if rs.Len() == 0 {
					continue
				}
				target := rs.Intervals()[rng.Intn(rs.Len())].ID
				at := rng.Float64()*duration*1.4 - duration*0.2
				if rng.Intn(2) == 0 {
					_, _ = rs.ResizeStart(target, at)
				} else {
					_, _ = rs.ResizeEnd(target, at)
				}
			case 3:
				if rs.Len() == 0 {
					continue
				}
				rs.Remove(rs.Intervals()[rng.Intn(rs.Len())].ID)
			}
			assertInvariants(t, rs)
		}
		assertCover(t, rs)
	}
}

func assertCover(t *testing.T, rs *RangeSet) {
	t.Helper()
	type piece struct{ start, end float64 }
	var pieces []piece
	for _, s := range rs.Kept() {
		pieces = append(pieces, piece{s.Start, s.End})
	}
	for _, iv := range rs.Intervals() {
		pieces = append(pieces, piece{iv.Start, iv.End})
	}
	for i := 1; i < len(pieces); i++ {
		for j := i; j > 0 && pieces[j].start < pieces[j-1].start; j-- {
			pieces[j], pieces[j-1] = pieces[j-1], pieces[j]
		}
	}
	cursor := 0.0
	for _, p := range pieces {
		assert.InDelta(t, cursor, p.start, 1e-9, "gap or overlap at %.6f", cursor)
		cursor = p.end
	}
	assert.InDelta(t, rs.Duration(), cursor, 1e-9)
}

func ids(rs *RangeSet) []string {
	var out []string
	for _, iv := range rs.Intervals() {
		out = append(out, iv.ID)
	}
	return out
}
