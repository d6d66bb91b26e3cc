package xltransform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchRange_InclusiveBounds(t *testing.T) {
	ranges := []Range{{From: "10", To: "20", Value: "mid"}}

	for _, raw := range []string{"10", "15", "20"} {
		v, ok, err := MatchRange(ranges, raw, TypeInteger)
		require.NoError(t, err)
		assert.True(t, ok, raw)
		assert.Equal(t, "mid", v)
	}
	for _, raw := range []string{"9", "21"} {
		_, ok, err := MatchRange(ranges, raw, TypeInteger)
		require.NoError(t, err)
		assert.False(t, ok, raw)
	}
}

func TestMatchRange_FirstMatchWins(t *testing.T) {
	ranges := []Range{
		{From: "0", To: "100", Value: "wide"},
		{From: "40", To: "60", Value: "narrow"},
	}
	v, ok, err := MatchRange(ranges, "50", TypeInteger)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "wide", v)

	// Same ranges reversed: the other one now wins.
	v, _, _ = MatchRange([]Range{ranges[1], ranges[0]}, "50", TypeInteger)
	assert.Equal(t, "narrow", v)
}

func TestMatchRange_OpenBounds(t *testing.T) {
	ranges := []Range{
		{To: "0", Value: "negative"},
		{From: "1000", Value: "large"},
	}
	v, ok, err := MatchRange(ranges, "-5000", TypeInteger)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "negative", v)

	v, ok, err = MatchRange(ranges, "1,000,000", TypeInteger)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "large", v)

	_, ok, err = MatchRange(ranges, "500", TypeInteger)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMatchRange_CoercionFailureIsNotANoMatch(t *testing.T) {
	ranges := []Range{{From: "0", To: "10", Value: "low"}}
	_, ok, err := MatchRange(ranges, "abc", TypeInteger)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrCoercion)
}

func TestMatchRange_Types(t *testing.T) {
	t.Run("decimal", func(t *testing.T) {
		v, ok, err := MatchRange([]Range{{From: "0.5", To: "1.5", Value: "around one"}}, "1.25", TypeDecimal)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "around one", v)
	})
	t.Run("date", func(t *testing.T) {
		ranges := []Range{{From: "2024-01-01", To: "2024-03-31", Value: "Q1"}, {From: "2024-04-01", To: "2024-06-30", Value: "Q2"}}
		v, ok, err := MatchRange(ranges, "4/15/2024", TypeDate)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "Q2", v)
	})
	t.Run("text", func(t *testing.T) {
		v, ok, err := MatchRange([]Range{{From: "a", To: "m", Value: "first half"}}, "kiwi", TypeText)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "first half", v)
	})
	t.Run("bool", func(t *testing.T) {
		v, ok, err := MatchRange([]Range{{From: "true", To: "true", Value: "on"}}, "yes", TypeBool)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "on", v)
	})
}

func TestMatchRange_MalformedBoundNeverMatches(t *testing.T) {
	ranges := []Range{
		{From: "ten", To: "20", Value: "broken"},
		{From: "0", To: "20", Value: "ok"},
	}
	v, ok, err := MatchRange(ranges, "15", TypeInteger)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ok", v)
}

func TestMatchRange_Empty(t *testing.T) {
	_, ok, err := MatchRange(nil, "1", TypeInteger)
	require.NoError(t, err)
	assert.False(t, ok)
}
