package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		s := New()
		assert.Equal(t, 15000, s.WindowSize())
		assert.Equal(t, 2000, s.Overlap())
		assert.Equal(t, 50000, s.Threshold())
	})

	t.Run("custom values", func(t *testing.T) {
		s := New(WithWindowSize(500), WithOverlap(100), WithThreshold(1000))
		assert.Equal(t, 500, s.WindowSize())
		assert.Equal(t, 100, s.Overlap())
		assert.Equal(t, 1000, s.Threshold())
	})

	t.Run("overlap exceeds window size", func(t *testing.T) {
		s := New(WithWindowSize(100), WithOverlap(150))
		assert.Less(t, s.Overlap(), s.WindowSize())
	})

	t.Run("zero values ignored", func(t *testing.T) {
		s := New(WithWindowSize(0), WithOverlap(-1), WithThreshold(0))
		assert.Equal(t, DefaultWindowSize, s.WindowSize())
		assert.Equal(t, DefaultOverlap, s.Overlap())
		assert.Equal(t, DefaultThreshold, s.Threshold())
	})
}

func TestSplit_Empty(t *testing.T) {
	assert.Empty(t, New().Split(""))
}

func TestSplit_Offsets(t *testing.T) {
	text := strings.Repeat("a", 40000)

	chunks := New().Split(text)

	require.Len(t, chunks, 4)
	starts := make([]int, len(chunks))
	for i, c := range chunks {
		starts[i] = c.Start
		assert.Equal(t, i, c.Index)
	}
	assert.Equal(t, []int{0, 13000, 26000, 39000}, starts)
	assert.Len(t, []rune(chunks[0].Text), 15000)
	assert.Len(t, []rune(chunks[3].Text), 1000)
}

func TestSplit_FirstAndLastFlags(t *testing.T) {
	chunks := New(WithWindowSize(10), WithOverlap(2)).Split(strings.Repeat("x", 30))

	require.Len(t, chunks, 4)
	for i, c := range chunks {
		assert.Equal(t, i == 0, c.IsFirst, "chunk %d IsFirst", i)
		assert.Equal(t, i == len(chunks)-1, c.IsLast, "chunk %d IsLast", i)
	}
}

func TestSplit_SingleWindow(t *testing.T) {
	chunks := New(WithWindowSize(100), WithOverlap(10)).Split("short text")

	require.Len(t, chunks, 1)
	assert.True(t, chunks[0].IsFirst)
	assert.True(t, chunks[0].IsLast)
	assert.Equal(t, "short text", chunks[0].Text)
}

func TestSplit_CoversTextExactlyOnce(t *testing.T) {
	var b strings.Builder
	for i := 0; b.Len() < 5000; i++ {
		b.WriteString("Line item ")
		b.WriteString(strings.Repeat("z", i%7))
		b.WriteString("\n")
	}
	text := b.String()

	s := New(WithWindowSize(700), WithOverlap(150))
	chunks := s.Split(text)

	// Stitch windows back together by dropping each window's overlap.
	var rebuilt strings.Builder
	next := 0
	for _, c := range chunks {
		runes := []rune(c.Text)
		skip := next - c.Start
		require.GreaterOrEqual(t, skip, 0)
		if skip < len(runes) {
			rebuilt.WriteString(string(runes[skip:]))
			next = c.Start + len(runes)
		}
	}
	assert.Equal(t, text, rebuilt.String())
}

func TestSplit_RuneOffsets(t *testing.T) {
	text := strings.Repeat("é", 25)

	chunks := New(WithWindowSize(10), WithOverlap(5)).Split(text)

	require.Len(t, chunks, 5)
	for _, c := range chunks {
		assert.True(t, strings.HasPrefix(text[len(string([]rune(text)[:c.Start])):], c.Text))
	}
}

func TestSplit_Deterministic(t *testing.T) {
	text := strings.Repeat("abc", 9000)
	s := New()
	assert.Equal(t, s.Split(text), s.Split(text))
}

func TestPlan(t *testing.T) {
	s := New()

	t.Run("below threshold is one chunk", func(t *testing.T) {
		plan := s.Plan(strings.Repeat("a", 50000))
		assert.False(t, plan.Chunked)
		require.Equal(t, 1, plan.Len())
		assert.True(t, plan.Chunks[0].IsFirst)
		assert.True(t, plan.Chunks[0].IsLast)
	})

	t.Run("above threshold is split", func(t *testing.T) {
		plan := s.Plan(strings.Repeat("a", 60000))
		assert.True(t, plan.Chunked)
		assert.Equal(t, 5, plan.Len())
	})

	t.Run("empty text has no chunks", func(t *testing.T) {
		plan := s.Plan("")
		assert.Zero(t, plan.Len())
	})
}
