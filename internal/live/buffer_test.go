package live

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuffer_BoundedFIFO(t *testing.T) {
	b := NewBuffer(3)
	for i := 1; i <= 5; i++ {
		b.Append(Point{X: int64(i), Y: float64(i)})
		want := i
		if want > 3 {
			want = 3
		}
		assert.Equal(t, want, b.Len())
	}

	pts := b.Points()
	assert.Equal(t, []Point{{3, 3}, {4, 4}, {5, 5}}, pts)

	last, ok := b.Last()
	assert.True(t, ok)
	assert.Equal(t, int64(5), last.X)
}

func TestBuffer_LenIsMinOfAppendsAndCapacity(t *testing.T) {
	b := NewBuffer(DefaultCapacity)
	for i := 0; i < 150; i++ {
		b.Append(Point{X: int64(i)})
		expected := i + 1
		if expected > DefaultCapacity {
			expected = DefaultCapacity
		}
		if b.Len() != expected {
			t.Fatalf("after %d appends: len %d, want %d", i+1, b.Len(), expected)
		}
	}
	pts := b.Points()
	assert.Equal(t, int64(90), pts[0].X)
	assert.Equal(t, int64(149), pts[len(pts)-1].X)
}

func TestBuffer_PointsIsCopy(t *testing.T) {
	b := NewBuffer(2)
	b.Append(Point{X: 1, Y: 1})
	pts := b.Points()
	pts[0].Y = 99

	assert.Equal(t, 1.0, b.Points()[0].Y)
}

func TestBuffer_Empty(t *testing.T) {
	b := NewBuffer(0)
	assert.Equal(t, 1, b.Cap())
	_, ok := b.Last()
	assert.False(t, ok)
	assert.Empty(t, b.Points())
}
