package dirty

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegionConstructors(t *testing.T) {
	assert.Equal(t, Region{Row: 2, Col: 3, Width: 1, Height: 1}, Cell(2, 3))
	assert.Equal(t, Region{Row: 1, Col: 0, Width: 80, Height: 3}, Rows(1, 3, 80))
	assert.Equal(t, Region{Row: 1, Col: 0, Width: 80, Height: 3}, Rows(3, 1, 80))
	assert.Equal(t, Region{Row: 4, Col: 2, Width: 5, Height: 1}, Span(4, 2, 7))
	assert.Equal(t, Region{Width: 80, Height: 24}, Full(24, 80))
}

func TestRegionContains(t *testing.T) {
	r := Region{Row: 1, Col: 1, Width: 2, Height: 2}

	assert.True(t, r.Contains(1, 1))
	assert.True(t, r.Contains(2, 2))
	assert.False(t, r.Contains(3, 1))
	assert.False(t, r.Contains(1, 3))
	assert.False(t, r.Contains(0, 0))
}

func TestRegionOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Region
		want bool
	}{
		{"same", Cell(0, 0), Cell(0, 0), true},
		{"disjoint rows", Cell(0, 0), Cell(1, 0), false},
		{"partial", Region{0, 0, 4, 2}, Region{1, 3, 4, 2}, true},
		{"touching edge", Region{0, 0, 4, 1}, Region{0, 4, 4, 1}, false},
		{"empty", Region{}, Cell(0, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlaps(tt.b))
			assert.Equal(t, tt.want, tt.b.Overlaps(tt.a))
		})
	}
}

func TestRegionAdjacent(t *testing.T) {
	tests := []struct {
		name string
		a, b Region
		want bool
	}{
		{"stacked same span", Rows(0, 0, 10), Rows(1, 1, 10), true},
		{"stacked different span", Span(0, 0, 5), Span(1, 0, 4), false},
		{"side by side", Span(3, 0, 4), Span(3, 4, 8), true},
		{"side by side gap", Span(3, 0, 4), Span(3, 5, 8), false},
		{"diagonal", Cell(0, 0), Cell(1, 1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Adjacent(tt.b))
		})
	}
}

func TestRegionMerge(t *testing.T) {
	merged, ok := Span(2, 0, 4).Merge(Span(2, 4, 6))
	assert.True(t, ok)
	assert.Equal(t, Span(2, 0, 6), merged)

	_, ok = Cell(0, 0).Merge(Cell(5, 5))
	assert.False(t, ok)
}

func TestRegionClip(t *testing.T) {
	r := Region{Row: -1, Col: 78, Width: 5, Height: 3}

	assert.Equal(t, Region{Row: 0, Col: 78, Width: 2, Height: 2}, r.Clip(24, 80))
	assert.True(t, Cell(30, 0).Clip(24, 80).IsEmpty())
}
