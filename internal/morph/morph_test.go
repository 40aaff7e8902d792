package morph

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/gridlight/internal/raster"
)

func TestThreshold(t *testing.T) {
	dist := raster.MustFromRows([][]float64{
		{0, 0.5, 1, 1.0000001},
		{math.Inf(1), math.NaN(), -1, 2},
	})

	got := Threshold(dist, 1)
	assert.Equal(t, []uint8{1, 1, 1, 0, 0, 0, 1, 0}, got.Data)
}

func TestThreshold_InfiniteCutoff(t *testing.T) {
	dist := raster.MustFromRows([][]float64{{3, math.Inf(1)}})

	got := Threshold(dist, math.Inf(1))
	assert.Equal(t, []uint8{1, 0}, got.Data)
}

func TestThreshold_Stable(t *testing.T) {
	dist := raster.MustFromRows([][]float64{{0, 3, 0}, {7, 0, math.Inf(1)}})

	once := Threshold(dist, 0)
	thrice := Threshold(raster.ToFloat(Threshold(raster.ToFloat(once), 0)), 0)
	assert.True(t, once.Equal(thrice))

	assert.True(t, Binarize(once).Equal(Binarize(Binarize(once))))
	assert.Equal(t, []float64{0, 3, 0, 7, 0, math.Inf(1)}, dist.Data)
}

func TestBinarize(t *testing.T) {
	g := raster.MustFromRows([][]int32{{0, 5, -1}})
	assert.Equal(t, []uint8{0, 1, 1}, Binarize(g).Data)
}

func TestThin_LinesAreFixedPoints(t *testing.T) {
	tests := []struct {
		name string
		rows [][]uint8
	}{
		{"horizontal", [][]uint8{
			{0, 0, 0, 0, 0, 0},
			{0, 1, 1, 1, 1, 0},
			{0, 0, 0, 0, 0, 0},
		}},
		{"vertical", [][]uint8{
			{0, 1, 0},
			{0, 1, 0},
			{0, 1, 0},
			{0, 1, 0},
		}},
		{"diagonal", [][]uint8{
			{1, 0, 0, 0},
			{0, 1, 0, 0},
			{0, 0, 1, 0},
			{0, 0, 0, 1},
		}},
		{"edge row", [][]uint8{{1, 1, 1, 1, 1}}},
		{"bent", [][]uint8{
			{1, 1, 1, 0},
			{0, 0, 0, 1},
			{0, 0, 0, 1},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := raster.MustFromRows(tt.rows)
			assert.Equal(t, in.Data, Thin(in).Data)
		})
	}
}

func TestThin_Block2x2(t *testing.T) {
	in := raster.MustFromRows([][]uint8{{1, 1}, {1, 1}})

	got := Thin(in)
	assert.Equal(t, 2, raster.CountNonZero(got))
	assert.Equal(t, 1, components(got))
	assert.Equal(t, []uint8{1, 1, 1, 1}, in.Data)
}

func TestThin_IsolatedPixelKept(t *testing.T) {
	in := raster.MustFromRows([][]uint8{
		{0, 0, 0},
		{0, 1, 0},
		{0, 0, 0},
	})
	assert.Equal(t, in.Data, Thin(in).Data)
}

func TestThin_RingKeepsHole(t *testing.T) {
	in := raster.New[uint8](8, 8)
	for i := range in.Data {
		in.Data[i] = 1
	}
	for r := 3; r <= 4; r++ {
		for c := 3; c <= 4; c++ {
			in.Set(r, c, 0)
		}
	}
	require.Equal(t, 1, holes(in))

	got := Thin(in)
	assert.Equal(t, 1, components(got))
	assert.Equal(t, 1, holes(got))
	assert.Less(t, raster.CountNonZero(got), raster.CountNonZero(in))
	assertMinimal(t, got)
}

func TestThin_ComponentsStayApart(t *testing.T) {
	in := raster.MustFromRows([][]uint8{
		{1, 1, 1, 0, 0, 1, 1, 1},
		{1, 1, 1, 0, 0, 1, 1, 1},
		{1, 1, 1, 0, 0, 1, 1, 1},
		{0, 0, 0, 0, 0, 0, 0, 0},
		{0, 0, 0, 1, 0, 0, 0, 0},
	})

	got := Thin(in)
	assert.Equal(t, 3, components(got))
	assert.Equal(t, 0, holes(got))
	assert.Equal(t, uint8(1), got.At(4, 3))
	assertMinimal(t, got)
}

func TestThin_ThickBar(t *testing.T) {
	in := raster.New[uint8](5, 20)
	for r := 1; r <= 3; r++ {
		for c := 1; c <= 18; c++ {
			in.Set(r, c, 1)
		}
	}

	got := Thin(in)
	assert.Equal(t, 1, components(got))
	assert.Equal(t, 0, holes(got))
	assertMinimal(t, got)
	for i, v := range got.Data {
		if v != 0 {
			assert.Equal(t, uint8(1), in.Data[i], "skeleton pixel %d outside input", i)
		}
	}
	assert.Less(t, raster.CountNonZero(got), 2*18)
}

func TestThin_Empty(t *testing.T) {
	got := Thin(raster.New[uint8](3, 3))
	assert.Zero(t, raster.CountNonZero(got))

	got = SimplePoint{}.Thin(raster.New[uint8](0, 0))
	assert.True(t, got.Empty())
}

func TestConnectivity8(t *testing.T) {
	tests := []struct {
		name string
		on   []int
		want int
	}{
		{"isolated", nil, 0},
		{"end of line", []int{0}, 1},
		{"middle of line", []int{0, 4}, 2},
		{"corner of block", []int{0, 6, 7}, 1},
		{"interior", []int{0, 1, 2, 3, 4, 5, 6, 7}, 0},
		{"junction", []int{0, 3, 5}, 3},
		{"touching pair", []int{0, 2, 5}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var x [8]bool
			for _, k := range tt.on {
				x[k] = true
			}
			assert.Equal(t, tt.want, connectivity8(x))
		})
	}
}

// assertMinimal checks that no remaining pixel could be deleted.
func assertMinimal(t *testing.T, m *raster.Mask) {
	t.Helper()
	for i, v := range m.Data {
		if v == 0 {
			continue
		}
		r, c := m.Coord(i)
		assert.False(t, deletable(m, r, c), "pixel (%d,%d) still deletable", r, c)
	}
}

// components counts 8-connected foreground components.
func components(m *raster.Mask) int {
	seen := make([]bool, m.Len())
	n := 0
	for i, v := range m.Data {
		if v == 0 || seen[i] {
			continue
		}
		n++
		flood(m, i, seen, 1, ring[:])
	}
	return n
}

// holes counts 4-connected background components that do not touch the
// grid edge.
func holes(m *raster.Mask) int {
	seen := make([]bool, m.Len())
	n := 0
	for i, v := range m.Data {
		if v != 0 || seen[i] {
			continue
		}
		if !flood(m, i, seen, 0, sweeps[:]) {
			n++
		}
	}
	return n
}

// flood marks the component of start whose cells equal val and reports
// whether it touches the grid edge.
func flood(m *raster.Mask, start int, seen []bool, val uint8, steps [][2]int) bool {
	edge := false
	stack := []int{start}
	seen[start] = true
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		r, c := m.Coord(i)
		if r == 0 || c == 0 || r == m.Rows-1 || c == m.Cols-1 {
			edge = true
		}
		for _, s := range steps {
			nr, nc := r+s[0], c+s[1]
			if !m.InBounds(nr, nc) {
				continue
			}
			j := m.Index(nr, nc)
			if seen[j] || m.Data[j] != val {
				continue
			}
			seen[j] = true
			stack = append(stack, j)
		}
	}
	return edge
}
