package accuracy

import (
	"fmt"
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/gridlight/internal/raster"
)

// DefaultRadius is the Chebyshev search radius, in cells, within which a
// guessed pixel excuses a missed truth pixel.
const DefaultRadius = 5

// Rate is a ratio that may be undefined when its denominator is zero. An
// undefined rate holds NaN.
type Rate struct {
	Value   float64
	Defined bool
}

func ratio(num, den int) Rate {
	if den == 0 {
		return Rate{Value: math.NaN()}
	}
	return Rate{Value: float64(num) / float64(den), Defined: true}
}

// String formats the rate with three decimals, or "n/a".
func (r Rate) String() string {
	if !r.Defined {
		return "n/a"
	}
	return fmt.Sprintf("%.3f", r.Value)
}

// TruePositives returns the share of guessed cells that are also set in
// truth. truth is normally the buffered rasterization.
func TruePositives(guess, truth *raster.Mask) (Rate, error) {
	if err := raster.CheckShape(guess, truth); err != nil {
		return Rate{}, eris.Wrap(err, "accuracy: true positives")
	}
	var guessed, correct int
	for i, g := range guess.Data {
		if g == 0 {
			continue
		}
		guessed++
		if truth.Data[i] != 0 {
			correct++
		}
	}
	return ratio(correct, guessed), nil
}

// FalseNegatives returns the share of truth cells that are missed: the
// guess does not mark the cell and marks nothing within radius cells
// (Chebyshev distance) of it either.
func FalseNegatives(guess, truth *raster.Mask, radius int) (Rate, error) {
	if err := raster.CheckShape(guess, truth); err != nil {
		return Rate{}, eris.Wrap(err, "accuracy: false negatives")
	}
	radius = max(radius, 0)
	sums := summedArea(guess)
	var actual, missed int
	for r := 0; r < truth.Rows; r++ {
		for c := 0; c < truth.Cols; c++ {
			if truth.At(r, c) == 0 {
				continue
			}
			actual++
			if guess.At(r, c) != 0 {
				continue
			}
			if sums.count(r-radius, c-radius, r+radius, c+radius) == 0 {
				missed++
			}
		}
	}
	return ratio(missed, actual), nil
}

// areaTable counts foreground cells over rectangles in constant time.
type areaTable struct {
	rows, cols int
	sum        []int
}

func summedArea(m *raster.Mask) areaTable {
	t := areaTable{rows: m.Rows, cols: m.Cols, sum: make([]int, (m.Rows+1)*(m.Cols+1))}
	w := m.Cols + 1
	for r := 0; r < m.Rows; r++ {
		for c := 0; c < m.Cols; c++ {
			v := 0
			if m.At(r, c) != 0 {
				v = 1
			}
			t.sum[(r+1)*w+c+1] = v + t.sum[r*w+c+1] + t.sum[(r+1)*w+c] - t.sum[r*w+c]
		}
	}
	return t
}

// count returns the number of foreground cells in the inclusive rectangle,
// clamped to the grid.
func (t areaTable) count(r0, c0, r1, c1 int) int {
	r0, c0 = max(r0, 0), max(c0, 0)
	r1, c1 = min(r1, t.rows-1), min(c1, t.cols-1)
	if r0 > r1 || c0 > c1 {
		return 0
	}
	w := t.cols + 1
	return t.sum[(r1+1)*w+c1+1] - t.sum[r0*w+c1+1] - t.sum[(r1+1)*w+c0] + t.sum[r0*w+c0]
}
