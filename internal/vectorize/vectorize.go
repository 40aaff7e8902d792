// Package vectorize turns a thinned binary mask into line geometry. Every
// pair of 8-adjacent foreground pixels becomes one two-point segment between
// the pixel centres; the segments are dissolved into a single
// multilinestring.
package vectorize

import (
	"cmp"
	"slices"

	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"

	"github.com/sells-group/gridlight/internal/geo"
	"github.com/sells-group/gridlight/internal/raster"
)

// Edge joins two foreground cells by flat index. A < B always holds.
type Edge struct {
	A, B int
}

func newEdge(a, b int) Edge {
	if a > b {
		a, b = b, a
	}
	return Edge{A: a, B: b}
}

func compareEdges(x, y Edge) int {
	if c := cmp.Compare(x.A, y.A); c != 0 {
		return c
	}
	return cmp.Compare(x.B, y.B)
}

// Graph is the undirected adjacency graph of a mask's foreground pixels.
type Graph struct {
	rows, cols int
	edges      []Edge
	degree     map[int]int
}

var ring = [8][2]int{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

// NewGraph builds the adjacency graph of mask. Isolated pixels have no
// edges and do not appear in the graph.
func NewGraph(mask *raster.Mask) *Graph {
	g := &Graph{degree: map[int]int{}}
	if mask.Empty() {
		return g
	}
	g.rows, g.cols = mask.Rows, mask.Cols

	set := make(map[Edge]struct{})
	for r := 0; r < mask.Rows; r++ {
		for c := 0; c < mask.Cols; c++ {
			if mask.At(r, c) == 0 {
				continue
			}
			i := mask.Index(r, c)
			for _, d := range ring {
				nr, nc := r+d[0], c+d[1]
				if !mask.InBounds(nr, nc) || mask.At(nr, nc) == 0 {
					continue
				}
				set[newEdge(i, mask.Index(nr, nc))] = struct{}{}
			}
		}
	}

	g.edges = make([]Edge, 0, len(set))
	for e := range set {
		g.edges = append(g.edges, e)
		g.degree[e.A]++
		g.degree[e.B]++
	}
	slices.SortFunc(g.edges, compareEdges)
	return g
}

// Edges returns the edges in ascending (A, B) order.
func (g *Graph) Edges() []Edge { return g.edges }

// Len returns the number of edges.
func (g *Graph) Len() int { return len(g.edges) }

// Degree returns the number of neighbours of the cell at flat index i.
func (g *Graph) Degree(i int) int { return g.degree[i] }

// Lines maps each edge to a segment between cell centres in the
// transform's coordinate system.
func (g *Graph) Lines(tf raster.Affine) orb.MultiLineString {
	mls := make(orb.MultiLineString, 0, len(g.edges))
	for _, e := range g.edges {
		mls = append(mls, orb.LineString{
			tf.XY(e.A/g.cols, e.A%g.cols),
			tf.XY(e.B/g.cols, e.B%g.cols),
		})
	}
	return mls
}

// Network is the dissolved line geometry of an inferred grid.
type Network struct {
	Lines orb.MultiLineString
	CRS   raster.CRS
}

// Empty reports whether the network has no segments.
func (n Network) Empty() bool { return len(n.Lines) == 0 }

// Merge returns a network that also carries the linear parts of extra,
// which must already be expressed in n.CRS.
func (n Network) Merge(extra ...orb.Geometry) Network {
	lines := make(orb.MultiLineString, 0, len(n.Lines))
	lines = append(lines, n.Lines...)
	lines = append(lines, geo.Lines(extra...)...)
	return Network{Lines: lines, CRS: n.CRS}
}

// Vectorize builds the line network of a thinned mask. Cell centres are
// placed with tf in src and the result is projected to dst. An all-background
// mask yields an empty network.
func Vectorize(mask *raster.Mask, tf raster.Affine, src, dst raster.CRS) (Network, error) {
	lines := NewGraph(mask).Lines(tf)
	if len(lines) == 0 {
		if _, err := geo.Projection(src, dst); err != nil {
			return Network{}, eris.Wrap(err, "vectorize: project network")
		}
		return Network{Lines: orb.MultiLineString{}, CRS: dst}, nil
	}

	projected, err := geo.Project(lines, src, dst)
	if err != nil {
		return Network{}, eris.Wrap(err, "vectorize: project network")
	}
	return Network{Lines: projected.(orb.MultiLineString), CRS: dst}, nil
}
