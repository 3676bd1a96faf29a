package world

import (
	"fmt"
	"sort"
)

// Grid holds the hex cells of one region. Cells are kept in (q, r) order so that
// every per-cell table indexed by arable position is deterministic.
type Grid struct {
	Radius int                `json:"radius"`
	Cells  []*Cell            `json:"cells"`
	index  map[HexCoord]*Cell // Coordinate lookup
	arable []*Cell
}

// NewGrid creates an empty grid with the given radius.
// A hex grid of radius R contains hexes where max(|q|, |r|, |s|) <= R.
func NewGrid(radius int) *Grid {
	return &Grid{
		Radius: radius,
		index:  make(map[HexCoord]*Cell),
	}
}

// Get returns the cell at the given coordinate, or nil if absent.
func (g *Grid) Get(coord HexCoord) *Cell {
	return g.index[coord]
}

// Set places a cell at its coordinate, replacing any previous cell there.
func (g *Grid) Set(c *Cell) {
	if _, ok := g.index[c.Coord]; !ok {
		g.Cells = append(g.Cells, c)
	} else {
		for i, old := range g.Cells {
			if old.Coord == c.Coord {
				g.Cells[i] = c
				break
			}
		}
	}
	g.index[c.Coord] = c
	g.arable = nil
}

// InBounds returns true if the coordinate is within the grid radius.
func (g *Grid) InBounds(coord HexCoord) bool {
	return max(abs(coord.Q), abs(coord.R), abs(coord.S())) <= g.Radius
}

// Arable returns the arable cells in deterministic (q, r) order.
func (g *Grid) Arable() []*Cell {
	if g.arable != nil {
		return g.arable
	}
	sort.Slice(g.Cells, func(i, j int) bool {
		a, b := g.Cells[i].Coord, g.Cells[j].Coord
		if a.Q != b.Q {
			return a.Q < b.Q
		}
		return a.R < b.R
	})
	out := make([]*Cell, 0, len(g.Cells))
	for _, c := range g.Cells {
		if c.Arable {
			out = append(out, c)
		}
	}
	g.arable = out
	return out
}

// CoastalFraction returns the share of arable cells that are coastal.
func (g *Grid) CoastalFraction() float64 {
	arable := g.Arable()
	if len(arable) == 0 {
		return 0
	}
	n := 0
	for _, c := range arable {
		if c.Coastal {
			n++
		}
	}
	return float64(n) / float64(len(arable))
}

// CellCount returns the total number of cells in the grid.
func (g *Grid) CellCount() int {
	return len(g.Cells)
}

// String returns a summary of the grid.
func (g *Grid) String() string {
	return fmt.Sprintf("Grid(radius=%d, cells=%d, arable=%d)", g.Radius, g.CellCount(), len(g.Arable()))
}
