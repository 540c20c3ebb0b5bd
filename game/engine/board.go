package engine

import (
	"fmt"
	"strings"
)

// Board is a height x width grid where each cell holds at most one piece.
// Cells are stored row-major in a single buffer; a cell holds the piece by
// value, so a piece can never be referenced from two cells.
//
// A Board is not safe for concurrent use.
type Board struct {
	width  int
	height int
	cells  []Piece
}

// NewBoard creates an empty board. Negative dimensions panic.
func NewBoard(width, height int) *Board {
	if width < 0 || height < 0 {
		panic(fmt.Sprintf("engine: invalid board size %dx%d", width, height))
	}
	return &Board{
		width:  width,
		height: height,
		cells:  make([]Piece, width*height),
	}
}

// Width returns the number of columns.
func (b *Board) Width() int {
	return b.width
}

// Height returns the number of rows.
func (b *Board) Height() int {
	return b.height
}

// IsWithinBounds checks if a location is inside the board.
func (b *Board) IsWithinBounds(row, col int) bool {
	if row < 0 || row >= b.height {
		return false
	}
	if col < 0 || col >= b.width {
		return false
	}
	return true
}

// Place puts a piece at the specified location, replacing whatever was
// there. Placing Empty clears the cell. Bounds are the caller's
// responsibility: out of range coordinates panic.
func (b *Board) Place(piece Piece, row, col int) {
	if !b.IsWithinBounds(row, col) {
		panic(fmt.Sprintf("engine: place at (%d,%d) outside %dx%d board", row, col, b.height, b.width))
	}
	b.cells[b.index(row, col)] = piece
}

// Get returns the piece at the location and whether the cell is occupied.
// Coordinates outside the board read as an empty cell.
func (b *Board) Get(row, col int) (Piece, bool) {
	if !b.IsWithinBounds(row, col) {
		return Empty, false
	}
	p := b.cells[b.index(row, col)]
	return p, p != Empty
}

// IsTargetAtExit reports whether the rightmost column holds the target piece.
func (b *Board) IsTargetAtExit() bool {
	if b.width == 0 {
		return false
	}
	for r := 0; r < b.height; r++ {
		if b.cells[b.index(r, b.width-1)] == TargetPiece {
			return true
		}
	}
	return false
}

// Layout renders each row as a string of piece glyphs.
func (b *Board) Layout() []string {
	rows := make([]string, b.height)
	line := make([]byte, b.width)
	for r := 0; r < b.height; r++ {
		for c := 0; c < b.width; c++ {
			line[c] = b.cells[b.index(r, c)].Glyph()
		}
		rows[r] = string(line)
	}
	return rows
}

// String renders the board one row per line.
func (b *Board) String() string {
	return strings.Join(b.Layout(), "\n")
}

// Clone returns an independent copy of the board.
func (b *Board) Clone() *Board {
	cells := make([]Piece, len(b.cells))
	copy(cells, b.cells)
	return &Board{width: b.width, height: b.height, cells: cells}
}

func (b *Board) index(row, col int) int {
	return row*b.width + col
}

// replace swaps in new dimensions and cells in one step.
func (b *Board) replace(width, height int, cells []Piece) {
	b.width = width
	b.height = height
	b.cells = cells
}
