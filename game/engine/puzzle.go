package engine

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
)

var (
	ErrNotFound            = errors.New("puzzle file not found")
	ErrMalformed           = errors.New("malformed puzzle file")
	ErrInvalidBoardSize    = errors.New("invalid board size, board must be at least 1x1")
	ErrInvalidBoardContent = errors.New("invalid board content")
	ErrTargetBlocked       = errors.New("target piece is not the rightmost horizontal piece in its row")
	ErrWrongTargetCount    = errors.New("board must contain exactly one target piece")
)

// Puzzle is a validated puzzle description: Rows lines of Cols glyphs.
type Puzzle struct {
	Rows   int      `json:"rows"`
	Cols   int      `json:"cols"`
	Layout []string `json:"layout"`
}

// tokenGrid is the raw parse result before validation.
type tokenGrid struct {
	rows, cols int
	cells      [][]rune
}

// ParsePuzzle reads and validates a puzzle description.
func ParsePuzzle(r io.Reader) (*Puzzle, error) {
	grid, err := readPuzzle(r)
	if err != nil {
		return nil, err
	}
	if err := validateGrid(grid); err != nil {
		return nil, err
	}
	return grid.puzzle(), nil
}

// LoadPuzzleFile reads and validates the puzzle stored at path. A missing
// file yields an error matching both ErrNotFound and fs.ErrNotExist.
func LoadPuzzleFile(path string) (*Puzzle, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	defer f.Close()

	return ParsePuzzle(f)
}

// NewPuzzle validates a layout given as one string per row.
func NewPuzzle(layout []string) (*Puzzle, error) {
	grid := tokenGrid{rows: len(layout)}
	for i, line := range layout {
		row := []rune(line)
		if i == 0 {
			grid.cols = len(row)
		} else if len(row) != grid.cols {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrMalformed, i+1, len(row), grid.cols)
		}
		grid.cells = append(grid.cells, row)
	}
	if err := validateGrid(grid); err != nil {
		return nil, err
	}
	return grid.puzzle(), nil
}

// Validate re-checks a puzzle that may have been built by hand or decoded
// from JSON.
func (p *Puzzle) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: nil puzzle", ErrMalformed)
	}
	if len(p.Layout) != p.Rows {
		return fmt.Errorf("%w: layout has %d rows, want %d", ErrMalformed, len(p.Layout), p.Rows)
	}
	checked, err := NewPuzzle(p.Layout)
	if err != nil {
		return err
	}
	if checked.Cols != p.Cols {
		return fmt.Errorf("%w: layout has %d columns, want %d", ErrMalformed, checked.Cols, p.Cols)
	}
	return nil
}

// String encodes the puzzle in its file format.
func (p *Puzzle) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d %d\n", p.Rows, p.Cols)
	for _, row := range p.Layout {
		sb.WriteString(row)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Pieces counts the pieces of each kind in the layout.
func (p *Puzzle) Pieces() map[Piece]int {
	counts := make(map[Piece]int)
	for _, row := range p.Layout {
		for _, r := range row {
			if piece, ok := PieceFromGlyph(r); ok && piece != Empty {
				counts[piece]++
			}
		}
	}
	return counts
}

// Target returns the target piece location.
func (p *Puzzle) Target() Position {
	for r, row := range p.Layout {
		if c := strings.IndexByte(row, 'T'); c >= 0 {
			return Position{Row: r, Col: c}
		}
	}
	return Position{Row: -1, Col: -1}
}

// Load replaces the board with the puzzle read from r. The board is only
// modified if the whole description parses and validates.
func (b *Board) Load(r io.Reader) error {
	p, err := ParsePuzzle(r)
	if err != nil {
		return err
	}
	b.materialize(p.Layout)
	return nil
}

// LoadFile replaces the board with the puzzle stored at path.
func (b *Board) LoadFile(path string) error {
	p, err := LoadPuzzleFile(path)
	if err != nil {
		return err
	}
	b.materialize(p.Layout)
	return nil
}

// LoadPuzzle replaces the board with an already parsed puzzle.
func (b *Board) LoadPuzzle(p *Puzzle) error {
	if err := p.Validate(); err != nil {
		return err
	}
	b.materialize(p.Layout)
	return nil
}

// NewBoardFromPuzzle creates a board holding the puzzle's initial layout.
func NewBoardFromPuzzle(p *Puzzle) (*Board, error) {
	b := NewBoard(0, 0)
	if err := b.LoadPuzzle(p); err != nil {
		return nil, err
	}
	return b, nil
}

// restoreLayout replaces the board with a mid-game layout. Only shape and
// alphabet are checked: a target blocked later in play is legal.
func (b *Board) restoreLayout(layout []string) error {
	if len(layout) == 0 {
		return fmt.Errorf("%w: empty layout", ErrInvalidBoardSize)
	}
	width := len([]rune(layout[0]))
	if width == 0 {
		return fmt.Errorf("%w: empty row", ErrInvalidBoardSize)
	}
	for i, row := range layout {
		runes := []rune(row)
		if len(runes) != width {
			return fmt.Errorf("%w: row %d has %d cells, want %d", ErrMalformed, i+1, len(runes), width)
		}
		for j, r := range runes {
			if _, ok := PieceFromGlyph(r); !ok {
				return fmt.Errorf("%w: unexpected %q at row %d, col %d", ErrInvalidBoardContent, r, i, j)
			}
		}
	}
	b.materialize(layout)
	return nil
}

// materialize builds fresh cells from a layout that is known to be valid.
func (b *Board) materialize(layout []string) {
	height := len(layout)
	width := 0
	if height > 0 {
		width = len([]rune(layout[0]))
	}
	cells := make([]Piece, width*height)
	for r, row := range layout {
		for c, glyph := range []rune(row) {
			piece, _ := PieceFromGlyph(glyph)
			cells[r*width+c] = piece
		}
	}
	b.replace(width, height, cells)
}

// readPuzzle parses the header and the character grid.
func readPuzzle(r io.Reader) (tokenGrid, error) {
	sc := bufio.NewScanner(r)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return tokenGrid{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return tokenGrid{}, fmt.Errorf("%w: missing header", ErrMalformed)
	}

	fields := strings.Fields(sc.Text())
	if len(fields) != 2 {
		return tokenGrid{}, fmt.Errorf("%w: header must be \"rows cols\", got %q", ErrMalformed, sc.Text())
	}
	rows, err := strconv.Atoi(fields[0])
	if err != nil {
		return tokenGrid{}, fmt.Errorf("%w: invalid row count %q", ErrMalformed, fields[0])
	}
	cols, err := strconv.Atoi(fields[1])
	if err != nil {
		return tokenGrid{}, fmt.Errorf("%w: invalid column count %q", ErrMalformed, fields[1])
	}
	if rows < 0 || cols < 0 {
		return tokenGrid{}, fmt.Errorf("%w: negative dimensions %dx%d", ErrMalformed, rows, cols)
	}

	grid := tokenGrid{rows: rows, cols: cols}
	for i := 0; i < rows; i++ {
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return tokenGrid{}, fmt.Errorf("%w: %v", ErrMalformed, err)
			}
			return tokenGrid{}, fmt.Errorf("%w: expected %d rows, got %d", ErrMalformed, rows, i)
		}
		line := []rune(strings.TrimRight(sc.Text(), " \t\r"))
		if len(line) != cols {
			return tokenGrid{}, fmt.Errorf("%w: row %d has %d cells, want %d", ErrMalformed, i+1, len(line), cols)
		}
		grid.cells = append(grid.cells, line)
	}

	return grid, nil
}

// validateGrid checks size, alphabet, the target's exit path and the target
// count, in that order.
func validateGrid(g tokenGrid) error {
	if g.rows < MinBoardSize || g.cols < MinBoardSize {
		return fmt.Errorf("%w: got %dx%d", ErrInvalidBoardSize, g.rows, g.cols)
	}

	for r, row := range g.cells {
		for c, token := range row {
			if _, ok := PieceFromGlyph(token); !ok {
				return fmt.Errorf("%w: unexpected %q at row %d, col %d", ErrInvalidBoardContent, token, r, c)
			}
		}
	}

	targets := 0
	for r, row := range g.cells {
		for c, token := range row {
			if token != 'T' {
				continue
			}
			targets++
			for cc := c + 1; cc < g.cols; cc++ {
				if row[cc] == 'H' {
					return fmt.Errorf("%w: horizontal piece at (%d,%d) is right of target at (%d,%d)", ErrTargetBlocked, r, cc, r, c)
				}
			}
		}
	}

	if targets != 1 {
		return fmt.Errorf("%w: found %d", ErrWrongTargetCount, targets)
	}
	return nil
}

func (g tokenGrid) puzzle() *Puzzle {
	layout := make([]string, len(g.cells))
	for i, row := range g.cells {
		layout[i] = string(row)
	}
	return &Puzzle{Rows: g.rows, Cols: g.cols, Layout: layout}
}

// ErrorCode maps a load error to a short machine-friendly code.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidBoardSize):
		return "invalid_board_size"
	case errors.Is(err, ErrInvalidBoardContent):
		return "invalid_board_content"
	case errors.Is(err, ErrTargetBlocked):
		return "target_blocked"
	case errors.Is(err, ErrWrongTargetCount):
		return "wrong_target_count"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	default:
		return "unknown"
	}
}
