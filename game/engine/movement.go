package engine

import (
	"errors"
	"fmt"
)

var (
	ErrNoPiece          = errors.New("no piece at location")
	ErrInvalidDirection = errors.New("piece cannot move in that direction")
	ErrInvalidDistance  = errors.New("distance must be positive")
	ErrOutOfBounds      = errors.New("destination is outside the board")
	ErrBlocked          = errors.New("path is blocked")
	ErrUnknownDirection = errors.New("unknown direction")
)

// BlockedError reports the first occupied cell on a slide path.
type BlockedError struct {
	Row, Col int
	Piece    Piece
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("path is blocked by %s piece at (%d,%d)", e.Piece, e.Row, e.Col)
}

func (e *BlockedError) Unwrap() error {
	return ErrBlocked
}

// MovePiece slides the piece at (row, col) dist cells along dir.
// It returns true if and only if the move was legal; an illegal move leaves
// the board untouched.
func (b *Board) MovePiece(row, col int, dir Direction, dist int) bool {
	return b.TryMove(row, col, dir, dist) == nil
}

// TryMove is MovePiece reporting why a move was rejected. Zero and negative
// distances are rejected with ErrInvalidDistance.
func (b *Board) TryMove(row, col int, dir Direction, dist int) error {
	newRow, newCol, err := b.checkMove(row, col, dir, dist)
	if err != nil {
		return err
	}

	src := b.index(row, col)
	b.cells[b.index(newRow, newCol)] = b.cells[src]
	b.cells[src] = Empty
	return nil
}

// CanMove reports whether MovePiece would succeed, without moving anything.
func (b *Board) CanMove(row, col int, dir Direction, dist int) bool {
	_, _, err := b.checkMove(row, col, dir, dist)
	return err == nil
}

// checkMove validates a slide and returns its destination.
func (b *Board) checkMove(row, col int, dir Direction, dist int) (int, int, error) {
	piece, ok := b.Get(row, col)

	// no block at specified location
	if !ok {
		return 0, 0, ErrNoPiece
	}

	if !piece.IsValidDirection(dir) {
		return 0, 0, fmt.Errorf("%w: %s piece cannot move %s", ErrInvalidDirection, piece, dir)
	}

	if dist <= 0 {
		return 0, 0, fmt.Errorf("%w: got %d", ErrInvalidDistance, dist)
	}

	dr, dc := dir.Delta()
	newRow, newCol := row+dr*dist, col+dc*dist
	if !b.IsWithinBounds(newRow, newCol) {
		return 0, 0, fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, newRow, newCol)
	}

	// check all cells from block location to destination
	r, c := row, col
	for i := 0; i < dist; i++ {
		r += dr
		c += dc
		if p := b.cells[b.index(r, c)]; p != Empty {
			return 0, 0, &BlockedError{Row: r, Col: c, Piece: p}
		}
	}

	return newRow, newCol, nil
}

// PossibleMoves enumerates every single slide that is currently legal, in
// row-major order of the moving piece.
func (b *Board) PossibleMoves() []MoveOption {
	var options []MoveOption
	for r := 0; r < b.height; r++ {
		for c := 0; c < b.width; c++ {
			piece := b.cells[b.index(r, c)]
			if piece == Empty {
				continue
			}
			for _, dir := range movable[piece] {
				dr, dc := dir.Delta()
				for dist := 1; ; dist++ {
					nr, nc := r+dr*dist, c+dc*dist
					if !b.IsWithinBounds(nr, nc) || b.cells[b.index(nr, nc)] != Empty {
						break
					}
					options = append(options, MoveOption{
						From:      Position{Row: r, Col: c},
						To:        Position{Row: nr, Col: nc},
						Piece:     piece.String(),
						Direction: dir,
						Distance:  dist,
					})
				}
			}
		}
	}
	return options
}

// MoveReason maps a TryMove error to a short machine-friendly code.
func MoveReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoPiece):
		return "no_piece"
	case errors.Is(err, ErrInvalidDirection):
		return "invalid_direction"
	case errors.Is(err, ErrInvalidDistance):
		return "invalid_distance"
	case errors.Is(err, ErrOutOfBounds):
		return "out_of_bounds"
	case errors.Is(err, ErrBlocked):
		return "blocked"
	case errors.Is(err, ErrUnknownDirection):
		return "unknown_direction"
	default:
		return "rejected"
	}
}
