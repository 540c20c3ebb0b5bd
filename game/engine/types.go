package engine

import (
	"fmt"
	"strings"
)

// Direction is one of the four orthogonal directions a piece can slide.
type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
)

const (
	// Validation constants
	MinBoardSize = 1
	MaxBulkMoves = 50
)

// Directions lists every direction in a stable order.
var Directions = []Direction{Up, Down, Left, Right}

// String returns the lowercase name used by the API ("up", "down", ...).
func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// Delta returns the unit step of the direction as (row, col) offsets.
func (d Direction) Delta() (int, int) {
	switch d {
	case Up:
		return -1, 0
	case Down:
		return 1, 0
	case Left:
		return 0, -1
	case Right:
		return 0, 1
	default:
		return 0, 0
	}
}

// ParseDirection accepts full names or their first letter, in any case.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "u":
		return Up, nil
	case "down", "d":
		return Down, nil
	case "left", "l":
		return Left, nil
	case "right", "r":
		return Right, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownDirection, s)
	}
}

// MarshalText encodes a direction by name so it reads well in JSON.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes a direction name.
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Piece is the kind of block occupying a cell. The zero value, Empty, marks
// an unoccupied cell.
type Piece uint8

const (
	Empty Piece = iota
	HorizontalPiece
	VerticalPiece
	TargetPiece
)

// movable is the capability table: the directions each piece kind may
// slide along.
var movable = [...][]Direction{
	Empty:           nil,
	HorizontalPiece: {Left, Right},
	VerticalPiece:   {Up, Down},
	TargetPiece:     {Left, Right},
}

// MovableDirections returns the directions the piece may slide along.
func (p Piece) MovableDirections() []Direction {
	if int(p) >= len(movable) {
		return nil
	}
	dirs := make([]Direction, len(movable[p]))
	copy(dirs, movable[p])
	return dirs
}

// IsValidDirection reports whether the piece may slide along d.
func (p Piece) IsValidDirection(d Direction) bool {
	if int(p) >= len(movable) {
		return false
	}
	for _, allowed := range movable[p] {
		if allowed == d {
			return true
		}
	}
	return false
}

// Glyph returns the character used for the piece in puzzle files.
func (p Piece) Glyph() byte {
	switch p {
	case HorizontalPiece:
		return 'H'
	case VerticalPiece:
		return 'V'
	case TargetPiece:
		return 'T'
	default:
		return '.'
	}
}

// String returns the piece kind name.
func (p Piece) String() string {
	switch p {
	case HorizontalPiece:
		return "horizontal"
	case VerticalPiece:
		return "vertical"
	case TargetPiece:
		return "target"
	default:
		return "empty"
	}
}

// PieceFromGlyph maps a puzzle file character to a piece. '.' maps to Empty.
func PieceFromGlyph(r rune) (Piece, bool) {
	switch r {
	case 'H':
		return HorizontalPiece, true
	case 'V':
		return VerticalPiece, true
	case 'T':
		return TargetPiece, true
	case '.':
		return Empty, true
	default:
		return Empty, false
	}
}

// Position represents row,col coordinates
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// MoveOption is a single currently-legal slide.
type MoveOption struct {
	From      Position  `json:"from"`
	To        Position  `json:"to"`
	Piece     string    `json:"piece"`
	Direction Direction `json:"direction"`
	Distance  int       `json:"distance"`
}

// GameState represents the complete game state
type GameState struct {
	PuzzleID    string             `json:"puzzle_id"`
	Width       int                `json:"width"`
	Height      int                `json:"height"`
	Layout      []string           `json:"layout"`
	Solved      bool               `json:"solved"`
	Message     string             `json:"message"`
	MoveHistory []MoveHistoryEntry `json:"move_history"`
	TotalMoves  int                `json:"total_moves"`

	// CurrentMovesCount counts moves since the last reset while MoveHistory
	// and TotalMoves stay cumulative.
	CurrentMovesCount int `json:"current_moves_count"`
}

// Clone returns a deep copy of the state so it can be read or encoded
// without holding the engine's lock.
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}
	c := *s
	c.Layout = append([]string(nil), s.Layout...)
	c.MoveHistory = make([]MoveHistoryEntry, len(s.MoveHistory))
	copy(c.MoveHistory, s.MoveHistory)
	return &c
}

// MoveHistoryEntry represents a single move in the game history
type MoveHistoryEntry struct {
	From       Position  `json:"from"`
	To         Position  `json:"to"`
	Direction  Direction `json:"direction"`
	Distance   int       `json:"distance"`
	Piece      string    `json:"piece,omitempty"`
	Success    bool      `json:"success"`
	Reason     string    `json:"reason,omitempty"`
	Timestamp  int64     `json:"timestamp"`
	MoveNumber int       `json:"move_number"`
}
