package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// MoveRequest identifies a slide: the piece at Row,Col moving Distance
// cells along Direction.
type MoveRequest struct {
	Row       int       `json:"row"`
	Col       int       `json:"col"`
	Direction Direction `json:"direction"`
	Distance  int       `json:"distance"`
}

// ParseMoveRequest parses "row col direction [distance]", for example
// "2 2 right 2" or "0,1,d". Distance defaults to 1.
func ParseMoveRequest(s string) (MoveRequest, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ','
	})
	if len(fields) != 3 && len(fields) != 4 {
		return MoveRequest{}, fmt.Errorf("move %q: want \"row col direction [distance]\"", s)
	}

	var req MoveRequest
	var err error
	if req.Row, err = strconv.Atoi(fields[0]); err != nil {
		return MoveRequest{}, fmt.Errorf("move %q: bad row: %w", s, err)
	}
	if req.Col, err = strconv.Atoi(fields[1]); err != nil {
		return MoveRequest{}, fmt.Errorf("move %q: bad column: %w", s, err)
	}
	if req.Direction, err = ParseDirection(fields[2]); err != nil {
		return MoveRequest{}, fmt.Errorf("move %q: %w", s, err)
	}
	req.Distance = 1
	if len(fields) == 4 {
		if req.Distance, err = strconv.Atoi(fields[3]); err != nil {
			return MoveRequest{}, fmt.Errorf("move %q: bad distance: %w", s, err)
		}
	}
	return req, nil
}

// String formats the request in the form accepted by ParseMoveRequest.
func (m MoveRequest) String() string {
	return fmt.Sprintf("%d %d %s %d", m.Row, m.Col, m.Direction, m.Distance)
}

// CountPieces counts occupied cells on the board.
func CountPieces(b *Board) int {
	count := 0
	for _, p := range b.cells {
		if p != Empty {
			count++
		}
	}
	return count
}

// FindTarget returns the target piece position.
func FindTarget(b *Board) (Position, bool) {
	for r := 0; r < b.height; r++ {
		for c := 0; c < b.width; c++ {
			if b.cells[b.index(r, c)] == TargetPiece {
				return Position{Row: r, Col: c}, true
			}
		}
	}
	return Position{}, false
}

// ExitDistance is the number of columns between the target and the exit
// column, or -1 without a target.
func ExitDistance(b *Board) int {
	pos, ok := FindTarget(b)
	if !ok {
		return -1
	}
	return b.width - 1 - pos.Col
}

// ExitPathBlockers counts the pieces between the target and the exit in its
// row.
func ExitPathBlockers(b *Board) int {
	pos, ok := FindTarget(b)
	if !ok {
		return 0
	}
	count := 0
	for c := pos.Col + 1; c < b.width; c++ {
		if b.cells[b.index(pos.Row, c)] != Empty {
			count++
		}
	}
	return count
}
