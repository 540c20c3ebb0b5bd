package engine

import (
	"errors"
	"reflect"
	"testing"
)

func assertUnchanged(t *testing.T, b *Board, before []string) {
	t.Helper()
	if after := b.Layout(); !reflect.DeepEqual(before, after) {
		t.Errorf("board changed after rejected move:\nbefore %v\nafter  %v", before, after)
	}
}

func TestMovePiece_EmptyCell(t *testing.T) {
	b := createTestBoard()
	before := b.Layout()

	if b.MovePiece(0, 0, Up, 1) {
		t.Error("moving an empty cell should fail")
	}
	if err := b.TryMove(0, 0, Right, 1); !errors.Is(err, ErrNoPiece) {
		t.Errorf("expected ErrNoPiece, got %v", err)
	}
	assertUnchanged(t, b, before)
}

func TestMovePiece_OutsideBoard(t *testing.T) {
	tests := []struct {
		name     string
		row, col int
		dir      Direction
		dist     int
	}{
		{"above board", 0, 1, Up, 1},
		{"left of board", 2, 0, Left, 1},
		{"right of board", 3, 4, Right, 1},
		{"below board", 4, 4, Down, 1},
		{"far past the edge", 2, 2, Right, 10},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			b := createTestBoard()
			before := b.Layout()

			err := b.TryMove(test.row, test.col, test.dir, test.dist)
			if !errors.Is(err, ErrOutOfBounds) {
				t.Errorf("expected ErrOutOfBounds, got %v", err)
			}
			assertUnchanged(t, b, before)
		})
	}
}

func TestMovePiece_InvalidDirection(t *testing.T) {
	tests := []struct {
		name     string
		row, col int
		dir      Direction
	}{
		{"vertical piece horizontally", 0, 1, Right},
		{"horizontal piece vertically", 2, 0, Up},
		{"target piece vertically", 2, 2, Up},
		{"target piece down", 2, 2, Down},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			b := createTestBoard()
			before := b.Layout()

			// Direction is checked before distance and bounds
			for _, dist := range []int{0, 1, 100} {
				err := b.TryMove(test.row, test.col, test.dir, dist)
				if !errors.Is(err, ErrInvalidDirection) {
					t.Errorf("dist %d: expected ErrInvalidDirection, got %v", dist, err)
				}
			}
			assertUnchanged(t, b, before)
		})
	}
}

func TestMovePiece_ThroughBlock(t *testing.T) {
	tests := []struct {
		name             string
		row, col         int
		dir              Direction
		dist             int
		blockRow, blockC int
	}{
		{"target left through horizontal", 2, 2, Left, 2, 2, 0},
		{"horizontal right through horizontal", 3, 2, Right, 2, 3, 4},
		{"vertical down through target", 1, 2, Down, 3, 2, 2},
		{"onto occupied destination", 0, 1, Down, 1, -1, -1},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			b := createTestBoard()
			if test.blockRow < 0 {
				b.Place(HorizontalPiece, 1, 1)
				test.blockRow, test.blockC = 1, 1
			}
			before := b.Layout()

			err := b.TryMove(test.row, test.col, test.dir, test.dist)
			var blocked *BlockedError
			if !errors.As(err, &blocked) {
				t.Fatalf("expected BlockedError, got %v", err)
			}
			if !errors.Is(err, ErrBlocked) {
				t.Error("BlockedError should match ErrBlocked")
			}
			if blocked.Row != test.blockRow || blocked.Col != test.blockC {
				t.Errorf("expected block at (%d,%d), got (%d,%d)", test.blockRow, test.blockC, blocked.Row, blocked.Col)
			}
			assertUnchanged(t, b, before)
		})
	}
}

func TestMovePiece_ZeroAndNegativeDistance(t *testing.T) {
	b := createTestBoard()
	before := b.Layout()

	for _, dist := range []int{0, -1, -3} {
		if b.MovePiece(2, 2, Right, dist) {
			t.Errorf("dist %d should be rejected", dist)
		}
		if err := b.TryMove(2, 2, Left, dist); !errors.Is(err, ErrInvalidDistance) {
			t.Errorf("dist %d: expected ErrInvalidDistance, got %v", dist, err)
		}
	}
	assertUnchanged(t, b, before)
}

func TestMovePiece_ValidSequence(t *testing.T) {
	b := createTestBoard()

	moves := []struct {
		row, col int
		dir      Direction
		dist     int
	}{
		{0, 1, Down, 2},  // vertical block down
		{1, 2, Up, 1},    // vertical block up
		{2, 2, Right, 2}, // target block right
		{3, 2, Right, 1}, // horizontal block right
		{3, 3, Left, 2},  // horizontal block left
	}
	for _, m := range moves {
		if !b.MovePiece(m.row, m.col, m.dir, m.dist) {
			t.Fatalf("move (%d,%d) %s %d should succeed", m.row, m.col, m.dir, m.dist)
		}
	}

	expected := []struct {
		row, col int
		piece    Piece
	}{
		{2, 1, VerticalPiece},
		{0, 2, VerticalPiece},
		{4, 4, VerticalPiece},
		{2, 0, HorizontalPiece},
		{3, 1, HorizontalPiece},
		{3, 4, HorizontalPiece},
		{2, 4, TargetPiece},
	}
	for _, e := range expected {
		if p, _ := b.Get(e.row, e.col); p != e.piece {
			t.Errorf("(%d,%d): expected %s, got %s", e.row, e.col, e.piece, p)
		}
	}
	if CountPieces(b) != len(expected) {
		t.Errorf("expected %d pieces, got %d", len(expected), CountPieces(b))
	}
}

func TestMovePiece_TargetReachesExit(t *testing.T) {
	b := createTestBoard()
	if b.IsTargetAtExit() {
		t.Fatal("target should not start at the exit")
	}

	if !b.MovePiece(2, 2, Right, 2) {
		t.Fatal("expected target move to succeed")
	}
	if p, _ := b.Get(2, 4); p != TargetPiece {
		t.Errorf("expected target at (2,4), got %s", p)
	}
	if _, ok := b.Get(2, 2); ok {
		t.Error("origin cell should be cleared")
	}
	if !b.IsTargetAtExit() {
		t.Error("expected target at exit")
	}
}

func TestMovePiece_OnlySourceAndDestinationChange(t *testing.T) {
	b := createTestBoard()
	before := b.Layout()

	if !b.MovePiece(1, 2, Up, 1) {
		t.Fatal("expected move to succeed")
	}
	after := b.Layout()

	for r := range before {
		for c := range before[r] {
			changed := before[r][c] != after[r][c]
			moved := (r == 1 && c == 2) || (r == 0 && c == 2)
			if changed != moved {
				t.Errorf("cell (%d,%d): changed=%v, expected %v", r, c, changed, moved)
			}
		}
	}
}

func TestCanMove(t *testing.T) {
	b := createTestBoard()
	before := b.Layout()

	if !b.CanMove(2, 2, Right, 2) {
		t.Error("expected CanMove to allow target to exit")
	}
	if b.CanMove(1, 2, Down, 3) {
		t.Error("expected CanMove to reject blocked path")
	}
	assertUnchanged(t, b, before)
}

func TestPossibleMoves(t *testing.T) {
	b := NewBoard(3, 1)
	b.Place(TargetPiece, 0, 0)

	moves := b.PossibleMoves()
	if len(moves) != 2 {
		t.Fatalf("expected 2 moves, got %d: %+v", len(moves), moves)
	}
	for i, m := range moves {
		if m.Direction != Right || m.Distance != i+1 {
			t.Errorf("move %d: expected right %d, got %s %d", i, i+1, m.Direction, m.Distance)
		}
		if !b.CanMove(m.From.Row, m.From.Col, m.Direction, m.Distance) {
			t.Errorf("listed move %+v is not legal", m)
		}
	}

	b.Place(VerticalPiece, 0, 1)
	if got := b.PossibleMoves(); len(got) != 0 {
		t.Errorf("expected no moves on a jammed row, got %+v", got)
	}
}

func TestMoveReason(t *testing.T) {
	b := createTestBoard()

	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"success", b.TryMove(2, 2, Right, 1), ""},
		{"empty cell", b.TryMove(0, 0, Up, 1), "no_piece"},
		{"wrong axis", b.TryMove(2, 0, Up, 1), "invalid_direction"},
		{"zero distance", b.TryMove(2, 0, Right, 0), "invalid_distance"},
		{"outside", b.TryMove(2, 0, Left, 1), "out_of_bounds"},
		{"blocked", b.TryMove(3, 2, Right, 2), "blocked"},
	}

	for _, test := range tests {
		if got := MoveReason(test.err); got != test.expected {
			t.Errorf("%s: expected %q, got %q", test.name, test.expected, got)
		}
	}
}
