package engine

import (
	"fmt"
	"time"
)

// Engine provides the main interface for game operations
type Engine interface {
	// Game state management
	GetState() *GameState
	SetState(state *GameState) error
	Reset() *GameState
	IsSolved() bool

	// Movement operations
	Move(row, col int, dir Direction, dist int) bool
	TryMove(row, col int, dir Direction, dist int) error
	CanMove(row, col int, dir Direction, dist int) bool
	GetPossibleMoves() []MoveOption

	// Board access
	GetBoard() *Board
	GetPuzzle() *Puzzle

	// History
	GetMoveHistory() []MoveHistoryEntry
	GetLastMove() *MoveHistoryEntry
}

// GameEngine implements the Engine interface
type GameEngine struct {
	puzzleID string
	puzzle   *Puzzle
	board    *Board
	state    *GameState
}

// NewEngine creates a new game engine for the puzzle
func NewEngine(puzzleID string, puzzle *Puzzle) (*GameEngine, error) {
	board, err := NewBoardFromPuzzle(puzzle)
	if err != nil {
		return nil, err
	}

	e := &GameEngine{
		puzzleID: puzzleID,
		puzzle:   puzzle,
		board:    board,
		state: &GameState{
			PuzzleID:    puzzleID,
			Message:     welcomeMessage,
			MoveHistory: []MoveHistoryEntry{},
		},
	}
	e.syncState()
	return e, nil
}

const (
	welcomeMessage = "Slide the target piece (T) to the rightmost column."
	solvedMessage  = "Solved! The target piece reached the exit."
)

// GetState returns a snapshot of the current game state. Later moves do
// not change it.
func (e *GameEngine) GetState() *GameState {
	return e.state.Clone()
}

// SetState restores a persisted game state onto the board.
func (e *GameEngine) SetState(state *GameState) error {
	if state == nil {
		return fmt.Errorf("state cannot be nil")
	}
	if err := e.board.restoreLayout(state.Layout); err != nil {
		return fmt.Errorf("restore layout: %w", err)
	}
	if state.MoveHistory == nil {
		state.MoveHistory = []MoveHistoryEntry{}
	}
	e.state = state.Clone()
	e.syncState()
	return nil
}

// Reset restores the puzzle's initial layout
func (e *GameEngine) Reset() *GameState {
	// The puzzle was validated when the engine was built.
	e.board.materialize(e.puzzle.Layout)

	e.state.CurrentMovesCount = 0
	e.state.Message = welcomeMessage
	e.syncState()
	return e.state.Clone()
}

// IsSolved returns whether the target piece is in the exit column
func (e *GameEngine) IsSolved() bool {
	return e.board.IsTargetAtExit()
}

// Move attempts to slide a piece and records the attempt
func (e *GameEngine) Move(row, col int, dir Direction, dist int) bool {
	return e.TryMove(row, col, dir, dist) == nil
}

// TryMove is Move returning the reason for a rejected slide
func (e *GameEngine) TryMove(row, col int, dir Direction, dist int) error {
	piece, _ := e.board.Get(row, col)
	err := e.board.TryMove(row, col, dir, dist)

	dr, dc := dir.Delta()
	to := Position{Row: row + dr*dist, Col: col + dc*dist}
	e.addMoveToHistory(Position{Row: row, Col: col}, to, dir, dist, piece, err)

	switch {
	case err != nil:
		e.state.Message = fmt.Sprintf("Can't move (%d,%d) %s %d: %v", row, col, dir, dist, err)
	case e.board.IsTargetAtExit():
		e.state.Message = solvedMessage
	default:
		e.state.Message = fmt.Sprintf("Moved %s piece %s %d to (%d,%d)", piece, dir, dist, to.Row, to.Col)
	}
	e.syncState()
	return err
}

// CanMove checks a slide without performing it
func (e *GameEngine) CanMove(row, col int, dir Direction, dist int) bool {
	return e.board.CanMove(row, col, dir, dist)
}

// GetPossibleMoves returns every currently legal slide
func (e *GameEngine) GetPossibleMoves() []MoveOption {
	return e.board.PossibleMoves()
}

// GetBoard returns the live board
func (e *GameEngine) GetBoard() *Board {
	return e.board
}

// GetPuzzle returns the puzzle the engine was created from
func (e *GameEngine) GetPuzzle() *Puzzle {
	return e.puzzle
}

// GetPuzzleID returns the identifier of the loaded puzzle
func (e *GameEngine) GetPuzzleID() string {
	return e.puzzleID
}

// GetMoveHistory returns the complete move history
func (e *GameEngine) GetMoveHistory() []MoveHistoryEntry {
	return append([]MoveHistoryEntry(nil), e.state.MoveHistory...)
}

// GetLastMove returns the last move made, or nil if no moves
func (e *GameEngine) GetLastMove() *MoveHistoryEntry {
	if len(e.state.MoveHistory) == 0 {
		return nil
	}
	last := e.state.MoveHistory[len(e.state.MoveHistory)-1]
	return &last
}

// BulkMove executes moves in sequence until one fails or the puzzle is
// solved, returning the success status of each attempted move.
func (e *GameEngine) BulkMove(moves []MoveRequest) []bool {
	results := make([]bool, 0, len(moves))

	for _, m := range moves {
		if e.IsSolved() {
			break
		}
		ok := e.Move(m.Row, m.Col, m.Direction, m.Distance)
		results = append(results, ok)
		if !ok {
			break
		}
	}

	return results
}

// syncState copies board-derived fields into the state snapshot.
func (e *GameEngine) syncState() {
	e.state.PuzzleID = e.puzzleID
	e.state.Width = e.board.Width()
	e.state.Height = e.board.Height()
	e.state.Layout = e.board.Layout()
	e.state.Solved = e.board.IsTargetAtExit()
}

// addMoveToHistory adds a move attempt to the game's move history
func (e *GameEngine) addMoveToHistory(from, to Position, dir Direction, dist int, piece Piece, err error) {
	entry := MoveHistoryEntry{
		From:       from,
		To:         to,
		Direction:  dir,
		Distance:   dist,
		Success:    err == nil,
		Reason:     MoveReason(err),
		Timestamp:  time.Now().Unix(),
		MoveNumber: e.state.TotalMoves + 1,
	}
	if piece != Empty {
		entry.Piece = piece.String()
	}
	e.state.MoveHistory = append(e.state.MoveHistory, entry)
	e.state.TotalMoves++
	e.state.CurrentMovesCount++
}
