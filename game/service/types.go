package service

import (
	"time"

	"github.com/wricardo/sliding-blocks/game/engine"
)

// Reason codes for rejected moves that are decided by the service rather
// than the board.
const (
	ReasonAlreadySolved = "already_solved"
	ReasonSolved        = "solved"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string            `json:"id"`
	PuzzleID       string            `json:"puzzle_id"`
	CreatedAt      time.Time         `json:"created_at"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
	GameState      *engine.GameState `json:"game_state"`
	Puzzle         *engine.Puzzle    `json:"puzzle"`
}

// MoveResult contains the result of a move operation
type MoveResult struct {
	Success   bool              `json:"success"`
	Reason    string            `json:"reason,omitempty"` // no_piece|invalid_direction|invalid_distance|out_of_bounds|blocked|already_solved
	Solved    bool              `json:"solved"`
	GameState *engine.GameState `json:"game_state"`
	Message   string            `json:"message"`
	Events    []GameEvent       `json:"events,omitempty"`
	Step      *StepInfo         `json:"step,omitempty"`
}

// BulkMoveResult contains the result of multiple moves
type BulkMoveResult struct {
	MovesExecuted  int               `json:"moves_executed"`
	RequestedMoves int               `json:"requested_moves"`
	Success        bool              `json:"success"`
	Solved         bool              `json:"solved"`
	GameState      *engine.GameState `json:"game_state"`
	Events         []GameEvent       `json:"events"`
	StoppedReason  string            `json:"stopped_reason,omitempty"`   // Human-readable reason
	StopReasonCode string            `json:"stop_reason_code,omitempty"` // Same codes as MoveResult.Reason, plus solved
	StoppedOnMove  int               `json:"stopped_on_move,omitempty"`  // 1-based index of the move that caused stop
	Truncated      bool              `json:"truncated,omitempty"`
	Limit          int               `json:"limit,omitempty"`
	Message        string            `json:"message,omitempty"`

	// Per-step compact trace (only for this call)
	Steps []StepInfo `json:"steps,omitempty"`
}

// StepInfo is a compact record for each attempted move
type StepInfo struct {
	Idx       int              `json:"idx"`
	From      engine.Position  `json:"from"`
	To        engine.Position  `json:"to"`
	Piece     string           `json:"piece,omitempty"`
	Direction engine.Direction `json:"direction"`
	Distance  int              `json:"distance"`
	Success   bool             `json:"success"`
	Reason    string           `json:"reason,omitempty"`
	Blocker   *engine.Position `json:"blocker,omitempty"`
	Solved    bool             `json:"solved,omitempty"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Type      string          `json:"type"` // "move", "blocked", "solved", "reset"
	Message   string          `json:"message"`
	Timestamp time.Time       `json:"timestamp"`
	Position  engine.Position `json:"position,omitempty"`
}

// HistoryOptions configures move history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated move history
type HistoryResponse struct {
	Moves       []engine.MoveHistoryEntry `json:"moves"`
	TotalMoves  int                       `json:"total_moves"`
	Page        int                       `json:"page"`
	PageSize    int                       `json:"page_size"`
	TotalPages  int                       `json:"total_pages"`
	HasNext     bool                      `json:"has_next"`
	HasPrevious bool                      `json:"has_previous"`
}

// PuzzleInfo provides information about a stored puzzle
type PuzzleInfo struct {
	Filename     string `json:"filename"`
	PuzzleID     string `json:"puzzle_id"` // The identifier to use for session creation
	Rows         int    `json:"rows"`
	Cols         int    `json:"cols"`
	Pieces       int    `json:"pieces"`
	ExitDistance int    `json:"exit_distance"`
}
