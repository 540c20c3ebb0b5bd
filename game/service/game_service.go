package service

import (
	"context"
	"time"

	"github.com/wricardo/sliding-blocks/game/engine"
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, puzzleID string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	Move(ctx context.Context, sessionID string, move engine.MoveRequest, reset bool) (*MoveResult, error)
	BulkMove(ctx context.Context, sessionID string, moves []engine.MoveRequest, reset bool) (*BulkMoveResult, error)
	Reset(ctx context.Context, sessionID string) (*engine.GameState, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)
	GetPossibleMoves(ctx context.Context, sessionID string) ([]engine.MoveOption, error)

	// Puzzles
	ListPuzzles(ctx context.Context) ([]*PuzzleInfo, error)
	LoadPuzzle(ctx context.Context, puzzleID string) (*engine.Puzzle, error)
	SavePuzzle(ctx context.Context, puzzleID string, puzzle *engine.Puzzle) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id, puzzleID string, puzzle *engine.Puzzle) (*Session, error)
	Get(id string) (*Session, error)
	GetOrCreate(id, puzzleID string, puzzle *engine.Puzzle) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// PuzzleManager handles puzzle loading
type PuzzleManager interface {
	LoadPuzzle(name string) (*engine.Puzzle, error)
	ListPuzzles() ([]*PuzzleInfo, error)
	GetDefault() (string, *engine.Puzzle)
	SavePuzzle(name string, puzzle *engine.Puzzle) error
}

// Session represents an active game session
type Session struct {
	ID             string
	PuzzleID       string
	Engine         *engine.GameEngine
	Puzzle         *engine.Puzzle
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
