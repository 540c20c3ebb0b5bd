package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/wricardo/sliding-blocks/game/engine"
)

// ErrPuzzleNotFound is returned when a requested puzzle does not exist.
var ErrPuzzleNotFound = errors.New("puzzle not found")

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions SessionManager
	puzzles  PuzzleManager
	mu       sync.RWMutex
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, puzzles PuzzleManager) GameService {
	return &gameServiceImpl{
		sessions: sessions,
		puzzles:  puzzles,
	}
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, puzzleID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var puzzle *engine.Puzzle
	var err error
	if puzzleID != "" {
		puzzle, err = s.puzzles.LoadPuzzle(puzzleID)
		if err != nil {
			if errors.Is(err, ErrPuzzleNotFound) {
				// Provide helpful error message with available options
				available, listErr := s.puzzles.ListPuzzles()
				if listErr == nil && len(available) > 0 {
					ids := make([]string, 0, len(available))
					for _, p := range available {
						ids = append(ids, p.PuzzleID)
					}
					return nil, fmt.Errorf("%w: '%s'. Available puzzles: %v", ErrPuzzleNotFound, puzzleID, ids)
				}
				return nil, fmt.Errorf("%w: '%s'. Use /api/puzzles to list available puzzles", ErrPuzzleNotFound, puzzleID)
			}
			return nil, fmt.Errorf("failed to load puzzle %s: %w", puzzleID, err)
		}
	} else {
		puzzleID, puzzle = s.puzzles.GetDefault()
	}

	// Let session manager generate a proper 4-character ID
	session, err := s.sessions.Create("", puzzleID, puzzle)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return sessionInfo(session), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.UpdateLastAccessed(sessionID)
	return sessionInfo(session), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, sessionInfo(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sessions.Delete(sessionID)
}

// Move executes a single move for a session
func (s *gameServiceImpl) Move(ctx context.Context, sessionID string, move engine.MoveRequest, reset bool) (*MoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	events := []GameEvent{}
	if reset {
		sess.Engine.Reset()
		events = append(events, resetEvent())
	}

	step := s.applyMove(sess, 1, move)
	events = append(events, stepEvents(step)...)
	state := sess.Engine.GetState()

	result := &MoveResult{
		Success:   step.Success,
		Reason:    step.Reason,
		Solved:    state.Solved,
		GameState: state,
		Message:   state.Message,
		Events:    events,
		Step:      &step,
	}
	if step.Reason == ReasonAlreadySolved {
		result.Message = "Puzzle already solved. Reset to play again."
	}

	// Auto-save session after move
	if err := s.sessions.Save(sessionID); err != nil {
		log.Printf("Warning: Failed to persist session %s after move: %v", sessionID, err)
	}

	return result, nil
}

// BulkMove executes multiple moves in sequence
func (s *gameServiceImpl) BulkMove(ctx context.Context, sessionID string, moves []engine.MoveRequest, reset bool) (*BulkMoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	s.sessions.UpdateLastAccessed(sessionID)

	result := &BulkMoveResult{
		RequestedMoves: len(moves),
		Events:         make([]GameEvent, 0),
		Success:        true,
	}

	if reset {
		sess.Engine.Reset()
		result.Events = append(result.Events, resetEvent())
	}

	// Limit moves to prevent abuse
	if len(moves) > engine.MaxBulkMoves {
		result.Truncated = true
		result.Limit = engine.MaxBulkMoves
		moves = moves[:engine.MaxBulkMoves]
	}

	for i, move := range moves {
		if ctx.Err() != nil {
			result.Success = false
			result.StoppedReason = fmt.Sprintf("cancelled before move %d: %v", i+1, ctx.Err())
			result.StopReasonCode = "cancelled"
			result.StoppedOnMove = i + 1
			break
		}

		step := s.applyMove(sess, i+1, move)
		result.Steps = append(result.Steps, step)
		result.Events = append(result.Events, stepEvents(step)...)

		if !step.Success {
			result.Success = false
			result.StoppedReason = fmt.Sprintf("move %d rejected: %s", i+1, step.Reason)
			result.StopReasonCode = step.Reason
			result.StoppedOnMove = i + 1
			break
		}
		result.MovesExecuted++

		if step.Solved {
			if i+1 < len(moves) {
				result.StoppedReason = fmt.Sprintf("puzzle solved on move %d", i+1)
				result.StopReasonCode = ReasonSolved
				result.StoppedOnMove = i + 1
			}
			break
		}
	}

	state := sess.Engine.GetState()
	result.GameState = state
	result.Solved = state.Solved
	result.Message = state.Message

	// Auto-save session after bulk moves
	if err := s.sessions.Save(sessionID); err != nil {
		log.Printf("Warning: Failed to persist session %s after bulk moves: %v", sessionID, err)
	}

	return result, nil
}

// Reset resets a game session to initial state
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.UpdateLastAccessed(sessionID)
	state := sess.Engine.Reset()

	// Auto-save session after reset
	if err := s.sessions.Save(sessionID); err != nil {
		log.Printf("Warning: Failed to persist session %s after reset: %v", sessionID, err)
	}

	return state, nil
}

// GetGameState retrieves the current game state
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	s.sessions.UpdateLastAccessed(sessionID)
	return sess.Engine.GetState(), nil
}

// GetPossibleMoves lists the slides currently available in a session
func (s *gameServiceImpl) GetPossibleMoves(ctx context.Context, sessionID string) ([]engine.MoveOption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}
	if sess.Engine.IsSolved() {
		return []engine.MoveOption{}, nil
	}

	moves := sess.Engine.GetPossibleMoves()
	if moves == nil {
		moves = []engine.MoveOption{}
	}
	return moves, nil
}

// GetMoveHistory returns paginated move history
func (s *gameServiceImpl) GetMoveHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, fmt.Errorf("session not found: %w", err)
	}

	history := sess.Engine.GetMoveHistory()
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	moves := []engine.MoveHistoryEntry{}
	if start < total {
		if opts.Order == "desc" {
			// Most recent first
			for i := total - 1 - start; i >= total-end; i-- {
				moves = append(moves, history[i])
			}
		} else {
			moves = append(moves, history[start:end]...)
		}
	}

	return &HistoryResponse{
		Moves:       moves,
		TotalMoves:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// ListPuzzles returns available puzzles
func (s *gameServiceImpl) ListPuzzles(ctx context.Context) ([]*PuzzleInfo, error) {
	return s.puzzles.ListPuzzles()
}

// LoadPuzzle loads a specific puzzle
func (s *gameServiceImpl) LoadPuzzle(ctx context.Context, puzzleID string) (*engine.Puzzle, error) {
	return s.puzzles.LoadPuzzle(puzzleID)
}

// SavePuzzle stores a puzzle under the given identifier
func (s *gameServiceImpl) SavePuzzle(ctx context.Context, puzzleID string, puzzle *engine.Puzzle) error {
	return s.puzzles.SavePuzzle(puzzleID, puzzle)
}

// applyMove runs one move against the session engine and describes it.
func (s *gameServiceImpl) applyMove(sess *Session, idx int, move engine.MoveRequest) StepInfo {
	dr, dc := move.Direction.Delta()
	piece, _ := sess.Engine.GetBoard().Get(move.Row, move.Col)
	step := StepInfo{
		Idx:       idx,
		From:      engine.Position{Row: move.Row, Col: move.Col},
		To:        engine.Position{Row: move.Row + dr*move.Distance, Col: move.Col + dc*move.Distance},
		Direction: move.Direction,
		Distance:  move.Distance,
	}
	if piece != engine.Empty {
		step.Piece = piece.String()
	}

	if sess.Engine.IsSolved() {
		step.Reason = ReasonAlreadySolved
		step.Solved = true
		return step
	}

	err := sess.Engine.TryMove(move.Row, move.Col, move.Direction, move.Distance)
	if err != nil {
		step.Reason = engine.MoveReason(err)
		var blocked *engine.BlockedError
		if errors.As(err, &blocked) {
			step.Blocker = &engine.Position{Row: blocked.Row, Col: blocked.Col}
		}
		return step
	}

	step.Success = true
	step.Solved = sess.Engine.IsSolved()
	return step
}

func sessionInfo(session *Session) *SessionInfo {
	return &SessionInfo{
		ID:             session.ID,
		PuzzleID:       session.PuzzleID,
		CreatedAt:      session.CreatedAt,
		LastAccessedAt: session.LastAccessedAt,
		GameState:      session.Engine.GetState(),
		Puzzle:         session.Puzzle,
	}
}

func resetEvent() GameEvent {
	return GameEvent{
		Type:      "reset",
		Message:   "Game reset to initial state",
		Timestamp: time.Now(),
	}
}

// stepEvents generates events from a move
func stepEvents(step StepInfo) []GameEvent {
	now := time.Now()
	if !step.Success {
		msg := fmt.Sprintf("Move (%d,%d) %s %d rejected: %s",
			step.From.Row, step.From.Col, step.Direction, step.Distance, step.Reason)
		pos := step.From
		if step.Blocker != nil {
			pos = *step.Blocker
		}
		return []GameEvent{{Type: "blocked", Message: msg, Timestamp: now, Position: pos}}
	}

	events := []GameEvent{{
		Type:      "move",
		Message:   fmt.Sprintf("Moved %s piece %s to (%d,%d)", step.Piece, step.Direction, step.To.Row, step.To.Col),
		Timestamp: now,
		Position:  step.To,
	}}
	if step.Solved {
		events = append(events, GameEvent{
			Type:      "solved",
			Message:   "Solved! The target piece reached the exit.",
			Timestamp: now,
			Position:  step.To,
		})
	}
	return events
}
