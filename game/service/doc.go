// Package service provides the business logic layer for the Sliding Blocks
// puzzle.
//
// The service package implements:
//   - Multi-session game management
//   - Puzzle catalogue access (list, load, save)
//   - Move processing with machine-readable rejection reasons
//   - Move history tracking and pagination
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// PuzzleManager loads and stores puzzle descriptions.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the game engine. A Board is not safe for concurrent use, so every
// operation that touches a session's engine runs under the service mutex.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	puzzleMgr, _ := config.NewManager("puzzles")
//	gameService := service.NewGameService(sessionMgr, puzzleMgr)
//
//	info, err := gameService.CreateSession(ctx, "classic")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := gameService.Move(ctx, info.ID, engine.MoveRequest{
//		Row: 2, Col: 2, Direction: engine.Right, Distance: 2,
//	}, false)
package service
