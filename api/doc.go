// Package api exposes the puzzle game over HTTP.
//
// Endpoints:
//
// Sessions:
//   - POST /api/sessions - Create a session, body {"puzzle_id": "classic"} (optional)
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/{id} - Session info with game state
//   - DELETE /api/sessions/{id} - Delete a session
//
// Game:
//   - GET /api/sessions/{id}/state - Current GameState
//   - GET /api/sessions/{id}/board - Board as plain text
//   - POST /api/sessions/{id}/move - Slide one piece
//   - POST /api/sessions/{id}/bulk-move - Slide several pieces in order
//   - POST /api/sessions/{id}/reset - Restore the initial layout
//   - GET /api/sessions/{id}/history - Paginated move log (?page&limit&order)
//   - GET /api/sessions/{id}/moves - Every currently legal single slide
//
// Puzzles:
//   - GET /api/puzzles - List stored puzzles
//   - POST /api/puzzles - Store a puzzle, body {"name", "layout"} or {"name", "text"}
//   - GET /api/puzzles/{name} - A stored puzzle
//
// Other:
//   - GET /health
//   - GET /ws?session={id} - WebSocket stream of state updates
//
// A move is {"row": 2, "col": 2, "direction": "right", "distance": 2}.
// Direction also accepts its first letter and distance defaults to 1.
// Bulk moves take {"moves": [...]} where each element is a move object or a
// "row col direction [distance]" string:
//
//	{"moves": ["0 1 down 2", {"row": 2, "col": 2, "direction": "r", "distance": 2}]}
//
// A rejected move is not an HTTP error: the response has success=false and
// a reason code (no_piece, invalid_direction, invalid_distance,
// out_of_bounds, blocked or already_solved). Errors are JSON objects with
// an "error" message; invalid puzzles add a "code" such as
// "target_blocked".
package api
