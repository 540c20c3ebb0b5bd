// Package mcp exposes the Sliding Blocks game to AI agents over the Model
// Context Protocol.
//
// The Client is a thin proxy: every tool call becomes a request against the
// REST API, so the same server state is visible to HTTP, WebSocket and MCP
// users.
//
// MCP Tools:
//   - create_session, list_sessions, get_session
//   - game_state: Board with row and column indexes
//   - move: Slide one piece (row, col, direction, distance)
//   - bulk_move: Slides as "row col direction distance" strings
//   - possible_moves: Every legal single slide
//   - reset_game, move_history
//   - list_puzzles, game_instructions
//
// Transport Modes:
//
// The server returned by GetMCPServer can be served over stdio with
// server.ServeStdio, or mounted on an HTTP endpoint by passing request
// bodies to HandleMessage.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	if err := server.ServeStdio(client.GetMCPServer()); err != nil {
//		log.Fatal(err)
//	}
package mcp
