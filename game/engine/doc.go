// Package engine provides the core game logic for the Sliding Blocks puzzle.
//
// The engine package implements the game mechanics including:
//   - Piece kinds and the directions each kind may slide along
//   - A rectangular board with bounded, collision-checked movement
//   - Win detection (target piece in the exit column)
//   - Loading and validating puzzles from their text description
//
// Core Types:
//
// Board is the single authority on piece placement and move legality.
// Puzzle is a validated text layout that can be materialized onto a Board.
// GameEngine wraps a Board together with the Puzzle it was loaded from and
// keeps a move log, and GameState is the JSON snapshot of a running game.
//
// Usage:
//
//	puzzle, err := engine.LoadPuzzleFile("puzzles/classic.txt")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameEngine, err := engine.NewEngine("classic", puzzle)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Slide the target piece two cells to the right
//	success := gameEngine.Move(2, 2, engine.Right, 2)
//	solved := gameEngine.IsSolved()
//
// Puzzle Format:
//
// The first line holds "rows cols", followed by rows lines of exactly cols
// characters: H (horizontal piece), V (vertical piece), T (target piece)
// and . (empty cell).
//
//	3 4
//	.V..
//	H.T.
//	.V..
//
// Game Rules:
//
// Horizontal and target pieces slide left or right, vertical pieces slide up
// or down. A piece slides in a straight line and every cell it passes
// through, including the destination, must be empty. The puzzle is solved
// when the target piece reaches the rightmost column.
package engine
