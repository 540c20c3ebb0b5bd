// Package config manages the puzzle catalogue of the Sliding Blocks server.
//
// Puzzles are stored as plain text files with a .txt extension in the
// puzzle directory. Each file starts with a "rows cols" header followed by
// one line per board row:
//
//	5 5
//	.V...
//	..V..
//	H.T..
//	..H.H
//	....V
//
// H is a horizontal piece, V a vertical piece, T the target and '.' an
// empty cell. The puzzle is solved when T reaches the rightmost column.
//
// Usage:
//
//	manager, err := config.NewManager("puzzles")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	puzzle, err := manager.LoadPuzzle("classic")
//	id, fallback := manager.GetDefault()
//	infos, err := manager.ListPuzzles()
//
// Loaded puzzles are cached. The default puzzle is "classic" when present,
// otherwise the first valid puzzle in the directory, otherwise a small
// built-in puzzle.
package config
