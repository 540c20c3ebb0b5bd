package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/wricardo/sliding-blocks/game/config"
	"github.com/wricardo/sliding-blocks/game/engine"
)

// ValidationResult captures the outcome of validating a single file. Info
// holds summary lines for valid puzzles.
type ValidationResult struct {
	File  string
	Valid bool
	Code  string
	Error string
	Info  []string
}

// validatePuzzleFile loads one puzzle file and summarizes it: dimensions,
// piece counts, how far the target is from the exit and what stands in its
// way.
func validatePuzzleFile(path string) ValidationResult {
	result := ValidationResult{
		File:  filepath.Base(path),
		Valid: true,
	}

	puzzle, err := engine.LoadPuzzleFile(path)
	if err != nil {
		result.Valid = false
		result.Code = engine.ErrorCode(err)
		result.Error = err.Error()
		return result
	}

	board, err := engine.NewBoardFromPuzzle(puzzle)
	if err != nil {
		result.Valid = false
		result.Code = engine.ErrorCode(err)
		result.Error = err.Error()
		return result
	}

	pieces := puzzle.Pieces()
	target := puzzle.Target()
	opening := board.PossibleMoves()

	result.Info = append(result.Info,
		fmt.Sprintf("✓ Board: %dx%d", puzzle.Rows, puzzle.Cols),
		fmt.Sprintf("✓ Pieces: %d (H=%d V=%d T=%d)", engine.CountPieces(board),
			pieces[engine.HorizontalPiece], pieces[engine.VerticalPiece], pieces[engine.TargetPiece]),
		fmt.Sprintf("✓ Target: (%d,%d), %d cells from the exit", target.Row, target.Col, engine.ExitDistance(board)),
		fmt.Sprintf("✓ Exit path blockers: %d", engine.ExitPathBlockers(board)),
		fmt.Sprintf("✓ Opening moves: %d", len(opening)),
	)
	if board.IsTargetAtExit() {
		result.Info = append(result.Info, "⚠️  Target already at the exit")
	}
	if len(opening) == 0 && !board.IsTargetAtExit() {
		result.Info = append(result.Info, "⚠️  No legal opening move")
	}

	return result
}

// runValidate validates every puzzle file in dir, printing a report to out.
// It reports whether all of them are valid.
func runValidate(dir string, out io.Writer) (bool, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*"+config.PuzzleExt))
	if err != nil {
		return false, fmt.Errorf("error finding puzzle files: %w", err)
	}
	if len(files) == 0 {
		return false, fmt.Errorf("no %s puzzle files in %s", config.PuzzleExt, dir)
	}

	allValid := true
	for _, file := range files {
		result := validatePuzzleFile(file)

		fmt.Fprintf(out, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(out, "✅ VALID")
			for _, info := range result.Info {
				fmt.Fprintln(out, "  "+info)
			}
		} else {
			allValid = false
			fmt.Fprintf(out, "❌ INVALID [%s]\n", result.Code)
			fmt.Fprintln(out, "  ❌ "+result.Error)
		}
	}

	fmt.Fprintf(out, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintf(out, "✅ All %d puzzles are valid!\n", len(files))
	} else {
		fmt.Fprintln(out, "❌ Some puzzles have errors")
	}
	return allValid, nil
}
