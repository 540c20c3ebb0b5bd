package main

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/wricardo/sliding-blocks/game/engine"
)

const playHelp = `Enter moves as: row col direction [distance]   e.g. "2 2 right 2"
Other commands: moves, reset, help, quit`

// runPlay loads a puzzle file and plays it on in/out until the target
// reaches the exit or the input ends.
func runPlay(path string, in io.Reader, out io.Writer) error {
	puzzle, err := engine.LoadPuzzleFile(path)
	if err != nil {
		return fmt.Errorf("failed to load puzzle: %w", err)
	}

	id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	game, err := engine.NewEngine(id, puzzle)
	if err != nil {
		return err
	}
	board := game.GetBoard()

	fmt.Fprintf(out, "Puzzle %s (%dx%d)\n%s\n\n%s\n", id, puzzle.Rows, puzzle.Cols, playHelp, board)
	if game.IsSolved() {
		fmt.Fprintln(out, "Already solved!")
		return nil
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "q", "quit", "exit":
			fmt.Fprintln(out, "Bye")
			return nil
		case "h", "help", "?":
			fmt.Fprintln(out, playHelp)
			continue
		case "reset":
			game.Reset()
			fmt.Fprintf(out, "Reset.\n%s\n", board)
			continue
		case "moves":
			for _, m := range game.GetPossibleMoves() {
				fmt.Fprintf(out, "  %d %d %s %d  (%s)\n", m.From.Row, m.From.Col, m.Direction, m.Distance, m.Piece)
			}
			continue
		}

		req, err := engine.ParseMoveRequest(line)
		if err != nil {
			fmt.Fprintf(out, "Can't read %q: %v\n", line, err)
			continue
		}

		if err := game.TryMove(req.Row, req.Col, req.Direction, req.Distance); err != nil {
			fmt.Fprintf(out, "Illegal move (%s): %v\n", engine.MoveReason(err), err)
			continue
		}

		fmt.Fprintln(out, board)
		if game.IsSolved() {
			fmt.Fprintf(out, "Solved in %d moves!\n", game.GetState().CurrentMovesCount)
			return nil
		}
	}

	if err := scanner.Err(); err != nil {
		return err
	}
	fmt.Fprintln(out)
	return nil
}
