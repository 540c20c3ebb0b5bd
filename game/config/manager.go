package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/sliding-blocks/game/engine"
	"github.com/wricardo/sliding-blocks/game/service"
)

// PuzzleExt is the file extension of stored puzzles.
const PuzzleExt = ".txt"

// DefaultPuzzleID names the puzzle preferred as the default.
const DefaultPuzzleID = "classic"

var (
	ErrPuzzleNotFound = service.ErrPuzzleNotFound
	ErrInvalidPuzzle  = errors.New("invalid puzzle")
)

// Manager handles puzzle loading and caching
type Manager struct {
	puzzleDir     string
	defaultID     string
	defaultPuzzle *engine.Puzzle
	puzzles       map[string]*engine.Puzzle
	mu            sync.RWMutex
}

// NewManager creates a new puzzle manager
func NewManager(puzzleDir string) (*Manager, error) {
	// Ensure puzzle directory exists
	if _, err := os.Stat(puzzleDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("puzzle directory does not exist: %s", puzzleDir)
	}

	m := &Manager{
		puzzleDir: puzzleDir,
		puzzles:   make(map[string]*engine.Puzzle),
	}

	m.loadDefaultPuzzle()
	return m, nil
}

// LoadPuzzle loads a puzzle by name
func (m *Manager) LoadPuzzle(name string) (*engine.Puzzle, error) {
	name = puzzleID(name)
	if !validName(name) {
		return nil, fmt.Errorf("%w: %q", ErrPuzzleNotFound, name)
	}

	m.mu.RLock()
	// Check cache first
	if p, exists := m.puzzles[name]; exists {
		m.mu.RUnlock()
		return p, nil
	}
	m.mu.RUnlock()

	// Load from file
	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if p, exists := m.puzzles[name]; exists {
		return p, nil
	}

	p, err := engine.LoadPuzzleFile(m.path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrPuzzleNotFound, name)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidPuzzle, name, err)
	}

	// Cache the puzzle
	m.puzzles[name] = p
	return p, nil
}

// ListPuzzles returns information about all valid puzzles in the directory,
// sorted by identifier.
func (m *Manager) ListPuzzles() ([]*service.PuzzleInfo, error) {
	entries, err := os.ReadDir(m.puzzleDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read puzzle directory: %w", err)
	}

	var infos []*service.PuzzleInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), PuzzleExt) {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), PuzzleExt)
		p, err := m.LoadPuzzle(name)
		if err != nil {
			// Skip invalid puzzles
			continue
		}
		infos = append(infos, Describe(entry.Name(), name, p))
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].PuzzleID < infos[j].PuzzleID })
	return infos, nil
}

// Describe summarizes a puzzle for listings.
func Describe(filename, id string, p *engine.Puzzle) *service.PuzzleInfo {
	info := &service.PuzzleInfo{
		Filename: filename,
		PuzzleID: id,
		Rows:     p.Rows,
		Cols:     p.Cols,
	}
	for piece, n := range p.Pieces() {
		if piece != engine.Empty {
			info.Pieces += n
		}
	}
	target := p.Target()
	info.ExitDistance = p.Cols - 1 - target.Col
	return info
}

// GetDefault returns the default puzzle and its identifier
func (m *Manager) GetDefault() (string, *engine.Puzzle) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultID, m.defaultPuzzle
}

// SetDefault sets the default puzzle by name
func (m *Manager) SetDefault(name string) error {
	p, err := m.LoadPuzzle(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultID = puzzleID(name)
	m.defaultPuzzle = p
	return nil
}

// RefreshCache drops all cached puzzles and re-resolves the default
func (m *Manager) RefreshCache() {
	m.mu.Lock()
	m.puzzles = make(map[string]*engine.Puzzle)
	m.mu.Unlock()

	m.loadDefaultPuzzle()
}

// Count returns the number of cached puzzles
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.puzzles)
}

// SavePuzzle validates a puzzle and writes it to disk in the text format
func (m *Manager) SavePuzzle(name string, p *engine.Puzzle) error {
	if p == nil {
		return fmt.Errorf("%w: puzzle cannot be nil", ErrInvalidPuzzle)
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPuzzle, err)
	}

	name = puzzleID(name)
	if !validName(name) {
		return fmt.Errorf("%w: bad puzzle name %q", ErrInvalidPuzzle, name)
	}

	if err := os.WriteFile(m.path(name), []byte(p.String()), 0644); err != nil {
		return fmt.Errorf("failed to write puzzle file: %w", err)
	}

	// Update cache
	m.mu.Lock()
	m.puzzles[name] = p
	m.mu.Unlock()

	return nil
}

// loadDefaultPuzzle resolves classic, then the first valid puzzle, then the
// built-in fallback.
func (m *Manager) loadDefaultPuzzle() {
	id, p := DefaultPuzzleID, (*engine.Puzzle)(nil)

	if loaded, err := m.LoadPuzzle(DefaultPuzzleID); err == nil {
		p = loaded
	} else if infos, listErr := m.ListPuzzles(); listErr == nil && len(infos) > 0 {
		id = infos[0].PuzzleID
		p, _ = m.LoadPuzzle(id)
	}

	if p == nil {
		id, p = "default", createMinimalPuzzle()
	}

	m.mu.Lock()
	m.defaultID = id
	m.defaultPuzzle = p
	m.mu.Unlock()
}

func (m *Manager) path(name string) string {
	return filepath.Join(m.puzzleDir, name+PuzzleExt)
}

func puzzleID(name string) string {
	return strings.TrimSuffix(name, PuzzleExt)
}

// validName reports whether name stays inside the puzzle directory.
func validName(name string) bool {
	return name != "" && !strings.ContainsAny(name, `/\`) && !strings.HasPrefix(name, ".")
}

// createMinimalPuzzle creates a small valid puzzle
func createMinimalPuzzle() *engine.Puzzle {
	p, err := engine.NewPuzzle([]string{
		"..V",
		"T.V",
		"...",
	})
	if err != nil {
		panic(fmt.Sprintf("built-in puzzle is invalid: %v", err))
	}
	return p
}
