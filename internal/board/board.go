// internal/board/board.go
//
// Minefield used by the game controller.
// Responsibilities:
//   - Place mines with a seeded Fisher-Yates shuffle.
//   - Count adjacent mines for every cell.
//   - Reveal cells, flood-filling across zero-count regions.
//   - Toggle flags on hidden cells.
//   - Report the outcome exactly once through the game.Reporter.
//
// Coordinates are (x, y) with 0 ≤ x < width and 0 ≤ y < height.

package board

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	mrand "math/rand/v2"
	"sync"

	"github.com/robalobadob/minesweeper/apps/go-server/internal/game"
)

var (
	ErrFinished   = errors.New("board finished")
	ErrOutOfRange = errors.New("cell out of range")
)

type cell struct {
	mine     bool
	revealed bool
	flagged  bool
	adjacent int
}

// Board is a single minefield.
type Board struct {
	mu       sync.Mutex
	width    int
	height   int
	mines    int
	cells    []cell
	revealed int
	flags    int
	finished bool
	lost     bool
	reporter game.Reporter
}

// New builds a board and places mines using seed.
// mines is clamped to [0, width*height].
func New(r game.Reporter, width, height, mines int, seed uint64) *Board {
	n := width * height
	mines = max(0, min(mines, n))
	b := &Board{
		width:    width,
		height:   height,
		mines:    mines,
		cells:    make([]cell, n),
		reporter: r,
	}
	b.placeMines(mrand.New(mrand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
	b.countAdjacent()
	return b
}

// Factory returns a game.BoardFactory using a fresh random seed per board.
func Factory() game.BoardFactory {
	return func(r game.Reporter, w, h, m int) game.Board {
		return New(r, w, h, m, RandomSeed())
	}
}

// SeededFactory returns a game.BoardFactory that always uses seed, so every
// board of the same size has the same layout.
func SeededFactory(seed uint64) game.BoardFactory {
	return func(r game.Reporter, w, h, m int) game.Board {
		return New(r, w, h, m, seed)
	}
}

// RandomSeed reads a seed from crypto/rand.
func RandomSeed() uint64 {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return binary.LittleEndian.Uint64(b[:])
}

func (b *Board) placeMines(r *mrand.Rand) {
	positions := r.Perm(len(b.cells))
	for _, p := range positions[:b.mines] {
		b.cells[p].mine = true
	}
}

func (b *Board) countAdjacent() {
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			if !b.cells[b.index(x, y)].mine {
				continue
			}
			b.eachNeighbour(x, y, func(nx, ny int) {
				b.cells[b.index(nx, ny)].adjacent++
			})
		}
	}
}

func (b *Board) index(x, y int) int { return y*b.width + x }

func (b *Board) inRange(x, y int) bool {
	return x >= 0 && x < b.width && y >= 0 && y < b.height
}

func (b *Board) eachNeighbour(x, y int, fn func(nx, ny int)) {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			if nx, ny := x+dx, y+dy; b.inRange(nx, ny) {
				fn(nx, ny)
			}
		}
	}
}

// Reveal opens (x, y). Revealing a flagged or already revealed cell does
// nothing. Revealing a mine fails the game; revealing the last safe cell
// wins it.
func (b *Board) Reveal(x, y int) error {
	b.mu.Lock()
	if b.finished {
		b.mu.Unlock()
		return ErrFinished
	}
	if !b.inRange(x, y) {
		b.mu.Unlock()
		return ErrOutOfRange
	}
	c := &b.cells[b.index(x, y)]
	if c.revealed || c.flagged {
		b.mu.Unlock()
		return nil
	}

	var report func()
	if c.mine {
		c.revealed = true
		b.finished, b.lost = true, true
		report = b.reporter.Fail
	} else {
		b.flood(x, y)
		if b.revealed == len(b.cells)-b.mines {
			b.finished = true
			report = b.reporter.Win
		}
	}
	b.mu.Unlock()

	// The reporter locks the controller; call it without holding b.mu.
	if report != nil {
		report()
	}
	return nil
}

// flood reveals (x, y) and spreads through zero-count cells.
func (b *Board) flood(x, y int) {
	stack := [][2]int{{x, y}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		c := &b.cells[b.index(p[0], p[1])]
		if c.revealed || c.flagged || c.mine {
			continue
		}
		c.revealed = true
		b.revealed++
		if c.adjacent != 0 {
			continue
		}
		b.eachNeighbour(p[0], p[1], func(nx, ny int) {
			if !b.cells[b.index(nx, ny)].revealed {
				stack = append(stack, [2]int{nx, ny})
			}
		})
	}
}

// ToggleFlag flips the flag on a hidden cell.
func (b *Board) ToggleFlag(x, y int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.finished {
		return ErrFinished
	}
	if !b.inRange(x, y) {
		return ErrOutOfRange
	}
	c := &b.cells[b.index(x, y)]
	if c.revealed {
		return nil
	}
	c.flagged = !c.flagged
	if c.flagged {
		b.flags++
	} else {
		b.flags--
	}
	return nil
}
