// internal/game/types.go
//
// Core type definitions for the minesweeper session controller.
// Defines:
//   - State: run state of a session (stopped/running/won/failed).
//   - Board, Reporter, BoardFactory: the contract with the minefield.
//   - Status, Change: polled and pushed views of observable state.

package game

import (
	"errors"
	"fmt"

	"github.com/robalobadob/minesweeper/apps/go-server/internal/level"
)

// State is the lifecycle phase of a session.
type State int

const (
	Stopped State = iota
	Running
	Won
	Failed
)

var stateNames = [...]string{
	Stopped: "stopped",
	Running: "running",
	Won:     "won",
	Failed:  "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether s is Won or Failed.
func (s State) Terminal() bool { return s == Won || s == Failed }

// MarshalText encodes the state as its lowercase name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText parses a lowercase state name.
func (s *State) UnmarshalText(b []byte) error {
	for i, n := range stateNames {
		if n == string(b) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", b)
}

// Reporter receives terminal outcomes from a Board.
// A Board calls Win once every safe cell is revealed, or Fail once a mine
// is revealed. Calls from a board that has since been replaced are ignored.
type Reporter interface {
	Win()
	Fail()
}

// Board is the minefield owned by a Controller.
// The controller never inspects it beyond forwarding player moves.
type Board interface {
	Reveal(x, y int) error
	ToggleFlag(x, y int) error
}

// BoardFactory builds a new board sized width x height with mines mines.
type BoardFactory func(r Reporter, width, height, mines int) Board

// Status is a point-in-time copy of a controller, suitable for polling.
type Status struct {
	State          State       `json:"state"`
	ElapsedSeconds int         `json:"elapsedSeconds"`
	TimerRunning   bool        `json:"timerRunning"`
	Level          level.Level `json:"level"`
	LevelName      string      `json:"levelName"`
	Generation     uint64      `json:"generation"`
}

// Change is pushed to subscribers whenever State, ElapsedSeconds or
// TimerRunning changes, or a new board replaces the old one.
type Change struct {
	Status
	Previous State `json:"previous"`
}

// StateChanged reports whether the run state moved.
func (c Change) StateChanged() bool { return c.Previous != c.State }

var (
	ErrNotRunning = errors.New("game is not running")
	ErrOutOfRange = errors.New("cell out of range")
)
