// internal/level/level.go
//
// Difficulty presets and level normalization.
// Responsibilities:
//   - Define the Level triple (width, height, mines) used to size a board.
//   - Expose the read-only preset registry (beginner, intermediate, expert).
//   - Normalize arbitrary client input into a legal Level.
//
// Bounds:
//   - 9 ≤ width ≤ 30, 9 ≤ height ≤ 24
//   - 10 ≤ mines ≤ floor(width*height*0.85)

package level

import "math"

const (
	MinWidth  = 9
	MaxWidth  = 30
	MinHeight = 9
	MaxHeight = 24
	MinMines  = 10

	// MaxDensity caps the share of cells that may hold a mine.
	MaxDensity = 0.85

	defaultWidth  = MinWidth
	defaultHeight = MinHeight
	defaultMines  = MinMines
)

// Level describes the size and mine count of a board.
type Level struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	Mines  int `json:"mines"`
}

var (
	Beginner     = Level{Width: 9, Height: 9, Mines: 12}
	Intermediate = Level{Width: 16, Height: 16, Mines: 40}
	Expert       = Level{Width: 30, Height: 16, Mines: 99}
)

// Preset pairs a registry name with its level.
type Preset struct {
	Name  string `json:"name"`
	Level Level  `json:"level"`
}

// CustomName is reported by Name for levels that match no preset.
const CustomName = "custom"

// Presets returns the registry in difficulty order.
// The slice is freshly allocated; callers may modify it.
func Presets() []Preset {
	return []Preset{
		{Name: "beginner", Level: Beginner},
		{Name: "intermediate", Level: Intermediate},
		{Name: "expert", Level: Expert},
	}
}

// Lookup finds a preset by name.
func Lookup(name string) (Level, bool) {
	for _, p := range Presets() {
		if p.Name == name {
			return p.Level, true
		}
	}
	return Level{}, false
}

// Name returns the preset name for l, or CustomName.
func Name(l Level) string {
	for _, p := range Presets() {
		if p.Level.Equal(l) {
			return p.Name
		}
	}
	return CustomName
}

// Equal reports exact structural equality.
func (l Level) Equal(o Level) bool {
	return l.Width == o.Width && l.Height == o.Height && l.Mines == o.Mines
}

// Valid reports whether l already satisfies every bound.
func (l Level) Valid() bool {
	return l.Width >= MinWidth && l.Width <= MaxWidth &&
		l.Height >= MinHeight && l.Height <= MaxHeight &&
		l.Mines >= MinMines && l.Mines <= maxMines(l.Width, l.Height)
}

// Normalize turns untrusted input into a legal Level.
//
// Zero and negative values are treated as unset and replaced by the
// defaults (9, 9, 10) before clamping. The mine count is then capped at
// floor(width*height*0.85).
func Normalize(c Level) Level {
	w := clamp(orDefault(c.Width, defaultWidth), MinWidth, MaxWidth)
	h := clamp(orDefault(c.Height, defaultHeight), MinHeight, MaxHeight)
	m := max(MinMines, orDefault(c.Mines, defaultMines))
	return Level{Width: w, Height: h, Mines: min(m, maxMines(w, h))}
}

func maxMines(w, h int) int {
	return int(math.Floor(float64(w*h) * MaxDensity))
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func clamp(v, lo, hi int) int {
	return min(hi, max(lo, v))
}
