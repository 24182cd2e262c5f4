package board

// Cell states reported in a View.
const (
	CellHidden  = "hidden"
	CellFlagged = "flagged"
	CellOpen    = "open"
	CellMine    = "mine"
)

// CellView is the client-visible state of one cell.
type CellView struct {
	State string `json:"state"`
	Count int    `json:"count,omitempty"`
}

// View is a render snapshot of a board. Rows are indexed by y.
type View struct {
	Width    int          `json:"width"`
	Height   int          `json:"height"`
	Mines    int          `json:"mines"`
	Flags    int          `json:"flags"`
	Finished bool         `json:"finished"`
	Lost     bool         `json:"lost"`
	Cells    [][]CellView `json:"cells"`
}

// View returns the current render snapshot. Mines are only exposed once
// the board is lost.
func (b *Board) View() View {
	b.mu.Lock()
	defer b.mu.Unlock()

	v := View{
		Width:    b.width,
		Height:   b.height,
		Mines:    b.mines,
		Flags:    b.flags,
		Finished: b.finished,
		Lost:     b.lost,
		Cells:    make([][]CellView, b.height),
	}
	for y := 0; y < b.height; y++ {
		row := make([]CellView, b.width)
		for x := 0; x < b.width; x++ {
			c := b.cells[b.index(x, y)]
			switch {
			case c.mine && (c.revealed || b.lost):
				row[x] = CellView{State: CellMine}
			case c.revealed:
				row[x] = CellView{State: CellOpen, Count: c.adjacent}
			case c.flagged:
				row[x] = CellView{State: CellFlagged}
			default:
				row[x] = CellView{State: CellHidden}
			}
		}
		v.Cells[y] = row
	}
	return v
}
