package tarama

type CellState int

const (
	CellEmpty CellState = iota
	CellOwned
	CellDisabled
)

type Cell struct {
	State CellState
	Owner int // meaningful only when State == CellOwned
}

// Snapshot values for the wire form of the board.
const (
	SnapshotEmpty    = -1
	SnapshotDisabled = -2
)

const DefaultWinLength = 5

type Classification string

const (
	ClassOpponent Classification = "opponent"
	ClassOwn      Classification = "own"
	ClassEmpty    Classification = "empty"
)

// DisabledPoint records a captured cell. Player is the owner the cell had
// before it was disabled, or -1 when it was empty.
type DisabledPoint struct {
	X      int            `json:"x"`
	Y      int            `json:"y"`
	Player int            `json:"player"`
	Class  Classification `json:"class"`
}

type Board struct {
	size     int
	cells    [][]Cell
	disabled []DisabledPoint
}

func NewBoard(size int) *Board {
	b := &Board{size: size}
	b.Reset()
	return b
}

func (b *Board) Reset() {
	b.cells = make([][]Cell, b.size)
	for y := range b.cells {
		b.cells[y] = make([]Cell, b.size)
	}
	b.disabled = nil
}

func (b *Board) Size() int { return b.size }

func (b *Board) InBounds(p Point) bool {
	return p.X >= 0 && p.X < b.size && p.Y >= 0 && p.Y < b.size
}

func (b *Board) At(p Point) Cell {
	return b.cells[p.Y][p.X]
}

// Place puts a stone for player on an empty cell.
func (b *Board) Place(p Point, player int) error {
	if player != 0 && player != 1 {
		return ErrInvalidPlayer
	}
	if !b.InBounds(p) {
		return ErrOutOfBounds
	}
	switch b.cells[p.Y][p.X].State {
	case CellOwned:
		return ErrCellOccupied
	case CellDisabled:
		return ErrCellDisabled
	}
	b.cells[p.Y][p.X] = Cell{State: CellOwned, Owner: player}
	return nil
}

// Disable marks a cell as captured. Disabling an already disabled cell is a
// no-op and returns false.
func (b *Board) Disable(p Point, class Classification) bool {
	if !b.InBounds(p) {
		return false
	}
	cell := b.cells[p.Y][p.X]
	if cell.State == CellDisabled {
		return false
	}
	former := -1
	if cell.State == CellOwned {
		former = cell.Owner
	}
	b.cells[p.Y][p.X] = Cell{State: CellDisabled}
	b.disabled = append(b.disabled, DisabledPoint{X: p.X, Y: p.Y, Player: former, Class: class})
	return true
}

func (b *Board) Disabled() []DisabledPoint {
	out := make([]DisabledPoint, len(b.disabled))
	copy(out, b.disabled)
	return out
}

// classify describes a cell from the point of view of actor.
func (b *Board) classify(p Point, actor int) (Classification, bool) {
	cell := b.cells[p.Y][p.X]
	switch {
	case cell.State == CellDisabled:
		return "", false
	case cell.State == CellEmpty:
		return ClassEmpty, true
	case cell.Owner == actor:
		return ClassOwn, true
	default:
		return ClassOpponent, true
	}
}

var lineDirections = [4]Point{{1, 0}, {0, 1}, {1, 1}, {-1, 1}}

// CheckWinner scans the board in row-major order for runLength consecutive
// stones of one owner horizontally, vertically or diagonally. The owner of the
// first run found wins.
func (b *Board) CheckWinner(runLength int) (int, bool) {
	if runLength <= 0 {
		runLength = DefaultWinLength
	}
	for y := 0; y < b.size; y++ {
		for x := 0; x < b.size; x++ {
			cell := b.cells[y][x]
			if cell.State != CellOwned {
				continue
			}
			for _, d := range lineDirections {
				if b.runFrom(Point{x, y}, d, cell.Owner, runLength) {
					return cell.Owner, true
				}
			}
		}
	}
	return -1, false
}

func (b *Board) runFrom(start, dir Point, owner, length int) bool {
	for i := 0; i < length; i++ {
		p := Point{start.X + dir.X*i, start.Y + dir.Y*i}
		if !b.InBounds(p) {
			return false
		}
		c := b.cells[p.Y][p.X]
		if c.State != CellOwned || c.Owner != owner {
			return false
		}
	}
	return true
}

// Snapshot renders the board row by row: -1 empty, 0 or 1 owner, -2 disabled.
func (b *Board) Snapshot() [][]int {
	out := make([][]int, b.size)
	for y, row := range b.cells {
		out[y] = make([]int, b.size)
		for x, cell := range row {
			switch cell.State {
			case CellEmpty:
				out[y][x] = SnapshotEmpty
			case CellDisabled:
				out[y][x] = SnapshotDisabled
			default:
				out[y][x] = cell.Owner
			}
		}
	}
	return out
}
