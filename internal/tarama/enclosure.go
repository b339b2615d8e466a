package tarama

// Capture is the outcome of a successful enclosure or surround capture.
type Capture struct {
	Path       []Point         `json:"path,omitempty"`
	Enclosed   []Point         `json:"enclosed"`
	Disabled   []DisabledPoint `json:"disabled"`
	ScoreDelta int             `json:"scoreDelta"`
}

// Evaluate validates path as an enclosure drawn by actor and computes what it
// would capture without touching the board.
func Evaluate(b *Board, path []Point, actor int) (*Capture, error) {
	if actor != 0 && actor != 1 {
		return nil, ErrInvalidPlayer
	}

	if len(path) < 4 {
		return nil, ErrTooFewPoints
	}

	seen := make(map[Point]bool, len(path))
	for _, p := range path {
		if !b.InBounds(p) {
			return nil, ErrOutOfBounds
		}
		if seen[p] {
			return nil, ErrDuplicatePoint
		}
		seen[p] = true
	}
	if !Connected(path) {
		return nil, ErrNotConnected
	}
	if !ClosedLoop(path) {
		return nil, ErrNotClosed
	}

	enclosed := InteriorPoints(path, b.Size())

	capture := &Capture{
		Path:     append([]Point(nil), path...),
		Enclosed: enclosed,
	}
	for _, p := range enclosed {
		class, ok := b.classify(p, actor)
		if !ok {
			continue
		}
		if class == ClassOpponent {
			capture.ScoreDelta++
		}
		former := -1
		if class != ClassEmpty {
			former = b.At(p).Owner
		}
		capture.Disabled = append(capture.Disabled, DisabledPoint{X: p.X, Y: p.Y, Player: former, Class: class})
	}

	if capture.ScoreDelta == 0 {
		return nil, ErrNoOpponentEnclosed
	}
	return capture, nil
}

// Apply disables the captured cells. Cells disabled in the meantime are skipped.
func (b *Board) Apply(c *Capture) {
	for _, d := range c.Disabled {
		b.Disable(Point{X: d.X, Y: d.Y}, d.Class)
	}
}

// Enclose validates path and, on success, disables everything it captures.
// A rejected path leaves the board untouched.
func Enclose(b *Board, path []Point, actor int) (*Capture, error) {
	capture, err := Evaluate(b, path, actor)
	if err != nil {
		return nil, err
	}
	b.Apply(capture)
	return capture, nil
}
