package tarama

var surroundDirections = [8]Point{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// Surround captures, for a stone actor has just placed at p, every straight
// run in the eight directions that leads through empty or opponent cells to
// another of actor's stones and contains at least one opponent stone. A run
// that reaches the edge or a disabled cell captures nothing.
func Surround(b *Board, p Point, actor int) *Capture {
	capture := &Capture{}
	taken := make(map[Point]bool)

	for _, d := range surroundDirections {
		var run []Point
		opponents := 0
		closed := false
		for q := (Point{p.X + d.X, p.Y + d.Y}); b.InBounds(q); q = (Point{q.X + d.X, q.Y + d.Y}) {
			class, ok := b.classify(q, actor)
			if !ok {
				break
			}
			if class == ClassOwn {
				closed = true
				break
			}
			if class == ClassOpponent {
				opponents++
			}
			run = append(run, q)
		}
		if !closed || opponents == 0 {
			continue
		}
		for _, q := range run {
			if taken[q] {
				continue
			}
			taken[q] = true
			class, _ := b.classify(q, actor)
			former := -1
			if class == ClassOpponent {
				former = b.At(q).Owner
				capture.ScoreDelta++
			}
			capture.Enclosed = append(capture.Enclosed, q)
			capture.Disabled = append(capture.Disabled, DisabledPoint{X: q.X, Y: q.Y, Player: former, Class: class})
		}
	}

	if len(capture.Disabled) == 0 {
		return nil
	}
	b.Apply(capture)
	return capture
}
