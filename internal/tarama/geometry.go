package tarama

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Adjacent reports whether a and b are distinct king-move neighbours
// (distance 1 orthogonally or sqrt(2) diagonally).
func Adjacent(a, b Point) bool {
	dx, dy := abs(a.X-b.X), abs(a.Y-b.Y)
	return dx <= 1 && dy <= 1 && dx+dy > 0
}

func neighbourCount(p Point, points []Point) int {
	count := 0
	for _, q := range points {
		if Adjacent(p, q) {
			count++
		}
	}
	return count
}

// Connected reports whether every point has at least one neighbour in the set.
// It is a local check; two separate clumps both pass.
func Connected(points []Point) bool {
	if len(points) < 2 {
		return false
	}
	for _, p := range points {
		if neighbourCount(p, points) == 0 {
			return false
		}
	}
	return true
}

// ClosedLoop reports whether every point has at least two neighbours in the set.
func ClosedLoop(points []Point) bool {
	if len(points) < 2 {
		return false
	}
	for _, p := range points {
		if neighbourCount(p, points) < 2 {
			return false
		}
	}
	return true
}

// InPolygon is an even-odd ray cast from p towards +x against the polygon
// whose vertices are given in order. Edges are tested in exact integer
// arithmetic; a point exactly on the crossing x is outside.
func InPolygon(p Point, polygon []Point) bool {
	inside := false
	for i, j := 0, len(polygon)-1; i < len(polygon); j, i = i, i+1 {
		a, b := polygon[i], polygon[j]
		if (a.Y > p.Y) == (b.Y > p.Y) {
			continue
		}
		// p.X < a.X + (p.Y-a.Y)*(b.X-a.X)/(b.Y-a.Y), cleared of the division.
		dy := b.Y - a.Y
		lhs := (p.X - a.X) * dy
		rhs := (p.Y - a.Y) * (b.X - a.X)
		if (dy > 0 && lhs < rhs) || (dy < 0 && lhs > rhs) {
			inside = !inside
		}
	}
	return inside
}

// InteriorPoints returns the grid cells of a size x size board that lie
// inside the polygon, excluding the polygon's own vertices, in row-major order.
func InteriorPoints(polygon []Point, size int) []Point {
	vertices := make(map[Point]bool, len(polygon))
	minX, minY, maxX, maxY := size, size, -1, -1
	for _, v := range polygon {
		vertices[v] = true
		minX, maxX = min(minX, v.X), max(maxX, v.X)
		minY, maxY = min(minY, v.Y), max(maxY, v.Y)
	}
	minX, minY = max(minX, 0), max(minY, 0)
	maxX, maxY = min(maxX, size-1), min(maxY, size-1)

	var interior []Point
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			p := Point{X: x, Y: y}
			if vertices[p] {
				continue
			}
			if InPolygon(p, polygon) {
				interior = append(interior, p)
			}
		}
	}
	return interior
}
