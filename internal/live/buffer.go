package live

// Point is one sample of a rolling series: milliseconds since the epoch and
// a value.
type Point struct {
	X int64   `json:"x"`
	Y float64 `json:"y"`
}

// Buffer is a fixed-capacity ring of points. Once full, each append evicts
// the oldest point.
type Buffer struct {
	points []Point
	head   int
	size   int
}

// NewBuffer creates a buffer holding at most capacity points.
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{points: make([]Point, capacity)}
}

// Append adds p, evicting the oldest point when the buffer is full.
func (b *Buffer) Append(p Point) {
	idx := (b.head + b.size) % len(b.points)
	b.points[idx] = p
	if b.size < len(b.points) {
		b.size++
		return
	}
	b.head = (b.head + 1) % len(b.points)
}

// Len returns the number of points held.
func (b *Buffer) Len() int {
	return b.size
}

// Cap returns the capacity.
func (b *Buffer) Cap() int {
	return len(b.points)
}

// Points returns the points oldest first. The slice is a copy.
func (b *Buffer) Points() []Point {
	out := make([]Point, b.size)
	for i := 0; i < b.size; i++ {
		out[i] = b.points[(b.head+i)%len(b.points)]
	}
	return out
}

// Last returns the newest point.
func (b *Buffer) Last() (Point, bool) {
	if b.size == 0 {
		return Point{}, false
	}
	return b.points[(b.head+b.size-1)%len(b.points)], true
}
