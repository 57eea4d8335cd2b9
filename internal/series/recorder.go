// Package series records the visited-percentage time series of a walk.
package series

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// DefaultLimit is the number of points retained when no limit is given.
const DefaultLimit = 2000

// Point is one sample of the series.
type Point struct {
	Step       int     `json:"step"`
	Percentage float64 `json:"percentage"`
}

// Percentage returns 100*visited/total at full precision. total must be positive.
func Percentage(visited, total int) float64 {
	return 100 * float64(visited) / float64(total)
}

// Recorder keeps the most recent points in a ring buffer, evicting the
// oldest point once the limit is reached.
type Recorder struct {
	limit int
	buf   []Point
	head  int
	n     int
}

// New returns a seeded recorder retaining at most limit points. A
// non-positive limit selects DefaultLimit.
func New(limit int) *Recorder {
	if limit <= 0 {
		limit = DefaultLimit
	}
	r := &Recorder{limit: limit, buf: make([]Point, limit)}
	r.Reset()
	return r
}

// Limit returns the retention bound.
func (r *Recorder) Limit() int { return r.limit }

// Len returns the number of retained points.
func (r *Recorder) Len() int { return r.n }

// Record appends (step, 100*visited/total). Calls with a non-positive total
// are ignored.
func (r *Recorder) Record(step, visited, total int) {
	if total <= 0 {
		return
	}
	r.push(Point{Step: step, Percentage: Percentage(visited, total)})
}

// Reset clears the series and records the seed point (0, 0).
func (r *Recorder) Reset() {
	r.head = 0
	r.n = 0
	r.push(Point{})
}

// Last returns the newest point.
func (r *Recorder) Last() Point {
	if r.n == 0 {
		return Point{}
	}
	return r.buf[(r.head+r.n-1)%r.limit]
}

// Points returns the retained points, oldest first.
func (r *Recorder) Points() []Point {
	out := make([]Point, r.n)
	for i := range out {
		out[i] = r.buf[(r.head+i)%r.limit]
	}
	return out
}

// WriteCSV writes the retained points with a step,percentage header.
func (r *Recorder) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"step", "percentage"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, p := range r.Points() {
		row := []string{strconv.Itoa(p.Step), strconv.FormatFloat(p.Percentage, 'f', -1, 64)}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row at step %d: %w", p.Step, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func (r *Recorder) push(p Point) {
	if r.buf == nil {
		// Zero-value recorder.
		r.limit = DefaultLimit
		r.buf = make([]Point, r.limit)
	}
	if r.n < r.limit {
		r.buf[(r.head+r.n)%r.limit] = p
		r.n++
		return
	}
	r.buf[r.head] = p
	r.head = (r.head + 1) % r.limit
}
