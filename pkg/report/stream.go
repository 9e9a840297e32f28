package report

import (
	"fmt"
	"io"
	"sync"

	"github.com/paiban/planner/pkg/scheduler/planner"
)

// Streamer 输出选定序号的中间解
// 全部选定序号都出现过之后请求停止搜索
type Streamer struct {
	mu       sync.Mutex
	w        io.Writer
	selected map[int]bool
	seen     map[int]bool
	err      error
}

// NewStreamer 创建中间解输出器，重复的序号只计一次
func NewStreamer(w io.Writer, indices []int) *Streamer {
	s := &Streamer{
		w:        w,
		selected: make(map[int]bool, len(indices)),
		seen:     make(map[int]bool, len(indices)),
	}
	for _, i := range indices {
		s.selected[i] = true
	}
	return s
}

// OnCandidate 实现 planner.CandidateFunc
func (s *Streamer) OnCandidate(c *planner.Candidate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.selected) == 0 {
		return false
	}
	if s.selected[c.Index] {
		s.seen[c.Index] = true
		s.write(c)
	}
	return len(s.seen) == len(s.selected)
}

// Err 返回第一个写入错误
func (s *Streamer) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Streamer) write(c *planner.Candidate) {
	if s.err != nil {
		return
	}
	w := &errWriter{w: s.w}
	fmt.Fprintf(w, "Solution %d\n", c.Index)
	writeDays(w, c.Days, c.DayAssignments(), false)
	fmt.Fprintf(w, "Repartition %d\n", c.Index)
	for _, t := range c.Tallies {
		fmt.Fprintf(w, "  %-15s %d\n", t.UserLabel, t.Shifts)
	}
	fmt.Fprintln(w)
	s.err = w.err
}

// errWriter 记录第一个错误，之后的写入直接丢弃
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}
