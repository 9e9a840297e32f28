package solver

import (
	"context"
	"time"

	"github.com/go-air/gini"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"

	"github.com/paiban/planner/pkg/scheduler/cp"
)

// pollInterval 后台求解时检查上下文的间隔
const pollInterval = 10 * time.Millisecond

// SATEngine 基于 gini 的增量 SAT 引擎
// 线性约束用基数排序网络编码，目标下界通过假设传入
type SATEngine struct{}

// NewSATEngine 创建 SAT 引擎
func NewSATEngine() *SATEngine {
	return &SATEngine{}
}

// Name 返回引擎名称
func (e *SATEngine) Name() string {
	return EngineSAT
}

// Solve 求解模型
func (e *SATEngine) Solve(ctx context.Context, m *cp.Model, cb Callback) (*Response, error) {
	return optimize(ctx, m, newSATSearcher(m), cb)
}

// satSearcher 持有 gini 实例和目标排序网络
type satSearcher struct {
	g         *gini.Gini
	lits      []z.Lit
	objective *logic.CardSort
	objVars   []cp.Var // 按系数展开的目标变量
	objSize   int
	bound     int  // 下一个解的目标下界
	unsat     bool // 存在平凡不可满足的约束
	conflicts int64
	branches  int64
}

func newSATSearcher(m *cp.Model) *satSearcher {
	c := logic.NewC()
	p := &satSearcher{g: gini.New(), lits: make([]z.Lit, m.NumVars())}
	for i := range p.lits {
		p.lits[i] = c.Lit()
	}

	var roots []z.Lit
	for _, l := range m.Constraints() {
		ms := p.toLits(expand(l.Terms))
		n := len(ms)
		if l.Lower > n || l.Upper < 0 {
			p.unsat = true
			continue
		}
		if l.Lower <= 0 && l.Upper >= n {
			continue
		}
		cs := c.CardSort(ms)
		if l.Upper < n {
			roots = append(roots, cs.Leq(l.Upper))
		}
		if l.Lower > 0 {
			roots = append(roots, cs.Leq(l.Lower-1).Not())
		}
	}

	p.objVars = expand(m.Objective())
	if obj := p.toLits(p.objVars); len(obj) > 0 {
		p.objective = c.CardSort(obj)
		p.objSize = len(obj)
	}

	c.ToCnf(p.g)
	for _, r := range roots {
		p.g.Add(r)
		p.g.Add(0)
	}
	return p
}

func (p *satSearcher) toLits(vars []cp.Var) []z.Lit {
	out := make([]z.Lit, len(vars))
	for i, v := range vars {
		out[i] = p.lits[v]
	}
	return out
}

func (p *satSearcher) next(ctx context.Context) (step, cp.BoolSlice, error) {
	if p.unsat || p.bound > p.objSize {
		return stepExhausted, nil, nil
	}
	if p.bound > 0 {
		p.g.Assume(p.objective.Leq(p.bound - 1).Not())
	}

	p.branches++
	switch solveCtx(ctx, p.g) {
	case 1:
		values := make(cp.BoolSlice, len(p.lits))
		for i, lit := range p.lits {
			values[i] = p.g.Value(lit)
		}
		p.bound = 1
		for _, v := range p.objVars {
			if values[v] {
				p.bound++
			}
		}
		return stepImproved, values, nil
	case -1:
		if p.bound > 0 {
			p.conflicts++
		}
		return stepExhausted, nil, nil
	default:
		return stepInterrupted, nil, nil
	}
}

func (p *satSearcher) counters() (int64, int64) {
	return p.conflicts, p.branches
}

func (p *satSearcher) close() {}

// solveCtx 在后台求解，上下文结束时停止 gini 并返回0
func solveCtx(ctx context.Context, g *gini.Gini) int {
	if ctx.Err() != nil {
		return 0
	}
	sv := g.GoSolve()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		if res, ok := sv.Test(); ok {
			return res
		}
		select {
		case <-ctx.Done():
			return sv.Stop()
		case <-ticker.C:
		}
	}
}
