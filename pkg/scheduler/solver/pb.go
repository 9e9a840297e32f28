package solver

import (
	"context"

	"github.com/crillab/gophersat/solver"

	"github.com/paiban/planner/pkg/scheduler/cp"
)

// PBEngine 基于 gophersat 的伪布尔求解引擎
// 目标转为代价函数，由 gophersat 的 Optimal 在后台逐个给出更优解
type PBEngine struct{}

// NewPBEngine 创建伪布尔引擎
func NewPBEngine() *PBEngine {
	return &PBEngine{}
}

// Name 返回引擎名称
func (e *PBEngine) Name() string {
	return EnginePB
}

// Solve 求解模型
func (e *PBEngine) Solve(ctx context.Context, m *cp.Model, cb Callback) (*Response, error) {
	return optimize(ctx, m, newPBSearcher(m), cb)
}

// pbSearcher 在独立的 goroutine 中运行 gophersat
// gophersat 的搜索无法中途打断，提前返回后后台搜索会跑完并被丢弃
type pbSearcher struct {
	nbVars  int
	problem *solver.Problem
	solver  *solver.Solver
	results chan solver.Result
	stop    chan struct{}
	done    bool // results 已关闭
	closed  bool
}

func newPBSearcher(m *cp.Model) *pbSearcher {
	nbVars := m.NumVars()
	constrs := make([]solver.PBConstr, 0, len(m.Constraints())+1)
	for _, l := range m.Constraints() {
		constrs = append(constrs, encodeLinear(l)...)
	}
	if nbVars > 0 {
		// 下界为0的约束会被忽略，只用来让 gophersat 登记全部变量
		all := solver.PBConstr{Lits: make([]int, nbVars), AtLeast: 0}
		for i := range all.Lits {
			all.Lits[i] = i + 1
		}
		constrs = append(constrs, all)
	}

	problem := solver.ParsePBConstrs(constrs)
	if lits, weights := costFunc(m.Objective()); len(lits) > 0 {
		problem.SetCostFunc(lits, weights)
	}
	return &pbSearcher{nbVars: nbVars, problem: problem}
}

// encodeLinear 把 Lower <= Σ w·x <= Upper 编码为 gophersat 的 ≥ 约束
// 上界改写为 Σ w·¬x >= W - Upper，恒真的一侧省略
func encodeLinear(l cp.Linear) []solver.PBConstr {
	var out []solver.PBConstr
	total := l.MaxSum()
	if l.Lower > 0 {
		out = append(out, pbConstr(l.Terms, false, l.Lower))
	}
	if l.Upper < total {
		out = append(out, pbConstr(l.Terms, true, total-l.Upper))
	}
	return out
}

// pbConstr 构造约束，gophersat 的变量从1开始编号
func pbConstr(terms []cp.Term, negate bool, atLeast int) solver.PBConstr {
	c := solver.PBConstr{
		Lits:    make([]int, len(terms)),
		Weights: make([]int, len(terms)),
		AtLeast: atLeast,
	}
	for i, t := range terms {
		lit := int(t.Var) + 1
		if negate {
			lit = -lit
		}
		c.Lits[i] = lit
		c.Weights[i] = t.Coef
	}
	return c
}

// costFunc 把最大化 Σ c·x 转为 gophersat 的最小化代价
// 正系数对应 c·¬x，负系数对应 |c|·x，同一变量的系数先合并
func costFunc(objective []cp.Term) ([]solver.Lit, []int) {
	coefs := make(map[cp.Var]int)
	var order []cp.Var
	for _, t := range objective {
		if _, ok := coefs[t.Var]; !ok {
			order = append(order, t.Var)
		}
		coefs[t.Var] += t.Coef
	}

	var lits []solver.Lit
	var weights []int
	for _, v := range order {
		c := coefs[v]
		switch {
		case c > 0:
			lits = append(lits, solver.IntToLit(-int32(v+1)))
			weights = append(weights, c)
		case c < 0:
			lits = append(lits, solver.IntToLit(int32(v+1)))
			weights = append(weights, -c)
		}
	}
	return lits, weights
}

func (p *pbSearcher) start() {
	p.solver = solver.New(p.problem)
	p.results = make(chan solver.Result)
	p.stop = make(chan struct{})
	go p.solver.Optimal(p.results, p.stop)
}

func (p *pbSearcher) next(ctx context.Context) (step, cp.BoolSlice, error) {
	if p.done {
		return stepExhausted, nil, nil
	}
	if p.results == nil {
		p.start()
	}

	select {
	case <-ctx.Done():
		return stepInterrupted, nil, nil
	case res, ok := <-p.results:
		if !ok {
			p.done = true
			return stepExhausted, nil, nil
		}
		if res.Status != solver.Sat {
			// 不可满足时 Optimal 随即关闭通道
			for range p.results {
			}
			p.done = true
			return stepExhausted, nil, nil
		}
		values := make(cp.BoolSlice, p.nbVars)
		copy(values, res.Model)
		if res.Weight == 0 {
			// 代价为0即最优，Optimal 不再发送结果
			for range p.results {
			}
			p.done = true
		}
		return stepImproved, values, nil
	}
}

// counters 只有后台搜索结束后才读取统计，否则返回0
func (p *pbSearcher) counters() (int64, int64) {
	if !p.done || p.solver == nil {
		return 0, 0
	}
	return int64(p.solver.Stats.NbConflicts), int64(p.solver.Stats.NbDecisions)
}

func (p *pbSearcher) close() {
	if p.closed || p.results == nil {
		return
	}
	p.closed = true
	close(p.stop)
	if p.done {
		return
	}
	// Optimal 向无缓冲通道发送结果，丢弃剩余结果让它能够退出
	go func(results <-chan solver.Result) {
		for range results {
		}
	}(p.results)
}
