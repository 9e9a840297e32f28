// Package solver 定义约束求解引擎契约和内置后端
package solver

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/paiban/planner/pkg/errors"
	"github.com/paiban/planner/pkg/scheduler/cp"
)

// 引擎名称
const (
	EnginePB  = "pb"  // gophersat 伪布尔求解
	EngineSAT = "sat" // gini 增量 SAT + 基数排序网络

	DefaultEngine = EnginePB
)

// ErrNoSolution 响应中没有可读取的解
var ErrNoSolution = errors.New("求解器没有找到解")

// Status 求解状态
type Status int

const (
	StatusUnknown Status = iota
	StatusOptimal
	StatusFeasible
	StatusInfeasible
)

// String 返回状态名称
func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "OPTIMAL"
	case StatusFeasible:
		return "FEASIBLE"
	case StatusInfeasible:
		return "INFEASIBLE"
	default:
		return "UNKNOWN"
	}
}

// MarshalText 以名称序列化状态
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// HasSolution 是否带有可用的解
func (s Status) HasSolution() bool {
	return s == StatusOptimal || s == StatusFeasible
}

// Statistics 求解统计
type Statistics struct {
	Objective  int           `json:"objective"`
	Conflicts  int64         `json:"conflicts"`
	Branches   int64         `json:"branches"`
	WallTime   time.Duration `json:"wall_time"`
	Candidates int           `json:"candidates"`
}

// Response 求解结果
type Response struct {
	Status Status       `json:"status"`
	Values cp.BoolSlice `json:"-"`
	Stats  Statistics   `json:"stats"`
}

// Solution 返回解的取值，没有解时返回 ErrNoSolution
func (r *Response) Solution() (cp.BoolSlice, error) {
	if r == nil || !r.Status.HasSolution() {
		return nil, ErrNoSolution
	}
	return r.Values, nil
}

// Candidate 搜索过程中发现的改进解
type Candidate struct {
	Index     int // 从0开始
	Objective int
	Values    cp.Values
}

// Callback 每发现一个改进解时同步调用，返回 true 请求停止搜索
type Callback func(c *Candidate) bool

// Engine 求解引擎接口
type Engine interface {
	// Name 返回引擎名称
	Name() string

	// Solve 求解模型并最大化目标
	// 上下文结束时尽快返回已找到的最好解，状态为 FEASIBLE 或 UNKNOWN
	Solve(ctx context.Context, m *cp.Model, cb Callback) (*Response, error)
}

// New 按名称创建引擎，空名称使用默认引擎
func New(name string) (Engine, error) {
	switch name {
	case "", EnginePB:
		return NewPBEngine(), nil
	case EngineSAT:
		return NewSATEngine(), nil
	default:
		return nil, apperrors.Configuration(fmt.Sprintf("未知的求解引擎: %s", name))
	}
}

// Names 返回全部内置引擎名称
func Names() []string {
	return []string{EnginePB, EngineSAT}
}

// step 后端一次搜索的结果
type step int

const (
	stepImproved    step = iota // 找到目标值更高的解
	stepExhausted               // 不存在更优的解
	stepInterrupted             // 上下文结束
)

// searcher 后端逐个给出目标值严格递增的解
type searcher interface {
	// next 阻塞到找到更优解、证明不存在更优解或上下文结束为止
	next(ctx context.Context) (step, cp.BoolSlice, error)

	// counters 返回累计的冲突数和分支数
	counters() (conflicts, branches int64)

	// close 释放后台搜索，可重复调用
	close()
}

// optimize 驱动后端搜索，每个更优解交给回调
func optimize(ctx context.Context, m *cp.Model, s searcher, cb Callback) (*Response, error) {
	start := time.Now()
	resp := &Response{Status: StatusUnknown}
	maxObj := m.MaxObjective()

loop:
	for {
		if ctx.Err() != nil {
			if resp.Values != nil {
				resp.Status = StatusFeasible
			}
			break
		}

		res, values, err := s.next(ctx)
		if err != nil {
			s.close()
			return nil, apperrors.Wrap(err, apperrors.CodeSolverFailed, "求解器执行失败")
		}

		switch res {
		case stepInterrupted:
			if resp.Values != nil {
				resp.Status = StatusFeasible
			}
			break loop
		case stepExhausted:
			if resp.Values == nil {
				resp.Status = StatusInfeasible
			} else {
				resp.Status = StatusOptimal
			}
			break loop
		}

		obj := m.ObjectiveValue(values)
		resp.Values = values
		resp.Stats.Objective = obj

		cand := &Candidate{Index: resp.Stats.Candidates, Objective: obj, Values: values}
		resp.Stats.Candidates++
		stop := cb != nil && cb(cand)

		if obj >= maxObj {
			resp.Status = StatusOptimal
			break
		}
		if stop {
			resp.Status = StatusFeasible
			break
		}
	}

	s.close()
	resp.Stats.Conflicts, resp.Stats.Branches = s.counters()
	resp.Stats.WallTime = time.Since(start)
	return resp, nil
}

// expand 把系数大于1的项展开为重复的变量
func expand(terms []cp.Term) []cp.Var {
	var out []cp.Var
	for _, t := range terms {
		for i := 0; i < t.Coef; i++ {
			out = append(out, t.Var)
		}
	}
	return out
}
