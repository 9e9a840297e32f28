package solver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/paiban/planner/pkg/errors"
	"github.com/paiban/planner/pkg/scheduler/cp"
)

// engines 每个测试都在全部后端上运行
func engines(t *testing.T) []Engine {
	t.Helper()
	var out []Engine
	for _, name := range Names() {
		e, err := New(name)
		require.NoError(t, err)
		out = append(out, e)
	}
	return out
}

// exactlyOneModel 三个变量恰好一个为真，偏好 b 或 c
func exactlyOneModel(t *testing.T) *cp.Model {
	t.Helper()
	m := cp.NewModel()
	a := m.NewBoolVar("a")
	b := m.NewBoolVar("b")
	c := m.NewBoolVar("c")
	require.NoError(t, m.AddExactly("one", []cp.Var{a, b, c}, 1))
	m.Maximize([]cp.Term{{Var: b, Coef: 1}, {Var: c, Coef: 1}})
	return m
}

func TestNew(t *testing.T) {
	e, err := New("")
	require.NoError(t, err)
	assert.Equal(t, DefaultEngine, e.Name())

	e, err = New(EngineSAT)
	require.NoError(t, err)
	assert.Equal(t, EngineSAT, e.Name())

	_, err = New("cp-sat")
	assert.True(t, apperrors.Is(err, apperrors.CodeConfiguration))
}

func TestStatus(t *testing.T) {
	assert.True(t, StatusOptimal.HasSolution())
	assert.True(t, StatusFeasible.HasSolution())
	assert.False(t, StatusInfeasible.HasSolution())
	assert.False(t, StatusUnknown.HasSolution())
	assert.Equal(t, "INFEASIBLE", StatusInfeasible.String())

	_, err := (&Response{Status: StatusInfeasible}).Solution()
	assert.ErrorIs(t, err, ErrNoSolution)
}

func TestSolve_Optimal(t *testing.T) {
	for _, e := range engines(t) {
		t.Run(e.Name(), func(t *testing.T) {
			m := exactlyOneModel(t)
			resp, err := e.Solve(context.Background(), m, nil)
			require.NoError(t, err)

			assert.Equal(t, StatusOptimal, resp.Status)
			assert.Equal(t, 1, resp.Stats.Objective)
			assert.GreaterOrEqual(t, resp.Stats.Candidates, 1)

			values, err := resp.Solution()
			require.NoError(t, err)
			for _, l := range m.Constraints() {
				assert.True(t, l.Satisfied(values), l.Name)
			}
			assert.False(t, values.Value(0), "a 不在目标中，最优解不应选 a")
		})
	}
}

func TestSolve_WeightedRange(t *testing.T) {
	for _, e := range engines(t) {
		t.Run(e.Name(), func(t *testing.T) {
			m := cp.NewModel()
			vars := make([]cp.Var, 5)
			terms := make([]cp.Term, 5)
			for i := range vars {
				vars[i] = m.NewBoolVar("x")
				terms[i] = cp.Term{Var: vars[i], Coef: 1}
			}
			require.NoError(t, m.AddRange("range", vars, 2, 3))
			require.NoError(t, m.AddFixed("fix", vars[4], false))
			require.NoError(t, m.AddLinear("weighted", []cp.Term{{Var: vars[0], Coef: 2}, {Var: vars[1], Coef: 1}}, 0, 2))
			m.Maximize(terms)

			resp, err := e.Solve(context.Background(), m, nil)
			require.NoError(t, err)
			assert.Equal(t, StatusOptimal, resp.Status)
			assert.Equal(t, 3, resp.Stats.Objective)
			for _, l := range m.Constraints() {
				assert.True(t, l.Satisfied(resp.Values), l.Name)
			}
		})
	}
}

func TestSolve_Infeasible(t *testing.T) {
	for _, e := range engines(t) {
		t.Run(e.Name(), func(t *testing.T) {
			m := cp.NewModel()
			a := m.NewBoolVar("a")
			b := m.NewBoolVar("b")
			require.NoError(t, m.AddAtLeast("two", []cp.Var{a, b}, 2))
			require.NoError(t, m.AddAtMost("one", []cp.Var{a, b}, 1))

			resp, err := e.Solve(context.Background(), m, nil)
			require.NoError(t, err)
			assert.Equal(t, StatusInfeasible, resp.Status)
			assert.Equal(t, 0, resp.Stats.Candidates)
			_, err = resp.Solution()
			assert.ErrorIs(t, err, ErrNoSolution)
		})
	}
}

func TestSolve_TriviallyInfeasible(t *testing.T) {
	for _, e := range engines(t) {
		t.Run(e.Name(), func(t *testing.T) {
			m := cp.NewModel()
			a := m.NewBoolVar("a")
			require.NoError(t, m.AddAtLeast("impossible", []cp.Var{a}, 2))

			resp, err := e.Solve(context.Background(), m, nil)
			require.NoError(t, err)
			assert.Equal(t, StatusInfeasible, resp.Status)
		})
	}
}

func TestSolve_NoObjective(t *testing.T) {
	for _, e := range engines(t) {
		t.Run(e.Name(), func(t *testing.T) {
			m := cp.NewModel()
			a := m.NewBoolVar("a")
			require.NoError(t, m.AddFixed("fix", a, true))

			resp, err := e.Solve(context.Background(), m, nil)
			require.NoError(t, err)
			assert.Equal(t, StatusOptimal, resp.Status)
			assert.Equal(t, 0, resp.Stats.Objective)
			assert.True(t, resp.Values.Value(a))
		})
	}
}

func TestSolve_CallbackIndices(t *testing.T) {
	for _, e := range engines(t) {
		t.Run(e.Name(), func(t *testing.T) {
			m := exactlyOneModel(t)
			var seen []int
			last := -1
			resp, err := e.Solve(context.Background(), m, func(c *Candidate) bool {
				seen = append(seen, c.Index)
				assert.Greater(t, c.Objective, last, "候选解必须严格改进")
				last = c.Objective
				return false
			})
			require.NoError(t, err)
			require.NotEmpty(t, seen)
			for i, idx := range seen {
				assert.Equal(t, i, idx)
			}
			assert.Equal(t, len(seen), resp.Stats.Candidates)
		})
	}
}

func TestSolve_CallbackStop(t *testing.T) {
	for _, e := range engines(t) {
		t.Run(e.Name(), func(t *testing.T) {
			// 目标上界为4，但硬约束只允许选2个，第一个候选解不可能达到上界
			m := cp.NewModel()
			vars := make([]cp.Var, 4)
			terms := make([]cp.Term, 4)
			for i := range vars {
				vars[i] = m.NewBoolVar("x")
				terms[i] = cp.Term{Var: vars[i], Coef: 1}
			}
			require.NoError(t, m.AddAtMost("cap", vars, 2))
			m.Maximize(terms)

			calls := 0
			resp, err := e.Solve(context.Background(), m, func(c *Candidate) bool {
				calls++
				return true
			})
			require.NoError(t, err)
			assert.Equal(t, 1, calls)
			assert.Equal(t, StatusFeasible, resp.Status)
			assert.True(t, resp.Status.HasSolution())
		})
	}
}

func TestSolve_CancelledContext(t *testing.T) {
	for _, e := range engines(t) {
		t.Run(e.Name(), func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			resp, err := e.Solve(ctx, exactlyOneModel(t), nil)
			require.NoError(t, err)
			assert.Equal(t, StatusUnknown, resp.Status)
			assert.Nil(t, resp.Values)
		})
	}
}

// pigeonholeModel n+1 个用户各至少占一个班次，n 个班次各至多一人
// 不可满足，且证明不可满足所需的搜索随 n 指数增长
func pigeonholeModel(t *testing.T, n int) *cp.Model {
	t.Helper()
	m := cp.NewModel()
	x := make([][]cp.Var, n+1)
	var terms []cp.Term
	for u := range x {
		x[u] = make([]cp.Var, n)
		for s := range x[u] {
			x[u][s] = m.NewBoolVar("x")
			terms = append(terms, cp.Term{Var: x[u][s], Coef: 1})
		}
		require.NoError(t, m.AddAtLeast("user", x[u], 1))
	}
	for s := 0; s < n; s++ {
		col := make([]cp.Var, n+1)
		for u := range x {
			col[u] = x[u][s]
		}
		require.NoError(t, m.AddAtMost("shift", col, 1))
	}
	m.Maximize(terms)
	return m
}

func TestSolve_DeadlineInterruptsSearch(t *testing.T) {
	for _, e := range engines(t) {
		t.Run(e.Name(), func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			start := time.Now()
			resp, err := e.Solve(ctx, pigeonholeModel(t, 10), nil)
			elapsed := time.Since(start)

			require.NoError(t, err)
			assert.Equal(t, StatusUnknown, resp.Status)
			assert.Nil(t, resp.Values)
			assert.Less(t, elapsed, time.Second, "截止时间到达后应立即返回")
		})
	}
}

func TestCostFunc(t *testing.T) {
	lits, weights := costFunc([]cp.Term{
		{Var: 0, Coef: 2},
		{Var: 1, Coef: -3},
		{Var: 0, Coef: 1},
		{Var: 2, Coef: 1},
		{Var: 2, Coef: -1},
	})
	require.Len(t, lits, 2)
	// 正系数取反，负系数保持原样，抵消为0的变量不出现
	assert.Equal(t, int32(-1), lits[0].Int())
	assert.Equal(t, int32(2), lits[1].Int())
	assert.Equal(t, []int{3, 3}, weights)
}
