// Package planner 组合公平性、约束、目标和求解引擎，生成排班方案
package planner

import (
	"context"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/paiban/planner/pkg/errors"
	"github.com/paiban/planner/pkg/logger"
	"github.com/paiban/planner/pkg/model"
	"github.com/paiban/planner/pkg/scheduler/constraint"
	"github.com/paiban/planner/pkg/scheduler/cp"
	"github.com/paiban/planner/pkg/scheduler/fairness"
	"github.com/paiban/planner/pkg/scheduler/objective"
	"github.com/paiban/planner/pkg/scheduler/solver"
)

// Planner 排班规划器
type Planner struct {
	engine  solver.Engine
	manager *constraint.Manager
	logger  *logger.PlannerLogger
}

// Option 规划器选项
type Option func(*Planner)

// WithManager 使用自定义约束管理器
func WithManager(m *constraint.Manager) Option {
	return func(p *Planner) {
		p.manager = m
	}
}

// New 创建规划器，默认注册全部内置硬约束
func New(engine solver.Engine, opts ...Option) *Planner {
	p := &Planner{
		engine: engine,
		logger: logger.NewPlannerLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.manager == nil {
		p.manager = constraint.NewDefaultManager()
	}
	return p
}

// Engine 返回求解引擎
func (p *Planner) Engine() solver.Engine {
	return p.engine
}

// Formulation 构建完成的模型
type Formulation struct {
	Schedule *model.Schedule
	Fairness *fairness.Report
	Context  *constraint.Context
	MaxScore int
}

// Model 返回布尔约束模型
func (f *Formulation) Model() *cp.Model {
	return f.Context.Model
}

// Formulate 计算公平性界并构建约束和目标
func (p *Planner) Formulate(s *model.Schedule) (*Formulation, error) {
	fr, err := fairness.Calculate(s)
	if err != nil {
		return nil, err
	}

	ctx := constraint.NewContext(s, fr)
	if err := p.manager.Build(ctx); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "构建约束失败")
	}

	return &Formulation{
		Schedule: s,
		Fairness: fr,
		Context:  ctx,
		MaxScore: objective.Apply(ctx.Model, s, ctx.Vars),
	}, nil
}

// Solve 求解排班
// 无解不是错误，返回的 Plan 状态为 INFEASIBLE 或 UNKNOWN
func (p *Planner) Solve(ctx context.Context, s *model.Schedule, onCandidate CandidateFunc) (*Plan, error) {
	start := time.Now()
	id := uuid.New()
	p.logger.StartSolve(id.String(), p.engine.Name(), s.NumUsers(), s.NumDays(), s.NumShifts())

	f, err := p.Formulate(s)
	if err != nil {
		return nil, err
	}
	m := f.Model()
	p.logger.ModelBuilt(id.String(), m.NumVars(), len(m.Constraints()), f.MaxScore)

	cb := func(c *solver.Candidate) bool {
		p.logger.Candidate(id.String(), c.Index, c.Objective)
		if onCandidate == nil {
			return false
		}
		return onCandidate(&Candidate{
			Index:       c.Index,
			Objective:   c.Objective,
			Days:        dayLabels(s),
			Assignments: f.Assignments(c.Values),
			Tallies:     f.Tallies(c.Values),
		})
	}

	resp, err := p.engine.Solve(ctx, m, cb)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		ID:        id,
		Engine:    p.engine.Name(),
		Status:    resp.Status,
		Days:      dayLabels(s),
		Shifts:    shiftLabels(s),
		Target:    f.Fairness.Target,
		Bounds:    f.Fairness.Bounds(),
		MaxScore:  f.MaxScore,
		Stats:     resp.Stats,
		CreatedAt: start,
	}

	if values, err := resp.Solution(); err == nil {
		result := p.manager.Evaluate(f.Context, values)
		if !result.IsValid {
			return nil, apperrors.New(apperrors.CodeInternal, "求解结果违反硬约束").
				WithField("violations", len(result.HardViolations)).
				WithDetails(result.HardViolations[0].Message)
		}
		plan.Assignments = f.Assignments(values)
		plan.Tallies = f.Tallies(values)
	}

	p.logger.SolveComplete(id.String(), plan.Status.String(), time.Since(start), plan.Score())
	return plan, nil
}

// Assignments 按 (day, shift) 顺序列出取值中的分配
func (f *Formulation) Assignments(values cp.Values) []Assignment {
	s := f.Schedule
	vs := f.Context.Vars
	out := make([]Assignment, 0, s.SlotCount())
	for d, day := range s.Days {
		for sh, shift := range s.Shifts {
			for u, user := range s.Users {
				if !vs.Assigned(values, u, d, sh) {
					continue
				}
				out = append(out, Assignment{
					Day:        d,
					Shift:      sh,
					User:       u,
					DayLabel:   day.Label,
					ShiftLabel: shift.Label,
					UserLabel:  user.Name,
					Unwanted:   !s.Preferred(u, d, sh),
				})
			}
		}
	}
	return out
}

// Tallies 按用户顺序统计班次数
func (f *Formulation) Tallies(values cp.Values) []Tally {
	s := f.Schedule
	vs := f.Context.Vars
	out := make([]Tally, s.NumUsers())
	for u, user := range s.Users {
		t := Tally{
			User:      u,
			UserLabel: user.Name,
			Ratio:     f.Fairness.Users[u].Ratio,
			Bound:     f.Fairness.Bound(u),
		}
		for d := range s.Days {
			for sh := range s.Shifts {
				if vs.Assigned(values, u, d, sh) {
					t.Shifts++
					if !s.Preferred(u, d, sh) {
						t.Unwanted++
					}
				}
			}
		}
		out[u] = t
	}
	return out
}

func dayLabels(s *model.Schedule) []string {
	out := make([]string, len(s.Days))
	for i, d := range s.Days {
		out[i] = d.Label
	}
	return out
}

func shiftLabels(s *model.Schedule) []string {
	out := make([]string, len(s.Shifts))
	for i, sh := range s.Shifts {
		out[i] = sh.Label
	}
	return out
}
