package planner

import (
	"time"

	"github.com/google/uuid"

	"github.com/paiban/planner/pkg/scheduler/fairness"
	"github.com/paiban/planner/pkg/scheduler/solver"
)

// Assignment 一个 (day, shift) 单元的分配结果
type Assignment struct {
	Day        int    `json:"day"`
	Shift      int    `json:"shift"`
	User       int    `json:"user"`
	DayLabel   string `json:"day_label"`
	ShiftLabel string `json:"shift_label"`
	UserLabel  string `json:"user_label"`
	Unwanted   bool   `json:"unwanted"`
}

// Tally 用户的班次合计
type Tally struct {
	User      int            `json:"user"`
	UserLabel string         `json:"user_label"`
	Shifts    int            `json:"shifts"`
	Unwanted  int            `json:"unwanted"`
	Ratio     fairness.Ratio `json:"ratio"`
	Bound     fairness.Bound `json:"bound"`
}

// Plan 一次求解的完整结果
// 无解时 Assignments 和 Tallies 为空
type Plan struct {
	ID          uuid.UUID         `json:"id"`
	Engine      string            `json:"engine"`
	Status      solver.Status     `json:"status"`
	Days        []string          `json:"days"`
	Shifts      []string          `json:"shifts"`
	Assignments []Assignment      `json:"assignments"`
	Tallies     []Tally           `json:"tallies"`
	Target      fairness.Target   `json:"target"`
	Bounds      []fairness.Bound  `json:"bounds"`
	MaxScore    int               `json:"max_score"`
	Stats       solver.Statistics `json:"stats"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Solved 是否带有可用的排班
func (p *Plan) Solved() bool {
	return p.Status.HasSolution()
}

// Score 偏好满足度分数
func (p *Plan) Score() int {
	return p.Stats.Objective
}

// DayAssignments 按天分组的分配结果，保持 (day, shift) 顺序
func (p *Plan) DayAssignments() [][]Assignment {
	return groupByDay(p.Assignments, len(p.Days))
}

// Candidate 搜索过程中的中间解
type Candidate struct {
	Index       int
	Objective   int
	Days        []string
	Assignments []Assignment
	Tallies     []Tally
}

// DayAssignments 按天分组的分配结果
func (c *Candidate) DayAssignments() [][]Assignment {
	return groupByDay(c.Assignments, len(c.Days))
}

// CandidateFunc 处理中间解，返回 true 请求停止搜索
type CandidateFunc func(c *Candidate) bool

func groupByDay(assignments []Assignment, days int) [][]Assignment {
	out := make([][]Assignment, days)
	for _, a := range assignments {
		out[a.Day] = append(out[a.Day], a)
	}
	return out
}
