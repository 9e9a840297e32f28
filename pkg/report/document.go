package report

import (
	"time"

	"github.com/paiban/planner/pkg/scheduler/fairness"
	"github.com/paiban/planner/pkg/scheduler/planner"
	"github.com/paiban/planner/pkg/stats"
)

// Document 排班结果的 JSON 文档
type Document struct {
	ID         string                 `json:"id"`
	Engine     string                 `json:"engine"`
	Status     string                 `json:"status"`
	Score      int                    `json:"score"`
	MaxScore   int                    `json:"max_score"`
	Target     fairness.Target        `json:"target"`
	Days       []DayDocument          `json:"days"`
	Users      []planner.Tally        `json:"users"`
	Statistics StatisticsDocument     `json:"statistics"`
	Fairness   *stats.FairnessMetrics `json:"fairness,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

// DayDocument 一天的排班
type DayDocument struct {
	Label  string          `json:"label"`
	Shifts []ShiftDocument `json:"shifts"`
}

// ShiftDocument 一个班次的分配
type ShiftDocument struct {
	Shift    string `json:"shift"`
	User     string `json:"user"`
	Unwanted bool   `json:"unwanted,omitempty"`
}

// StatisticsDocument 求解统计
type StatisticsDocument struct {
	Score      int     `json:"score"`
	Conflicts  int64   `json:"conflicts"`
	Branches   int64   `json:"branches"`
	WallTime   float64 `json:"wall_time_seconds"`
	Candidates int     `json:"candidates"`
}

// NewDocument 从排班结果构造文档
func NewDocument(plan *planner.Plan) *Document {
	doc := &Document{
		ID:       plan.ID.String(),
		Engine:   plan.Engine,
		Status:   plan.Status.String(),
		Score:    plan.Score(),
		MaxScore: plan.MaxScore,
		Target:   plan.Target,
		Days:     make([]DayDocument, 0),
		Users:    make([]planner.Tally, 0, len(plan.Tallies)),
		Statistics: StatisticsDocument{
			Score:      plan.Stats.Objective,
			Conflicts:  plan.Stats.Conflicts,
			Branches:   plan.Stats.Branches,
			WallTime:   plan.Stats.WallTime.Seconds(),
			Candidates: plan.Stats.Candidates,
		},
		CreatedAt: plan.CreatedAt,
	}

	if !plan.Solved() {
		return doc
	}

	for d, assignments := range plan.DayAssignments() {
		day := DayDocument{Label: plan.Days[d], Shifts: make([]ShiftDocument, 0, len(assignments))}
		for _, a := range assignments {
			day.Shifts = append(day.Shifts, ShiftDocument{Shift: a.ShiftLabel, User: a.UserLabel, Unwanted: a.Unwanted})
		}
		doc.Days = append(doc.Days, day)
	}
	doc.Users = append(doc.Users, plan.Tallies...)
	doc.Fairness = Fairness(plan)
	return doc
}

// Fairness 计算排班结果的公平性指标
func Fairness(plan *planner.Plan) *stats.FairnessMetrics {
	loads := make([]stats.UserLoad, len(plan.Tallies))
	for i, t := range plan.Tallies {
		loads[i] = stats.UserLoad{Name: t.UserLabel, Shifts: t.Shifts, Unwanted: t.Unwanted}
	}
	return stats.NewFairnessAnalyzer().Analyze(loads)
}
