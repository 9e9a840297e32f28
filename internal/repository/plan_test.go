package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/planner/internal/config"
	"github.com/paiban/planner/internal/database"
	apperrors "github.com/paiban/planner/pkg/errors"
	"github.com/paiban/planner/pkg/logger"
	"github.com/paiban/planner/pkg/scheduler/fairness"
	"github.com/paiban/planner/pkg/scheduler/planner"
	"github.com/paiban/planner/pkg/scheduler/solver"
)

func init() {
	logger.Init(logger.Config{Level: "disabled", Output: "discard"})
}

func newRepo(t *testing.T) *PlanRepository {
	t.Helper()
	db, err := database.New(&config.DatabaseConfig{Driver: config.DriverSQLite, DSN: "file::memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return NewPlanRepository(db)
}

func samplePlan(status solver.Status) *planner.Plan {
	p := &planner.Plan{
		ID:       uuid.New(),
		Engine:   solver.EnginePB,
		Status:   status,
		Days:     []string{"Mon"},
		Shifts:   []string{"AM", "PM"},
		Bounds:   []fairness.Bound{{Lower: 1, Upper: 1}, {Lower: 1, Upper: 1}},
		MaxScore: 4,
		Stats: solver.Statistics{
			Objective: 1,
			Conflicts: 3,
			Branches:  5,
			WallTime:  250 * time.Millisecond,
		},
		CreatedAt: time.Now(),
	}
	if status.HasSolution() {
		p.Assignments = []planner.Assignment{
			{Day: 0, Shift: 1, User: 0, DayLabel: "Mon", ShiftLabel: "PM", UserLabel: "alice", Unwanted: true},
			{Day: 0, Shift: 0, User: 1, DayLabel: "Mon", ShiftLabel: "AM", UserLabel: "bob"},
		}
	}
	return p
}

func TestPlanRepository_CreateAndGet(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	plan := samplePlan(solver.StatusOptimal)
	rec := NewPlanRecord(plan, []byte(`{"status":"OPTIMAL"}`))
	require.NoError(t, repo.Create(ctx, rec))

	got, err := repo.GetByID(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.ID, got.ID)
	assert.Equal(t, "OPTIMAL", got.Status)
	assert.Equal(t, 1, got.Score)
	assert.Equal(t, 2, got.Users)
	assert.Equal(t, int64(3), got.Conflicts)
	assert.InDelta(t, 0.25, got.WallTime, 1e-9)
	assert.JSONEq(t, `{"status":"OPTIMAL"}`, got.Document)
	assert.WithinDuration(t, plan.CreatedAt, got.CreatedAt, time.Second)

	assignments, err := repo.GetAssignments(ctx, plan.ID)
	require.NoError(t, err)
	require.Len(t, assignments, 2)
	// 按 (day, shift) 排序
	assert.Equal(t, "bob", assignments[0].UserLabel)
	assert.Equal(t, "alice", assignments[1].UserLabel)
	assert.True(t, assignments[1].Unwanted)
	assert.Equal(t, plan.ID, assignments[0].PlanID)
}

func TestPlanRepository_GetByID_NotFound(t *testing.T) {
	repo := newRepo(t)
	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestPlanRepository_CreateRollsBack(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	rec := NewPlanRecord(samplePlan(solver.StatusOptimal), []byte(`{}`))
	// 重复的 (day, shift) 违反主键，整个事务回滚
	rec.Assignments = append(rec.Assignments, &AssignmentRecord{Day: 0, Shift: 0, User: 0})
	err := repo.Create(ctx, rec)
	assert.True(t, apperrors.Is(err, apperrors.CodeDatabaseError))

	_, err = repo.GetByID(ctx, rec.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestPlanRepository_List(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, status := range []solver.Status{solver.StatusOptimal, solver.StatusInfeasible, solver.StatusOptimal} {
		p := samplePlan(status)
		p.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Create(ctx, NewPlanRecord(p, []byte(`{}`))))
	}

	all, total, err := repo.List(ctx, DefaultListFilter())
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, all, 3)
	assert.True(t, all[0].CreatedAt.After(all[2].CreatedAt), "默认按创建时间倒序")

	optimal, total, err := repo.List(ctx, DefaultListFilter().WithStatus("OPTIMAL").WithEngine(solver.EnginePB))
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, optimal, 2)

	page, total, err := repo.List(ctx, DefaultListFilter().WithLimit(1).WithOffset(1))
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, page, 1)

	// 非法排序参数回退到默认值
	_, _, err = repo.List(ctx, ListFilter{OrderBy: "id; DROP TABLE plans", OrderDir: "sideways"})
	assert.NoError(t, err)
}

func TestPlanRepository_Delete(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	plan := samplePlan(solver.StatusOptimal)
	require.NoError(t, repo.Create(ctx, NewPlanRecord(plan, []byte(`{}`))))

	require.NoError(t, repo.Delete(ctx, plan.ID))
	assignments, err := repo.GetAssignments(ctx, plan.ID)
	require.NoError(t, err)
	assert.Empty(t, assignments)

	err = repo.Delete(ctx, plan.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))
}

func TestNewPlanRecord_NoSolution(t *testing.T) {
	rec := NewPlanRecord(samplePlan(solver.StatusInfeasible), nil)
	assert.Equal(t, "INFEASIBLE", rec.Status)
	assert.Empty(t, rec.Assignments)
	assert.Equal(t, 1, rec.Days)
	assert.Equal(t, 2, rec.Shifts)
}
