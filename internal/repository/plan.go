package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/paiban/planner/pkg/errors"
	"github.com/paiban/planner/pkg/scheduler/planner"
)

// PlanRecord 求解记录
type PlanRecord struct {
	ID          uuid.UUID           `json:"id"`
	Engine      string              `json:"engine"`
	Status      string              `json:"status"`
	Score       int                 `json:"score"`
	MaxScore    int                 `json:"max_score"`
	Users       int                 `json:"users"`
	Days        int                 `json:"days"`
	Shifts      int                 `json:"shifts"`
	Conflicts   int64               `json:"conflicts"`
	Branches    int64               `json:"branches"`
	WallTime    float64             `json:"wall_time_seconds"`
	Document    string              `json:"document"` // JSON 报告
	CreatedAt   time.Time           `json:"created_at"`
	Assignments []*AssignmentRecord `json:"assignments,omitempty"`
}

// AssignmentRecord 分配记录
type AssignmentRecord struct {
	PlanID     uuid.UUID `json:"plan_id"`
	Day        int       `json:"day"`
	Shift      int       `json:"shift"`
	User       int       `json:"user"`
	DayLabel   string    `json:"day_label"`
	ShiftLabel string    `json:"shift_label"`
	UserLabel  string    `json:"user_label"`
	Unwanted   bool      `json:"unwanted"`
}

// NewPlanRecord 从求解结果构造记录
func NewPlanRecord(plan *planner.Plan, document []byte) *PlanRecord {
	rec := &PlanRecord{
		ID:        plan.ID,
		Engine:    plan.Engine,
		Status:    plan.Status.String(),
		Score:     plan.Score(),
		MaxScore:  plan.MaxScore,
		Users:     len(plan.Bounds),
		Days:      len(plan.Days),
		Shifts:    len(plan.Shifts),
		Conflicts: plan.Stats.Conflicts,
		Branches:  plan.Stats.Branches,
		WallTime:  plan.Stats.WallTime.Seconds(),
		Document:  string(document),
		CreatedAt: plan.CreatedAt,
	}
	for _, a := range plan.Assignments {
		rec.Assignments = append(rec.Assignments, &AssignmentRecord{
			PlanID:     plan.ID,
			Day:        a.Day,
			Shift:      a.Shift,
			User:       a.User,
			DayLabel:   a.DayLabel,
			ShiftLabel: a.ShiftLabel,
			UserLabel:  a.UserLabel,
			Unwanted:   a.Unwanted,
		})
	}
	return rec
}

// PlanRepositoryInterface 求解记录仓储接口
type PlanRepositoryInterface interface {
	Create(ctx context.Context, plan *PlanRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*PlanRecord, error)
	GetAssignments(ctx context.Context, planID uuid.UUID) ([]*AssignmentRecord, error)
	List(ctx context.Context, filter ListFilter) ([]*PlanRecord, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// PlanRepository 求解记录仓储实现
type PlanRepository struct {
	db TxDB
}

// NewPlanRepository 创建求解记录仓储
func NewPlanRepository(db TxDB) *PlanRepository {
	return &PlanRepository{db: db}
}

const planColumns = `id, engine, status, score, max_score, users, days, shifts,
	conflicts, branches, wall_time, document, created_at`

// Create 在一个事务中写入求解记录和全部分配
func (r *PlanRepository) Create(ctx context.Context, plan *PlanRecord) error {
	if plan.ID == uuid.Nil {
		plan.ID = uuid.New()
	}
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = time.Now()
	}
	plan.CreatedAt = plan.CreatedAt.UTC()

	err := r.db.Transaction(ctx, func(tx *sql.Tx) error {
		query := `INSERT INTO plans (` + planColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
		_, err := tx.ExecContext(ctx, query,
			plan.ID.String(), plan.Engine, plan.Status, plan.Score, plan.MaxScore,
			plan.Users, plan.Days, plan.Shifts, plan.Conflicts, plan.Branches,
			plan.WallTime, plan.Document, plan.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("创建求解记录失败: %w", err)
		}

		for _, a := range plan.Assignments {
			a.PlanID = plan.ID
			_, err := tx.ExecContext(ctx, `
				INSERT INTO plan_assignments (
					plan_id, day, shift, user_index, day_label, shift_label, user_label, unwanted
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				plan.ID.String(), a.Day, a.Shift, a.User, a.DayLabel, a.ShiftLabel, a.UserLabel, a.Unwanted,
			)
			if err != nil {
				return fmt.Errorf("创建分配记录失败: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "保存求解记录失败")
	}
	return nil
}

// GetByID 根据ID获取求解记录，不含分配
func (r *PlanRepository) GetByID(ctx context.Context, id uuid.UUID) (*PlanRecord, error) {
	query := `SELECT ` + planColumns + ` FROM plans WHERE id = $1`

	plan, err := scanPlan(r.db.QueryRowContext(ctx, query, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("plan", id.String())
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "查询求解记录失败")
	}
	return plan, nil
}

// GetAssignments 按 (day, shift) 顺序获取分配
func (r *PlanRepository) GetAssignments(ctx context.Context, planID uuid.UUID) ([]*AssignmentRecord, error) {
	query := `
		SELECT plan_id, day, shift, user_index, day_label, shift_label, user_label, unwanted
		FROM plan_assignments
		WHERE plan_id = $1
		ORDER BY day, shift
	`

	rows, err := r.db.QueryContext(ctx, query, planID.String())
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "查询分配记录失败")
	}
	defer rows.Close()

	var out []*AssignmentRecord
	for rows.Next() {
		var a AssignmentRecord
		var id string
		if err := rows.Scan(&id, &a.Day, &a.Shift, &a.User, &a.DayLabel, &a.ShiftLabel, &a.UserLabel, &a.Unwanted); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "读取分配记录失败")
		}
		if a.PlanID, err = uuid.Parse(id); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "非法的记录ID")
		}
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "读取分配记录失败")
	}
	return out, nil
}

// List 列出求解记录
func (r *PlanRepository) List(ctx context.Context, filter ListFilter) ([]*PlanRecord, int, error) {
	filter = filter.normalize()

	var conditions []string
	var args []interface{}
	argNum := 1

	if filter.Engine != "" {
		conditions = append(conditions, fmt.Sprintf("engine = $%d", argNum))
		args = append(args, filter.Engine)
		argNum++
	}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argNum))
		args = append(args, filter.Status)
		argNum++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	// 计数
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM plans %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, apperrors.Wrap(err, apperrors.CodeDatabaseError, "统计求解记录失败")
	}

	// 查询
	query := fmt.Sprintf(`
		SELECT %s
		FROM plans %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, planColumns, whereClause, filter.OrderBy, filter.OrderDir, argNum, argNum+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, apperrors.Wrap(err, apperrors.CodeDatabaseError, "查询求解记录失败")
	}
	defer rows.Close()

	var plans []*PlanRecord
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, 0, apperrors.Wrap(err, apperrors.CodeDatabaseError, "读取求解记录失败")
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperrors.Wrap(err, apperrors.CodeDatabaseError, "读取求解记录失败")
	}

	return plans, total, nil
}

// Delete 删除求解记录及其分配
func (r *PlanRepository) Delete(ctx context.Context, id uuid.UUID) error {
	var affected int64
	err := r.db.Transaction(ctx, func(tx *sql.Tx) error {
		// 先删除分配
		if _, err := tx.ExecContext(ctx, "DELETE FROM plan_assignments WHERE plan_id = $1", id.String()); err != nil {
			return fmt.Errorf("删除分配记录失败: %w", err)
		}

		// 再删除记录
		res, err := tx.ExecContext(ctx, "DELETE FROM plans WHERE id = $1", id.String())
		if err != nil {
			return fmt.Errorf("删除求解记录失败: %w", err)
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "删除求解记录失败")
	}
	if affected == 0 {
		return apperrors.NotFound("plan", id.String())
	}
	return nil
}

// scanPlan 扫描一行求解记录
func scanPlan(row Scanner) (*PlanRecord, error) {
	var p PlanRecord
	var id string
	err := row.Scan(
		&id, &p.Engine, &p.Status, &p.Score, &p.MaxScore, &p.Users, &p.Days, &p.Shifts,
		&p.Conflicts, &p.Branches, &p.WallTime, &p.Document, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if p.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	return &p, nil
}
