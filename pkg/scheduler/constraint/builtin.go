package constraint

import (
	"fmt"

	"github.com/paiban/planner/pkg/scheduler/cp"
)

// base 内置约束的公共部分
type base struct {
	name     string
	typ      Type
	category Category
}

// Name 返回约束名称
func (b *base) Name() string { return b.name }

// Type 返回约束类型
func (b *base) Type() Type { return b.typ }

// Category 返回约束类别
func (b *base) Category() Category { return b.category }

// violation 创建违反详情
func (b *base) violation(u, d, s int, format string, args ...interface{}) ViolationDetail {
	severity := "warning"
	if b.category == CategoryHard {
		severity = "error"
	}
	return ViolationDetail{
		ConstraintType: b.typ,
		ConstraintName: b.name,
		User:           u,
		Day:            d,
		Shift:          s,
		Message:        fmt.Sprintf(format, args...),
		Severity:       severity,
	}
}

// CoverageConstraint 每个 (day, shift) 恰好分配一人
type CoverageConstraint struct {
	base
}

// NewCoverageConstraint 创建覆盖约束
func NewCoverageConstraint() *CoverageConstraint {
	return &CoverageConstraint{base{name: "班次覆盖", typ: TypeCoverage, category: CategoryHard}}
}

// Build 为每个单元添加 Σ_u x[u,d,s] == 1
func (c *CoverageConstraint) Build(ctx *Context) error {
	s := ctx.Schedule
	for d := range s.Days {
		for sh := range s.Shifts {
			name := fmt.Sprintf("coverage_d%ds%d", d, sh)
			if err := ctx.Model.AddExactly(name, ctx.Vars.SlotVars(d, sh), 1); err != nil {
				return err
			}
		}
	}
	return nil
}

// Evaluate 检查每个单元是否恰好一人
func (c *CoverageConstraint) Evaluate(ctx *Context, values cp.Values) []ViolationDetail {
	var out []ViolationDetail
	s := ctx.Schedule
	for d, day := range s.Days {
		for sh, shift := range s.Shifts {
			n := 0
			for _, v := range ctx.Vars.SlotVars(d, sh) {
				if values.Value(v) {
					n++
				}
			}
			if n != 1 {
				out = append(out, c.violation(-1, d, sh, "%s %s 分配了 %d 人", day.Label, shift.Label, n))
			}
		}
	}
	return out
}

// ExclusivityConstraint 每人每天至多一个班次
type ExclusivityConstraint struct {
	base
}

// NewExclusivityConstraint 创建排他约束
func NewExclusivityConstraint() *ExclusivityConstraint {
	return &ExclusivityConstraint{base{name: "每日至多一班", typ: TypeExclusivity, category: CategoryHard}}
}

// Build 为每个 (user, day) 添加 Σ_s x[u,d,s] <= 1
func (c *ExclusivityConstraint) Build(ctx *Context) error {
	s := ctx.Schedule
	for u := range s.Users {
		for d := range s.Days {
			name := fmt.Sprintf("exclusive_u%dd%d", u, d)
			if err := ctx.Model.AddAtMost(name, ctx.Vars.DayVars(u, d), 1); err != nil {
				return err
			}
		}
	}
	return nil
}

// Evaluate 检查每人每天的班次数
func (c *ExclusivityConstraint) Evaluate(ctx *Context, values cp.Values) []ViolationDetail {
	var out []ViolationDetail
	s := ctx.Schedule
	for u, user := range s.Users {
		for d, day := range s.Days {
			n := 0
			for _, v := range ctx.Vars.DayVars(u, d) {
				if values.Value(v) {
					n++
				}
			}
			if n > 1 {
				out = append(out, c.violation(u, d, -1, "%s 在 %s 被分配了 %d 个班次", user.Name, day.Label, n))
			}
		}
	}
	return out
}

// HardBlockConstraint 禁止的 (user, day, shift) 不得分配
type HardBlockConstraint struct {
	base
}

// NewHardBlockConstraint 创建硬性禁止约束
func NewHardBlockConstraint() *HardBlockConstraint {
	return &HardBlockConstraint{base{name: "硬性不可用", typ: TypeHardBlock, category: CategoryHard}}
}

// Build 把每个被禁止的单元固定为0
func (c *HardBlockConstraint) Build(ctx *Context) error {
	for _, slot := range ctx.Schedule.Forbidden() {
		name := fmt.Sprintf("block_u%dd%ds%d", slot.User, slot.Day, slot.Shift)
		if err := ctx.Model.AddFixed(name, ctx.Vars.At(slot.User, slot.Day, slot.Shift), false); err != nil {
			return err
		}
	}
	return nil
}

// Evaluate 检查被禁止的单元是否被分配
func (c *HardBlockConstraint) Evaluate(ctx *Context, values cp.Values) []ViolationDetail {
	var out []ViolationDetail
	s := ctx.Schedule
	for _, slot := range s.Forbidden() {
		if ctx.Vars.Assigned(values, slot.User, slot.Day, slot.Shift) {
			out = append(out, c.violation(slot.User, slot.Day, slot.Shift, "%s 在 %s %s 不可用却被分配",
				s.Users[slot.User].Name, s.Days[slot.Day].Label, s.Shifts[slot.Shift].Label))
		}
	}
	return out
}

// WorkloadConstraint 每个用户的总班次数落在按出勤比例调整的界内
type WorkloadConstraint struct {
	base
}

// NewWorkloadConstraint 创建工作量约束
func NewWorkloadConstraint() *WorkloadConstraint {
	return &WorkloadConstraint{base{name: "公平工作量", typ: TypeWorkload, category: CategoryHard}}
}

// Build 为每个用户添加 lower <= Σ x[u,·,·] <= upper
func (c *WorkloadConstraint) Build(ctx *Context) error {
	if ctx.Fairness == nil {
		return fmt.Errorf("缺少公平性计算结果")
	}
	for u := range ctx.Schedule.Users {
		b := ctx.Fairness.Bound(u)
		name := fmt.Sprintf("workload_u%d", u)
		if err := ctx.Model.AddRange(name, ctx.Vars.UserVars(u), b.Lower, b.Upper); err != nil {
			return err
		}
	}
	return nil
}

// Evaluate 检查每个用户的班次数
func (c *WorkloadConstraint) Evaluate(ctx *Context, values cp.Values) []ViolationDetail {
	if ctx.Fairness == nil {
		return nil
	}
	var out []ViolationDetail
	for u, user := range ctx.Schedule.Users {
		b := ctx.Fairness.Bound(u)
		n := ctx.Vars.Count(values, u)
		if !b.Contains(n) {
			out = append(out, c.violation(u, -1, -1, "%s 的班次数 %d 超出范围 [%d, %d]", user.Name, n, b.Lower, b.Upper))
		}
	}
	return out
}

// RegisterDefaults 注册全部内置硬约束
func RegisterDefaults(m *Manager) {
	m.Register(NewCoverageConstraint())
	m.Register(NewExclusivityConstraint())
	m.Register(NewHardBlockConstraint())
	m.Register(NewWorkloadConstraint())
}

// NewDefaultManager 创建已注册内置约束的管理器
func NewDefaultManager() *Manager {
	m := NewManager()
	RegisterDefaults(m)
	return m
}
