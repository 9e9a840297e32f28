// Package constraint 定义约束接口和管理器
package constraint

import (
	"github.com/paiban/planner/pkg/model"
	"github.com/paiban/planner/pkg/scheduler/cp"
	"github.com/paiban/planner/pkg/scheduler/fairness"
)

// Type 约束类型标识
type Type string

const (
	// 硬约束类型
	TypeCoverage    Type = "coverage"       // 每个 (day, shift) 恰好一人
	TypeExclusivity Type = "exclusivity"    // 每人每天至多一个班次
	TypeHardBlock   Type = "hard_block"     // 禁止的 (user, day, shift)
	TypeWorkload    Type = "workload_bound" // 按出勤比例调整的工作量界
)

// Category 约束类别
type Category string

const (
	CategoryHard Category = "hard" // 硬约束（必须满足）
	CategorySoft Category = "soft" // 软约束（尽量满足）
)

// Constraint 约束接口
type Constraint interface {
	// Name 返回约束名称
	Name() string

	// Type 返回约束类型
	Type() Type

	// Category 返回约束类别
	Category() Category

	// Build 把约束编码到模型中
	Build(ctx *Context) error

	// Evaluate 检查求解结果，返回违反详情
	Evaluate(ctx *Context, values cp.Values) []ViolationDetail
}

// ViolationDetail 约束违反详情
// 不适用的维度取 -1
type ViolationDetail struct {
	ConstraintType Type   `json:"constraint_type"`
	ConstraintName string `json:"constraint_name"`
	User           int    `json:"user"`
	Day            int    `json:"day"`
	Shift          int    `json:"shift"`
	Message        string `json:"message"`
	Severity       string `json:"severity"` // error/warning
}

// Context 建模上下文
type Context struct {
	Schedule *model.Schedule
	Fairness *fairness.Report
	Model    *cp.Model
	Vars     *cp.VarSpace
}

// NewContext 创建建模上下文，并为所有三元组分配变量
func NewContext(s *model.Schedule, fr *fairness.Report) *Context {
	m := cp.NewModel()
	return &Context{
		Schedule: s,
		Fairness: fr,
		Model:    m,
		Vars:     cp.NewVarSpace(m, s.NumUsers(), s.NumDays(), s.NumShifts()),
	}
}

// Result 约束评估结果
type Result struct {
	IsValid        bool              `json:"is_valid"`
	HardViolations []ViolationDetail `json:"hard_violations"`
	SoftViolations []ViolationDetail `json:"soft_violations"`
}
