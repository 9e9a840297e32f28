// Package fairness 计算用户出勤比例和按比例调整的工作量上下界
package fairness

import (
	apperrors "github.com/paiban/planner/pkg/errors"
	"github.com/paiban/planner/pkg/model"
)

// Ratio 出勤比例 Num/Den，使用整数保存以保证取整结果与平台无关
type Ratio struct {
	Num int `json:"num"` // 可用的 (day, shift) 单元数
	Den int `json:"den"` // 全部 (day, shift) 单元数
}

// Float 浮点值，仅用于展示
func (r Ratio) Float() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// IsZero 用户是否完全不可用
func (r Ratio) IsZero() bool {
	return r.Num == 0
}

// IsFull 用户是否完全可用
func (r Ratio) IsFull() bool {
	return r.Den > 0 && r.Num == r.Den
}

// Target 全局平均分配目标
type Target struct {
	Min int `json:"min"` // ⌊总班次 / 用户数⌋
	Max int `json:"max"` // Min + 1，吸收余数
}

// Bound 单个用户的工作量上下界
type Bound struct {
	Lower int `json:"lower"`
	Upper int `json:"upper"`
}

// Contains 检查班次数是否在界内
func (b Bound) Contains(n int) bool {
	return n >= b.Lower && n <= b.Upper
}

// UserFairness 单个用户的公平性数据
type UserFairness struct {
	User  int   `json:"user"`
	Ratio Ratio `json:"ratio"`
	Bound Bound `json:"bound"`
}

// Report 公平性计算结果
type Report struct {
	Target Target         `json:"target"`
	Users  []UserFairness `json:"users"`
}

// Bound 返回用户的工作量界
func (r *Report) Bound(u int) Bound {
	return r.Users[u].Bound
}

// Bounds 按用户顺序返回全部工作量界
func (r *Report) Bounds() []Bound {
	out := make([]Bound, len(r.Users))
	for i, uf := range r.Users {
		out[i] = uf.Bound
	}
	return out
}

// NewTarget 计算全局平均分配目标
func NewTarget(totalShifts, users int) (Target, error) {
	if users <= 0 {
		return Target{}, apperrors.Configuration("用户数为0，平均分配目标无定义")
	}
	if totalShifts <= 0 {
		return Target{}, apperrors.Configuration("days × shifts 为0，没有可分配的班次")
	}
	base := totalShifts / users
	return Target{Min: base, Max: base + 1}, nil
}

// PresenceRatio 用户出勤比例：1 减去硬性不可用单元所占比例
func PresenceRatio(s *model.Schedule, u int) Ratio {
	return Ratio{Num: s.AvailableSlots(u), Den: s.SlotCount()}
}

// NewBound 根据目标和出勤比例计算工作量界
// lower = ⌊Min × Num / Den⌋，upper = ⌈Max × Num / Den⌉
func NewBound(t Target, r Ratio) Bound {
	if r.Den <= 0 || r.Num <= 0 {
		return Bound{}
	}
	return Bound{
		Lower: floorDiv(t.Min*r.Num, r.Den),
		Upper: ceilDiv(t.Max*r.Num, r.Den),
	}
}

// Calculate 计算所有用户的出勤比例和工作量界
func Calculate(s *model.Schedule) (*Report, error) {
	target, err := NewTarget(s.SlotCount(), s.NumUsers())
	if err != nil {
		return nil, err
	}

	report := &Report{
		Target: target,
		Users:  make([]UserFairness, s.NumUsers()),
	}
	for u := range s.Users {
		ratio := PresenceRatio(s, u)
		report.Users[u] = UserFairness{
			User:  u,
			Ratio: ratio,
			Bound: NewBound(target, ratio),
		}
	}
	return report, nil
}

// floorDiv 非负整数向下取整除法
func floorDiv(a, b int) int {
	return a / b
}

// ceilDiv 非负整数向上取整除法
func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
