// Package cp 定义与求解引擎无关的布尔约束模型
package cp

import (
	"fmt"
	"math"
)

// Var 布尔决策变量，值为在模型中的序号（从0开始）
type Var int

// Term 线性项 Coef × Var
type Term struct {
	Var  Var `json:"var"`
	Coef int `json:"coef"`
}

// Unbounded 表示约束一侧无界
const Unbounded = math.MaxInt32

// Linear 线性约束 Lower <= Σ Coef×Var <= Upper
type Linear struct {
	Name  string `json:"name"`
	Terms []Term `json:"terms"`
	Lower int    `json:"lower"`
	Upper int    `json:"upper"`
}

// Sum 约束左侧在给定取值下的结果
func (l Linear) Sum(values Values) int {
	sum := 0
	for _, t := range l.Terms {
		if values.Value(t.Var) {
			sum += t.Coef
		}
	}
	return sum
}

// MaxSum 所有变量取真时的左侧最大值
func (l Linear) MaxSum() int {
	sum := 0
	for _, t := range l.Terms {
		sum += t.Coef
	}
	return sum
}

// Satisfied 检查约束是否满足
func (l Linear) Satisfied(values Values) bool {
	sum := l.Sum(values)
	return sum >= l.Lower && sum <= l.Upper
}

// Values 变量取值的只读访问器
type Values interface {
	Value(v Var) bool
}

// BoolSlice 以切片保存的取值
type BoolSlice []bool

// Value 实现 Values
func (b BoolSlice) Value(v Var) bool {
	if int(v) < 0 || int(v) >= len(b) {
		return false
	}
	return b[v]
}

// Model 布尔约束模型
// 变量、约束和目标都由模型自身持有，不存在全局状态
type Model struct {
	names       []string
	constraints []Linear
	objective   []Term
}

// NewModel 创建空模型
func NewModel() *Model {
	return &Model{}
}

// NewBoolVar 新建布尔变量
func (m *Model) NewBoolVar(name string) Var {
	m.names = append(m.names, name)
	return Var(len(m.names) - 1)
}

// NumVars 变量数量
func (m *Model) NumVars() int {
	return len(m.names)
}

// VarName 变量名
func (m *Model) VarName(v Var) string {
	if int(v) < 0 || int(v) >= len(m.names) {
		return fmt.Sprintf("v%d", v)
	}
	return m.names[v]
}

// Constraints 返回全部约束
func (m *Model) Constraints() []Linear {
	return m.constraints
}

// Objective 返回最大化目标的线性项
func (m *Model) Objective() []Term {
	return m.objective
}

// AddLinear 添加线性约束，系数为0的项会被丢弃
func (m *Model) AddLinear(name string, terms []Term, lower, upper int) error {
	kept := make([]Term, 0, len(terms))
	for _, t := range terms {
		if t.Coef < 0 {
			return fmt.Errorf("约束 %s 的变量 %s 系数为负: %d", name, m.VarName(t.Var), t.Coef)
		}
		if int(t.Var) < 0 || int(t.Var) >= len(m.names) {
			return fmt.Errorf("约束 %s 引用了不存在的变量 %d", name, t.Var)
		}
		if t.Coef > 0 {
			kept = append(kept, t)
		}
	}
	if lower > upper {
		return fmt.Errorf("约束 %s 的下界 %d 大于上界 %d", name, lower, upper)
	}
	m.constraints = append(m.constraints, Linear{Name: name, Terms: kept, Lower: lower, Upper: upper})
	return nil
}

// AddExactly Σ vars == n
func (m *Model) AddExactly(name string, vars []Var, n int) error {
	return m.AddLinear(name, unitTerms(vars), n, n)
}

// AddAtMost Σ vars <= n
func (m *Model) AddAtMost(name string, vars []Var, n int) error {
	return m.AddLinear(name, unitTerms(vars), math.MinInt32, n)
}

// AddAtLeast Σ vars >= n
func (m *Model) AddAtLeast(name string, vars []Var, n int) error {
	return m.AddLinear(name, unitTerms(vars), n, Unbounded)
}

// AddRange lower <= Σ vars <= upper
func (m *Model) AddRange(name string, vars []Var, lower, upper int) error {
	return m.AddLinear(name, unitTerms(vars), lower, upper)
}

// AddFixed 固定变量取值
func (m *Model) AddFixed(name string, v Var, value bool) error {
	n := 0
	if value {
		n = 1
	}
	return m.AddExactly(name, []Var{v}, n)
}

// Maximize 设置最大化目标，系数为0的项会被丢弃
func (m *Model) Maximize(terms []Term) {
	m.objective = m.objective[:0]
	for _, t := range terms {
		if t.Coef != 0 {
			m.objective = append(m.objective, t)
		}
	}
}

// ObjectiveValue 目标函数在给定取值下的值
func (m *Model) ObjectiveValue(values Values) int {
	return Linear{Terms: m.objective}.Sum(values)
}

// MaxObjective 目标函数的上界
func (m *Model) MaxObjective() int {
	sum := 0
	for _, t := range m.objective {
		if t.Coef > 0 {
			sum += t.Coef
		}
	}
	return sum
}

// unitTerms 把变量列表转为系数为1的线性项
func unitTerms(vars []Var) []Term {
	terms := make([]Term, len(vars))
	for i, v := range vars {
		terms[i] = Term{Var: v, Coef: 1}
	}
	return terms
}
