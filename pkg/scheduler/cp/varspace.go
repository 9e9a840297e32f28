package cp

import "fmt"

// VarSpace 分配变量空间
// 每个 (user, day, shift) 三元组对应且仅对应一个布尔变量
type VarSpace struct {
	users  int
	days   int
	shifts int
	vars   []Var
}

// NewVarSpace 在模型中为所有三元组创建变量
func NewVarSpace(m *Model, users, days, shifts int) *VarSpace {
	vs := &VarSpace{
		users:  users,
		days:   days,
		shifts: shifts,
		vars:   make([]Var, 0, users*days*shifts),
	}
	for u := 0; u < users; u++ {
		for d := 0; d < days; d++ {
			for s := 0; s < shifts; s++ {
				vs.vars = append(vs.vars, m.NewBoolVar(fmt.Sprintf("shift_u%dd%ds%d", u, d, s)))
			}
		}
	}
	return vs
}

// Size 变量总数
func (vs *VarSpace) Size() int {
	return len(vs.vars)
}

// Dims 返回三个维度的大小
func (vs *VarSpace) Dims() (users, days, shifts int) {
	return vs.users, vs.days, vs.shifts
}

// At 返回三元组对应的变量
func (vs *VarSpace) At(u, d, s int) Var {
	return vs.vars[(u*vs.days+d)*vs.shifts+s]
}

// Assigned 读取求解后三元组的取值
func (vs *VarSpace) Assigned(values Values, u, d, s int) bool {
	return values.Value(vs.At(u, d, s))
}

// UserVars 用户在整个周期的全部变量
func (vs *VarSpace) UserVars(u int) []Var {
	start := u * vs.days * vs.shifts
	out := make([]Var, vs.days*vs.shifts)
	copy(out, vs.vars[start:start+vs.days*vs.shifts])
	return out
}

// SlotVars 某天某班次所有用户的变量
func (vs *VarSpace) SlotVars(d, s int) []Var {
	out := make([]Var, vs.users)
	for u := 0; u < vs.users; u++ {
		out[u] = vs.At(u, d, s)
	}
	return out
}

// DayVars 用户某天所有班次的变量
func (vs *VarSpace) DayVars(u, d int) []Var {
	out := make([]Var, vs.shifts)
	for s := 0; s < vs.shifts; s++ {
		out[s] = vs.At(u, d, s)
	}
	return out
}

// Count 用户在给定取值下被分配的班次数
func (vs *VarSpace) Count(values Values, u int) int {
	n := 0
	for _, v := range vs.UserVars(u) {
		if values.Value(v) {
			n++
		}
	}
	return n
}
