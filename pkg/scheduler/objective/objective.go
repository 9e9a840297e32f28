// Package objective 构建偏好满足度目标函数
package objective

import (
	"github.com/paiban/planner/pkg/model"
	"github.com/paiban/planner/pkg/scheduler/cp"
)

// Build 返回 Σ weight(u,d,s) × x(u,d,s) 的线性项
// 权重为0的三元组不出现在结果中
func Build(s *model.Schedule, vs *cp.VarSpace) []cp.Term {
	var terms []cp.Term
	for u := range s.Users {
		for d := range s.Days {
			for sh := range s.Shifts {
				if w := s.Weight(u, d, sh); w > 0 {
					terms = append(terms, cp.Term{Var: vs.At(u, d, sh), Coef: w})
				}
			}
		}
	}
	return terms
}

// Apply 把目标设置到模型上，返回可达到的最大分数
func Apply(m *cp.Model, s *model.Schedule, vs *cp.VarSpace) int {
	m.Maximize(Build(s, vs))
	return m.MaxObjective()
}
