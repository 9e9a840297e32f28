package model

import (
	apperrors "github.com/paiban/planner/pkg/errors"
)

// User 用户
type User struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
}

// Day 排班周期内的一天
type Day struct {
	Index int    `json:"index"`
	Label string `json:"label"`
}

// Shift 班次
type Shift struct {
	Index int    `json:"index"`
	Label string `json:"label"`
}

// Slot (user, day, shift) 三元组
type Slot struct {
	User  int `json:"user"`
	Day   int `json:"day"`
	Shift int `json:"shift"`
}

// SlotState 归一化后的单元状态
// Available=false 为硬约束，Preferred=false 只影响目标函数
type SlotState struct {
	Available bool `json:"available"`
	Preferred bool `json:"preferred"`
}

// Schedule 校验并归一化后的排班数据
type Schedule struct {
	Users    []User
	Days     []Day
	Shifts   []Shift
	Blocks   []Slot
	WishKind WishKind

	states []SlotState
}

// Validate 校验输入文档
// 缺字段、形状错误、索引越界返回 VALIDATION_FAILED；
// 用户为空或 days×shifts 为空返回 CONFIGURATION_ERROR
func (in *Input) Validate() error {
	ve := &apperrors.ValidationErrors{}

	if in.Days == nil {
		ve.Add("days", "缺少必填字段")
	}
	if in.Shifts == nil {
		ve.Add("shifts", "缺少必填字段")
	}
	if in.Users == nil {
		ve.Add("users", "缺少必填字段")
	}
	if in.Wishes == nil {
		ve.Add("wishes", "缺少必填字段")
	}
	if ve.HasErrors() {
		return ve.ToAppError()
	}

	if len(in.Users) == 0 {
		return apperrors.Configuration("用户列表为空，无法计算平均分配目标")
	}
	if len(in.Days)*len(in.Shifts) == 0 {
		return apperrors.Configuration("days × shifts 为空，没有可分配的班次")
	}

	for i, b := range in.Blocks {
		in.validateTriple(ve, "blocks", i, b)
	}

	switch in.Wishes.Kind {
	case WishDense:
		in.validateMatrix(ve)
	default:
		for i, w := range in.Wishes.Unwanted {
			in.validateTriple(ve, "wishes", i, w)
		}
	}

	if ve.HasErrors() {
		return ve.ToAppError()
	}
	return nil
}

// validateTriple 校验 [user, day, shift] 三元组
func (in *Input) validateTriple(ve *apperrors.ValidationErrors, field string, i int, t []int) {
	if len(t) != 3 {
		ve.Addf(field, "第 %d 项应为 [user, day, shift]，实际长度 %d", i, len(t))
		return
	}
	if t[0] < 0 || t[0] >= len(in.Users) {
		ve.Addf(field, "第 %d 项用户索引 %d 越界 [0, %d)", i, t[0], len(in.Users))
	}
	if t[1] < 0 || t[1] >= len(in.Days) {
		ve.Addf(field, "第 %d 项日期索引 %d 越界 [0, %d)", i, t[1], len(in.Days))
	}
	if t[2] < 0 || t[2] >= len(in.Shifts) {
		ve.Addf(field, "第 %d 项班次索引 %d 越界 [0, %d)", i, t[2], len(in.Shifts))
	}
}

// validateMatrix 校验稠密意愿矩阵的形状和取值
func (in *Input) validateMatrix(ve *apperrors.ValidationErrors) {
	m := in.Wishes.Matrix
	if len(m) != len(in.Users) {
		ve.Addf("wishes", "矩阵第一维应为用户数 %d，实际 %d", len(in.Users), len(m))
		return
	}
	for u, days := range m {
		if len(days) != len(in.Days) {
			ve.Addf("wishes", "用户 %d 的日期维应为 %d，实际 %d", u, len(in.Days), len(days))
			continue
		}
		for d, shifts := range days {
			if len(shifts) != len(in.Shifts) {
				ve.Addf("wishes", "用户 %d 日期 %d 的班次维应为 %d，实际 %d", u, d, len(in.Shifts), len(shifts))
				continue
			}
			for s, v := range shifts {
				if v != 0 && v != 1 {
					ve.Addf("wishes", "[%d][%d][%d] 取值 %d 不是 0 或 1", u, d, s, v)
				}
			}
		}
	}
}

// NewSchedule 校验输入并归一化为每个单元的 (available, preferred)
func NewSchedule(in *Input) (*Schedule, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	s := &Schedule{
		Users:    make([]User, len(in.Users)),
		Days:     make([]Day, len(in.Days)),
		Shifts:   make([]Shift, len(in.Shifts)),
		WishKind: in.Wishes.Kind,
	}
	if s.WishKind == "" {
		s.WishKind = WishSparse
	}
	for i, name := range in.Users {
		s.Users[i] = User{Index: i, Name: name}
	}
	for i, label := range in.Days {
		s.Days[i] = Day{Index: i, Label: label}
	}
	for i, label := range in.Shifts {
		s.Shifts[i] = Shift{Index: i, Label: label}
	}

	s.states = make([]SlotState, len(s.Users)*len(s.Days)*len(s.Shifts))
	for i := range s.states {
		s.states[i] = SlotState{Available: true, Preferred: true}
	}

	switch s.WishKind {
	case WishDense:
		for u, days := range in.Wishes.Matrix {
			for d, shifts := range days {
				for sh, v := range shifts {
					if v == 0 {
						s.states[s.index(u, d, sh)] = SlotState{Available: false, Preferred: false}
					}
				}
			}
		}
	default:
		for _, w := range in.Wishes.Unwanted {
			s.states[s.index(w[0], w[1], w[2])].Preferred = false
		}
	}

	for _, b := range in.Blocks {
		slot := Slot{User: b[0], Day: b[1], Shift: b[2]}
		s.Blocks = append(s.Blocks, slot)
		s.states[s.index(slot.User, slot.Day, slot.Shift)].Available = false
	}

	return s, nil
}

// index 计算三元组在扁平数组中的位置
func (s *Schedule) index(u, d, sh int) int {
	return (u*len(s.Days)+d)*len(s.Shifts) + sh
}

// NumUsers 用户数
func (s *Schedule) NumUsers() int { return len(s.Users) }

// NumDays 天数
func (s *Schedule) NumDays() int { return len(s.Days) }

// NumShifts 每天班次数
func (s *Schedule) NumShifts() int { return len(s.Shifts) }

// SlotCount 每个用户的 (day, shift) 单元数
func (s *Schedule) SlotCount() int {
	return len(s.Days) * len(s.Shifts)
}

// State 返回单元状态
func (s *Schedule) State(u, d, sh int) SlotState {
	return s.states[s.index(u, d, sh)]
}

// Available 单元是否可分配（未被 block 或稠密矩阵 0 禁止）
func (s *Schedule) Available(u, d, sh int) bool {
	return s.states[s.index(u, d, sh)].Available
}

// Preferred 单元是否符合用户意愿
func (s *Schedule) Preferred(u, d, sh int) bool {
	return s.states[s.index(u, d, sh)].Preferred
}

// Weight 偏好权重，取值 0 或 1
func (s *Schedule) Weight(u, d, sh int) int {
	if s.Preferred(u, d, sh) {
		return 1
	}
	return 0
}

// AvailableSlots 用户可分配的 (day, shift) 单元数
func (s *Schedule) AvailableSlots(u int) int {
	n := 0
	for d := range s.Days {
		for sh := range s.Shifts {
			if s.Available(u, d, sh) {
				n++
			}
		}
	}
	return n
}

// Forbidden 返回所有被硬性禁止的单元，按 (user, day, shift) 顺序
func (s *Schedule) Forbidden() []Slot {
	var slots []Slot
	for u := range s.Users {
		for d := range s.Days {
			for sh := range s.Shifts {
				if !s.Available(u, d, sh) {
					slots = append(slots, Slot{User: u, Day: d, Shift: sh})
				}
			}
		}
	}
	return slots
}
