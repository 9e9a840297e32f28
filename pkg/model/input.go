// Package model 定义排班规划的核心数据模型
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// WishKind 意愿数据的表示形式
type WishKind string

const (
	WishSparse WishKind = "sparse" // 不想要的 [user, day, shift] 列表，其余默认想要
	WishDense  WishKind = "dense"  // [user][day][shift] 的 0/1 矩阵，0 同时表示不可用
)

// Wishes 意愿数据（两种表示形式的判别联合）
type Wishes struct {
	Kind     WishKind
	Unwanted [][]int   // WishSparse 时有效
	Matrix   [][][]int // WishDense 时有效
}

// UnmarshalJSON 根据数组维度判断意愿的表示形式
// 空数组按稀疏形式处理
func (w *Wishes) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	var sparse [][]int
	if err := json.Unmarshal(data, &sparse); err == nil {
		w.Kind = WishSparse
		w.Unwanted = sparse
		w.Matrix = nil
		return nil
	}

	var dense [][][]int
	if err := json.Unmarshal(data, &dense); err != nil {
		return fmt.Errorf("wishes 既不是 [user, day, shift] 列表也不是三维 0/1 矩阵: %w", err)
	}
	w.Kind = WishDense
	w.Matrix = dense
	w.Unwanted = nil
	return nil
}

// MarshalJSON 按原始形式输出
func (w Wishes) MarshalJSON() ([]byte, error) {
	if w.Kind == WishDense {
		return json.Marshal(w.Matrix)
	}
	if w.Unwanted == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(w.Unwanted)
}

// Input 输入文档
// 变体A: blocks + 稀疏 wishes；变体B: 稠密 wishes 矩阵，blocks 可省略
type Input struct {
	Days   []string `json:"days"`
	Shifts []string `json:"shifts"`
	Users  []string `json:"users"`
	Blocks [][]int  `json:"blocks,omitempty"`
	Wishes *Wishes  `json:"wishes"`
}
