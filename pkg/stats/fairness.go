// Package stats 提供排班统计分析功能
package stats

import (
	"math"
	"sort"
)

// UserLoad 用户的工作量（用于统计分析）
type UserLoad struct {
	Name     string `json:"name"`
	Shifts   int    `json:"shifts"`
	Unwanted int    `json:"unwanted"`
}

// FairnessMetrics 公平性指标
type FairnessMetrics struct {
	// 班次数公平性
	ShiftGini      float64 `json:"shift_gini"`     // 班次数基尼系数 (0=完全公平, 1=完全不公平)
	ShiftVariance  float64 `json:"shift_variance"` // 班次数方差
	ShiftStdDev    float64 `json:"shift_std_dev"`  // 班次数标准差
	AvgShifts      float64 `json:"avg_shifts"`     // 人均班次数
	MaxShifts      int     `json:"max_shifts"`     // 最多班次数
	MinShifts      int     `json:"min_shifts"`     // 最少班次数
	ShiftRange     int     `json:"shift_range"`    // 极差
	UnwantedGini   float64 `json:"unwanted_gini"`  // 不受欢迎班次的分配基尼系数
	Satisfaction   float64 `json:"satisfaction"`   // 符合意愿的班次占比 (%)
	TotalShifts    int     `json:"total_shifts"`
	UnwantedShifts int     `json:"unwanted_shifts"`

	// 用户级别统计
	UserStats []UserStat `json:"user_stats"`

	// 综合评分
	OverallFairnessScore float64 `json:"overall_fairness_score"` // 综合公平性评分 (0-100)
}

// UserStat 用户统计
type UserStat struct {
	Name      string  `json:"name"`
	Shifts    int     `json:"shifts"`
	Unwanted  int     `json:"unwanted"`
	Deviation float64 `json:"deviation"` // 与平均值的偏差百分比
}

// FairnessAnalyzer 公平性分析器
type FairnessAnalyzer struct {
	workloadWeight     float64
	unwantedWeight     float64
	satisfactionWeight float64
	spreadWeight       float64
}

// NewFairnessAnalyzer 创建公平性分析器
func NewFairnessAnalyzer() *FairnessAnalyzer {
	return &FairnessAnalyzer{
		workloadWeight:     0.4,
		unwantedWeight:     0.2,
		satisfactionWeight: 0.3,
		spreadWeight:       0.1,
	}
}

// Analyze 分析排班公平性
func (f *FairnessAnalyzer) Analyze(users []UserLoad) *FairnessMetrics {
	if len(users) == 0 {
		return &FairnessMetrics{
			Satisfaction:         100,
			OverallFairnessScore: 100,
		}
	}

	shifts := make([]float64, len(users))
	unwanted := make([]float64, len(users))
	total, totalUnwanted := 0, 0
	for i, u := range users {
		shifts[i] = float64(u.Shifts)
		unwanted[i] = float64(u.Unwanted)
		total += u.Shifts
		totalUnwanted += u.Unwanted
	}

	// 计算基本统计量
	avg := f.calculateMean(shifts)
	variance := f.calculateVariance(shifts, avg)
	stdDev := math.Sqrt(variance)
	maxShifts, minShifts := f.calculateRange(shifts)

	userStats := make([]UserStat, len(users))
	for i, u := range users {
		userStats[i] = UserStat{Name: u.Name, Shifts: u.Shifts, Unwanted: u.Unwanted}
		if avg > 0 {
			userStats[i].Deviation = (float64(u.Shifts) - avg) / avg * 100
		}
	}

	// 按班次数排序，保持输入顺序作为次序
	sort.SliceStable(userStats, func(i, j int) bool {
		return userStats[i].Shifts > userStats[j].Shifts
	})

	satisfaction := 100.0
	if total > 0 {
		satisfaction = float64(total-totalUnwanted) / float64(total) * 100
	}

	shiftGini := f.calculateGini(shifts)
	unwantedGini := f.calculateGini(unwanted)

	return &FairnessMetrics{
		ShiftGini:            shiftGini,
		ShiftVariance:        variance,
		ShiftStdDev:          stdDev,
		AvgShifts:            avg,
		MaxShifts:            int(maxShifts),
		MinShifts:            int(minShifts),
		ShiftRange:           int(maxShifts - minShifts),
		UnwantedGini:         unwantedGini,
		Satisfaction:         satisfaction,
		TotalShifts:          total,
		UnwantedShifts:       totalUnwanted,
		UserStats:            userStats,
		OverallFairnessScore: f.calculateOverallScore(shiftGini, unwantedGini, satisfaction, stdDev, avg),
	}
}

// calculateMean 计算平均值
func (f *FairnessAnalyzer) calculateMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// calculateVariance 计算方差
func (f *FairnessAnalyzer) calculateVariance(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sumSquares := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquares += diff * diff
	}
	return sumSquares / float64(len(values))
}

// calculateRange 计算极值
func (f *FairnessAnalyzer) calculateRange(values []float64) (max, min float64) {
	if len(values) == 0 {
		return 0, 0
	}
	max, min = values[0], values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
		if v < min {
			min = v
		}
	}
	return
}

// calculateGini 计算基尼系数
func (f *FairnessAnalyzer) calculateGini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	if sum == 0 {
		return 0
	}

	gini := 0.0
	for i, v := range sorted {
		gini += (2*float64(i+1) - float64(n) - 1) * v
	}

	gini = gini / (float64(n) * sum)
	return math.Max(0, math.Min(1, gini))
}

// calculateOverallScore 计算综合公平性评分
func (f *FairnessAnalyzer) calculateOverallScore(shiftGini, unwantedGini, satisfaction, stdDev, avg float64) float64 {
	// 基尼系数转换为分数 (0=100分, 1=0分)
	workloadScore := (1 - shiftGini) * 100
	unwantedScore := (1 - unwantedGini) * 100

	// 变异系数越低分数越高
	cvScore := 100.0
	if avg > 0 {
		cv := stdDev / avg
		cvScore = math.Max(0, 100-cv*200)
	}

	score := f.workloadWeight*workloadScore +
		f.unwantedWeight*unwantedScore +
		f.satisfactionWeight*satisfaction +
		f.spreadWeight*cvScore

	return math.Max(0, math.Min(100, score))
}
